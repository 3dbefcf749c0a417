// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package route

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/querydesk/querydesk/internal/classify"
)

// linkTicketsDirective is appended to every ticket split so the resulting
// tickets keep shared context.
const linkTicketsDirective = "Link all resulting tickets to each other for shared context."

// Config carries the router's injected parameters.
type Config struct {
	// LowConfidenceThreshold mirrors the detector's threshold; results below
	// it route to tier-1 for possible reclassification.
	LowConfidenceThreshold float64
	// Overrides are operator-defined rules evaluated after the built-in
	// decision table; the first matching override rewrites destination and
	// action. See overrides.go.
	Overrides []OverrideRule
}

// DefaultConfig returns a router configuration with documented defaults and
// no overrides.
func DefaultConfig() Config {
	return Config{LowConfidenceThreshold: classify.DefaultLowConfidenceThreshold}
}

// rule is one row of the decision table. Rows are evaluated top to bottom;
// the first row whose when() holds produces the decision.
type rule struct {
	name string
	when func(classify.Result) bool
	make func(classify.Result) Decision
}

// Router maps classification results to routing decisions. It is immutable
// after construction and safe for concurrent use.
type Router struct {
	cfg       Config
	table     []rule
	overrides []*compiledOverride
}

// NewRouter builds a router. Override conditions are compiled here; a
// malformed condition or an unknown destination/action name is fatal at
// initialization rather than a silent no-op at request time.
func NewRouter(cfg Config) (*Router, error) {
	if cfg.LowConfidenceThreshold < 0 || cfg.LowConfidenceThreshold > 1 {
		return nil, fmt.Errorf("route: low-confidence threshold %.3f outside [0,1]", cfg.LowConfidenceThreshold)
	}
	r := &Router{cfg: cfg}
	r.table = r.buildTable()
	for _, o := range cfg.Overrides {
		compiled, err := compileOverride(o)
		if err != nil {
			return nil, err
		}
		r.overrides = append(r.overrides, compiled)
	}
	return r, nil
}

// Route maps a classification result to a routing decision. It is total:
// any valid result falls through to the default rule at worst, and override
// evaluation failures are logged and skipped, never surfaced.
func (r *Router) Route(result classify.Result) Decision {
	var decision Decision
	for _, row := range r.table {
		if row.when(result) {
			decision = row.make(result)
			decision.Rule = row.name
			break
		}
	}
	decision.Priority = result.RoutingPriority
	decision.EstimatedWait = estimatedWait(decision.Destination, decision.Action)

	if override, ok := r.applyOverrides(result, &decision); ok {
		decision.Rule = "override:" + override
		decision.EstimatedWait = estimatedWait(decision.Destination, decision.Action)
	}

	log.WithFields(log.Fields{
		"rule":        decision.Rule,
		"destination": decision.Destination.String(),
		"action":      decision.Action.String(),
		"priority":    decision.Priority.String(),
	}).Debug("query routed")

	return decision
}

// buildTable assembles the ordered decision table. The final row matches
// unconditionally, guaranteeing totality.
func (r *Router) buildTable() []rule {
	return []rule{
		{
			name: "critical-escalation",
			when: func(res classify.Result) bool { return res.RoutingPriority == classify.PriorityCritical },
			make: func(res classify.Result) Decision {
				instr := []string{"Alert the on-call manager; immediate response required."}
				if len(res.CriticalMatches) > 0 {
					instr = append(instr, fmt.Sprintf("Critical indicators matched: %s.", strings.Join(res.CriticalMatches, ", ")))
				}
				instr = append(instr, fmt.Sprintf("Reported issue area: %s.", res.PrimaryCategory.Label()))
				return Decision{Destination: EscalationTeam, Action: EscalateImmediately, Instructions: instr}
			},
		},
		{
			name: "multi-intent-split",
			when: func(res classify.Result) bool { return len(res.AdditionalCategories) >= 2 },
			make: func(res classify.Result) Decision {
				plan := make([]classify.Category, 0, res.IntentCount())
				plan = append(plan, res.PrimaryCategory)
				plan = append(plan, res.AdditionalCategories...)
				instr := []string{fmt.Sprintf("Query contains %d distinct issues; split into one ticket per category:", len(plan))}
				for _, c := range plan {
					instr = append(instr, fmt.Sprintf("- %s", c.Label()))
				}
				instr = append(instr, linkTicketsDirective)
				return Decision{Destination: MultiIntentTriage, Action: SplitTickets, Instructions: instr, SplitPlan: plan}
			},
		},
		{
			name: "multi-intent-single",
			when: func(res classify.Result) bool { return res.IsMultiIntent },
			make: func(res classify.Result) Decision {
				return Decision{
					Destination: Tier2Support,
					Action:      SingleTicket,
					Instructions: []string{
						fmt.Sprintf("Query combines %s with %s.", res.PrimaryCategory.Label(), joinCategoryLabels(res.AdditionalCategories)),
						"Senior agent handles both issues in one response.",
					},
				}
			},
		},
		{
			name: "low-confidence",
			when: func(res classify.Result) bool { return res.PrimaryConfidence < r.cfg.LowConfidenceThreshold },
			make: func(res classify.Result) Decision {
				return Decision{
					Destination: Tier1Support,
					Action:      QueueNormal,
					Instructions: []string{
						fmt.Sprintf("Classified as %s with low confidence (%.0f%%).", res.PrimaryCategory.Label(), res.PrimaryConfidence*100),
						"Verify the category and reclassify if needed.",
					},
				}
			},
		},
		{
			name: "billing-specialist",
			when: func(res classify.Result) bool { return res.PrimaryCategory == classify.CategoryBilling },
			make: func(res classify.Result) Decision {
				return Decision{
					Destination:  SpecialistBilling,
					Action:       queueFor(res.RoutingPriority),
					Instructions: []string{"Billing specialist queue for payment issues."},
				}
			},
		},
		{
			name: "technical-specialist",
			when: func(res classify.Result) bool {
				return res.PrimaryCategory == classify.CategoryTechnical || res.PrimaryCategory == classify.CategoryBug
			},
			make: func(res classify.Result) Decision {
				return Decision{
					Destination:  SpecialistTechnical,
					Action:       queueFor(res.RoutingPriority),
					Instructions: []string{"Technical specialist queue for troubleshooting."},
				}
			},
		},
		{
			name: "auto-response",
			when: func(res classify.Result) bool {
				return res.PrimaryCategory == classify.CategoryGeneral && !res.RequiresHumanReview
			},
			make: func(res classify.Result) Decision {
				return Decision{
					Destination:  AutoResponse,
					Action:       SingleTicket,
					Instructions: []string{"Eligible for automated FAQ response."},
				}
			},
		},
		{
			name: "default",
			when: func(classify.Result) bool { return true },
			make: func(res classify.Result) Decision {
				return Decision{
					Destination:  Tier1Support,
					Action:       QueueNormal,
					Instructions: []string{fmt.Sprintf("General support queue for %s.", res.PrimaryCategory.Label())},
				}
			},
		},
	}
}

// queueFor picks the queue action for specialist destinations: high urgency
// jumps the queue, everything else waits in the normal one.
func queueFor(p classify.Priority) Action {
	if p == classify.PriorityHigh {
		return QueuePriority
	}
	return QueueNormal
}

func joinCategoryLabels(cats []classify.Category) string {
	labels := make([]string, len(cats))
	for i, c := range cats {
		labels[i] = c.Label()
	}
	return strings.Join(labels, " and ")
}
