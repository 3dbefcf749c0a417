// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package route

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	log "github.com/sirupsen/logrus"

	"github.com/querydesk/querydesk/internal/classify"
)

// OverrideRule is an operator-defined routing override from configuration.
// Condition is an expr expression over OverrideEnv; when it evaluates true
// the decision's destination and action are replaced. Overrides let an
// operator reshape routing (say, send all billing above 90% confidence
// straight to tier 2 during a billing incident) without a rebuild.
type OverrideRule struct {
	Name        string `yaml:"name" json:"name"`
	Condition   string `yaml:"condition" json:"condition"`
	Destination string `yaml:"destination" json:"destination"`
	Action      string `yaml:"action" json:"action"`
}

// OverrideEnv is the expression environment an override condition sees.
type OverrideEnv struct {
	// Primary is the primary category label.
	Primary string `expr:"Primary"`
	// Confidence is the primary confidence in [0,1].
	Confidence float64 `expr:"Confidence"`
	// MultiIntent reports whether additional intents were detected.
	MultiIntent bool `expr:"MultiIntent"`
	// AdditionalCount is the number of additional categories.
	AdditionalCount int `expr:"AdditionalCount"`
	// Priority is the derived priority name (critical/high/normal/low).
	Priority string `expr:"Priority"`
	// Destination and Action name the table decision being overridden.
	Destination string `expr:"Destination"`
	Action      string `expr:"Action"`
}

type compiledOverride struct {
	name        string
	program     *vm.Program
	destination Destination
	action      Action
}

// compileOverride precompiles the condition and resolves the target
// destination/action names. All errors here are configuration errors and
// fatal at router construction.
func compileOverride(o OverrideRule) (*compiledOverride, error) {
	if o.Name == "" {
		return nil, fmt.Errorf("route: override rule missing a name")
	}
	if o.Condition == "" {
		return nil, fmt.Errorf("route: override %q missing a condition", o.Name)
	}
	dest, err := ParseDestination(o.Destination)
	if err != nil {
		return nil, fmt.Errorf("route: override %q: %w", o.Name, err)
	}
	action, err := ParseAction(o.Action)
	if err != nil {
		return nil, fmt.Errorf("route: override %q: %w", o.Name, err)
	}
	program, err := expr.Compile(o.Condition, expr.Env(OverrideEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("route: override %q: compile condition: %w", o.Name, err)
	}
	return &compiledOverride{name: o.Name, program: program, destination: dest, action: action}, nil
}

// applyOverrides evaluates the overrides in order against the table decision
// and applies the first match. Evaluation errors are logged and the override
// skipped so routing stays total.
func (r *Router) applyOverrides(result classify.Result, decision *Decision) (string, bool) {
	if len(r.overrides) == 0 {
		return "", false
	}
	env := OverrideEnv{
		Primary:         result.PrimaryCategory.Label(),
		Confidence:      result.PrimaryConfidence,
		MultiIntent:     result.IsMultiIntent,
		AdditionalCount: len(result.AdditionalCategories),
		Priority:        result.RoutingPriority.String(),
		Destination:     decision.Destination.String(),
		Action:          decision.Action.String(),
	}
	for _, o := range r.overrides {
		out, err := expr.Run(o.program, env)
		if err != nil {
			log.WithField("override", o.name).WithError(err).Warn("override evaluation failed, skipping")
			continue
		}
		matched, ok := out.(bool)
		if !ok || !matched {
			continue
		}
		decision.Destination = o.destination
		decision.Action = o.action
		// An override that does not split must not leave a stale plan; one
		// that splits keeps the detection-ordered plan invariant.
		if o.action != SplitTickets {
			decision.SplitPlan = nil
		} else if len(decision.SplitPlan) == 0 {
			plan := make([]classify.Category, 0, result.IntentCount())
			plan = append(plan, result.PrimaryCategory)
			plan = append(plan, result.AdditionalCategories...)
			decision.SplitPlan = plan
			decision.Instructions = append(decision.Instructions, linkTicketsDirective)
		}
		return o.name, true
	}
	return "", false
}
