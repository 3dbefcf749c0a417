// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package classify

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Default threshold values. They match the original calibration of the rule
// table and are overridable through Config.
const (
	DefaultMultiIntentThreshold   = 0.5
	DefaultLowConfidenceThreshold = 0.5
	DefaultMinSignalFloor         = 0.2

	// groupBoostStep and groupBoostCap reward queries that hit several
	// distinct indicator groups of the same category: each extra matched
	// group adds groupBoostStep, capped at groupBoostCap.
	groupBoostStep = 0.15
	groupBoostCap  = 0.35
)

// Config carries the injected detector thresholds. All values must lie in
// [0,1]; anything else is rejected at construction, never silently clamped.
type Config struct {
	// MultiIntentThreshold is the minimum score for a non-primary category
	// to count as an additional intent.
	MultiIntentThreshold float64
	// LowConfidenceThreshold is the confidence below which a classification
	// is treated as unreliable (priority bump, human review downstream).
	LowConfidenceThreshold float64
	// MinSignalFloor is the minimum top score required to trust the argmax;
	// below it the query resolves to General Inquiry.
	MinSignalFloor float64
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		MultiIntentThreshold:   DefaultMultiIntentThreshold,
		LowConfidenceThreshold: DefaultLowConfidenceThreshold,
		MinSignalFloor:         DefaultMinSignalFloor,
	}
}

// Validate rejects thresholds outside [0,1].
func (c Config) Validate() error {
	check := func(name string, v float64) error {
		if v < 0 || v > 1 {
			return fmt.Errorf("classify: %s %.3f outside [0,1]", name, v)
		}
		return nil
	}
	if err := check("multi-intent threshold", c.MultiIntentThreshold); err != nil {
		return err
	}
	if err := check("low-confidence threshold", c.LowConfidenceThreshold); err != nil {
		return err
	}
	return check("min-signal floor", c.MinSignalFloor)
}

// Detector scores queries against an immutable rule set. It holds no
// per-query state; Detect may be called from any number of goroutines.
type Detector struct {
	cfg   Config
	rules *RuleSet
}

// NewDetector builds a detector, failing fast on invalid thresholds or a nil
// rule set. The system refuses to classify rather than run with undefined
// configuration.
func NewDetector(cfg Config, rules *RuleSet) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rules == nil {
		return nil, fmt.Errorf("classify: nil rule set")
	}
	return &Detector{cfg: cfg, rules: rules}, nil
}

// Config returns the detector's threshold configuration.
func (d *Detector) Config() Config { return d.cfg }

// Rules returns the rule set the detector scores against.
func (d *Detector) Rules() *RuleSet { return d.rules }

// Detect classifies a query. It never fails: empty or degenerate input
// resolves to a zero-score General Inquiry result rather than an error.
func (d *Detector) Detect(query string) Result {
	text := Normalize(query)

	scores := d.scoreCategories(text)

	primary := argmax(scores)
	if scores[primary] < d.cfg.MinSignalFloor {
		// Too little signal to trust the argmax; this also covers the empty
		// query, where every score is zero and the tie would otherwise fall
		// to the first-declared category.
		primary = CategoryGeneral
	}
	confidence := scores[primary]

	var additional []Category
	for c := Category(0); c < categoryCount; c++ {
		if c != primary && scores[c] >= d.cfg.MultiIntentThreshold {
			additional = append(additional, c)
		}
	}
	sortAdditional(additional, scores)
	multiIntent := len(additional) > 0

	critical := matchIndicators(text, d.rules.critical)
	high := matchIndicators(text, d.rules.high)

	var priority Priority
	switch {
	case len(critical) > 0:
		priority = PriorityCritical
	case multiIntent || len(high) > 0 || confidence < d.cfg.LowConfidenceThreshold:
		priority = PriorityHigh
	default:
		priority = PriorityNormal
	}

	result := Result{
		PrimaryCategory:      primary,
		PrimaryConfidence:    confidence,
		AdditionalCategories: additional,
		IsMultiIntent:        multiIntent,
		CategoryScores:       scores,
		RoutingPriority:      priority,
		RequiresHumanReview:  priority == PriorityCritical || priority == PriorityHigh || multiIntent,
		CriticalMatches:      critical,
		HighMatches:          high,
		Reasoning:            buildReasoning(primary, confidence, additional, critical),
	}

	log.WithFields(log.Fields{
		"primary":      primary.Label(),
		"confidence":   fmt.Sprintf("%.3f", confidence),
		"multi_intent": multiIntent,
		"priority":     priority.String(),
		"rules":        d.rules.Version(),
	}).Debug("query classified")

	return result
}

// scoreCategories computes the full score map. Per category: each indicator
// group that matched contributes its keyword coverage ratio times its
// weight; hitting several distinct groups earns a capped boost; the sum
// saturates at 1.0. The aggregation is monotonic in both matched keywords
// and matched groups. An empty text scores 0.0 everywhere.
func (d *Detector) scoreCategories(text string) ScoreMap {
	scores := make(ScoreMap, categoryCount)
	for c := Category(0); c < categoryCount; c++ {
		scores[c] = 0.0
		if text == "" {
			continue
		}
		total := 0.0
		matchedGroups := 0
		for _, g := range d.rules.groups[c] {
			matched := 0
			for _, kw := range g.Keywords {
				if strings.Contains(text, kw) {
					matched++
				}
			}
			if matched > 0 {
				total += float64(matched) / float64(len(g.Keywords)) * g.Weight
				matchedGroups++
			}
		}
		if matchedGroups > 0 {
			boost := groupBoostStep * float64(matchedGroups-1)
			if boost > groupBoostCap {
				boost = groupBoostCap
			}
			total += boost
			if total > 1.0 {
				total = 1.0
			}
			scores[c] = total
		}
	}
	return scores
}

// argmax returns the highest-scoring category, ties to the earliest declared.
func argmax(scores ScoreMap) Category {
	best := Category(0)
	for c := Category(1); c < categoryCount; c++ {
		if scores[c] > scores[best] {
			best = c
		}
	}
	return best
}

// matchIndicators returns the escalation indicators present in the text, in
// list order. Matching is substring containment on the normalized query,
// same semantics as category indicators.
func matchIndicators(text string, indicators []string) []string {
	if text == "" {
		return nil
	}
	var matched []string
	for _, kw := range indicators {
		if strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func buildReasoning(primary Category, confidence float64, additional []Category, critical []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s at %.0f%% confidence", primary.Label(), confidence*100)
	if len(additional) > 0 {
		fmt.Fprintf(&b, "; also detected: %s", joinLabels(additional))
	}
	if len(critical) > 0 {
		fmt.Fprintf(&b, "; critical indicators: %s", strings.Join(critical, ", "))
	}
	return b.String()
}
