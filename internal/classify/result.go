// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package classify

import (
	"sort"
	"strings"
)

// ScoreMap holds one confidence score in [0,1] per declared category.
// Map iteration order is random in Go, so consumers that need reproducible
// output (tie-breaking, rendering, history blobs) go through Ordered.
type ScoreMap map[Category]float64

// CategoryScore pairs a category with its confidence for ordered iteration.
type CategoryScore struct {
	Category Category `json:"category"`
	Score    float64  `json:"score"`
}

// Ordered returns the scores in category declaration order.
func (m ScoreMap) Ordered() []CategoryScore {
	out := make([]CategoryScore, 0, len(m))
	for c := Category(0); c < categoryCount; c++ {
		if s, ok := m[c]; ok {
			out = append(out, CategoryScore{Category: c, Score: s})
		}
	}
	return out
}

// Labeled returns the scores keyed by category label, for JSON payloads.
func (m ScoreMap) Labeled() map[string]float64 {
	out := make(map[string]float64, len(m))
	for c, s := range m {
		out[c.Label()] = s
	}
	return out
}

// Result is the detector's output for a single query. It is a value type:
// created fresh per query, handed to the router and the caller, never
// retained by the detector.
type Result struct {
	// PrimaryCategory is the argmax of CategoryScores; ties resolve to the
	// earliest-declared category.
	PrimaryCategory Category `json:"primary_category"`
	// PrimaryConfidence is CategoryScores[PrimaryCategory], always in [0,1].
	PrimaryConfidence float64 `json:"primary_confidence"`
	// AdditionalCategories lists every non-primary category at or above the
	// multi-intent threshold, by descending score then declaration order.
	AdditionalCategories []Category `json:"additional_categories"`
	// IsMultiIntent is true exactly when AdditionalCategories is non-empty.
	IsMultiIntent bool `json:"is_multi_intent"`
	// CategoryScores always carries one entry per declared category.
	CategoryScores ScoreMap `json:"category_scores"`
	// RoutingPriority is the derived urgency tier.
	RoutingPriority Priority `json:"routing_priority"`
	// RequiresHumanReview is true for critical/high priority or multi-intent
	// queries.
	RequiresHumanReview bool `json:"requires_human_review"`
	// CriticalMatches and HighMatches record which escalation indicators
	// fired, for agent instructions and diagnostics.
	CriticalMatches []string `json:"critical_matches,omitempty"`
	HighMatches     []string `json:"high_matches,omitempty"`
	// Reasoning is a short human-readable explanation of the decision.
	Reasoning string `json:"reasoning"`
}

// IntentCount returns the total number of detected intents, primary included.
func (r Result) IntentCount() int { return 1 + len(r.AdditionalCategories) }

// sortAdditional orders candidates by descending score, ties by declaration
// order. Stable given the deterministic input order from the score map walk.
func sortAdditional(cands []Category, scores ScoreMap) {
	sort.SliceStable(cands, func(i, j int) bool {
		si, sj := scores[cands[i]], scores[cands[j]]
		if si != sj {
			return si > sj
		}
		return cands[i] < cands[j]
	})
}

func joinLabels(cats []Category) string {
	labels := make([]string, len(cats))
	for i, c := range cats {
		labels[i] = c.Label()
	}
	return strings.Join(labels, ", ")
}
