// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/querydesk/querydesk/internal/classify"
)

// RuleFile is the on-disk YAML form of a classification rule table. It maps
// category labels to weighted indicator groups plus the two global
// escalation lists. Compile turns it into an immutable classify.RuleSet,
// performing the same validation the builtin table passes.
type RuleFile struct {
	Version    string         `yaml:"version"`
	Categories []CategoryFile `yaml:"categories"`
	// CriticalIndicators force critical priority when present in a query.
	CriticalIndicators []string `yaml:"critical-indicators"`
	// HighUrgencyIndicators bump priority to high.
	HighUrgencyIndicators []string `yaml:"high-urgency-indicators"`
}

// CategoryFile is one category's indicator groups, keyed by its label.
type CategoryFile struct {
	Category   string          `yaml:"category"`
	Indicators []IndicatorFile `yaml:"indicators"`
}

// IndicatorFile is one weighted keyword group.
type IndicatorFile struct {
	Keywords []string `yaml:"keywords"`
	Weight   float64  `yaml:"weight"`
}

// LoadRuleFile reads and parses a rule file without compiling it.
func LoadRuleFile(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read rules %s: %w", path, err)
	}
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("config: parse rules %s: %w", path, err)
	}
	return &rf, nil
}

// Compile validates the file and builds the rule set the detector scores
// against. Unknown category labels, empty keyword lists and out-of-range
// weights are all rejected.
func (rf *RuleFile) Compile() (*classify.RuleSet, error) {
	if rf.Version == "" {
		return nil, fmt.Errorf("config: rule file missing a version")
	}
	if len(rf.Categories) == 0 {
		return nil, fmt.Errorf("config: rule file %s has no categories", rf.Version)
	}
	groups := make(map[classify.Category][]classify.IndicatorGroup, len(rf.Categories))
	for _, cf := range rf.Categories {
		cat, err := classify.ParseCategory(cf.Category)
		if err != nil {
			return nil, fmt.Errorf("config: rule file %s: %w", rf.Version, err)
		}
		if _, dup := groups[cat]; dup {
			return nil, fmt.Errorf("config: rule file %s: category %q listed twice", rf.Version, cf.Category)
		}
		gs := make([]classify.IndicatorGroup, 0, len(cf.Indicators))
		for _, ind := range cf.Indicators {
			gs = append(gs, classify.IndicatorGroup{Keywords: ind.Keywords, Weight: ind.Weight})
		}
		groups[cat] = gs
	}
	return classify.NewRuleSet(rf.Version, groups, rf.CriticalIndicators, rf.HighUrgencyIndicators)
}

// LoadRules is the one-shot path used at startup: read, parse, compile.
func LoadRules(path string) (*classify.RuleSet, error) {
	rf, err := LoadRuleFile(path)
	if err != nil {
		return nil, err
	}
	return rf.Compile()
}
