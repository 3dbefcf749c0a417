// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package classify

import "fmt"

// IndicatorGroup is one weighted bundle of keywords or phrases for a
// category. A group contributes (matched/len(Keywords)) * Weight to the
// category score, so broad groups need several hits to pull their full
// weight while a tight two-keyword group saturates quickly.
type IndicatorGroup struct {
	Keywords []string
	Weight   float64
}

// RuleSet is the immutable, versioned indicator table the detector scores
// against. It is built once at startup (or on a rule-file reload) and never
// mutated afterwards, so concurrent detections need no locking.
type RuleSet struct {
	version  string
	groups   [categoryCount][]IndicatorGroup
	critical []string
	high     []string
}

// NewRuleSet validates and assembles a rule set. Every declared category may
// carry zero or more groups; a group with no keywords or a weight outside
// (0, 1] is a configuration error and rejected outright.
func NewRuleSet(version string, groups map[Category][]IndicatorGroup, critical, high []string) (*RuleSet, error) {
	rs := &RuleSet{version: version}
	for cat, catGroups := range groups {
		if !cat.Valid() {
			return nil, fmt.Errorf("classify: rule set references invalid category %d", int(cat))
		}
		for i, g := range catGroups {
			if len(g.Keywords) == 0 {
				return nil, fmt.Errorf("classify: %s indicator group %d has no keywords", cat, i)
			}
			if g.Weight <= 0 || g.Weight > 1 {
				return nil, fmt.Errorf("classify: %s indicator group %d weight %.2f outside (0,1]", cat, i, g.Weight)
			}
			for _, kw := range g.Keywords {
				if kw == "" {
					return nil, fmt.Errorf("classify: %s indicator group %d contains an empty keyword", cat, i)
				}
			}
		}
		rs.groups[cat] = catGroups
	}
	rs.critical = append([]string(nil), critical...)
	rs.high = append([]string(nil), high...)
	return rs, nil
}

// Version returns the rule table version string, for logging and history.
func (rs *RuleSet) Version() string { return rs.version }

// Groups returns the indicator groups for a category.
func (rs *RuleSet) Groups(c Category) []IndicatorGroup {
	if !c.Valid() {
		return nil
	}
	return rs.groups[c]
}

// DefaultRuleSet returns the built-in indicator table. It is used whenever
// no external rule file is configured and is the table all documented
// scenarios are calibrated against.
func DefaultRuleSet() *RuleSet {
	rs, err := NewRuleSet("builtin-1", map[Category][]IndicatorGroup{
		CategoryBilling: {
			{Keywords: []string{"refund", "charged", "charge", "payment", "bill", "invoice"}, Weight: 0.9},
			{Keywords: []string{"money", "paid", "cost", "price", "fee", "dollars"}, Weight: 0.8},
			{Keywords: []string{"subscription", "cancel", "upgrade", "downgrade"}, Weight: 0.85},
			{Keywords: []string{"credit card", "debit card", "payment method"}, Weight: 0.9},
			{Keywords: []string{"money back", "charged twice", "double charge", "twice"}, Weight: 0.95},
			{Keywords: []string{"overcharged", "unauthorized charge", "incorrect charge"}, Weight: 0.95},
			{Keywords: []string{"receipt", "transaction", "purchase"}, Weight: 0.75},
		},
		CategoryTechnical: {
			{Keywords: []string{"error", "crash", "glitch"}, Weight: 0.9},
			{Keywords: []string{"not working", "stopped working", "keeps failing"}, Weight: 0.85},
			{Keywords: []string{"loading", "slow", "timeout", "connection"}, Weight: 0.8},
			{Keywords: []string{"button", "click", "page", "screen"}, Weight: 0.75},
			{Keywords: []string{"app", "browser", "mobile", "desktop"}, Weight: 0.7},
			{Keywords: []string{"update", "version", "install"}, Weight: 0.75},
		},
		CategoryAccount: {
			{Keywords: []string{"forgot password", "reset password", "lost password", "forgot my password"}, Weight: 0.95},
			{Keywords: []string{"password", "login", "log in", "sign in", "signin", "access"}, Weight: 0.85},
			{Keywords: []string{"locked out", "cannot access", "cant access"}, Weight: 0.9},
			{Keywords: []string{"account", "profile", "settings", "preferences"}, Weight: 0.85},
			{Keywords: []string{"email", "username", "change", "update"}, Weight: 0.8},
			{Keywords: []string{"delete account", "close account", "deactivate"}, Weight: 0.95},
			{Keywords: []string{"verify", "verification", "confirm"}, Weight: 0.75},
			{Keywords: []string{"personal information", "details", "data"}, Weight: 0.8},
		},
		CategoryProduct: {
			{Keywords: []string{"product", "plans", "pricing", "tier"}, Weight: 0.8},
			{Keywords: []string{"what is", "how does", "difference between"}, Weight: 0.7},
			{Keywords: []string{"compare", "options", "available"}, Weight: 0.65},
		},
		CategoryFeature: {
			{Keywords: []string{"add feature", "new feature", "feature request"}, Weight: 0.95},
			{Keywords: []string{"can you add", "could you add", "please add", "would you add", "it would be great"}, Weight: 0.9},
			{Keywords: []string{"would like", "wish", "suggestion"}, Weight: 0.85},
			{Keywords: []string{"export", "download", "import", "integrate", "sync", "api access"}, Weight: 0.8},
			{Keywords: []string{"improve", "enhancement", "better", "easier"}, Weight: 0.75},
			{Keywords: []string{"missing", "need", "want", "require"}, Weight: 0.7},
		},
		CategoryBug: {
			{Keywords: []string{"bug", "defect", "issue", "problem"}, Weight: 0.9},
			{Keywords: []string{"unexpected", "incorrect", "wrong"}, Weight: 0.85},
			{Keywords: []string{"should work", "supposed to", "expected"}, Weight: 0.8},
			{Keywords: []string{"always fails", "consistently", "reproducible", "every time"}, Weight: 0.85},
		},
		CategoryGeneral: {
			{Keywords: []string{"help", "support", "question", "how"}, Weight: 0.5},
			{Keywords: []string{"what", "why", "when", "where"}, Weight: 0.4},
			{Keywords: []string{"information", "about", "learn"}, Weight: 0.45},
		},
	},
		[]string{
			"urgent", "emergency", "critical", "asap", "immediately",
			"fraud", "unauthorized", "hacked", "stolen", "security breach",
			"locked out", "cannot access", "cant access",
		},
		[]string{
			"crash", "error", "down", "not working", "broken",
			"charged twice", "double charge", "refund", "money back",
			"forgot password", "reset password",
		})
	if err != nil {
		// The built-in table is validated by tests; a failure here is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return rs
}
