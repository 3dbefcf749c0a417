// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := NewDetector(DefaultConfig(), DefaultRuleSet())
	require.NoError(t, err)
	return d
}

func TestDetectBillingRefund(t *testing.T) {
	d := newTestDetector(t)
	res := d.Detect("I need a refund for double charge")

	assert.Equal(t, CategoryBilling, res.PrimaryCategory)
	assert.InDelta(t, 0.6875, res.PrimaryConfidence, 0.001)
	assert.False(t, res.IsMultiIntent)
	assert.Empty(t, res.AdditionalCategories)
	assert.Equal(t, PriorityHigh, res.RoutingPriority)
	assert.Equal(t, []string{"double charge", "refund"}, res.HighMatches)
	assert.Empty(t, res.CriticalMatches)
	assert.True(t, res.RequiresHumanReview)
}

func TestDetectTwoIntents(t *testing.T) {
	d := newTestDetector(t)
	res := d.Detect("I was charged twice but refund button shows error")

	assert.Equal(t, CategoryBilling, res.PrimaryCategory)
	assert.InDelta(t, 1.0, res.PrimaryConfidence, 0.001)
	assert.True(t, res.IsMultiIntent)
	assert.Equal(t, []Category{CategoryTechnical}, res.AdditionalCategories)
	assert.InDelta(t, 0.6375, res.CategoryScores[CategoryTechnical], 0.001)
	assert.Equal(t, PriorityHigh, res.RoutingPriority)
	assert.True(t, res.RequiresHumanReview)
}

func TestDetectThreeIntents(t *testing.T) {
	d := newTestDetector(t)
	res := d.Detect("charged $99 twice, refund crashed with error 500, forgot password, please add export feature")

	assert.Equal(t, CategoryBilling, res.PrimaryCategory)
	assert.InDelta(t, 0.8375, res.PrimaryConfidence, 0.001)
	assert.True(t, res.IsMultiIntent)
	// Ordered by descending score: Technical 0.60, Account 0.53. The feature
	// phrasing scores below the multi-intent threshold and stays out.
	assert.Equal(t, []Category{CategoryTechnical, CategoryAccount}, res.AdditionalCategories)
	assert.InDelta(t, 0.6, res.CategoryScores[CategoryTechnical], 0.001)
	assert.InDelta(t, 0.5292, res.CategoryScores[CategoryAccount], 0.001)
	assert.Less(t, res.CategoryScores[CategoryFeature], DefaultMultiIntentThreshold)
	assert.Equal(t, 3, res.IntentCount())
}

func TestDetectCriticalIndicators(t *testing.T) {
	d := newTestDetector(t)
	res := d.Detect("My account was hacked and there is a security breach")

	assert.Equal(t, PriorityCritical, res.RoutingPriority)
	assert.Equal(t, []string{"hacked", "security breach"}, res.CriticalMatches)
	assert.True(t, res.RequiresHumanReview)
	// Critical wins even with a weak category signal.
	assert.Equal(t, CategoryAccount, res.PrimaryCategory)
	assert.InDelta(t, 0.2125, res.PrimaryConfidence, 0.001)
}

func TestDetectCriticalBeatsHigh(t *testing.T) {
	d := newTestDetector(t)
	res := d.Detect("URGENT: My account was hacked and unauthorized charges appeared")

	assert.Equal(t, PriorityCritical, res.RoutingPriority)
	assert.Equal(t, []string{"urgent", "unauthorized", "hacked"}, res.CriticalMatches)
	assert.Equal(t, CategoryBilling, res.PrimaryCategory)
	assert.InDelta(t, 0.6167, res.PrimaryConfidence, 0.001)
}

func TestDetectEmptyQuery(t *testing.T) {
	d := newTestDetector(t)
	res := d.Detect("")

	assert.Equal(t, CategoryGeneral, res.PrimaryCategory)
	assert.Equal(t, 0.0, res.PrimaryConfidence)
	assert.False(t, res.IsMultiIntent)
	assert.Empty(t, res.AdditionalCategories)
	assert.Equal(t, PriorityHigh, res.RoutingPriority)
	for c, score := range res.CategoryScores {
		assert.Zerof(t, score, "category %s", c)
	}
	assert.Len(t, res.CategoryScores, int(categoryCount))
}

func TestDetectLowSignalFallsBackToGeneral(t *testing.T) {
	d := newTestDetector(t)
	res := d.Detect("ok thanks")

	assert.Equal(t, CategoryGeneral, res.PrimaryCategory)
	assert.Equal(t, 0.0, res.PrimaryConfidence)
	// The invariant holds after the fallback too.
	assert.Equal(t, res.CategoryScores[res.PrimaryCategory], res.PrimaryConfidence)
}

func TestDetectNormalPriority(t *testing.T) {
	d := newTestDetector(t)

	res := d.Detect("I want to update the email address on my account profile")
	assert.Equal(t, CategoryAccount, res.PrimaryCategory)
	assert.InDelta(t, 0.975, res.PrimaryConfidence, 0.001)
	assert.Equal(t, PriorityNormal, res.RoutingPriority)
	assert.False(t, res.RequiresHumanReview)

	res = d.Detect("How do I learn more information about your support plans")
	assert.Equal(t, CategoryGeneral, res.PrimaryCategory)
	assert.InDelta(t, 0.85, res.PrimaryConfidence, 0.001)
	assert.Equal(t, PriorityNormal, res.RoutingPriority)
	assert.False(t, res.RequiresHumanReview)
}

func TestDetectInflectedFormsMatchStems(t *testing.T) {
	d := newTestDetector(t)
	// "crashing" matches "crash", "charges" matches "charge" by substring.
	res := d.Detect("The app keeps crashing when I click the save button")
	assert.Equal(t, CategoryTechnical, res.PrimaryCategory)
	assert.InDelta(t, 1.0, res.PrimaryConfidence, 0.001)
	assert.Equal(t, []string{"crash"}, res.HighMatches)
}

func TestDetectLowConfidenceBumpsPriority(t *testing.T) {
	d := newTestDetector(t)
	res := d.Detect("I have a question about something")

	assert.Equal(t, CategoryGeneral, res.PrimaryCategory)
	assert.InDelta(t, 0.425, res.PrimaryConfidence, 0.001)
	assert.Equal(t, PriorityHigh, res.RoutingPriority)
	assert.True(t, res.RequiresHumanReview)
}

func TestDetectReasoningMentionsFindings(t *testing.T) {
	d := newTestDetector(t)
	res := d.Detect("I was charged twice but refund button shows error")

	assert.Contains(t, res.Reasoning, "Billing & Payments")
	assert.Contains(t, res.Reasoning, "Technical Issues")
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.MultiIntentThreshold = 1.5
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.LowConfidenceThreshold = -0.1
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.MinSignalFloor = 2
	assert.Error(t, bad.Validate())
}

func TestNewDetectorRejectsNilRules(t *testing.T) {
	_, err := NewDetector(DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestDetectCustomThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MultiIntentThreshold = 0.9
	d, err := NewDetector(cfg, DefaultRuleSet())
	require.NoError(t, err)

	// With a 0.9 threshold the technical signal no longer counts as a
	// second intent.
	res := d.Detect("I was charged twice but refund button shows error")
	assert.Equal(t, CategoryBilling, res.PrimaryCategory)
	assert.False(t, res.IsMultiIntent)
	assert.Empty(t, res.AdditionalCategories)
}
