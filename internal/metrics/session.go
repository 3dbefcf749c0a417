// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics keeps in-process counters over the classifications and
// routing decisions made since startup. Everything here is reset by a
// restart; durable history lives in the history package.
package metrics

import (
	"sync"
	"time"

	"github.com/querydesk/querydesk/internal/classify"
	"github.com/querydesk/querydesk/internal/route"
)

// Session accumulates counters. Safe for concurrent use.
type Session struct {
	mu sync.RWMutex

	startedAt     time.Time
	total         int64
	confidenceSum float64
	multiIntent   int64
	humanReview   int64
	byCategory    map[string]int64
	byPriority    map[string]int64
	byDestination map[string]int64
	byRule        map[string]int64
	escalations   int64
	splits        int64
	autoResponses int64
}

// NewSession returns an empty counter set.
func NewSession() *Session {
	return &Session{
		startedAt:     time.Now(),
		byCategory:    make(map[string]int64),
		byPriority:    make(map[string]int64),
		byDestination: make(map[string]int64),
		byRule:        make(map[string]int64),
	}
}

// Observe folds one classified and routed query into the counters.
func (s *Session) Observe(result classify.Result, decision route.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.confidenceSum += result.PrimaryConfidence
	if result.IsMultiIntent {
		s.multiIntent++
	}
	if result.RequiresHumanReview {
		s.humanReview++
	}
	s.byCategory[result.PrimaryCategory.Label()]++
	s.byPriority[result.RoutingPriority.String()]++
	s.byDestination[decision.Destination.String()]++
	s.byRule[decision.Rule]++

	switch decision.Action {
	case route.EscalateImmediately:
		s.escalations++
	case route.SplitTickets:
		s.splits++
	}
	if decision.Destination == route.AutoResponse {
		s.autoResponses++
	}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	StartedAt        time.Time        `json:"started_at"`
	UptimeSeconds    float64          `json:"uptime_seconds"`
	TotalQueries     int64            `json:"total_queries"`
	AvgConfidence    float64          `json:"avg_confidence"`
	MultiIntentCount int64            `json:"multi_intent_count"`
	HumanReviewCount int64            `json:"human_review_count"`
	Escalations      int64            `json:"escalations"`
	TicketSplits     int64            `json:"ticket_splits"`
	AutoResponses    int64            `json:"auto_responses"`
	ByCategory       map[string]int64 `json:"by_category"`
	ByPriority       map[string]int64 `json:"by_priority"`
	ByDestination    map[string]int64 `json:"by_destination"`
	ByRule           map[string]int64 `json:"by_rule"`
}

// Snapshot copies the current counters. The maps in the snapshot are owned
// by the caller.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		StartedAt:        s.startedAt,
		UptimeSeconds:    time.Since(s.startedAt).Seconds(),
		TotalQueries:     s.total,
		MultiIntentCount: s.multiIntent,
		HumanReviewCount: s.humanReview,
		Escalations:      s.escalations,
		TicketSplits:     s.splits,
		AutoResponses:    s.autoResponses,
		ByCategory:       copyCounts(s.byCategory),
		ByPriority:       copyCounts(s.byPriority),
		ByDestination:    copyCounts(s.byDestination),
		ByRule:           copyCounts(s.byRule),
	}
	if s.total > 0 {
		snap.AvgConfidence = s.confidenceSum / float64(s.total)
	}
	return snap
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
