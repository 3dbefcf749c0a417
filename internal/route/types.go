// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package route implements the smart router: a deterministic, total mapping
// from a classification result to a routing decision (destination queue,
// action, wait estimate, agent instructions and an optional ticket split
// plan). The decision logic is an explicit ordered rule list with a
// mandatory default, so every valid result routes somewhere.
package route

import (
	"fmt"

	"github.com/querydesk/querydesk/internal/classify"
)

// Destination is the queue or team a query is handed to.
type Destination int

const (
	AutoResponse Destination = iota
	Tier1Support
	Tier2Support
	SpecialistBilling
	SpecialistTechnical
	EscalationTeam
	MultiIntentTriage

	destinationCount
)

var destinationNames = [destinationCount]string{
	AutoResponse:        "auto_response",
	Tier1Support:        "tier_1_support",
	Tier2Support:        "tier_2_support",
	SpecialistBilling:   "specialist_billing",
	SpecialistTechnical: "specialist_technical",
	EscalationTeam:      "escalation_team",
	MultiIntentTriage:   "multi_intent_triage",
}

// String implements fmt.Stringer.
func (d Destination) String() string {
	if d < 0 || d >= destinationCount {
		return "unknown"
	}
	return destinationNames[d]
}

// MarshalJSON encodes the destination as its snake_case name.
func (d Destination) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// ParseDestination resolves a snake_case name back to its Destination.
func ParseDestination(name string) (Destination, error) {
	for d := Destination(0); d < destinationCount; d++ {
		if destinationNames[d] == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("route: unknown destination %q", name)
}

// Action is what the receiving queue should do with the query.
type Action int

const (
	SingleTicket Action = iota
	SplitTickets
	EscalateImmediately
	QueuePriority
	QueueNormal

	actionCount
)

var actionNames = [actionCount]string{
	SingleTicket:        "single_ticket",
	SplitTickets:        "split_tickets",
	EscalateImmediately: "escalate_immediately",
	QueuePriority:       "queue_priority",
	QueueNormal:         "queue_normal",
}

// String implements fmt.Stringer.
func (a Action) String() string {
	if a < 0 || a >= actionCount {
		return "unknown"
	}
	return actionNames[a]
}

// MarshalJSON encodes the action as its snake_case name.
func (a Action) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// ParseAction resolves a snake_case name back to its Action.
func ParseAction(name string) (Action, error) {
	for a := Action(0); a < actionCount; a++ {
		if actionNames[a] == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("route: unknown action %q", name)
}

// Qualitative wait-time labels. EstimatedWait is a pure function of
// (destination, action), never of wall-clock queue state.
const (
	WaitImmediate = "immediate"
	WaitShort     = "short"
	WaitStandard  = "standard"
	WaitNone      = "none"
)

// Decision is the router's output for one classification result.
type Decision struct {
	Destination Destination       `json:"destination"`
	Action      Action            `json:"action"`
	Priority    classify.Priority `json:"priority"`
	// EstimatedWait is one of the Wait* labels.
	EstimatedWait string `json:"estimated_wait"`
	// Instructions are human-readable notes for the receiving agent.
	Instructions []string `json:"instructions"`
	// SplitPlan is non-empty exactly when Action is SplitTickets; it always
	// starts with the primary category followed by the additional
	// categories in detection order.
	SplitPlan []classify.Category `json:"split_plan,omitempty"`
	// Rule names the decision-table rule (or override) that produced this
	// decision, for diagnostics and history.
	Rule string `json:"rule"`
}

// estimatedWait maps (destination, action) to a qualitative wait label.
func estimatedWait(dest Destination, action Action) string {
	if dest == AutoResponse {
		return WaitNone
	}
	switch action {
	case EscalateImmediately, SplitTickets:
		return WaitImmediate
	case QueuePriority:
		return WaitShort
	case SingleTicket:
		if dest == Tier2Support {
			return WaitShort
		}
		return WaitStandard
	default:
		return WaitStandard
	}
}
