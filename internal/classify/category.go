// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package classify implements the support category scorer and multi-intent
// detector. Given a free-text customer query it scores every known category,
// picks a primary, flags secondary intents above the multi-intent threshold
// and derives a routing priority. Detection is pure and deterministic: the
// same query against the same rule set always produces the same result, so
// it is safe to call concurrently without synchronization.
package classify

import "fmt"

// Category is a closed, ordered enumeration of support issue classes.
// Declaration order is significant: score ties are broken in favor of the
// earliest-declared category, and additional categories with equal scores
// keep enumeration order.
type Category int

const (
	CategoryBilling Category = iota
	CategoryTechnical
	CategoryAccount
	CategoryProduct
	CategoryFeature
	CategoryBug
	CategoryGeneral

	categoryCount
)

var categoryLabels = [categoryCount]string{
	CategoryBilling:   "Billing & Payments",
	CategoryTechnical: "Technical Issues",
	CategoryAccount:   "Account Management",
	CategoryProduct:   "Product Questions",
	CategoryFeature:   "Feature Requests",
	CategoryBug:       "Bug Reports",
	CategoryGeneral:   "General Inquiry",
}

// Categories returns every category in declaration order. The returned slice
// is freshly allocated; callers may reorder it.
func Categories() []Category {
	out := make([]Category, 0, categoryCount)
	for c := Category(0); c < categoryCount; c++ {
		out = append(out, c)
	}
	return out
}

// Label returns the human-readable category label.
func (c Category) Label() string {
	if c < 0 || c >= categoryCount {
		return "Unknown"
	}
	return categoryLabels[c]
}

// String implements fmt.Stringer.
func (c Category) String() string { return c.Label() }

// Valid reports whether c is a declared category.
func (c Category) Valid() bool { return c >= 0 && c < categoryCount }

// ParseCategory resolves a human-readable label back to its Category.
func ParseCategory(label string) (Category, error) {
	for c := Category(0); c < categoryCount; c++ {
		if categoryLabels[c] == label {
			return c, nil
		}
	}
	return 0, fmt.Errorf("classify: unknown category %q", label)
}

// MarshalJSON encodes the category as its label.
func (c Category) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.Label() + `"`), nil
}

// UnmarshalJSON decodes a category from its label.
func (c *Category) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("classify: category must be a JSON string, got %s", data)
	}
	parsed, err := ParseCategory(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Priority is the urgency tier guiding queue placement, independent of
// category. Declared in descending urgency.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	// PriorityLow is reserved for a future sub-band: confidence below the
	// low-confidence threshold with no indicator of any kind matched. The
	// detector does not emit it today; the router handles it via the
	// default rule should it ever appear.
	PriorityLow
)

// String implements fmt.Stringer.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the priority as its lowercase name.
func (p Priority) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}
