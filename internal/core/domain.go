package core

import (
	"errors"
	"fmt"
)

const (
	Dining        Category = "dining"
	Groceries     Category = "groceries"
	Petrol        Category = "petrol"
	Transport     Category = "transport"
	Streaming     Category = "streaming"
	Entertainment Category = "entertainment"
	Utilities     Category = "utilities"
	Online        Category = "online"
	Travel        Category = "travel"
	Overseas      Category = "overseas"
	Retail        Category = "retail"
	Departmental  Category = "departmental"
	Other         Category = "other"
)

type (
	// Category is an enumerated spending domain. Categories are mutually
	// exclusive and exhaustive of a user's monthly spend.
	Category string

	Money struct {
		Cents int64 `json:"cents"`
	}

	// SpendingVector maps each category to the amount spent in one month.
	// Categories absent from the map are treated as zero.
	SpendingVector map[Category]Money
)

// Categories lists every known category in the fixed processing order used
// throughout reward computation. Caps are depleted in this order, so it must
// stay stable.
var Categories = []Category{
	Dining, Groceries, Petrol, Transport, Streaming, Entertainment,
	Utilities, Online, Travel, Overseas, Retail, Departmental, Other,
}

var (
	ErrNegativeAmount  = errors.New("negative amount")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidAmount   = errors.New("invalid amount")
)

var knownCategories = func() map[Category]bool {
	m := make(map[Category]bool, len(Categories))
	for _, c := range Categories {
		m[c] = true
	}
	return m
}()

// KnownCategory reports whether c is one of the enumerated categories.
func KnownCategory(c Category) bool {
	return knownCategories[c]
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + n.
func (m Money) Add(n Money) Money {
	return Money{Cents: m.Cents + n.Cents}
}

// Sub returns m - n.
func (m Money) Sub(n Money) Money {
	return Money{Cents: m.Cents - n.Cents}
}

// Min returns the smaller of m and n.
func (m Money) Min(n Money) Money {
	if n.Cents < m.Cents {
		return n
	}
	return m
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Validate checks that every category is known and every amount is
// non-negative. A spending vector that fails validation must be rejected
// before any reward computation is attempted.
func (sv SpendingVector) Validate() error {
	for cat, amt := range sv {
		if !KnownCategory(cat) {
			return fmt.Errorf("category %q: %w", cat, ErrUnknownCategory)
		}
		if amt.Cents < 0 {
			return fmt.Errorf("category %q: %w", cat, ErrNegativeAmount)
		}
	}
	return nil
}

// Total returns the sum of all category amounts.
func (sv SpendingVector) Total() Money {
	var total int64
	for _, amt := range sv {
		total += amt.Cents
	}
	return Money{Cents: total}
}

// Get returns the amount for a category, zero if absent.
func (sv SpendingVector) Get(c Category) Money {
	return sv[c]
}

// Clone returns an independent copy of the vector.
func (sv SpendingVector) Clone() SpendingVector {
	out := make(SpendingVector, len(sv))
	for cat, amt := range sv {
		out[cat] = amt
	}
	return out
}
