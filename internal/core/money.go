// Package core provides the value objects shared by the reward engine:
// categories, monetary amounts in integer cents, spending vectors and
// reward rates.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Zero is a valid amount: a user
// may legitimately spend nothing in a category. Negative values and invalid
// formats return an error.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only unsigned values allowed
		return 0, ErrInvalidAmount
	}
	// Split into integer and fractional part
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	// Convert integer part - check for overflow
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// Take first two fractional digits; then half-up rounding on third
	var fracCents int64 = 0
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 {
				if fracPart[2] >= '5' {
					fracCents++
				}
			}
		}
	}
	return iv*100 + fracCents, nil
}

// Dollars returns the dollar value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Dollars() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the amount as $x.yy.
func (m Money) String() string {
	neg := m.Cents < 0
	c := m.Cents
	if neg {
		c = -c
	}
	s := fmt.Sprintf("$%d.%02d", c/100, c%100)
	if neg {
		return "-" + s
	}
	return s
}

const (
	// Percentage rates earn rate% of the amount spent (cashback cards).
	Percentage RateKind = "percentage"
	// MilesPerDollar rates earn rate miles for every dollar spent; miles are
	// valued at a configurable conversion rate (miles cards).
	MilesPerDollar RateKind = "mpd"
)

type (
	RateKind string

	// Rate is a reward rate applied to spending in a category. The zero
	// value is a valid "earns nothing" rate.
	Rate struct {
		Value float64
		Kind  RateKind
	}
)

// DefaultMilesValue is the assumed currency value of one mile, in dollars.
const DefaultMilesValue = 0.02

// IsZero reports whether the rate earns nothing.
func (r Rate) IsZero() bool {
	return r.Value == 0
}

// Reward returns the reward earned by spending amount at this rate, in
// cents, rounded half-up. milesValue is the dollar value of one mile and is
// ignored for percentage rates.
func (r Rate) Reward(amount Money, milesValue float64) Money {
	return Money{Cents: roundCents(float64(amount.Cents) * r.PerCent(milesValue))}
}

// PerCent returns the reward earned per cent of spending, as a float. This
// is the comparable "effective rate" used when two cards compete for the
// same category.
func (r Rate) PerCent(milesValue float64) float64 {
	switch r.Kind {
	case Percentage:
		return r.Value / 100
	case MilesPerDollar:
		return r.Value * milesValue
	default:
		return 0
	}
}

// String renders the rate the way card terms express it, e.g. "4 mpd" or
// "1.5%".
func (r Rate) String() string {
	v := strconv.FormatFloat(r.Value, 'f', -1, 64)
	if r.Kind == MilesPerDollar {
		return v + " mpd"
	}
	return v + "%"
}

func roundCents(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}
