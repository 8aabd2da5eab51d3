// Package rewards implements the reward allocation engine: tier
// resolution, bonus-group assignment enumeration, single-card reward
// computation and the two-card allocation search.
package rewards

import (
	"cardrewards/internal/catalog"
	"cardrewards/internal/core"
)

// ResolveTier selects the card's applicable rate tier for a month of
// spending: the tier with the highest minimum-spend threshold not exceeding
// the relevant spend figure. The relevant figure is total spend, or a
// category subtotal when the tier narrows it. Spend below every threshold
// falls back to the lowest tier; this never fails.
func ResolveTier(card *catalog.Card, sv core.SpendingVector) *catalog.RateTier {
	best := &card.Tiers[0]
	for i := range card.Tiers {
		tier := &card.Tiers[i]
		figure := sv.Total()
		if tier.MinSpendCategory != "" {
			figure = sv.Get(tier.MinSpendCategory)
		}
		// Tiers are ordered ascending, so the last qualifying tier wins.
		// The threshold is inclusive: spend exactly at the minimum
		// qualifies.
		if figure.Cents >= tier.MinSpend.Cents {
			best = tier
		}
	}
	return best
}
