// Package catalog defines the static card catalog: cards, rate tiers,
// bonus groups and special rules. Catalog data is immutable reference data
// loaded once per process; the reward engine assumes a validated catalog
// and never re-checks integrity at computation time.
package catalog

import (
	"cardrewards/internal/core"
)

const (
	Miles    CardKind = "Miles"
	Cashback CardKind = "Cashback"
)

const (
	// RuleSingleGroupBonus grants the tier's bonus rate to exactly one
	// group chosen from the candidate set; every legal choice must be
	// scored downstream.
	RuleSingleGroupBonus RuleKind = "single-group-bonus"
	// RuleDualGroupBonus grants the bonus rate to exactly two groups
	// chosen from the candidate set.
	RuleDualGroupBonus RuleKind = "dual-group-bonus"
	// RuleMinSpendBonus gates the bonus rate behind a minimum-spend
	// threshold; the assignment is deterministic, not combinatorial.
	RuleMinSpendBonus RuleKind = "tiered-bonus-with-minimum"
)

const (
	// MinSpendTotal tests the threshold against total monthly spend.
	MinSpendTotal MinSpendBasis = "total"
	// MinSpendPerGroup tests the threshold against each gated group's
	// subtotal independently.
	MinSpendPerGroup MinSpendBasis = "per-group"
)

const (
	// CapSpend bounds the dollars spent that earn the scoped rate; excess
	// spend falls back to the base rate.
	CapSpend CapKind = "dollars_spent"
	// CapReward bounds the dollars earned; excess reward is forfeited.
	CapReward CapKind = "dollars_earned"
)

type (
	CardKind      string
	RuleKind      string
	MinSpendBasis string
	CapKind       string

	// Group is a named set of categories that share a single bonus-rate
	// eligibility decision.
	Group struct {
		ID         string
		Categories []core.Category
	}

	// SubCap bounds reward accrual within one tier, scoped to either a
	// single category or a group. Exactly one of Category/Group is set.
	SubCap struct {
		Category core.Category
		Group    string
		Kind     CapKind
		Amount   core.Money
	}

	// RateTier is a minimum-spend-gated set of rates and caps. Tiers of a
	// card are ordered by ascending MinSpend and thresholds are unique.
	RateTier struct {
		Description string
		// MinSpend is the threshold the relevant spend figure must reach
		// for this tier to apply.
		MinSpend core.Money
		// MinSpendCategory narrows the threshold comparison to one
		// category's subtotal; empty means total spend.
		MinSpendCategory core.Category
		// Rates maps categories to their reward rate. Categories absent
		// from the map earn BaseRate.
		Rates map[core.Category]core.Rate
		// BaseRate applies to categories without an explicit rate, and to
		// bonus-group spend above a spend sub-cap. May be the zero rate.
		BaseRate core.Rate
		// BonusRate applies to bonus-group spend on special-rule cards.
		BonusRate core.Rate
		// Cap is the optional monthly cap on total reward earned at this
		// tier. Nil means unlimited.
		Cap *core.Money
		// SubCaps are applied before Cap, in catalog order.
		SubCaps []SubCap
	}

	// SpecialRule describes a card constraint beyond flat per-category
	// rates, as a tagged variant dispatched by the rule engine.
	SpecialRule struct {
		Kind RuleKind
		// Candidates are the group IDs eligible for bonus selection
		// (group-bonus kinds) or gated by the threshold (min-spend kind).
		Candidates []string
		// MinSpend and Basis apply to RuleMinSpendBonus only.
		MinSpend core.Money
		Basis    MinSpendBasis
	}

	Card struct {
		ID     string
		Name   string
		Issuer string
		Kind   CardKind
		// Groups defines the card's bonus groups; empty for cards that
		// treat every category independently.
		Groups []Group
		// Tiers ordered by ascending MinSpend.
		Tiers []RateTier
		Rule  *SpecialRule
	}

	// Catalog is the read-only collection of cards available to the
	// engine.
	Catalog struct {
		cards []Card
		byID  map[string]*Card
	}
)

// Group returns the card's group with the given ID, or nil.
func (c *Card) Group(id string) *Group {
	for i := range c.Groups {
		if c.Groups[i].ID == id {
			return &c.Groups[i]
		}
	}
	return nil
}

// GroupOf returns the ID of the group containing cat, or "" if the card
// does not group that category.
func (c *Card) GroupOf(cat core.Category) string {
	for _, g := range c.Groups {
		for _, gc := range g.Categories {
			if gc == cat {
				return g.ID
			}
		}
	}
	return ""
}

// New builds a validated catalog from cards. Returns an IntegrityError if
// any card violates the data-integrity preconditions the engine relies on.
func New(cards []Card) (*Catalog, error) {
	if err := validateCards(cards); err != nil {
		return nil, err
	}
	c := &Catalog{
		cards: cards,
		byID:  make(map[string]*Card, len(cards)),
	}
	for i := range c.cards {
		c.byID[c.cards[i].ID] = &c.cards[i]
	}
	return c, nil
}

// Cards returns all cards in catalog order.
func (c *Catalog) Cards() []Card {
	return c.cards
}

// Card returns the card with the given ID, or nil.
func (c *Catalog) Card(id string) *Card {
	return c.byID[id]
}

// Len returns the number of cards in the catalog.
func (c *Catalog) Len() int {
	return len(c.cards)
}
