package catalog

import (
	"errors"
	"fmt"

	"cardrewards/internal/core"
)

// ErrIntegrity marks catalog data-integrity failures. These are always
// construction-time errors: the reward engine assumes a validated catalog.
var ErrIntegrity = errors.New("catalog integrity")

// ErrUnknownCard is returned for lookups of card IDs not in the catalog.
var ErrUnknownCard = errors.New("unknown card")

// IntegrityError carries enough context to point at the offending card.
type IntegrityError struct {
	CardID string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("catalog integrity: card %q: %s", e.CardID, e.Reason)
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrity
}

func integrityErr(cardID, format string, args ...any) error {
	return &IntegrityError{CardID: cardID, Reason: fmt.Sprintf(format, args...)}
}

func validateCards(cards []Card) error {
	seen := make(map[string]bool, len(cards))
	for i := range cards {
		card := &cards[i]
		if card.ID == "" {
			return integrityErr(card.Name, "empty card id")
		}
		if seen[card.ID] {
			return integrityErr(card.ID, "duplicate card id")
		}
		seen[card.ID] = true
		if err := validateCard(card); err != nil {
			return err
		}
	}
	return nil
}

func validateCard(card *Card) error {
	if card.Kind != Miles && card.Kind != Cashback {
		return integrityErr(card.ID, "unknown card kind %q", card.Kind)
	}
	if len(card.Tiers) == 0 {
		return integrityErr(card.ID, "card has no tiers")
	}

	groupIDs := make(map[string]bool, len(card.Groups))
	for _, g := range card.Groups {
		if g.ID == "" {
			return integrityErr(card.ID, "group with empty id")
		}
		if groupIDs[g.ID] {
			return integrityErr(card.ID, "duplicate group %q", g.ID)
		}
		groupIDs[g.ID] = true
		if len(g.Categories) == 0 {
			return integrityErr(card.ID, "group %q has no categories", g.ID)
		}
		for _, cat := range g.Categories {
			if !core.KnownCategory(cat) {
				return integrityErr(card.ID, "group %q references unknown category %q", g.ID, cat)
			}
		}
	}

	// Tiers ascending by threshold, thresholds unique.
	for i, tier := range card.Tiers {
		if i > 0 {
			prev := card.Tiers[i-1].MinSpend.Cents
			if tier.MinSpend.Cents == prev {
				return integrityErr(card.ID, "duplicate tier threshold %s", tier.MinSpend)
			}
			if tier.MinSpend.Cents < prev {
				return integrityErr(card.ID, "tiers not ordered by ascending min spend")
			}
		}
		if err := validateTier(card, &tier, groupIDs); err != nil {
			return err
		}
	}

	if card.Rule != nil {
		if err := validateRule(card, groupIDs); err != nil {
			return err
		}
	}
	return nil
}

func validateTier(card *Card, tier *RateTier, groupIDs map[string]bool) error {
	if tier.MinSpendCategory != "" && !core.KnownCategory(tier.MinSpendCategory) {
		return integrityErr(card.ID, "tier %q: unknown min-spend category %q", tier.Description, tier.MinSpendCategory)
	}
	for cat, rate := range tier.Rates {
		if !core.KnownCategory(cat) {
			return integrityErr(card.ID, "tier %q: rate for unknown category %q", tier.Description, cat)
		}
		if rate.Value < 0 {
			return integrityErr(card.ID, "tier %q: negative rate for %q", tier.Description, cat)
		}
		if rate.Kind != core.Percentage && rate.Kind != core.MilesPerDollar {
			// A rewarded category with no usable rate kind is the classic
			// "rewarded but rate omitted" defect.
			return integrityErr(card.ID, "tier %q: category %q rewarded but rate kind missing", tier.Description, cat)
		}
	}
	if card.Rule != nil && tier.BonusRate.IsZero() {
		return integrityErr(card.ID, "tier %q: special rule present but bonus rate missing", tier.Description)
	}
	if tier.Cap != nil && tier.Cap.Cents < 0 {
		return integrityErr(card.ID, "tier %q: negative cap", tier.Description)
	}
	for _, sc := range tier.SubCaps {
		switch {
		case sc.Category != "" && sc.Group != "":
			return integrityErr(card.ID, "tier %q: sub-cap scoped to both category and group", tier.Description)
		case sc.Category == "" && sc.Group == "":
			return integrityErr(card.ID, "tier %q: sub-cap with no scope", tier.Description)
		case sc.Category != "" && !core.KnownCategory(sc.Category):
			return integrityErr(card.ID, "tier %q: sub-cap for unknown category %q", tier.Description, sc.Category)
		case sc.Group != "" && !groupIDs[sc.Group]:
			return integrityErr(card.ID, "tier %q: sub-cap for undefined group %q", tier.Description, sc.Group)
		}
		if sc.Kind != CapSpend && sc.Kind != CapReward {
			return integrityErr(card.ID, "tier %q: unknown sub-cap kind %q", tier.Description, sc.Kind)
		}
		if sc.Amount.Cents < 0 {
			return integrityErr(card.ID, "tier %q: negative sub-cap", tier.Description)
		}
	}
	return nil
}

func validateRule(card *Card, groupIDs map[string]bool) error {
	rule := card.Rule
	switch rule.Kind {
	case RuleSingleGroupBonus, RuleDualGroupBonus, RuleMinSpendBonus:
	default:
		return integrityErr(card.ID, "unknown rule kind %q", rule.Kind)
	}
	if len(rule.Candidates) == 0 {
		return integrityErr(card.ID, "rule %q has no candidate groups", rule.Kind)
	}
	for _, id := range rule.Candidates {
		if !groupIDs[id] {
			return integrityErr(card.ID, "rule references undefined group %q", id)
		}
	}
	if rule.Kind == RuleDualGroupBonus && len(rule.Candidates) < 2 {
		return integrityErr(card.ID, "dual-group rule needs at least two candidate groups")
	}
	if rule.Kind == RuleMinSpendBonus {
		if rule.MinSpend.Cents < 0 {
			return integrityErr(card.ID, "rule min spend is negative")
		}
		if rule.Basis != MinSpendTotal && rule.Basis != MinSpendPerGroup {
			return integrityErr(card.ID, "unknown min-spend basis %q", rule.Basis)
		}
	}
	return nil
}
