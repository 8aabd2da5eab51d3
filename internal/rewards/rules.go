package rewards

import (
	"cardrewards/internal/catalog"
	"cardrewards/internal/core"
)

// GroupAssignment names the groups that receive the elevated bonus rate for
// one evaluation round. The zero value is the trivial assignment: every
// category rated independently, no bonus groups.
type GroupAssignment struct {
	Bonus []string
}

// HasBonus reports whether the group was selected as a bonus recipient.
func (a GroupAssignment) HasBonus(groupID string) bool {
	for _, id := range a.Bonus {
		if id == groupID {
			return true
		}
	}
	return false
}

// EnumerateAssignments produces every legal bonus-group assignment for the
// card under the given tier and spending. Plain cards get the single
// trivial assignment. Group-bonus rules yield the full combinatorial
// candidate space: the right choice depends on what a competing card offers,
// so every legal choice must be scored downstream rather than guessed from
// spend magnitude. Min-spend rules are deterministic and yield exactly one
// assignment.
func EnumerateAssignments(card *catalog.Card, tier *catalog.RateTier, sv core.SpendingVector) []GroupAssignment {
	rule := card.Rule
	if rule == nil {
		return []GroupAssignment{{}}
	}

	switch rule.Kind {
	case catalog.RuleSingleGroupBonus:
		out := make([]GroupAssignment, 0, len(rule.Candidates))
		for _, id := range rule.Candidates {
			out = append(out, GroupAssignment{Bonus: []string{id}})
		}
		return out

	case catalog.RuleDualGroupBonus:
		var out []GroupAssignment
		for i := 0; i < len(rule.Candidates); i++ {
			for j := i + 1; j < len(rule.Candidates); j++ {
				out = append(out, GroupAssignment{
					Bonus: []string{rule.Candidates[i], rule.Candidates[j]},
				})
			}
		}
		return out

	case catalog.RuleMinSpendBonus:
		var bonus []string
		switch rule.Basis {
		case catalog.MinSpendPerGroup:
			for _, id := range rule.Candidates {
				if groupSpend(card, id, sv).Cents >= rule.MinSpend.Cents {
					bonus = append(bonus, id)
				}
			}
		default: // total
			if sv.Total().Cents >= rule.MinSpend.Cents {
				bonus = rule.Candidates
			}
		}
		return []GroupAssignment{{Bonus: bonus}}

	default:
		// Unknown kinds are rejected at catalog construction.
		return []GroupAssignment{{}}
	}
}

// EffectiveRate returns the rate the card pays for a category under the
// given tier and assignment: the bonus rate if the category's group was
// selected this round, the tier's explicit category rate otherwise, and the
// base rate as fallback. The zero rate means the card does not reward the
// category.
func EffectiveRate(card *catalog.Card, tier *catalog.RateTier, asg GroupAssignment, cat core.Category) core.Rate {
	if gid := card.GroupOf(cat); gid != "" && asg.HasBonus(gid) {
		return tier.BonusRate
	}
	if rate, ok := tier.Rates[cat]; ok {
		return rate
	}
	return tier.BaseRate
}

func groupSpend(card *catalog.Card, groupID string, sv core.SpendingVector) core.Money {
	g := card.Group(groupID)
	if g == nil {
		return core.Money{}
	}
	var total int64
	for _, cat := range g.Categories {
		total += sv.Get(cat).Cents
	}
	return core.Money{Cents: total}
}
