package rewards

import (
	"cardrewards/internal/catalog"
	"cardrewards/internal/core"
)

type (
	// LineItem is one row of a card's reward breakdown. A category whose
	// spend straddles a spend sub-cap produces two lines: the within-cap
	// portion at the elevated rate and the excess at the base rate.
	LineItem struct {
		Category core.Category `json:"category"`
		Amount   core.Money    `json:"amount"`
		Rate     core.Rate     `json:"rate"`
		// Reward is the uncapped reward earned by this line.
		Reward core.Money `json:"reward"`
		// CapOverflow marks lines whose contribution was clipped by a
		// reward cap (sub-cap or tier cap).
		CapOverflow bool `json:"cap_overflow,omitempty"`
	}

	// CardRewardResult is the full reward computation for one card over
	// one allocation of spending.
	CardRewardResult struct {
		CardID     string          `json:"card_id"`
		CardName   string          `json:"card_name"`
		Tier       string          `json:"tier"`
		Assignment GroupAssignment `json:"assignment"`
		// Allocation is the spending this result was computed from.
		Allocation core.SpendingVector `json:"allocation"`
		Lines      []LineItem          `json:"lines"`
		Uncapped   core.Money          `json:"uncapped"`
		Capped     core.Money          `json:"capped"`
		CapReached bool                `json:"cap_reached"`
		// Overflow is the reward forfeited to caps: Uncapped - Capped.
		Overflow core.Money `json:"overflow,omitempty"`
	}
)

// Engine computes rewards. MilesValue is the dollar value of one mile, used
// to compare miles and cashback rates on a single scale.
type Engine struct {
	milesValue float64
}

// NewEngine returns an engine valuing miles at milesValue dollars each;
// non-positive values fall back to the default.
func NewEngine(milesValue float64) *Engine {
	if milesValue <= 0 {
		milesValue = core.DefaultMilesValue
	}
	return &Engine{milesValue: milesValue}
}

// MilesValue returns the configured dollar value of one mile.
func (e *Engine) MilesValue() float64 {
	return e.milesValue
}

// ComputeReward computes the per-category breakdown and capped total for
// one card under a resolved tier and group assignment. It is a pure
// function over validated inputs: categories are processed in the fixed
// core.Categories order, sub-caps deplete in that order, then the tier cap
// clamps the running total.
func (e *Engine) ComputeReward(card *catalog.Card, tier *catalog.RateTier, asg GroupAssignment, sv core.SpendingVector) CardRewardResult {
	res := CardRewardResult{
		CardID:     card.ID,
		CardName:   card.Name,
		Tier:       tier.Description,
		Assignment: asg,
		Allocation: sv.Clone(),
	}

	caps := newCapState(tier)
	var uncapped, contributed int64
	// contribs holds each line's contribution toward the tier cap; a
	// reward-sub-cap line contributes only its clipped amount.
	var contribs []int64

	for _, cat := range core.Categories {
		amt := sv.Get(cat)
		if amt.Cents == 0 {
			continue
		}
		eff := EffectiveRate(card, tier, asg, cat)
		sc := caps.subCapFor(card, cat)

		switch {
		case sc != nil && sc.cap.Kind == catalog.CapSpend && eff != tier.BaseRate:
			// Elevated rate applies only to spend within the cap; the
			// excess earns the base rate.
			within := amt.Min(core.Money{Cents: sc.remaining})
			sc.remaining -= within.Cents
			excess := amt.Sub(within)
			if within.Cents > 0 {
				reward := eff.Reward(within, e.milesValue)
				res.Lines = append(res.Lines, LineItem{Category: cat, Amount: within, Rate: eff, Reward: reward})
				contribs = append(contribs, reward.Cents)
				uncapped += reward.Cents
				contributed += reward.Cents
			}
			if excess.Cents > 0 {
				reward := tier.BaseRate.Reward(excess, e.milesValue)
				res.Lines = append(res.Lines, LineItem{Category: cat, Amount: excess, Rate: tier.BaseRate, Reward: reward, CapOverflow: true})
				contribs = append(contribs, reward.Cents)
				uncapped += reward.Cents
				contributed += reward.Cents
			}

		case sc != nil && sc.cap.Kind == catalog.CapReward:
			reward := eff.Reward(amt, e.milesValue)
			contribution := reward.Cents
			if contribution > sc.remaining {
				contribution = sc.remaining
			}
			sc.remaining -= contribution
			res.Lines = append(res.Lines, LineItem{
				Category: cat, Amount: amt, Rate: eff, Reward: reward,
				CapOverflow: contribution < reward.Cents,
			})
			contribs = append(contribs, contribution)
			uncapped += reward.Cents
			contributed += contribution

		default:
			reward := eff.Reward(amt, e.milesValue)
			res.Lines = append(res.Lines, LineItem{Category: cat, Amount: amt, Rate: eff, Reward: reward})
			contribs = append(contribs, reward.Cents)
			uncapped += reward.Cents
			contributed += reward.Cents
		}
	}

	res.Uncapped = core.Money{Cents: uncapped}
	res.Capped = core.Money{Cents: contributed}

	if tier.Cap != nil && contributed > tier.Cap.Cents {
		res.Capped = *tier.Cap
		res.CapReached = true
		markTierOverflow(res.Lines, contribs, tier.Cap.Cents)
	}
	res.Overflow = res.Uncapped.Sub(res.Capped)
	return res
}

// ComputeBest resolves the card's tier, enumerates every legal bonus-group
// assignment and returns the highest-reward result. This is the single-card
// mode entry point; the combinatorial choice matters for group-bonus cards.
func (e *Engine) ComputeBest(card *catalog.Card, sv core.SpendingVector) CardRewardResult {
	tier := ResolveTier(card, sv)
	var best CardRewardResult
	for i, asg := range EnumerateAssignments(card, tier, sv) {
		res := e.ComputeReward(card, tier, asg, sv)
		if i == 0 || better(res, best) {
			best = res
		}
	}
	return best
}

// better orders results by capped reward, then by lower forfeited overflow.
func better(a, b CardRewardResult) bool {
	if a.Capped.Cents != b.Capped.Cents {
		return a.Capped.Cents > b.Capped.Cents
	}
	return a.Overflow.Cents < b.Overflow.Cents
}

// markTierOverflow flags the lines whose contribution landed beyond the
// tier cap, walking the breakdown in order. Sub-cap-clipped lines still
// count their clipped contribution toward the running total, so the flag
// lands on the line that actually breached the cap.
func markTierOverflow(lines []LineItem, contribs []int64, capCents int64) {
	var running int64
	for i := range lines {
		running += contribs[i]
		if running > capCents {
			lines[i].CapOverflow = true
		}
	}
}

// capState tracks remaining sub-cap budgets during one computation. Each
// evaluation gets a fresh state, so concurrent evaluations never share cap
// accounting.
type capState struct {
	subs []subCapState
}

type subCapState struct {
	cap       catalog.SubCap
	remaining int64
}

func newCapState(tier *catalog.RateTier) *capState {
	st := &capState{subs: make([]subCapState, len(tier.SubCaps))}
	for i, sc := range tier.SubCaps {
		st.subs[i] = subCapState{cap: sc, remaining: sc.Amount.Cents}
	}
	return st
}

// subCapFor returns the first sub-cap covering the category, either
// directly or through the card group containing it.
func (st *capState) subCapFor(card *catalog.Card, cat core.Category) *subCapState {
	gid := card.GroupOf(cat)
	for i := range st.subs {
		sc := &st.subs[i]
		if sc.cap.Category == cat {
			return sc
		}
		if sc.cap.Group != "" && sc.cap.Group == gid {
			return sc
		}
	}
	return nil
}
