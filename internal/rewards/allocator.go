package rewards

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"cardrewards/internal/catalog"
	"cardrewards/internal/core"
)

// CombinationResult is the reward-maximizing split of one month's spending
// across two cards. The two per-card allocations sum, category by category,
// to the input spending vector.
type CombinationResult struct {
	First    CardRewardResult `json:"first"`
	Second   CardRewardResult `json:"second"`
	Combined core.Money       `json:"combined"`
	// Overflow is the total reward both cards forfeited to caps under the
	// winning split.
	Overflow core.Money `json:"overflow,omitempty"`
}

// Optimize searches for the spending split across two cards that maximizes
// combined capped reward. Each card's tier and candidate bonus-group
// assignments are fixed from the full spending vector; every assignment
// pair is scored independently with its own fresh cap accounting, so pairs
// evaluate concurrently. The winner is the pair with the highest combined
// capped reward, ties broken by lower forfeited overflow, then by
// enumeration order, so the reduction is deterministic regardless of
// completion order.
func (e *Engine) Optimize(ctx context.Context, cardA, cardB *catalog.Card, sv core.SpendingVector) (CombinationResult, error) {
	if err := sv.Validate(); err != nil {
		return CombinationResult{}, fmt.Errorf("spending vector: %w", err)
	}

	tierA := ResolveTier(cardA, sv)
	tierB := ResolveTier(cardB, sv)
	asgsA := EnumerateAssignments(cardA, tierA, sv)
	asgsB := EnumerateAssignments(cardB, tierB, sv)

	type candidate struct {
		res CombinationResult
		ok  bool
	}
	candidates := make([]candidate, len(asgsA)*len(asgsB))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, asgA := range asgsA {
		for j, asgB := range asgsB {
			idx := i*len(asgsB) + j
			asgA, asgB := asgA, asgB
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				res, err := e.evaluatePair(cardA, tierA, asgA, cardB, tierB, asgB, sv)
				if err != nil {
					return err
				}
				candidates[idx] = candidate{res: res, ok: true}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return CombinationResult{}, err
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if !c.ok {
			continue
		}
		switch {
		case c.res.Combined.Cents > best.res.Combined.Cents:
			best = c
		case c.res.Combined.Cents == best.res.Combined.Cents &&
			c.res.Overflow.Cents < best.res.Overflow.Cents:
			best = c
		}
	}
	return best.res, nil
}

// evaluatePair allocates the spending vector between the two cards under
// one fixed assignment pair and computes both reward results.
//
// Cap headroom is a shared, depleting resource inside one card: categories
// processed earlier claim it first. Categories are therefore visited in
// descending order of leverage (rate difference times amount), so the
// categories with the most to lose from a bad split claim scarce headroom
// first. Every evaluation gets its own accumulators.
func (e *Engine) evaluatePair(cardA *catalog.Card, tierA *catalog.RateTier, asgA GroupAssignment,
	cardB *catalog.Card, tierB *catalog.RateTier, asgB GroupAssignment,
	sv core.SpendingVector) (CombinationResult, error) {

	hrA := newHeadroom(cardA, tierA, asgA, e.milesValue)
	hrB := newHeadroom(cardB, tierB, asgB, e.milesValue)

	type catRates struct {
		cat        core.Category
		amount     int64
		perCentA   float64
		perCentB   float64
		leverage   float64
		fixedOrder int
	}
	items := make([]catRates, 0, len(core.Categories))
	for i, cat := range core.Categories {
		amt := sv.Get(cat).Cents
		if amt == 0 {
			continue
		}
		pa := EffectiveRate(cardA, tierA, asgA, cat).PerCent(e.milesValue)
		pb := EffectiveRate(cardB, tierB, asgB, cat).PerCent(e.milesValue)
		items = append(items, catRates{
			cat: cat, amount: amt,
			perCentA: pa, perCentB: pb,
			leverage:   math.Abs(pa-pb) * float64(amt),
			fixedOrder: i,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].leverage != items[j].leverage {
			return items[i].leverage > items[j].leverage
		}
		if items[i].amount != items[j].amount {
			return items[i].amount > items[j].amount
		}
		return items[i].fixedOrder < items[j].fixedOrder
	})

	allocA := make(core.SpendingVector)
	allocB := make(core.SpendingVector)

	for _, it := range items {
		var toA, toB int64
		switch {
		case it.perCentA == 0 && it.perCentB == 0:
			// Neither card rewards this category; it still has to land on
			// exactly one card.
			toA = it.amount
		case it.perCentB == 0:
			// Only the first card rewards the category. Spend past its caps
			// still earns that card's base rate, while the other card earns
			// nothing at all, so the full amount belongs to the rewarding
			// card.
			toA = it.amount
		case it.perCentA == 0:
			toB = it.amount
		case it.perCentA > it.perCentB:
			toA = minInt64(it.amount, hrA.capacity(it.cat, it.perCentA))
			toB = minInt64(it.amount-toA, hrB.capacity(it.cat, it.perCentB))
			toA += it.amount - toA - toB // residual beyond both headrooms
		case it.perCentB > it.perCentA:
			toB = minInt64(it.amount, hrB.capacity(it.cat, it.perCentB))
			toA = minInt64(it.amount-toB, hrA.capacity(it.cat, it.perCentA))
			toB += it.amount - toA - toB
		default:
			// Equal non-zero rates: prefer the card with more headroom,
			// split evenly on a tie, odd cent to the first card.
			capA := hrA.capacity(it.cat, it.perCentA)
			capB := hrB.capacity(it.cat, it.perCentB)
			switch {
			case capA > capB:
				toA = minInt64(it.amount, capA)
				toB = it.amount - toA
			case capB > capA:
				toB = minInt64(it.amount, capB)
				toA = it.amount - toB
			default:
				toB = it.amount / 2
				toA = it.amount - toB
			}
		}

		if toA+toB != it.amount {
			return CombinationResult{}, fmt.Errorf("allocation of %q lost conservation: %d + %d != %d", it.cat, toA, toB, it.amount)
		}
		if toA > 0 {
			allocA[it.cat] = core.Money{Cents: toA}
			hrA.consume(it.cat, toA, it.perCentA)
		}
		if toB > 0 {
			allocB[it.cat] = core.Money{Cents: toB}
			hrB.consume(it.cat, toB, it.perCentB)
		}
	}

	first := e.ComputeReward(cardA, tierA, asgA, allocA)
	second := e.ComputeReward(cardB, tierB, asgB, allocB)
	return CombinationResult{
		First:    first,
		Second:   second,
		Combined: first.Capped.Add(second.Capped),
		Overflow: first.Overflow.Add(second.Overflow),
	}, nil
}

// headroom tracks how much more spend one card can absorb at full
// effective rates during one candidate-pair evaluation.
type headroom struct {
	card       *catalog.Card
	tier       *catalog.RateTier
	milesValue float64
	// tierReward is the remaining tier-cap reward budget in cents;
	// math.Inf(1) when the tier is uncapped.
	tierReward float64
	// subSpend / subReward are remaining sub-cap budgets keyed by scope.
	subSpend  map[string]int64
	subReward map[string]float64
}

func newHeadroom(card *catalog.Card, tier *catalog.RateTier, asg GroupAssignment, milesValue float64) *headroom {
	h := &headroom{
		card:       card,
		tier:       tier,
		milesValue: milesValue,
		tierReward: math.Inf(1),
		subSpend:   make(map[string]int64),
		subReward:  make(map[string]float64),
	}
	if tier.Cap != nil {
		h.tierReward = float64(tier.Cap.Cents)
	}
	for _, sc := range tier.SubCaps {
		key := subCapKey(sc)
		switch sc.Kind {
		case catalog.CapSpend:
			h.subSpend[key] = sc.Amount.Cents
		case catalog.CapReward:
			h.subReward[key] = float64(sc.Amount.Cents)
		}
	}
	return h
}

func subCapKey(sc catalog.SubCap) string {
	if sc.Group != "" {
		return "group:" + sc.Group
	}
	return "category:" + string(sc.Category)
}

// scopeKeys returns the sub-cap scope keys covering a category.
func (h *headroom) scopeKeys(cat core.Category) []string {
	keys := []string{"category:" + string(cat)}
	if gid := h.card.GroupOf(cat); gid != "" {
		keys = append(keys, "group:"+gid)
	}
	return keys
}

// capacity returns how many cents of spend in the category the card can
// still absorb while earning the full effective rate. Zero-rate categories
// have unlimited capacity: they earn nothing either way.
func (h *headroom) capacity(cat core.Category, perCent float64) int64 {
	if perCent <= 0 {
		return math.MaxInt64
	}
	capacity := float64(math.MaxInt64)
	if !math.IsInf(h.tierReward, 1) {
		capacity = h.tierReward / perCent
	}
	for _, key := range h.scopeKeys(cat) {
		if rem, ok := h.subSpend[key]; ok {
			capacity = math.Min(capacity, float64(rem))
		}
		if rem, ok := h.subReward[key]; ok {
			capacity = math.Min(capacity, rem/perCent)
		}
	}
	if capacity >= float64(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(capacity)
}

// consume depletes the accumulators after assigning spend to the card.
func (h *headroom) consume(cat core.Category, spend int64, perCent float64) {
	reward := float64(spend) * perCent
	if !math.IsInf(h.tierReward, 1) {
		h.tierReward = math.Max(0, h.tierReward-reward)
	}
	for _, key := range h.scopeKeys(cat) {
		if rem, ok := h.subSpend[key]; ok {
			h.subSpend[key] = maxInt64(0, rem-spend)
		}
		if rem, ok := h.subReward[key]; ok {
			h.subReward[key] = math.Max(0, rem-reward)
		}
	}
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
