package rewards

import (
	"reflect"
	"testing"

	"cardrewards/internal/catalog"
	"cardrewards/internal/core"
)

// spendCapCard rewards dining at 4 mpd on the first $1500 of dining spend
// each month and 0.4 mpd on everything else.
func spendCapCard() *catalog.Card {
	return &catalog.Card{
		ID:   "spend-cap",
		Name: "Spend Cap",
		Kind: catalog.Miles,
		Tiers: []catalog.RateTier{{
			Description: "Base",
			Rates: map[core.Category]core.Rate{
				core.Dining: {Value: 4, Kind: core.MilesPerDollar},
			},
			BaseRate: core.Rate{Value: 0.4, Kind: core.MilesPerDollar},
			SubCaps: []catalog.SubCap{
				{Category: core.Dining, Kind: catalog.CapSpend, Amount: core.Money{Cents: 150000}},
			},
		}},
	}
}

func TestComputeRewardSpendCapSplitsLines(t *testing.T) {
	card := spendCapCard()
	e := NewEngine(0.02)

	res := e.ComputeReward(card, &card.Tiers[0], GroupAssignment{}, core.SpendingVector{
		core.Dining:    core.Money{Cents: 200000},
		core.Groceries: core.Money{Cents: 50000},
	})

	if len(res.Lines) != 3 {
		t.Fatalf("got %d lines, want 3: %+v", len(res.Lines), res.Lines)
	}

	// $1500 of dining at 4 mpd, valued at $0.02 per mile: $120.
	within := res.Lines[0]
	if within.Amount.Cents != 150000 || within.Reward.Cents != 12000 || within.CapOverflow {
		t.Errorf("within-cap line = %+v, want $1500 earning $120", within)
	}
	// The $500 excess drops to the 0.4 mpd base rate: $4.
	excess := res.Lines[1]
	if excess.Amount.Cents != 50000 || excess.Reward.Cents != 400 || !excess.CapOverflow {
		t.Errorf("excess line = %+v, want $500 earning $4 flagged as overflow", excess)
	}
	// $500 of groceries at the base rate: $4.
	groceries := res.Lines[2]
	if groceries.Category != core.Groceries || groceries.Reward.Cents != 400 {
		t.Errorf("groceries line = %+v, want $4 at the base rate", groceries)
	}

	if res.Uncapped.Cents != 12800 || res.Capped.Cents != 12800 {
		t.Errorf("totals = %v / %v, want $128.00 both", res.Uncapped, res.Capped)
	}
	if res.CapReached {
		t.Error("CapReached = true, card has no tier cap")
	}
}

func TestComputeRewardSpendCapDepletesInOrder(t *testing.T) {
	card := builtinCard(t, "hsbc-revolution")
	e := NewEngine(0.02)

	// Dining and groceries share nothing but each carries its own $1000
	// spend cap.
	res := e.ComputeReward(card, &card.Tiers[0], GroupAssignment{}, core.SpendingVector{
		core.Dining:    core.Money{Cents: 120000},
		core.Groceries: core.Money{Cents: 80000},
	})

	// dining: $1000 at 4 mpd ($80) + $200 at 0.4 mpd ($1.60);
	// groceries: $800 at 4 mpd ($64).
	if res.Capped.Cents != 8000+160+6400 {
		t.Errorf("Capped = %v, want $145.60", res.Capped)
	}
}

func TestComputeRewardRewardCapClamps(t *testing.T) {
	card := &catalog.Card{
		ID:   "reward-cap",
		Name: "Reward Cap",
		Kind: catalog.Cashback,
		Tiers: []catalog.RateTier{{
			Description: "Base",
			Rates: map[core.Category]core.Rate{
				core.Online: {Value: 5, Kind: core.Percentage},
			},
			BaseRate: core.Rate{Value: 1, Kind: core.Percentage},
			SubCaps: []catalog.SubCap{
				{Category: core.Online, Kind: catalog.CapReward, Amount: core.Money{Cents: 2000}},
			},
		}},
	}
	e := NewEngine(0.02)

	res := e.ComputeReward(card, &card.Tiers[0], GroupAssignment{}, core.SpendingVector{
		core.Online: core.Money{Cents: 100000}, // $1000 at 5% = $50, capped at $20
	})

	if len(res.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(res.Lines))
	}
	line := res.Lines[0]
	if line.Reward.Cents != 5000 {
		t.Errorf("uncapped line reward = %v, want $50", line.Reward)
	}
	if !line.CapOverflow {
		t.Error("line not flagged as cap overflow")
	}
	if res.Uncapped.Cents != 5000 || res.Capped.Cents != 2000 {
		t.Errorf("totals = %v / %v, want $50 uncapped and $20 capped", res.Uncapped, res.Capped)
	}
	if res.Overflow.Cents != 3000 {
		t.Errorf("Overflow = %v, want $30", res.Overflow)
	}
}

func TestComputeRewardTierCap(t *testing.T) {
	card := builtinCard(t, "trust-cashback")
	e := NewEngine(0.02)

	res := e.ComputeBest(card, core.SpendingVector{
		core.Dining: core.Money{Cents: 200000}, // $2000 at 5% = $100, tier cap $50
	})

	if res.Uncapped.Cents != 10000 {
		t.Errorf("Uncapped = %v, want $100", res.Uncapped)
	}
	if res.Capped.Cents != 5000 {
		t.Errorf("Capped = %v, want $50", res.Capped)
	}
	if !res.CapReached {
		t.Error("CapReached = false, want true")
	}
	if res.Overflow.Cents != 5000 {
		t.Errorf("Overflow = %v, want $50", res.Overflow)
	}
}

func TestTierOverflowFlagCountsSubCapLines(t *testing.T) {
	tierCap := core.Money{Cents: 8500}
	card := &catalog.Card{
		ID:   "tiered",
		Name: "Tiered",
		Kind: catalog.Miles,
		Tiers: []catalog.RateTier{{
			Description: "Base",
			Rates: map[core.Category]core.Rate{
				core.Dining: {Value: 4, Kind: core.MilesPerDollar},
			},
			BaseRate: core.Rate{Value: 0.4, Kind: core.MilesPerDollar},
			Cap:      &tierCap,
			SubCaps: []catalog.SubCap{
				{Category: core.Dining, Kind: catalog.CapSpend, Amount: core.Money{Cents: 100000}},
			},
		}},
	}
	e := NewEngine(0.02)

	res := e.ComputeReward(card, &card.Tiers[0], GroupAssignment{}, core.SpendingVector{
		core.Dining:    core.Money{Cents: 200000},
		core.Groceries: core.Money{Cents: 100000},
	})

	// Dining: $1000 at 4 mpd ($80) plus $1000 excess at 0.4 mpd ($4);
	// groceries: $1000 at 0.4 mpd ($4). The running total crosses the $85
	// tier cap on the groceries line, but only when the sub-cap excess
	// line's $4 is counted toward it.
	if len(res.Lines) != 3 {
		t.Fatalf("got %d lines, want 3: %+v", len(res.Lines), res.Lines)
	}
	if !res.CapReached || res.Capped.Cents != 8500 {
		t.Fatalf("Capped = %v (reached=%v), want $85 with the cap reached", res.Capped, res.CapReached)
	}
	if res.Lines[0].CapOverflow {
		t.Error("within-cap dining line flagged, its contribution fits under the tier cap")
	}
	if !res.Lines[2].CapOverflow {
		t.Error("groceries line not flagged, the tier cap breaks on it")
	}
}

func TestComputeBestMonotonicInSpend(t *testing.T) {
	// Spending more never earns less: uncapped reward is non-decreasing,
	// capped reward is non-decreasing and never exceeds the tier cap.
	card := builtinCard(t, "trust-cashback")
	e := NewEngine(0.02)

	var prevUncapped, prevCapped int64
	for cents := int64(0); cents <= 400000; cents += 12500 {
		res := e.ComputeBest(card, core.SpendingVector{
			core.Dining: core.Money{Cents: cents},
		})
		if res.Uncapped.Cents < prevUncapped {
			t.Fatalf("spend %d: Uncapped = %d, below %d at lower spend", cents, res.Uncapped.Cents, prevUncapped)
		}
		if res.Capped.Cents < prevCapped {
			t.Fatalf("spend %d: Capped = %d, below %d at lower spend", cents, res.Capped.Cents, prevCapped)
		}
		if res.Capped.Cents > res.Uncapped.Cents {
			t.Fatalf("spend %d: Capped = %d exceeds Uncapped = %d", cents, res.Capped.Cents, res.Uncapped.Cents)
		}
		if res.Capped.Cents > 5000 {
			t.Fatalf("spend %d: Capped = %d exceeds the $50 tier cap", cents, res.Capped.Cents)
		}
		prevUncapped, prevCapped = res.Uncapped.Cents, res.Capped.Cents
	}
}

func TestComputeRewardIdempotent(t *testing.T) {
	card := builtinCard(t, "uob-ladys")
	e := NewEngine(0.02)
	sv := core.SpendingVector{
		core.Dining: core.Money{Cents: 180000},
		core.Retail: core.Money{Cents: 70000},
		core.Travel: core.Money{Cents: 40000},
	}

	tier := ResolveTier(card, sv)
	asgs := EnumerateAssignments(card, tier, sv)
	first := e.ComputeReward(card, tier, asgs[0], sv)
	firstBest := e.ComputeBest(card, sv)

	for i := 0; i < 3; i++ {
		if again := e.ComputeReward(card, tier, asgs[0], sv); !reflect.DeepEqual(again, first) {
			t.Fatalf("run %d: ComputeReward differs:\n%+v\nvs\n%+v", i, again, first)
		}
		if again := e.ComputeBest(card, sv); !reflect.DeepEqual(again, firstBest) {
			t.Fatalf("run %d: ComputeBest differs:\n%+v\nvs\n%+v", i, again, firstBest)
		}
	}
}

func TestComputeRewardMinSpendGatesBonus(t *testing.T) {
	card := builtinCard(t, "trust-cashback")
	e := NewEngine(0.02)

	// $400 total falls short of the $450 minimum: everything earns 1%.
	res := e.ComputeBest(card, core.SpendingVector{
		core.Dining: core.Money{Cents: 40000},
	})
	if res.Capped.Cents != 400 {
		t.Errorf("Capped = %v, want $4 at the unqualified rate", res.Capped)
	}
}

func TestComputeBestPicksStrongestGroup(t *testing.T) {
	card := builtinCard(t, "uob-ladys")
	e := NewEngine(0.02)

	res := e.ComputeBest(card, core.SpendingVector{
		core.Dining: core.Money{Cents: 150000},
		core.Retail: core.Money{Cents: 80000},
	})

	if len(res.Assignment.Bonus) != 1 || res.Assignment.Bonus[0] != "dining" {
		t.Fatalf("assignment = %v, want [dining]", res.Assignment.Bonus)
	}
	// dining: $1000 at 4 mpd ($80) + $500 at 0.4 mpd ($4);
	// retail at 0.4 mpd ($6.40).
	if res.Capped.Cents != 8000+400+640 {
		t.Errorf("Capped = %v, want $90.40", res.Capped)
	}
}

func TestComputeRewardEmptySpending(t *testing.T) {
	card := builtinCard(t, "sc-smart")
	e := NewEngine(0.02)

	res := e.ComputeBest(card, core.SpendingVector{})
	if len(res.Lines) != 0 {
		t.Errorf("got %d lines for empty spending, want 0", len(res.Lines))
	}
	if res.Capped.Cents != 0 || res.Uncapped.Cents != 0 {
		t.Errorf("totals = %v / %v, want zero", res.Uncapped, res.Capped)
	}
}

func TestNewEngineDefaultsMilesValue(t *testing.T) {
	if got := NewEngine(0).MilesValue(); got != core.DefaultMilesValue {
		t.Errorf("MilesValue() = %v, want default %v", got, core.DefaultMilesValue)
	}
	if got := NewEngine(0.015).MilesValue(); got != 0.015 {
		t.Errorf("MilesValue() = %v, want 0.015", got)
	}
}
