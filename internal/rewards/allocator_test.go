package rewards

import (
	"context"
	"errors"
	"testing"

	"cardrewards/internal/catalog"
	"cardrewards/internal/core"
)

func flatCard(id string, rate core.Rate) *catalog.Card {
	return &catalog.Card{
		ID:   id,
		Name: id,
		Kind: catalog.Cashback,
		Tiers: []catalog.RateTier{{
			Description: "Base",
			BaseRate:    rate,
		}},
	}
}

func assertConservation(t *testing.T, res CombinationResult, sv core.SpendingVector) {
	t.Helper()
	for _, cat := range core.Categories {
		got := res.First.Allocation.Get(cat).Cents + res.Second.Allocation.Get(cat).Cents
		if got != sv.Get(cat).Cents {
			t.Errorf("category %s: allocated %d cents, spent %d", cat, got, sv.Get(cat).Cents)
		}
	}
}

func TestOptimizeRoutesToHigherRate(t *testing.T) {
	miles := &catalog.Card{
		ID:   "miles",
		Name: "Miles",
		Kind: catalog.Miles,
		Tiers: []catalog.RateTier{{
			Description: "Base",
			Rates: map[core.Category]core.Rate{
				core.Dining: {Value: 4, Kind: core.MilesPerDollar},
			},
			BaseRate: core.Rate{Value: 0.4, Kind: core.MilesPerDollar},
		}},
	}
	cash := flatCard("cash", core.Rate{Value: 1, Kind: core.Percentage})
	e := NewEngine(0.02)

	sv := core.SpendingVector{
		core.Dining: core.Money{Cents: 100000},
		core.Other:  core.Money{Cents: 50000},
	}
	res, err := e.Optimize(context.Background(), miles, cash, sv)
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	assertConservation(t, res, sv)

	// Dining at 4 mpd beats 1%; everything else beats the 0.4 mpd base.
	if got := res.First.Allocation.Get(core.Dining).Cents; got != 100000 {
		t.Errorf("dining on miles card = %d cents, want all 100000", got)
	}
	if got := res.Second.Allocation.Get(core.Other).Cents; got != 50000 {
		t.Errorf("other on cashback card = %d cents, want all 50000", got)
	}
	// $1000 at 4 mpd ($80) + $500 at 1% ($5).
	if res.Combined.Cents != 8500 {
		t.Errorf("Combined = %v, want $85", res.Combined)
	}
}

func TestOptimizeSplitsAcrossCaps(t *testing.T) {
	// 5% capped at $50 against 2% capped at $100: the optimum puts $1000
	// on each card.
	strong := flatCard("strong", core.Rate{Value: 5, Kind: core.Percentage})
	strong.Tiers[0].Cap = &core.Money{Cents: 5000}
	weak := flatCard("weak", core.Rate{Value: 2, Kind: core.Percentage})
	weak.Tiers[0].Cap = &core.Money{Cents: 10000}
	e := NewEngine(0.02)

	sv := core.SpendingVector{core.Dining: core.Money{Cents: 200000}}
	res, err := e.Optimize(context.Background(), strong, weak, sv)
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	assertConservation(t, res, sv)

	if got := res.First.Allocation.Get(core.Dining).Cents; got != 100000 {
		t.Errorf("dining on strong card = %d cents, want 100000", got)
	}
	if got := res.Second.Allocation.Get(core.Dining).Cents; got != 100000 {
		t.Errorf("dining on weak card = %d cents, want 100000", got)
	}
	// $50 + $20, with nothing forfeited.
	if res.Combined.Cents != 7000 {
		t.Errorf("Combined = %v, want $70", res.Combined)
	}
	if res.Overflow.Cents != 0 {
		t.Errorf("Overflow = %v, want zero", res.Overflow)
	}
}

func TestOptimizeKeepsCategoryOnOnlyRewardingCard(t *testing.T) {
	// Spend past the rewarding card's sub-cap still earns its base rate.
	// Splitting the category onto a card that rewards nothing would
	// forfeit that base-rate earning.
	rewarding := spendCapCard()
	dead := flatCard("dead", core.Rate{Value: 0, Kind: core.Percentage})
	e := NewEngine(0.02)

	sv := core.SpendingVector{core.Dining: core.Money{Cents: 200000}}
	res, err := e.Optimize(context.Background(), rewarding, dead, sv)
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	assertConservation(t, res, sv)

	if got := res.First.Allocation.Get(core.Dining).Cents; got != 200000 {
		t.Errorf("dining on rewarding card = %d cents, want all 200000", got)
	}
	// $1500 at 4 mpd ($120) plus the $500 excess at 0.4 mpd ($4).
	if res.Combined.Cents != 12400 {
		t.Errorf("Combined = %v, want $124", res.Combined)
	}
}

func TestOptimizeBeatsSingleCard(t *testing.T) {
	// The combined result can never be worse than putting everything on
	// the better single card.
	e := NewEngine(0.02)
	cardA := builtinCard(t, "uob-ladys")
	cardB := builtinCard(t, "trust-cashback")

	sv := core.SpendingVector{
		core.Dining:    core.Money{Cents: 180000},
		core.Groceries: core.Money{Cents: 60000},
		core.Transport: core.Money{Cents: 40000},
		core.Travel:    core.Money{Cents: 90000},
	}
	res, err := e.Optimize(context.Background(), cardA, cardB, sv)
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	assertConservation(t, res, sv)

	soloA := e.ComputeBest(cardA, sv)
	soloB := e.ComputeBest(cardB, sv)
	best := soloA.Capped.Cents
	if soloB.Capped.Cents > best {
		best = soloB.Capped.Cents
	}
	if res.Combined.Cents < best {
		t.Errorf("Combined = %v, below best single card %d cents", res.Combined, best)
	}
}

func TestOptimizeEqualRatesSplitEvenly(t *testing.T) {
	a := flatCard("a", core.Rate{Value: 2, Kind: core.Percentage})
	b := flatCard("b", core.Rate{Value: 2, Kind: core.Percentage})
	e := NewEngine(0.02)

	sv := core.SpendingVector{core.Retail: core.Money{Cents: 1001}}
	res, err := e.Optimize(context.Background(), a, b, sv)
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	assertConservation(t, res, sv)

	// Even split with the odd cent on the first card.
	if got := res.First.Allocation.Get(core.Retail).Cents; got != 501 {
		t.Errorf("first card got %d cents, want 501", got)
	}
	if got := res.Second.Allocation.Get(core.Retail).Cents; got != 500 {
		t.Errorf("second card got %d cents, want 500", got)
	}
}

func TestOptimizeDeterministic(t *testing.T) {
	e := NewEngine(0.02)
	cardA := builtinCard(t, "uob-ladys-solitaire")
	cardB := builtinCard(t, "dbs-yuu")

	sv := core.SpendingVector{
		core.Dining:        core.Money{Cents: 120000},
		core.Groceries:     core.Money{Cents: 50000},
		core.Transport:     core.Money{Cents: 30000},
		core.Entertainment: core.Money{Cents: 80000},
		core.Travel:        core.Money{Cents: 60000},
	}

	first, err := e.Optimize(context.Background(), cardA, cardB, sv)
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := e.Optimize(context.Background(), cardA, cardB, sv)
		if err != nil {
			t.Fatalf("Optimize() error on run %d: %v", i, err)
		}
		if again.Combined != first.Combined {
			t.Fatalf("run %d: Combined = %v, first run gave %v", i, again.Combined, first.Combined)
		}
		if len(again.First.Assignment.Bonus) != len(first.First.Assignment.Bonus) {
			t.Fatalf("run %d picked a different assignment: %v vs %v",
				i, again.First.Assignment.Bonus, first.First.Assignment.Bonus)
		}
		for j, id := range again.First.Assignment.Bonus {
			if id != first.First.Assignment.Bonus[j] {
				t.Fatalf("run %d picked assignment %v, first run %v",
					i, again.First.Assignment.Bonus, first.First.Assignment.Bonus)
			}
		}
	}
}

func TestOptimizeRejectsInvalidSpending(t *testing.T) {
	e := NewEngine(0.02)
	a := flatCard("a", core.Rate{Value: 1, Kind: core.Percentage})
	b := flatCard("b", core.Rate{Value: 2, Kind: core.Percentage})

	tests := []struct {
		name  string
		spend core.SpendingVector
		want  error
	}{
		{
			name:  "negative amount",
			spend: core.SpendingVector{core.Dining: core.Money{Cents: -100}},
			want:  core.ErrNegativeAmount,
		},
		{
			name:  "unknown category",
			spend: core.SpendingVector{core.Category("crypto"): core.Money{Cents: 100}},
			want:  core.ErrUnknownCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Optimize(context.Background(), a, b, tt.spend)
			if !errors.Is(err, tt.want) {
				t.Errorf("Optimize() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOptimizeCancelledContext(t *testing.T) {
	e := NewEngine(0.02)
	cardA := builtinCard(t, "uob-ladys")
	cardB := builtinCard(t, "uob-ladys-solitaire")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Optimize(ctx, cardA, cardB, core.SpendingVector{
		core.Dining: core.Money{Cents: 100000},
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Optimize() error = %v, want context.Canceled", err)
	}
}
