package services

import (
	"context"
	"errors"
	"testing"

	"cardrewards/internal/catalog"
	"cardrewards/internal/core"
	"cardrewards/internal/rewards"
)

func testRewardService(t *testing.T) *RewardService {
	t.Helper()
	cat, err := catalog.Builtin()
	if err != nil {
		t.Fatalf("Builtin() error: %v", err)
	}
	return NewRewardService(cat, rewards.NewEngine(0.02))
}

func TestCardReward(t *testing.T) {
	svc := testRewardService(t)

	res, err := svc.CardReward(context.Background(), "trust-cashback", core.SpendingVector{
		core.Dining: core.Money{Cents: 100000},
	})
	if err != nil {
		t.Fatalf("CardReward() error: %v", err)
	}
	// $1000 of dining at 5% (minimum met), under the $50 cap.
	if res.Capped.Cents != 5000 {
		t.Errorf("Capped = %v, want $50", res.Capped)
	}
}

func TestCardRewardUnknownCard(t *testing.T) {
	svc := testRewardService(t)

	_, err := svc.CardReward(context.Background(), "no-such-card", core.SpendingVector{})
	if !errors.Is(err, catalog.ErrUnknownCard) {
		t.Errorf("CardReward() error = %v, want ErrUnknownCard", err)
	}
}

func TestCardRewardInvalidSpending(t *testing.T) {
	svc := testRewardService(t)

	_, err := svc.CardReward(context.Background(), "trust-cashback", core.SpendingVector{
		core.Dining: core.Money{Cents: -1},
	})
	if !errors.Is(err, core.ErrNegativeAmount) {
		t.Errorf("CardReward() error = %v, want ErrNegativeAmount", err)
	}
}

func TestRankCards(t *testing.T) {
	svc := testRewardService(t)

	ranked, err := svc.RankCards(context.Background(), core.SpendingVector{
		core.Dining: core.Money{Cents: 100000},
	})
	if err != nil {
		t.Fatalf("RankCards() error: %v", err)
	}
	if len(ranked) != svc.Catalog().Len() {
		t.Fatalf("got %d results, want one per card (%d)", len(ranked), svc.Catalog().Len())
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Capped.Cents > ranked[i-1].Capped.Cents {
			t.Errorf("ranking not descending at %d: %v after %v",
				i, ranked[i].Capped, ranked[i-1].Capped)
		}
	}
	// $1000 of pure dining: 4 mpd valued at $0.02 ($80) beats every
	// cashback option.
	top := ranked[0]
	if top.Capped.Cents != 8000 {
		t.Errorf("top reward = %v, want $80", top.Capped)
	}
}

func TestRankCardsDeterministicOrder(t *testing.T) {
	svc := testRewardService(t)
	sv := core.SpendingVector{
		core.Dining:    core.Money{Cents: 80000},
		core.Groceries: core.Money{Cents: 60000},
		core.Online:    core.Money{Cents: 40000},
	}

	first, err := svc.RankCards(context.Background(), sv)
	if err != nil {
		t.Fatalf("RankCards() error: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := svc.RankCards(context.Background(), sv)
		if err != nil {
			t.Fatalf("RankCards() error: %v", err)
		}
		for j := range again {
			if again[j].CardID != first[j].CardID {
				t.Fatalf("run %d position %d: card %q, first run had %q",
					i, j, again[j].CardID, first[j].CardID)
			}
		}
	}
}

func TestCombination(t *testing.T) {
	svc := testRewardService(t)

	res, err := svc.Combination(context.Background(), "uob-ladys", "trust-cashback", core.SpendingVector{
		core.Dining:    core.Money{Cents: 180000},
		core.Groceries: core.Money{Cents: 50000},
	})
	if err != nil {
		t.Fatalf("Combination() error: %v", err)
	}
	if res.First.CardID != "uob-ladys" || res.Second.CardID != "trust-cashback" {
		t.Errorf("cards = %q/%q, want uob-ladys/trust-cashback", res.First.CardID, res.Second.CardID)
	}
	if res.Combined.Cents == 0 {
		t.Error("Combined = 0, want positive reward")
	}
}

func TestCombinationSameCard(t *testing.T) {
	svc := testRewardService(t)

	_, err := svc.Combination(context.Background(), "uob-ladys", "uob-ladys", core.SpendingVector{})
	if err == nil {
		t.Error("Combination() with the same card twice should fail")
	}
}

func TestBestCombinationBeatsEverySingleCard(t *testing.T) {
	svc := testRewardService(t)
	sv := core.SpendingVector{
		core.Dining:    core.Money{Cents: 200000},
		core.Groceries: core.Money{Cents: 80000},
		core.Online:    core.Money{Cents: 60000},
		core.Travel:    core.Money{Cents: 120000},
	}

	ranked, err := svc.RankCards(context.Background(), sv)
	if err != nil {
		t.Fatalf("RankCards() error: %v", err)
	}
	best, err := svc.BestCombination(context.Background(), sv)
	if err != nil {
		t.Fatalf("BestCombination() error: %v", err)
	}

	if best.Combined.Cents < ranked[0].Capped.Cents {
		t.Errorf("BestCombination = %v, below best single card %v",
			best.Combined, ranked[0].Capped)
	}
}
