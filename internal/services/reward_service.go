package services

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"cardrewards/internal/catalog"
	"cardrewards/internal/core"
	"cardrewards/internal/rewards"
)

// RewardService answers reward questions against the card catalog: single
// card breakdowns, the full catalog ranking and two-card combinations.
type RewardService struct {
	catalog *catalog.Catalog
	engine  *rewards.Engine
}

func NewRewardService(cat *catalog.Catalog, engine *rewards.Engine) *RewardService {
	return &RewardService{
		catalog: cat,
		engine:  engine,
	}
}

// Catalog exposes the underlying card catalog.
func (s *RewardService) Catalog() *catalog.Catalog {
	return s.catalog
}

// CardReward computes the best reward one card can earn on the spending.
func (s *RewardService) CardReward(ctx context.Context, cardID string, sv core.SpendingVector) (rewards.CardRewardResult, error) {
	if err := sv.Validate(); err != nil {
		return rewards.CardRewardResult{}, fmt.Errorf("spending vector: %w", err)
	}
	card := s.catalog.Card(cardID)
	if card == nil {
		return rewards.CardRewardResult{}, fmt.Errorf("card %q: %w", cardID, catalog.ErrUnknownCard)
	}
	return s.engine.ComputeBest(card, sv), nil
}

// RankCards scores every card in the catalog against the spending and
// returns them ordered by capped reward, best first. Ties break on lower
// forfeited overflow, then card ID, so the ranking is stable across runs.
func (s *RewardService) RankCards(ctx context.Context, sv core.SpendingVector) ([]rewards.CardRewardResult, error) {
	if err := sv.Validate(); err != nil {
		return nil, fmt.Errorf("spending vector: %w", err)
	}

	cards := s.catalog.Cards()
	results := make([]rewards.CardRewardResult, len(cards))

	g, ctx := errgroup.WithContext(ctx)
	for i := range cards {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.engine.ComputeBest(&cards[i], sv)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Capped.Cents != results[j].Capped.Cents {
			return results[i].Capped.Cents > results[j].Capped.Cents
		}
		if results[i].Overflow.Cents != results[j].Overflow.Cents {
			return results[i].Overflow.Cents < results[j].Overflow.Cents
		}
		return results[i].CardID < results[j].CardID
	})
	return results, nil
}

// Combination finds the best split of the spending across two named cards.
func (s *RewardService) Combination(ctx context.Context, cardAID, cardBID string, sv core.SpendingVector) (rewards.CombinationResult, error) {
	if cardAID == cardBID {
		return rewards.CombinationResult{}, fmt.Errorf("combination needs two distinct cards, got %q twice", cardAID)
	}
	cardA := s.catalog.Card(cardAID)
	if cardA == nil {
		return rewards.CombinationResult{}, fmt.Errorf("card %q: %w", cardAID, catalog.ErrUnknownCard)
	}
	cardB := s.catalog.Card(cardBID)
	if cardB == nil {
		return rewards.CombinationResult{}, fmt.Errorf("card %q: %w", cardBID, catalog.ErrUnknownCard)
	}
	return s.engine.Optimize(ctx, cardA, cardB, sv)
}

// BestCombination searches every unordered card pair in the catalog for the
// highest combined reward. Pairs evaluate concurrently; ties break on lower
// overflow and then pair enumeration order.
func (s *RewardService) BestCombination(ctx context.Context, sv core.SpendingVector) (rewards.CombinationResult, error) {
	if err := sv.Validate(); err != nil {
		return rewards.CombinationResult{}, fmt.Errorf("spending vector: %w", err)
	}

	cards := s.catalog.Cards()
	if len(cards) < 2 {
		return rewards.CombinationResult{}, fmt.Errorf("catalog has %d cards, need at least 2 for a combination", len(cards))
	}

	type pair struct{ a, b int }
	var pairs []pair
	for i := 0; i < len(cards); i++ {
		for j := i + 1; j < len(cards); j++ {
			pairs = append(pairs, pair{i, j})
		}
	}

	results := make([]rewards.CombinationResult, len(pairs))
	g, ctx := errgroup.WithContext(ctx)
	for idx, p := range pairs {
		idx, p := idx, p
		g.Go(func() error {
			res, err := s.engine.Optimize(ctx, &cards[p.a], &cards[p.b], sv)
			if err != nil {
				return err
			}
			results[idx] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rewards.CombinationResult{}, err
	}

	best := results[0]
	for _, res := range results[1:] {
		switch {
		case res.Combined.Cents > best.Combined.Cents:
			best = res
		case res.Combined.Cents == best.Combined.Cents &&
			res.Overflow.Cents < best.Overflow.Cents:
			best = res
		}
	}
	return best, nil
}
