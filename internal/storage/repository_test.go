package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cardrewards/internal/core"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateAndGetSpending(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	sv := core.SpendingVector{
		core.Dining:    core.Money{Cents: 120000},
		core.Groceries: core.Money{Cents: 45000},
	}
	id, err := repo.CreateSpending(ctx, "2026-08", sv)
	if err != nil {
		t.Fatalf("CreateSpending() error: %v", err)
	}
	if id == 0 {
		t.Fatal("CreateSpending() returned zero ID")
	}

	sp, err := repo.GetSpending(ctx, id)
	if err != nil {
		t.Fatalf("GetSpending() error: %v", err)
	}
	if sp.Month != "2026-08" {
		t.Errorf("Month = %q, want 2026-08", sp.Month)
	}
	if sp.Status != StatusPending {
		t.Errorf("Status = %q, want %q", sp.Status, StatusPending)
	}
	if got := sp.Amounts.Get(core.Dining).Cents; got != 120000 {
		t.Errorf("dining = %d cents, want 120000", got)
	}
	if got := sp.Amounts.Get(core.Groceries).Cents; got != 45000 {
		t.Errorf("groceries = %d cents, want 45000", got)
	}
	if got := sp.Amounts.Get(core.Travel).Cents; got != 0 {
		t.Errorf("travel = %d cents, want 0 (never stored)", got)
	}
}

func TestGetSpendingNotFound(t *testing.T) {
	repo := testRepo(t)

	_, err := repo.GetSpending(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSpending() error = %v, want ErrNotFound", err)
	}
}

func TestPendingSpendingsLifecycle(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	first, err := repo.CreateSpending(ctx, "2026-07", core.SpendingVector{
		core.Dining: core.Money{Cents: 50000},
	})
	if err != nil {
		t.Fatalf("CreateSpending() error: %v", err)
	}
	second, err := repo.CreateSpending(ctx, "2026-08", core.SpendingVector{
		core.Travel: core.Money{Cents: 90000},
	})
	if err != nil {
		t.Fatalf("CreateSpending() error: %v", err)
	}

	pending, err := repo.GetPendingSpendings(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSpendings() error: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending spendings, want 2", len(pending))
	}
	if pending[0].ID != first {
		t.Errorf("pending order: first ID = %d, want %d", pending[0].ID, first)
	}

	rec := &Recommendation{
		SpendingID:  first,
		CardID:      "uob-ladys",
		RewardCents: 9040,
		ResultJSON:  []byte(`{"card_id":"uob-ladys"}`),
	}
	if err := repo.SaveRecommendation(ctx, rec); err != nil {
		t.Fatalf("SaveRecommendation() error: %v", err)
	}
	if rec.ID == 0 {
		t.Error("SaveRecommendation() did not set ID")
	}

	if err := repo.MarkRecommendError(ctx, second); err != nil {
		t.Fatalf("MarkRecommendError() error: %v", err)
	}

	pending, err = repo.GetPendingSpendings(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSpendings() error: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d pending spendings after processing, want 0", len(pending))
	}

	sp, err := repo.GetSpending(ctx, first)
	if err != nil {
		t.Fatalf("GetSpending() error: %v", err)
	}
	if sp.Status != StatusDone {
		t.Errorf("first status = %q, want %q", sp.Status, StatusDone)
	}
	sp, err = repo.GetSpending(ctx, second)
	if err != nil {
		t.Fatalf("GetSpending() error: %v", err)
	}
	if sp.Status != StatusError {
		t.Errorf("second status = %q, want %q", sp.Status, StatusError)
	}
}

func TestSaveRecommendationReplaces(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	id, err := repo.CreateSpending(ctx, "2026-08", core.SpendingVector{
		core.Dining: core.Money{Cents: 50000},
	})
	if err != nil {
		t.Fatalf("CreateSpending() error: %v", err)
	}

	for _, cardID := range []string{"uob-ladys", "trust-cashback"} {
		err := repo.SaveRecommendation(ctx, &Recommendation{
			SpendingID:  id,
			CardID:      cardID,
			RewardCents: 1000,
			ResultJSON:  []byte(`{}`),
		})
		if err != nil {
			t.Fatalf("SaveRecommendation(%s) error: %v", cardID, err)
		}
	}

	rec, err := repo.GetRecommendation(ctx, id)
	if err != nil {
		t.Fatalf("GetRecommendation() error: %v", err)
	}
	if rec.CardID != "trust-cashback" {
		t.Errorf("CardID = %q, want the replacement trust-cashback", rec.CardID)
	}
	if rec.SecondCardID != "" {
		t.Errorf("SecondCardID = %q, want empty", rec.SecondCardID)
	}
}

func TestGetRecommendationWithPair(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	id, err := repo.CreateSpending(ctx, "2026-08", core.SpendingVector{
		core.Dining: core.Money{Cents: 50000},
	})
	if err != nil {
		t.Fatalf("CreateSpending() error: %v", err)
	}

	err = repo.SaveRecommendation(ctx, &Recommendation{
		SpendingID:    id,
		CardID:        "uob-ladys",
		SecondCardID:  "trust-cashback",
		RewardCents:   12345,
		OverflowCents: 200,
		ResultJSON:    []byte(`{"combined":{"cents":12345}}`),
	})
	if err != nil {
		t.Fatalf("SaveRecommendation() error: %v", err)
	}

	rec, err := repo.GetRecommendation(ctx, id)
	if err != nil {
		t.Fatalf("GetRecommendation() error: %v", err)
	}
	if rec.SecondCardID != "trust-cashback" {
		t.Errorf("SecondCardID = %q, want trust-cashback", rec.SecondCardID)
	}
	if rec.RewardCents != 12345 || rec.OverflowCents != 200 {
		t.Errorf("reward/overflow = %d/%d, want 12345/200", rec.RewardCents, rec.OverflowCents)
	}
}
