package services

import (
	"context"
	"fmt"
	"log/slog"

	"cardrewards/internal/amqp"
	"cardrewards/internal/core"
	"cardrewards/internal/storage"
)

// SpendingService orchestrates spending persistence across SQLite and AMQP
type SpendingService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewSpendingService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *SpendingService {
	return &SpendingService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateSpending validates and saves a spending month locally, then
// publishes a recommendation request for the worker.
func (s *SpendingService) CreateSpending(ctx context.Context, month string, sv core.SpendingVector) (int64, error) {
	if err := sv.Validate(); err != nil {
		return 0, fmt.Errorf("spending vector: %w", err)
	}

	// Save to SQLite first (fast, reliable)
	id, err := s.storage.CreateSpending(ctx, month, sv)
	if err != nil {
		return 0, fmt.Errorf("save spending: %w", err)
	}

	// Publish async recommendation request (non-blocking)
	if err := s.publishRecommend(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish recommendation request",
			"spending_id", id, "error", err)
		// Don't fail the request - spending is saved locally and the
		// polling worker will pick it up.
	}

	return id, nil
}

// GetSpending loads a saved spending month.
func (s *SpendingService) GetSpending(ctx context.Context, id int64) (*storage.Spending, error) {
	return s.storage.GetSpending(ctx, id)
}

// GetRecommendation loads the stored recommendation for a spending month.
func (s *SpendingService) GetRecommendation(ctx context.Context, spendingID int64) (*storage.Recommendation, error) {
	return s.storage.GetRecommendation(ctx, spendingID)
}

// ListSpendings returns recent spending months, newest first.
func (s *SpendingService) ListSpendings(ctx context.Context, limit int) ([]storage.Spending, error) {
	return s.storage.ListSpendings(ctx, limit)
}

func (s *SpendingService) publishRecommend(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping recommendation request")
		return nil
	}

	return s.amqpClient.PublishRecommend(ctx, id)
}

// Close closes both storage and AMQP connections
func (s *SpendingService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close spending service: %v", errs)
	}

	return nil
}
