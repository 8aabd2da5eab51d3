package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cardrewards/internal/export"
	applog "cardrewards/internal/log"
	"cardrewards/internal/storage"
)

// RecommendProcessorConfig holds configuration for the recommendation processor
type RecommendProcessorConfig struct {
	// PollInterval is how often to check for pending spendings (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of spendings to process per poll cycle (default: 10)
	BatchSize int
}

// DefaultRecommendProcessorConfig returns sensible defaults
func DefaultRecommendProcessorConfig() RecommendProcessorConfig {
	return RecommendProcessorConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    10,
	}
}

// RecommendProcessor polls for spendings without recommendations, runs the
// reward engine over them and stores the winning card and card pair. It is
// the fallback path behind the AMQP consumer: anything the queue misses is
// picked up here.
type RecommendProcessor struct {
	storage  *storage.SQLiteRepository
	rewards  *RewardService
	exporter export.ReportWriter
	config   RecommendProcessorConfig
	logs     *applog.StructuredLogger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRecommendProcessor creates a new recommendation processor. The
// exporter may be nil when report export is not configured.
func NewRecommendProcessor(
	storage *storage.SQLiteRepository,
	rewards *RewardService,
	exporter export.ReportWriter,
	config RecommendProcessorConfig,
) *RecommendProcessor {
	return &RecommendProcessor{
		storage:  storage,
		rewards:  rewards,
		exporter: exporter,
		config:   config,
		logs:     applog.NewStructuredLogger(applog.New(applog.DefaultConfig())),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *RecommendProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("recommend processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Recommend processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *RecommendProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Recommend processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Recommend processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *RecommendProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// runLoop is the main processing loop
func (p *RecommendProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on startup
	p.processBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

// processBatch processes a single batch of pending spendings
func (p *RecommendProcessor) processBatch(ctx context.Context) {
	items, err := p.storage.GetPendingSpendings(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to fetch pending spendings", "error", err)
		return
	}

	if len(items) == 0 {
		return
	}

	slog.DebugContext(ctx, "Processing recommendation batch", "count", len(items))

	for _, item := range items {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := p.ProcessSpending(ctx, item.ID); err != nil {
			slog.ErrorContext(ctx, "Recommendation failed",
				"spending_id", item.ID, "error", err)
			if markErr := p.storage.MarkRecommendError(ctx, item.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark recommendation error",
					"spending_id", item.ID, "error", markErr)
			}
		}
	}
}

// recommendationPayload is what gets stored and exported for a spending.
type recommendationPayload struct {
	Best        json.RawMessage `json:"best_card"`
	Combination json.RawMessage `json:"best_combination,omitempty"`
}

// ProcessSpending computes and stores recommendations for one spending
// row. It is exposed so the AMQP consumer can reuse the exact same path.
func (p *RecommendProcessor) ProcessSpending(ctx context.Context, spendingID int64) error {
	sp, err := p.storage.GetSpending(ctx, spendingID)
	if err != nil {
		return fmt.Errorf("get spending %d: %w", spendingID, err)
	}

	ranked, err := p.rewards.RankCards(ctx, sp.Amounts)
	if err != nil {
		return fmt.Errorf("rank cards: %w", err)
	}
	if len(ranked) == 0 {
		return fmt.Errorf("catalog is empty")
	}
	best := ranked[0]

	rec := &storage.Recommendation{
		SpendingID:    spendingID,
		CardID:        best.CardID,
		RewardCents:   best.Capped.Cents,
		OverflowCents: best.Overflow.Cents,
	}

	payload := recommendationPayload{}
	if payload.Best, err = json.Marshal(best); err != nil {
		return fmt.Errorf("marshal best card result: %w", err)
	}

	if p.rewards.Catalog().Len() >= 2 {
		combo, err := p.rewards.BestCombination(ctx, sp.Amounts)
		if err != nil {
			return fmt.Errorf("best combination: %w", err)
		}
		// A pair only earns the recommendation if it beats the best
		// single card.
		if combo.Combined.Cents > best.Capped.Cents {
			rec.CardID = combo.First.CardID
			rec.SecondCardID = combo.Second.CardID
			rec.RewardCents = combo.Combined.Cents
			rec.OverflowCents = combo.Overflow.Cents
		}
		if payload.Combination, err = json.Marshal(combo); err != nil {
			return fmt.Errorf("marshal combination result: %w", err)
		}
	}

	if rec.ResultJSON, err = json.Marshal(payload); err != nil {
		return fmt.Errorf("marshal recommendation payload: %w", err)
	}

	if err := p.storage.SaveRecommendation(ctx, rec); err != nil {
		return fmt.Errorf("save recommendation: %w", err)
	}

	p.logs.LogRecommendation(ctx, spendingID, rec.CardID, rec.SecondCardID,
		sp.Amounts.Total().Cents, rec.RewardCents)

	p.exportReport(ctx, sp, rec)
	return nil
}

// exportReport appends the recommendation to the configured report sheet.
// Export failures are logged, never propagated: the recommendation is
// already stored.
func (p *RecommendProcessor) exportReport(ctx context.Context, sp *storage.Spending, rec *storage.Recommendation) {
	if p.exporter == nil {
		return
	}

	row := export.ReportRow{
		Month:         sp.Month,
		SpendingID:    sp.ID,
		CardID:        rec.CardID,
		SecondCardID:  rec.SecondCardID,
		SpendCents:    sp.Amounts.Total().Cents,
		RewardCents:   rec.RewardCents,
		OverflowCents: rec.OverflowCents,
	}
	if err := p.exporter.AppendReport(ctx, row); err != nil {
		p.logs.LogError(ctx, "Failed to export recommendation report", err,
			applog.ComponentExport, applog.OpAppend,
			applog.LogFields{applog.FieldSpendingID: sp.ID})
	}
}
