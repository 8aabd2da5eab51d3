package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cardrewards/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a spending or recommendation does not exist.
var ErrNotFound = errors.New("storage: not found")

// Recommendation statuses for a spending row.
const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusError   = "error"
)

// Spending is one saved month of categorized spending.
type Spending struct {
	ID        int64
	Month     string
	Status    string
	Amounts   core.SpendingVector
	CreatedAt time.Time
}

// Recommendation is a stored engine result for a spending row. ResultJSON
// holds the full reward breakdown as produced by the engine.
type Recommendation struct {
	ID            int64
	SpendingID    int64
	CardID        string
	SecondCardID  string
	RewardCents   int64
	OverflowCents int64
	ResultJSON    []byte
	CreatedAt     time.Time
}

// PendingSpending is the minimal row the worker queue needs.
type PendingSpending struct {
	ID        int64
	CreatedAt time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateSpending stores a validated spending vector and returns its row ID.
// The row starts in pending status until the worker computes
// recommendations for it.
func (r *SQLiteRepository) CreateSpending(ctx context.Context, month string, sv core.SpendingVector) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO spendings (month, recommend_status) VALUES (?, ?)`,
		month, StatusPending)
	if err != nil {
		return 0, fmt.Errorf("insert spending: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	for _, cat := range core.Categories {
		amt := sv.Get(cat)
		if amt.Cents == 0 {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO spending_amounts (spending_id, category, amount_cents) VALUES (?, ?, ?)`,
			id, string(cat), amt.Cents)
		if err != nil {
			return 0, fmt.Errorf("insert spending amount %s: %w", cat, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Spending saved to SQLite",
		"id", id,
		"month", month,
		"total_cents", sv.Total().Cents)

	return id, nil
}

// GetSpending loads a spending row with its full vector.
func (r *SQLiteRepository) GetSpending(ctx context.Context, id int64) (*Spending, error) {
	sp := &Spending{ID: id, Amounts: make(core.SpendingVector)}

	err := r.db.QueryRowContext(ctx,
		`SELECT month, recommend_status, created_at FROM spendings WHERE id = ?`, id).
		Scan(&sp.Month, &sp.Status, &sp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("spending %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get spending: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT category, amount_cents FROM spending_amounts WHERE spending_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get spending amounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cat string
		var cents int64
		if err := rows.Scan(&cat, &cents); err != nil {
			return nil, fmt.Errorf("scan spending amount: %w", err)
		}
		sp.Amounts[core.Category(cat)] = core.Money{Cents: cents}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spending amounts: %w", err)
	}

	return sp, nil
}

// ListSpendings returns the most recent spending rows, newest first.
func (r *SQLiteRepository) ListSpendings(ctx context.Context, limit int) ([]Spending, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, month, recommend_status, created_at FROM spendings ORDER BY id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("list spendings: %w", err)
	}
	defer rows.Close()

	var out []Spending
	for rows.Next() {
		var sp Spending
		if err := rows.Scan(&sp.ID, &sp.Month, &sp.Status, &sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan spending: %w", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// GetPendingSpendings returns spendings that still need recommendations.
func (r *SQLiteRepository) GetPendingSpendings(ctx context.Context, limit int) ([]PendingSpending, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at FROM spendings WHERE recommend_status = ? ORDER BY id LIMIT ?`,
		StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending spendings: %w", err)
	}
	defer rows.Close()

	var out []PendingSpending
	for rows.Next() {
		var p PendingSpending
		if err := rows.Scan(&p.ID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending spending: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveRecommendation stores an engine result and marks the spending done.
// Any previous recommendation for the spending is replaced.
func (r *SQLiteRepository) SaveRecommendation(ctx context.Context, rec *Recommendation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM recommendations WHERE spending_id = ?`, rec.SpendingID); err != nil {
		return fmt.Errorf("clear previous recommendation: %w", err)
	}

	var secondCard any
	if rec.SecondCardID != "" {
		secondCard = rec.SecondCardID
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO recommendations (spending_id, card_id, second_card_id, reward_cents, overflow_cents, result_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SpendingID, rec.CardID, secondCard, rec.RewardCents, rec.OverflowCents, string(rec.ResultJSON))
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE spendings SET recommend_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		StatusDone, rec.SpendingID); err != nil {
		return fmt.Errorf("mark spending done: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Recommendation saved",
		"spending_id", rec.SpendingID,
		"card_id", rec.CardID,
		"second_card_id", rec.SecondCardID,
		"reward_cents", rec.RewardCents)

	return nil
}

// GetRecommendation loads the stored recommendation for a spending row.
func (r *SQLiteRepository) GetRecommendation(ctx context.Context, spendingID int64) (*Recommendation, error) {
	rec := &Recommendation{SpendingID: spendingID}
	var secondCard sql.NullString
	var resultJSON string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, card_id, second_card_id, reward_cents, overflow_cents, result_json, created_at
		 FROM recommendations WHERE spending_id = ?`, spendingID).
		Scan(&rec.ID, &rec.CardID, &secondCard, &rec.RewardCents, &rec.OverflowCents, &resultJSON, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recommendation for spending %d: %w", spendingID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get recommendation: %w", err)
	}

	rec.SecondCardID = secondCard.String
	rec.ResultJSON = []byte(resultJSON)
	if !json.Valid(rec.ResultJSON) {
		return nil, fmt.Errorf("recommendation for spending %d has corrupt result payload", spendingID)
	}
	return rec, nil
}

// MarkRecommendError flags a spending whose recommendation failed.
func (r *SQLiteRepository) MarkRecommendError(ctx context.Context, spendingID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE spendings SET recommend_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		StatusError, spendingID)
	if err != nil {
		return fmt.Errorf("mark recommend error: %w", err)
	}

	slog.WarnContext(ctx, "Spending marked with recommendation error", "spending_id", spendingID)
	return nil
}
