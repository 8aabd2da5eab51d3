package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cardrewards/internal/core"
	"cardrewards/internal/storage"
)

const maxBodyBytes = 1 << 20

// decodeBody reads a JSON request body into dst with a size limit.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// parseSpending converts the wire representation (decimal dollar strings
// keyed by category) into a spending vector in cents.
func parseSpending(raw map[string]string) (core.SpendingVector, error) {
	sv := make(core.SpendingVector, len(raw))
	for cat, amount := range raw {
		c := core.Category(strings.ToLower(strings.TrimSpace(cat)))
		cents, err := core.ParseDecimalToCents(amount)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", c, err)
		}
		sv[c] = core.Money{Cents: cents}
	}
	return sv, nil
}

// vectorKey renders a spending vector as a canonical cache key fragment.
// Categories are walked in the fixed processing order so equal vectors
// always produce the same key.
func vectorKey(sv core.SpendingVector) string {
	var b strings.Builder
	for _, c := range core.Categories {
		if m := sv.Get(c); !m.IsZero() {
			b.WriteString(string(c))
			b.WriteByte('=')
			b.WriteString(strconv.FormatInt(m.Cents, 10))
			b.WriteByte(';')
		}
	}
	return b.String()
}

type cardSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Issuer string `json:"issuer"`
	Kind   string `json:"kind"`
	Tiers  int    `json:"tiers"`
}

func (s *Server) handleListCards(w http.ResponseWriter, _ *http.Request) {
	cards := s.rewardSvc.Catalog().Cards()
	out := make([]cardSummary, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardSummary{
			ID:     c.ID,
			Name:   c.Name,
			Issuer: c.Issuer,
			Kind:   string(c.Kind),
			Tiers:  len(c.Tiers),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": out})
}

type cardRewardRequest struct {
	CardID   string            `json:"card_id"`
	Spending map[string]string `json:"spending"`
}

func (s *Server) handleCardReward(w http.ResponseWriter, r *http.Request) {
	var req cardRewardRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CardID == "" {
		writeError(w, http.StatusBadRequest, "card_id is required")
		return
	}
	sv, err := parseSpending(req.Spending)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	key := "card|" + req.CardID + "|" + vectorKey(sv)
	if cached, ok := s.cardCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), computeTimeout)
	defer cancel()

	result, err := s.rewardSvc.CardReward(ctx, req.CardID, sv)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.cardCache.Set(key, result)
	writeJSON(w, http.StatusOK, result)
}

type spendingRequest struct {
	Spending map[string]string `json:"spending"`
}

func (s *Server) handleRankCards(w http.ResponseWriter, r *http.Request) {
	var req spendingRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sv, err := parseSpending(req.Spending)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	key := "rank|" + vectorKey(sv)
	if cached, ok := s.rankCache.Get(key); ok {
		writeJSON(w, http.StatusOK, map[string]any{"results": cached})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), computeTimeout)
	defer cancel()

	results, err := s.rewardSvc.RankCards(ctx, sv)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.rankCache.Set(key, results)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type combinationRequest struct {
	FirstCardID  string            `json:"first_card_id"`
	SecondCardID string            `json:"second_card_id"`
	Spending     map[string]string `json:"spending"`
}

// handleCombination splits the spending vector across two cards. With an
// explicit pair it optimizes that pair; with no cards given it searches
// every pair in the catalog for the best combination.
func (s *Server) handleCombination(w http.ResponseWriter, r *http.Request) {
	var req combinationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if (req.FirstCardID == "") != (req.SecondCardID == "") {
		writeError(w, http.StatusBadRequest, "provide both card ids or neither")
		return
	}
	sv, err := parseSpending(req.Spending)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	key := "combo|" + req.FirstCardID + "+" + req.SecondCardID + "|" + vectorKey(sv)
	if cached, ok := s.comboCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), computeTimeout)
	defer cancel()

	var result any
	if req.FirstCardID != "" {
		combo, cerr := s.rewardSvc.Combination(ctx, req.FirstCardID, req.SecondCardID, sv)
		if cerr != nil {
			writeDomainError(w, r, cerr)
			return
		}
		s.comboCache.Set(key, combo)
		result = combo
	} else {
		combo, cerr := s.rewardSvc.BestCombination(ctx, sv)
		if cerr != nil {
			writeDomainError(w, r, cerr)
			return
		}
		s.comboCache.Set(key, combo)
		result = combo
	}
	writeJSON(w, http.StatusOK, result)
}

type createSpendingRequest struct {
	Month    string            `json:"month"`
	Spending map[string]string `json:"spending"`
}

type createSpendingResponse struct {
	ID     int64  `json:"id"`
	Month  string `json:"month"`
	Status string `json:"status"`
}

func (s *Server) handleCreateSpending(w http.ResponseWriter, r *http.Request) {
	if s.spendingSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}

	var req createSpendingRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	month := strings.TrimSpace(req.Month)
	if month == "" {
		month = time.Now().Format("2006-01")
	} else if _, err := time.Parse("2006-01", month); err != nil {
		writeError(w, http.StatusBadRequest, "month must be formatted YYYY-MM")
		return
	}
	sv, err := parseSpending(req.Spending)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.spendingSvc.CreateSpending(r.Context(), month, sv)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, createSpendingResponse{ID: id, Month: month, Status: "pending"})
}

type spendingResponse struct {
	ID        int64               `json:"id"`
	Month     string              `json:"month"`
	Status    string              `json:"status"`
	Amounts   core.SpendingVector `json:"amounts"`
	CreatedAt time.Time           `json:"created_at"`
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid spending id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleGetSpending(w http.ResponseWriter, r *http.Request) {
	if s.spendingSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	sp, err := s.spendingSvc.GetSpending(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, spendingResponse{
		ID:        sp.ID,
		Month:     sp.Month,
		Status:    sp.Status,
		Amounts:   sp.Amounts,
		CreatedAt: sp.CreatedAt,
	})
}

type recommendationResponse struct {
	SpendingID    int64           `json:"spending_id"`
	CardID        string          `json:"card_id"`
	SecondCardID  string          `json:"second_card_id,omitempty"`
	RewardCents   int64           `json:"reward_cents"`
	OverflowCents int64           `json:"overflow_cents"`
	Result        json.RawMessage `json:"result,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (s *Server) handleGetRecommendation(w http.ResponseWriter, r *http.Request) {
	if s.spendingSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	// Report a clearer status when the spending exists but the worker has
	// not produced a recommendation yet.
	rec, err := s.spendingSvc.GetRecommendation(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			if sp, serr := s.spendingSvc.GetSpending(r.Context(), id); serr == nil {
				switch sp.Status {
				case storage.StatusPending:
					writeJSON(w, http.StatusAccepted, map[string]string{"status": storage.StatusPending})
					return
				case storage.StatusError:
					writeError(w, http.StatusInternalServerError, "recommendation failed")
					return
				}
			}
		}
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendationResponse{
		SpendingID:    rec.SpendingID,
		CardID:        rec.CardID,
		SecondCardID:  rec.SecondCardID,
		RewardCents:   rec.RewardCents,
		OverflowCents: rec.OverflowCents,
		Result:        json.RawMessage(rec.ResultJSON),
		CreatedAt:     rec.CreatedAt,
	})
}
