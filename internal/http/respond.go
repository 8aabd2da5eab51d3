package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cardrewards/internal/catalog"
	"cardrewards/internal/core"
	"cardrewards/internal/storage"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Response encoding failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeDomainError maps engine and storage errors to HTTP statuses. Invalid
// input is the caller's fault, unknown identifiers are 404, anything else is
// logged and reported as a 500 without leaking internals.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNegativeAmount),
		errors.Is(err, core.ErrUnknownCategory),
		errors.Is(err, core.ErrInvalidAmount):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, catalog.ErrUnknownCard),
		errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		slog.ErrorContext(r.Context(), "Computation timed out", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusGatewayTimeout, "computation timed out")
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
