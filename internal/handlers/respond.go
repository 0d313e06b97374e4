package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"psl-dashboard/internal/football"
	"psl-dashboard/internal/seed"
	"psl-dashboard/internal/store"
	"psl-dashboard/pkg/logging"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeJSON sends v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRaw sends already encoded JSON.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Success: false, Error: msg})
}

// writeFailure maps err to a status, logs it and answers with a message that
// does not leak internals on 5xx.
func writeFailure(ctx context.Context, w http.ResponseWriter, action string, err error) {
	status, msg := classify(err)
	logger := logging.L(ctx)
	if status >= 500 {
		logger.Error(action+" failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Warn(action+" failed", zap.Int("status", status), zap.Error(err))
	}
	if msg == "" {
		msg = action + " failed"
	}
	writeError(w, status, msg)
}

func classify(err error) (int, string) {
	var apiErr *football.APIError
	switch {
	case errors.Is(err, store.ErrNotConfigured):
		return http.StatusServiceUnavailable, "database not configured"
	case errors.Is(err, football.ErrQuotaExhausted):
		return http.StatusTooManyRequests, "upstream request quota exhausted"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	case errors.As(err, &apiErr), errors.Is(err, seed.ErrUpstream):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, ""
	}
}
