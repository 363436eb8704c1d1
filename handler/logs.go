package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sammk21/medusa-admin/infra/postgres"
	"github.com/Sammk21/medusa-admin/infra/response"
	"github.com/go-chi/chi/v5"
)

// LogStore is the read side of the provider call log
type LogStore interface {
	SearchLogs(ctx context.Context, filter postgres.LogFilter) ([]postgres.ProviderLog, error)
	GetProviderStats(ctx context.Context, providerName string, hours int) (map[string]any, error)
}

// LogsHandler serves the provider call log
type LogsHandler struct {
	store LogStore
}

// NewLogsHandler creates a new logs handler
func NewLogsHandler(store LogStore) *LogsHandler {
	return &LogsHandler{store: store}
}

// ListLogs lists provider calls, newest first
//
//	GET /v1/logs/{provider}?environment=&operation=&status=&sessionId=&hours=&limit=
func (h *LogsHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	providerName := chi.URLParam(r, "provider")
	if providerName == "" {
		response.Error(w, http.StatusBadRequest, "Provider parameter is required", nil)
		return
	}

	q := r.URL.Query()
	filter := postgres.LogFilter{
		Provider:    providerName,
		Environment: q.Get("environment"),
		Operation:   q.Get("operation"),
		Status:      q.Get("status"),
		SessionID:   q.Get("sessionId"),
	}

	switch filter.Status {
	case "", postgres.StatusPending, postgres.StatusSuccess, postgres.StatusError:
	default:
		response.Error(w, http.StatusBadRequest, "Invalid status filter", fmt.Errorf("status must be one of pending, success, error"))
		return
	}

	hours, err := intParam(q.Get("hours"), 24, 1, 8760)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid hours parameter", err)
		return
	}
	filter.StartDate = time.Now().Add(-time.Duration(hours) * time.Hour)

	if filter.Limit, err = intParam(q.Get("limit"), 100, 1, 500); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid limit parameter", err)
		return
	}

	logs, err := h.store.SearchLogs(ctx, filter)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to search logs", err)
		return
	}

	response.Success(w, http.StatusOK, "Logs retrieved", map[string]any{
		"provider": providerName,
		"hours":    hours,
		"count":    len(logs),
		"logs":     logs,
	})
}

// GetStats returns call statistics of a provider
//
//	GET /v1/logs/{provider}/stats?hours=24
func (h *LogsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	providerName := chi.URLParam(r, "provider")
	if providerName == "" {
		response.Error(w, http.StatusBadRequest, "Provider parameter is required", nil)
		return
	}

	hours, err := intParam(r.URL.Query().Get("hours"), 24, 1, 8760)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid hours parameter", err)
		return
	}

	stats, err := h.store.GetProviderStats(ctx, providerName, hours)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to get provider stats", err)
		return
	}

	response.Success(w, http.StatusOK, "Provider stats retrieved", stats)
}

func intParam(raw string, def, minValue, maxValue int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	if v < minValue || v > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return v, nil
}
