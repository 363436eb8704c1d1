package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Sammk21/medusa-admin/infra/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogStore struct {
	filter postgres.LogFilter
	hours  int
	logs   []postgres.ProviderLog
	err    error
}

func (m *mockLogStore) SearchLogs(_ context.Context, filter postgres.LogFilter) ([]postgres.ProviderLog, error) {
	m.filter = filter
	return m.logs, m.err
}

func (m *mockLogStore) GetProviderStats(_ context.Context, providerName string, hours int) (map[string]any, error) {
	m.hours = hours
	if m.err != nil {
		return nil, m.err
	}
	return map[string]any{"provider": providerName, "total": 3}, nil
}

func logsRouter(store LogStore) chi.Router {
	h := NewLogsHandler(store)
	r := chi.NewRouter()
	r.Get("/logs/{provider}", h.ListLogs)
	r.Get("/logs/{provider}/stats", h.GetStats)
	return r
}

func TestLogsHandler_ListLogs(t *testing.T) {
	store := &mockLogStore{logs: []postgres.ProviderLog{
		{ID: 2, Provider: "razorpay", Operation: "capture", Status: postgres.StatusSuccess},
		{ID: 1, Provider: "razorpay", Operation: "initiate", Status: postgres.StatusSuccess},
	}}
	r := logsRouter(store)

	w := httptest.NewRecorder()
	before := time.Now()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logs/razorpay?environment=sandbox&operation=capture&status=success&sessionId=sess_1&hours=2&limit=10", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "razorpay", store.filter.Provider)
	assert.Equal(t, "sandbox", store.filter.Environment)
	assert.Equal(t, "capture", store.filter.Operation)
	assert.Equal(t, postgres.StatusSuccess, store.filter.Status)
	assert.Equal(t, "sess_1", store.filter.SessionID)
	assert.Equal(t, 10, store.filter.Limit)
	assert.WithinDuration(t, before.Add(-2*time.Hour), store.filter.StartDate, time.Second)

	var resp struct {
		Data struct {
			Count int                    `json:"count"`
			Logs  []postgres.ProviderLog `json:"logs"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Count)
	assert.Equal(t, int64(2), resp.Data.Logs[0].ID)
}

func TestLogsHandler_ListLogs_Defaults(t *testing.T) {
	store := &mockLogStore{}
	r := logsRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logs/razorpay", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, store.filter.Limit)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), store.filter.StartDate, time.Second)
}

func TestLogsHandler_ListLogs_BadParams(t *testing.T) {
	for _, query := range []string{"?hours=abc", "?hours=0", "?limit=501", "?status=done"} {
		t.Run(query, func(t *testing.T) {
			w := httptest.NewRecorder()
			logsRouter(&mockLogStore{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logs/razorpay"+query, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestLogsHandler_StoreError(t *testing.T) {
	store := &mockLogStore{err: errors.New("connection reset")}
	r := logsRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logs/razorpay", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logs/razorpay/stats", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLogsHandler_GetStats(t *testing.T) {
	store := &mockLogStore{}
	r := logsRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logs/razorpay/stats?hours=48", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 48, store.hours)
	assert.Contains(t, w.Body.String(), `"total":3`)
}
