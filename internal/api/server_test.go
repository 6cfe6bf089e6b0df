package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ekaval/estate-harvester/internal/progress"
)

func newTestServer(t *testing.T) (*Server, *progress.StoreSink) {
	t.Helper()
	store := progress.NewStoreSink()
	registry := prometheus.NewRegistry()
	_, err := progress.NewPrometheusSink(registry)
	require.NoError(t, err)
	return NewServer(store, registry, nil), store
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestMetricsExposesCounters(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "harvester_pages_visited_total")
}

func TestProgressSnapshot(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t)
	runID := progress.NewRunID()
	store.Consume(progress.Event{RunID: runID, TS: time.Now(), Stage: progress.StageRunStart})
	store.Consume(progress.Event{RunID: runID, TS: time.Now(), Stage: progress.StagePageDone, Page: 1, Count: 20})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap progress.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, 1, snap.PagesVisited)
}

func TestProgressUnavailableWithoutStore(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, prometheus.NewRegistry(), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
