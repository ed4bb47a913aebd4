package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/listing-harvester/internal/harvest"
	"github.com/JakeFAU/listing-harvester/internal/metrics"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	rec := serve(t, NewServer(fakePinger{}, zap.NewNop()), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok"`)
	require.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestServer_Readyz(t *testing.T) {
	t.Parallel()

	rec := serve(t, NewServer(fakePinger{}, zap.NewNop()), "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, NewServer(fakePinger{err: errors.New("no primary")}, zap.NewNop()), "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "no primary")

	rec = serve(t, NewServer(nil, nil), "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	metrics.ObserveRecord(metrics.OutcomeExtracted)
	rec := serve(t, NewServer(nil, zap.NewNop()), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "harvester_records_total")
}

func TestServer_LastRun(t *testing.T) {
	t.Parallel()

	s := NewServer(nil, zap.NewNop())
	rec := serve(t, s, "/v1/runs/last")
	require.Equal(t, http.StatusNotFound, rec.Code)

	s.SetSummary(harvest.Summary{
		RunID:   "run-1",
		Pages:   1,
		Stored:  49,
		Dropped: 1,
		Started: time.Unix(100, 0).UTC(),
	})
	rec = serve(t, s, "/v1/runs/last")
	require.Equal(t, http.StatusOK, rec.Code)

	var got harvest.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "run-1", got.RunID)
	require.Equal(t, 49, got.Stored)
	require.Equal(t, 1, got.Dropped)
}
