package main

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

	"github.com/JakeFAU/listing-harvester/internal/api"
	"github.com/JakeFAU/listing-harvester/internal/harvest"
)

type stubRunner struct {
	summary harvest.Summary
	err     error
}

func (s stubRunner) Run(context.Context, []string) (harvest.Summary, error) {
	return s.summary, s.err
}

func TestHarvestAndServeKeepsSummaryReachable(t *testing.T) {
	t.Parallel()

	apiServer := api.NewServer(nil, zap.NewNop())
	ts := httptest.NewServer(apiServer.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := stubRunner{summary: harvest.Summary{RunID: "run-1", Pages: 1, Stored: 2, Dropped: 1}}
	done := make(chan error, 1)
	go func() {
		_, err := harvestAndServe(ctx, runner, []string{"https://example.com/list"}, apiServer, zap.NewNop())
		done <- err
	}()

	var got harvest.Summary
	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/v1/runs/last")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		return json.NewDecoder(resp.Body).Decode(&got) == nil
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "run-1", got.RunID)
	require.Equal(t, 2, got.Stored)

	select {
	case <-done:
		t.Fatal("returned before the context was canceled")
	default:
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("did not return after cancellation")
	}
}

func TestHarvestAndServeWithoutServerReturnsImmediately(t *testing.T) {
	t.Parallel()

	boom := errors.New("page failed")
	summary, err := harvestAndServe(
		context.Background(),
		stubRunner{summary: harvest.Summary{RunID: "run-2", PagesFailed: 1}, err: boom},
		nil,
		nil,
		zap.NewNop(),
	)
	require.ErrorIs(t, err, boom)
	require.Equal(t, "run-2", summary.RunID)
}
