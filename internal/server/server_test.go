// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/travel-recommender/internal/extract"
	"github.com/pdiddy/travel-recommender/internal/logging"
	"github.com/pdiddy/travel-recommender/pkg/types"
)

type fakeRecommender struct {
	state     *types.PipelineState
	gotQuery  string
	gotReqID  string
	callCount int
}

func (f *fakeRecommender) Run(ctx context.Context, input string) *types.PipelineState {
	f.callCount++
	f.gotQuery = input
	f.gotReqID = logging.RequestIDFromContext(ctx)
	return f.state
}

func stateWith(status types.Status, err error, ids ...string) *types.PipelineState {
	recs := make([]types.RankedCandidate, len(ids))
	for i, id := range ids {
		recs[i] = types.RankedCandidate{Destination: types.DestinationRecord{ID: id}, EmbeddingScore: 0.5}
	}
	return &types.PipelineState{
		Status: status,
		Err:    err,
		Response: &types.RecommendationResponse{
			RequestID:       "r1",
			Status:          status,
			Message:         "msg",
			Recommendations: recs,
		},
	}
}

func newTestServer(t *testing.T, rec Recommender, cfg types.ServerConfig, checks map[string]Check) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(cfg, rec, checks, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := ts.Client().Post(ts.URL+"/api/v1/recommendations", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestRecommend(t *testing.T) {
	rec := &fakeRecommender{state: stateWith(types.StatusSuccess, nil, "NOR", "PRT")}
	ts := newTestServer(t, rec, types.ServerConfig{}, nil)

	resp, body := post(t, ts, `{"query": "  quiet fjords  "}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got types.RecommendationResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, types.StatusSuccess, got.Status)
	require.Len(t, got.Recommendations, 2)
	assert.Equal(t, "NOR", got.Recommendations[0].Destination.ID)

	assert.Equal(t, "quiet fjords", rec.gotQuery)
	assert.NotEmpty(t, rec.gotReqID, "request id reaches the pipeline")
}

func TestRecommend_StatusCodes(t *testing.T) {
	tests := []struct {
		name  string
		state *types.PipelineState
		want  int
	}{
		{"no preferences", stateWith(types.StatusNoPreferences, nil), http.StatusOK},
		{"extraction failure", stateWith(types.StatusError, &types.ExtractionError{Stage: "interests", Err: errors.New("down")}), http.StatusBadGateway},
		{"other failure", stateWith(types.StatusError, types.ErrNotLoaded), http.StatusInternalServerError},
		{"backend circuit open", stateWith(types.StatusError, &types.ExtractionError{
			Stage: "logistics",
			Err:   fmt.Errorf("ollama:llama3.1: %w", extract.ErrBackendUnavailable),
		}), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeRecommender{state: tt.state}, types.ServerConfig{}, nil)
			resp, body := post(t, ts, `{"query": "anything"}`)
			assert.Equal(t, tt.want, resp.StatusCode)

			var got types.RecommendationResponse
			require.NoError(t, json.Unmarshal(body, &got))
			assert.Equal(t, tt.state.Status, got.Status)
		})
	}
}

func TestRecommend_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not JSON", `query=beach`},
		{"empty query", `{"query": "   "}`},
		{"missing query", `{}`},
		{"query too long", `{"query": "` + strings.Repeat("a", 2001) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecommender{}
			ts := newTestServer(t, rec, types.ServerConfig{}, nil)
			resp, body := post(t, ts, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, string(body), `"error"`)
			assert.Zero(t, rec.callCount)
		})
	}
}

func TestRecommend_RateLimited(t *testing.T) {
	ts := newTestServer(t, &fakeRecommender{state: stateWith(types.StatusSuccess, nil)}, types.ServerConfig{RequestsPerMin: 1}, nil)

	resp, _ := post(t, ts, `{"query": "beach"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = post(t, ts, `{"query": "beach"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	failing := func(context.Context) error { return types.ErrNotLoaded }

	tests := []struct {
		name       string
		checks     map[string]Check
		wantCode   int
		wantStatus string
	}{
		{"no checks", nil, http.StatusOK, "ok"},
		{"all healthy", map[string]Check{"store": ok, "index": ok}, http.StatusOK, "ok"},
		{"index not built", map[string]Check{"store": ok, "index": failing}, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeRecommender{}, types.ServerConfig{}, tt.checks)
			resp, err := ts.Client().Get(ts.URL + "/api/v1/health")
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantCode, resp.StatusCode)

			var got healthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.wantStatus, got.Status)
			if tt.wantStatus == "degraded" {
				assert.Equal(t, "not loaded", got.Checks["index"])
				assert.Equal(t, "ok", got.Checks["store"])
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeRecommender{state: stateWith(types.StatusSuccess, nil)}, types.ServerConfig{}, nil)
	post(t, ts, `{"query": "beach"}`)

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `travel_recommender_http_requests_total{code="200",route="/api/v1/recommendations"}`)
}

func TestListenAndServe_ShutsDownOnCancel(t *testing.T) {
	s := New(types.ServerConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}, &fakeRecommender{}, nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
