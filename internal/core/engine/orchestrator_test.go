package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scrapeline/scrapeline/internal/core"
)

func testSleep(ctx context.Context, d time.Duration) error { return nil }

func TestOrchestratorRunTransformsRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"items":[{"id":1,"name":"  Ann  ","internal":"x"}]}}`))
	}))
	defer server.Close()

	cfg := &core.ScrapeConfig{
		Name:    "users-api",
		BaseURL: server.URL,
		Auth:    core.AuthSpec{Kind: core.AuthNone},
		Endpoints: []core.EndpointSpec{
			{Name: "users", URL: "/users", DataPath: "$.data.items"},
		},
		RateLimit: core.DefaultRateLimitPolicy(),
		Transform: core.TransformRule{
			FieldMapping: map[string]string{"id": "user_id", "name": "user_name"},
			FieldFilters: map[string]core.FilterSpec{
				"user_name": {Kind: core.FilterString, Strip: true},
			},
		},
		Enabled: true,
	}

	orchestrator := &Orchestrator{
		Config: cfg,
		Client: &http.Client{},
		Logger: zap.NewNop(),
		Sleep:  testSleep,
	}

	result, err := orchestrator.Run(context.Background(), "job_test")
	require.NoError(t, err)
	require.Equal(t, core.JobCompleted, result.Status)
	require.Equal(t, "job_test", result.JobID)
	require.NotEmpty(t, result.ExecutionID)
	require.Equal(t, 1, result.EndpointsScraped)
	require.Equal(t, 0, result.EndpointsSkipped)
	require.Equal(t, 1, result.RecordsProcessed)
	require.Greater(t, result.DataSizeBytes, 0)

	capture := result.Captures["users"]
	require.NotNil(t, capture)
	require.Equal(t, []any{
		map[string]any{"user_id": float64(1), "user_name": "Ann"},
	}, capture.Data)
}

func TestOrchestratorSkipsFailedEndpointAndContinues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bad":
			http.Error(w, "nope", http.StatusForbidden)
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":1},{"id":2}]`))
		}
	}))
	defer server.Close()

	cfg := &core.ScrapeConfig{
		Name:    "mixed-api",
		BaseURL: server.URL,
		Auth:    core.AuthSpec{Kind: core.AuthNone},
		Endpoints: []core.EndpointSpec{
			{Name: "bad", URL: "/bad"},
			{Name: "good", URL: "/good"},
		},
		RateLimit: core.RateLimitPolicy{RequestsPerMinute: 60, RequestsPerHour: 1000},
		Enabled:   true,
	}

	orchestrator := &Orchestrator{
		Config: cfg,
		Client: &http.Client{},
		Logger: zap.NewNop(),
		Sleep:  testSleep,
	}

	result, err := orchestrator.Run(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, core.JobCompleted, result.Status)
	require.Equal(t, 1, result.EndpointsScraped)
	require.Equal(t, 1, result.EndpointsSkipped)
	require.Equal(t, 2, result.RecordsProcessed)

	_, captured := result.Captures["bad"]
	require.False(t, captured)
	require.NotNil(t, result.Captures["good"])
}

func TestOrchestratorGeneratesJobID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	started := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	orchestrator := &Orchestrator{
		Config: &core.ScrapeConfig{
			Name:      "tiny",
			BaseURL:   server.URL,
			Endpoints: []core.EndpointSpec{{Name: "root", URL: "/"}},
			RateLimit: core.DefaultRateLimitPolicy(),
			Enabled:   true,
		},
		Client: &http.Client{},
		Logger: zap.NewNop(),
		Clock:  func() time.Time { return started },
		Sleep:  testSleep,
	}

	result, err := orchestrator.Run(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "job_20260315_103000", result.JobID)
	require.Equal(t, started, result.StartedAt)
}

func TestOrchestratorRateLimitedEndpointsAreSkipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := &core.ScrapeConfig{
		Name:    "limited",
		BaseURL: server.URL,
		Endpoints: []core.EndpointSpec{
			{Name: "first", URL: "/a"},
			{Name: "second", URL: "/b"},
			{Name: "third", URL: "/c"},
		},
		RateLimit: core.RateLimitPolicy{RequestsPerMinute: 1, RequestsPerHour: 1000},
		Enabled:   true,
	}

	orchestrator := &Orchestrator{
		Config: cfg,
		Client: &http.Client{},
		Logger: zap.NewNop(),
		Sleep:  testSleep,
	}

	result, err := orchestrator.Run(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, core.JobCompleted, result.Status)
	require.Equal(t, 1, result.EndpointsScraped)
	require.Equal(t, 2, result.EndpointsSkipped)
}
