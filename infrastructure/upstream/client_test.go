package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"csgclient/infrastructure/config"
	"csgclient/pkg/errors"
	"csgclient/pkg/observability"
)

func newTestClient(t *testing.T, base string, mutate func(*config.Config)) *Client {
	t.Helper()
	cfg := config.Defaults()
	cfg.UpstreamAPI = base
	cfg.UpstreamTimeout = 2 * time.Second
	if mutate != nil {
		mutate(cfg)
	}
	return NewClient(cfg, config.NewUpstreamSetting(cfg), observability.NewCollector("csg_test"), zap.NewNop())
}

func TestClient_Analyze_Success(t *testing.T) {
	// Arrange
	var gotPath, gotRequestID string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"analysis": {"summary": "ok", "data": {"nodes": [{"id": 7}], "relationships": []}}}`))
	}))
	defer srv.Close()
	client := newTestClient(t, srv.URL+"/", nil)

	// Act
	doc, err := client.Analyze(context.Background(), map[string]interface{}{"question": "q", "include_data": true})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "/analyze/", gotPath)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, "q", gotBody["question"])
	analysis := doc.(map[string]interface{})["analysis"].(map[string]interface{})
	assert.Equal(t, "ok", analysis["summary"])
	node := analysis["data"].(map[string]interface{})["nodes"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, json.Number("7"), node["id"])
}

func TestClient_NotConfigured(t *testing.T) {
	client := newTestClient(t, "", nil)

	_, err := client.Analyze(context.Background(), map[string]interface{}{})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeUpstreamNotConfigured))
	assert.Equal(t, http.StatusBadRequest, errors.StatusOf(err))
}

func TestClient_ErrorsBecomeBadGateway(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		contain string
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "neo4j unavailable", http.StatusServiceUnavailable)
			},
			contain: "neo4j unavailable",
		},
		{
			name: "non-JSON body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>oops</html>"))
			},
			contain: "invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			client := newTestClient(t, srv.URL, nil)

			_, err := client.Schema(context.Background())

			require.Error(t, err)
			assert.Equal(t, http.StatusBadGateway, errors.StatusOf(err))
			assert.True(t, errors.HasCode(err, errors.CodeUpstreamError))
			assert.Contains(t, err.Error(), tt.contain)
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()
	client := newTestClient(t, base, nil)

	_, err := client.SaveData(context.Background(), map[string]interface{}{"a": 1})

	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, errors.StatusOf(err))
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)
	client := newTestClient(t, srv.URL, func(c *config.Config) { c.UpstreamTimeout = 50 * time.Millisecond })

	_, err := client.MockAnalysis(context.Background(), map[string]interface{}{})

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))
	assert.Equal(t, http.StatusBadGateway, errors.StatusOf(err))
}

func TestClient_BreakerOpens(t *testing.T) {
	// Arrange
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	client := newTestClient(t, srv.URL, func(c *config.Config) {
		c.Breaker.MinRequests = 2
		c.Breaker.FailureRatio = 0.5
		c.Breaker.Timeout = time.Minute
	})

	// Act
	for i := 0; i < 2; i++ {
		_, _ = client.Schema(context.Background())
	}
	_, err := client.Schema(context.Background())

	// Assert
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, http.StatusBadGateway, errors.StatusOf(err))
}

func TestClient_ReconfigureResetsBreaker(t *testing.T) {
	// Arrange
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer dead.Close()
	var healthyCalls atomic.Int32
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		healthyCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title": "AnalysisResponse"}`))
	}))
	defer healthy.Close()

	cfg := config.Defaults()
	cfg.UpstreamAPI = dead.URL
	cfg.UpstreamTimeout = 2 * time.Second
	cfg.Breaker.MinRequests = 2
	cfg.Breaker.FailureRatio = 0.5
	cfg.Breaker.Timeout = time.Minute
	setting := config.NewUpstreamSetting(cfg)
	client := NewClient(cfg, setting, observability.NewCollector("csg_test"), zap.NewNop())

	for i := 0; i < 2; i++ {
		_, _ = client.Schema(context.Background())
	}
	_, err := client.Schema(context.Background())
	require.Error(t, err)
	require.Equal(t, gobreaker.StateOpen, client.breakerFor(dead.URL).State())

	// Act
	_, err = setting.Set(healthy.URL)
	require.NoError(t, err)
	doc, err := client.Schema(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"title": "AnalysisResponse"}, doc)
	assert.Equal(t, int32(1), healthyCalls.Load())
}

func TestClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()
	client := newTestClient(t, srv.URL, func(c *config.Config) {
		c.Breaker.MinRequests = 1
		c.Breaker.FailureRatio = 0.1
	})

	for i := 0; i < 3; i++ {
		_, err := client.Analyze(context.Background(), map[string]interface{}{})
		require.Error(t, err)
	}

	assert.Equal(t, int32(3), calls.Load())
}
