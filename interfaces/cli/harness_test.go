package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"csgclient/application/services"
	"csgclient/domain/graph"
	"csgclient/domain/usecase"
	"csgclient/pkg/observability"
)

const analyzeOK = `{
	"analysis": {"status": "success", "record_count": 1},
	"graph": {
		"nodes": [
			{"id": "d1", "label": "Device", "title": "IP: 10.0.0.1", "type": "device", "labels": ["Device"], "properties": {"ip": "10.0.0.1"}},
			{"id": "v1", "label": "CVE-1", "title": "CVE-1", "type": "node", "labels": [], "properties": {"name": "CVE-1"}}
		],
		"edges": [{"from": "v1", "to": "d1", "label": "AFFECTS", "properties": {}}]
	},
	"graph_present": true,
	"data_included": true
}`

func newTestHarness(url string, attempts int) (*Harness, *[]time.Duration) {
	h := NewHarness(url, 5*time.Second, attempts, 5*time.Second, zap.NewNop())
	var slept []time.Duration
	h.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return h, &slept
}

func statusSequence(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		status := statuses[len(statuses)-1]
		if n < len(statuses) {
			status = statuses[n]
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(analyzeOK))
			return
		}
		_, _ = w.Write([]byte(`{"error": "x", "message": "upstream analyze returned 500: boom"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestHarness_Ask(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []int
		attempts     int
		wantErr      bool
		wantAttempts int
		wantCalls    int32
	}{
		{name: "first try", statuses: []int{200}, attempts: 2, wantAttempts: 1, wantCalls: 1},
		{name: "gateway error then success", statuses: []int{502, 200}, attempts: 2, wantAttempts: 2, wantCalls: 2},
		{name: "gateway timeout is retried", statuses: []int{504, 200}, attempts: 3, wantAttempts: 2, wantCalls: 2},
		{name: "stops after configured attempts", statuses: []int{502}, attempts: 2, wantErr: true, wantAttempts: 2, wantCalls: 2},
		{name: "three attempts", statuses: []int{502}, attempts: 3, wantErr: true, wantAttempts: 3, wantCalls: 3},
		{name: "client error is not retried", statuses: []int{400}, attempts: 3, wantErr: true, wantAttempts: 1, wantCalls: 1},
		{name: "server error is not retried", statuses: []int{500}, attempts: 3, wantErr: true, wantAttempts: 1, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := statusSequence(t, tt.statuses...)
			h, slept := newTestHarness(srv.URL, tt.attempts)

			env, attempts, err := h.Ask(context.Background(), "Which devices are exposed?")

			assert.Equal(t, tt.wantAttempts, attempts)
			assert.Equal(t, tt.wantCalls, calls.Load())
			assert.Len(t, *slept, tt.wantAttempts-1)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, env)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, env.Graph)
			assert.Len(t, env.Graph.Nodes, 2)
		})
	}
}

func TestHarness_AskRetriesTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	h, slept := newTestHarness(url, 2)
	_, attempts, err := h.Ask(context.Background(), "q")

	assert.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Len(t, *slept, 1)
}

func TestHarness_AskErrorMessage(t *testing.T) {
	srv, _ := statusSequence(t, 502)
	h, _ := newTestHarness(srv.URL, 1)

	_, _, err := h.Ask(context.Background(), "q")

	require.Error(t, err)
	assert.Equal(t, "HTTP 502: upstream analyze returned 500: boom", err.Error())
}

func TestHarness_AskSendsQuestion(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upstream/analyze", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(analyzeOK))
	}))
	defer srv.Close()
	h, _ := newTestHarness(srv.URL+"/", 1)

	_, _, err := h.Ask(context.Background(), "Which devices are exposed?")

	require.NoError(t, err)
	assert.Equal(t, "Which devices are exposed?", got["question"])
	assert.Equal(t, true, got["include_data"])
}

func TestHarness_Checks(t *testing.T) {
	upstream := `null`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(`{"status": "running"}`))
		case "/config/upstream":
			_, _ = w.Write([]byte(`{"upstream": ` + upstream + `}`))
		}
	}))
	defer srv.Close()
	h, _ := newTestHarness(srv.URL, 1)

	require.NoError(t, h.CheckBackend(context.Background()))

	_, err := h.CheckUpstream(context.Background())
	assert.ErrorContains(t, err, "/config/upstream")

	upstream = `"http://csg:8000"`
	u, err := h.CheckUpstream(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://csg:8000", u)
}

func TestHarness_CheckBackendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	h, _ := newTestHarness(srv.URL, 1)

	assert.Error(t, h.CheckBackend(context.Background()))
}

func TestRecordedResponse_ReproducesGraph(t *testing.T) {
	var env services.Envelope
	require.NoError(t, json.Unmarshal([]byte(analyzeOK), &env))

	data, err := json.Marshal(newRecordedResponse(&env))
	require.NoError(t, err)
	doc, err := graph.DecodeJSON(data)
	require.NoError(t, err)

	res := graph.Normalize(doc)

	assert.Equal(t, graph.ShapeData, res.Shape)
	assert.Equal(t, env.Graph.Nodes, res.Graph.Nodes)
	assert.Equal(t, env.Graph.Edges[0].From, res.Graph.Edges[0].From)
	assert.Equal(t, env.Graph.Edges[0].To, res.Graph.Edges[0].To)
	assert.Equal(t, "AFFECTS", res.Graph.Edges[0].Label)
}

func TestRecordedResponse_KeepsTopLevelNameLabel(t *testing.T) {
	// Arrange
	upstream, err := graph.DecodeJSON([]byte(`{
		"analysis": {"status": "success"},
		"data": {
			"nodes": [
				{"id": "h1", "name": "web-01", "properties": {"ip": "10.0.0.2"}},
				{"id": "h2", "labels": [], "properties": {}}
			],
			"relationships": [{"start_id": "h1", "end_id": "h2", "type": "CONNECTS"}]
		}
	}`))
	require.NoError(t, err)
	builder := services.NewEnvelopeBuilder(graph.NewNormalizer(graph.DefaultOptions()), observability.NewCollector("csg_test"), zap.NewNop())
	env := builder.Build(upstream)
	require.Equal(t, "web-01", env.Graph.Nodes[0].Label)

	// Act
	data, err := json.Marshal(newRecordedResponse(&env))
	require.NoError(t, err)
	doc, err := graph.DecodeJSON(data)
	require.NoError(t, err)
	res := graph.Normalize(doc)

	// Assert
	assert.Equal(t, env.Graph.Nodes, res.Graph.Nodes)
	assert.Equal(t, env.Graph.Edges, res.Graph.Edges)
}

func TestRecordedResponse_KeepsAnalysisDataVerbatim(t *testing.T) {
	// Arrange
	raw := `{"analysis": {"status": "success", "data": {
		"nodes": [{"id": "n1", "name": "top-level", "extra": {"k": 1}}],
		"relationships": []
	}}}`
	upstream, err := graph.DecodeJSON([]byte(raw))
	require.NoError(t, err)
	builder := services.NewEnvelopeBuilder(graph.NewNormalizer(graph.DefaultOptions()), observability.NewCollector("csg_test"), zap.NewNop())
	env := builder.Build(upstream)

	// Act
	rec := newRecordedResponse(&env)
	data, err := json.Marshal(rec)

	// Assert
	require.NoError(t, err)
	assert.Nil(t, rec.Data)
	assert.JSONEq(t, raw, string(data))
}

func TestRecordedResponse_WithoutData(t *testing.T) {
	env := services.Envelope{Analysis: map[string]interface{}{"summary": "nothing"}}

	data, err := json.Marshal(newRecordedResponse(&env))

	require.NoError(t, err)
	assert.JSONEq(t, `{"analysis": {"summary": "nothing"}}`, string(data))
}

type memorySaver struct {
	dir   string
	saved map[string]interface{}
}

func (m *memorySaver) SaveJSON(name string, doc interface{}) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string]interface{})
	}
	m.saved[name] = doc
	return filepath.Join(m.dir, name), nil
}

func TestHarness_Run(t *testing.T) {
	srv, _ := statusSequence(t, 200, 400)
	h, _ := newTestHarness(srv.URL, 2)
	saver := &memorySaver{dir: "/data"}
	cases := []usecase.UseCase{
		{ID: "uc1", Question: "q1", ResponseFile: "uc1_response.json"},
		{ID: "uc2", Question: "q2", ResponseFile: "uc2_response.json"},
	}

	results := h.Run(context.Background(), cases, saver)

	require.Len(t, results, 2)
	assert.Equal(t, "ok", results[0].status())
	assert.Equal(t, 2, results[0].Nodes)
	assert.Equal(t, 1, results[0].Edges)
	assert.Equal(t, "/data/uc1_response.json", results[0].File)
	assert.Equal(t, "failed", results[1].status())
	assert.Contains(t, saver.saved, "uc1_response.json")
	assert.NotContains(t, saver.saved, "uc2_response.json")
}

func writeDataFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
