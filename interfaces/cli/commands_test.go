package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"csgclient/domain/usecase"
	"csgclient/infrastructure/graphdb"
)

const catalogJSON = `{"use_cases": [
	{"id": "uc1", "name": "One", "response_file": "uc1_response.json", "question": "Which devices are exposed?", "cypher": "MATCH (n) RETURN n"},
	{"id": "uc2", "name": "Two", "response_file": "uc2_response.json"}
]}`

func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("UPSTREAM_API", "")
	t.Setenv("CONFIG_FILE", "")

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(bytes.NewBufferString(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNormalizeCommand(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "doc.json", `{"data": {"nodes": [{"id": 1, "labels": ["Device"]}, {"id": 2}], "relationships": [{"start_id": 1, "end_id": 2, "type": "LINKS"}]}}`)

	out, err := executeCommand(t, "", "--data-dir", dir, "normalize", filepath.Join(dir, "doc.json"))
	require.NoError(t, err)

	var env map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, true, env["graph_present"])
	assert.Equal(t, true, env["data_included"])
	assert.Len(t, env["graph"].(map[string]interface{})["edges"], 1)
}

func TestNormalizeCommand_Summary(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "doc.json", `{"a": {"b": [1, 2]}}`)

	out, err := executeCommand(t, "", "--data-dir", dir, "normalize", "--summary", filepath.Join(dir, "doc.json"))

	require.NoError(t, err)
	assert.Contains(t, out, "GRAPH PRESENT")
}

func TestNormalizeCommand_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "doc.json", `{"a": `)

	_, err := executeCommand(t, "", "--data-dir", dir, "normalize", filepath.Join(dir, "doc.json"))

	assert.ErrorContains(t, err, "invalid JSON document")
}

func newBackend(t *testing.T, analyzeStatus int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(`{"status": "running"}`))
		case "/config/upstream":
			_, _ = w.Write([]byte(`{"upstream": "http://csg:8000", "configured": true}`))
		case "/upstream/analyze":
			w.WriteHeader(analyzeStatus)
			if analyzeStatus == http.StatusOK {
				_, _ = w.Write([]byte(analyzeOK))
				return
			}
			_, _ = w.Write([]byte(`{"message": "bad gateway"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunCasesCommand(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "use_cases.json", catalogJSON)
	backend := newBackend(t, http.StatusOK)

	out, err := executeCommand(t, "", "--data-dir", dir, "run-cases", "--backend", backend.URL, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "uc1")
	assert.NotContains(t, out, "uc2")

	data, err := os.ReadFile(filepath.Join(dir, "uc1_response.json"))
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc["data"].(map[string]interface{})["nodes"], 2)
}

func TestRunCasesCommand_Declined(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "use_cases.json", catalogJSON)
	backend := newBackend(t, http.StatusOK)

	out, err := executeCommand(t, "n\n", "--data-dir", dir, "run-cases", "--backend", backend.URL)

	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")
	assert.NoFileExists(t, filepath.Join(dir, "uc1_response.json"))
}

func TestRunCasesCommand_Failures(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "use_cases.json", catalogJSON)
	backend := newBackend(t, http.StatusBadGateway)

	out, err := executeCommand(t, "", "--data-dir", dir, "run-cases", "--backend", backend.URL, "--yes", "--attempts", "2", "--delay", "1ms")

	assert.EqualError(t, err, "1 of 1 use case(s) failed")
	assert.Contains(t, out, "HTTP 502: bad gateway")
}

type stubFetcher struct {
	fail map[string]bool
}

func (s stubFetcher) Fetch(_ context.Context, uc usecase.UseCase) (*graphdb.Export, error) {
	export := &graphdb.Export{
		Analysis: graphdb.Summary{Status: "success", RecordCount: 1},
		Data:     graphdb.ExportData{Nodes: []graphdb.ExportNode{}, Relationships: []graphdb.ExportRelationship{}},
	}
	if s.fail[uc.ID] {
		export.Analysis.Status = "error"
		return export, errors.New("query failed")
	}
	return export, nil
}

func TestFetchAll_WritesErrorDocuments(t *testing.T) {
	saver := &memorySaver{dir: "/data"}
	cases := []usecase.UseCase{
		{ID: "uc1", ResponseFile: "uc1_response.json"},
		{ID: "uc2", ResponseFile: "uc2_response.json"},
	}

	results := fetchAll(context.Background(), stubFetcher{fail: map[string]bool{"uc2": true}}, cases, saver, zap.NewNop())

	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	require.Contains(t, saver.saved, "uc2_response.json")
	assert.Equal(t, "error", saver.saved["uc2_response.json"].(*graphdb.Export).Analysis.Status)
}

func TestSelectCases(t *testing.T) {
	cases := []usecase.UseCase{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Len(t, selectCases(cases, nil), 3)
	got := selectCases(cases, []string{"c", "a"})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestRenderSchemaReport(t *testing.T) {
	var out bytes.Buffer
	renderSchemaReport(&out, &graphdb.SchemaReport{
		NodeCount:         3,
		RelationshipCount: 2,
		Labels:            []graphdb.NamedCount{{Name: "Device", Count: 2}},
		Patterns:          []graphdb.PatternCount{{From: "Device", Type: "HAS_SOURCE", To: "Policy", Count: 2}},
	})

	assert.Contains(t, out.String(), "Device")
	assert.Contains(t, out.String(), "(Device)-[HAS_SOURCE]->(Policy)")
}
