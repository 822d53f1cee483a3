package graphdb

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"csgclient/domain/graph"
	"csgclient/domain/usecase"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	args := m.Called(ctx, query, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*neo4j.EagerResult), args.Error(1)
}

func record(keys []string, values ...interface{}) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

func TestExporter_Fetch(t *testing.T) {
	// Arrange
	ctx := context.Background()
	runner := new(MockRunner)
	device := dbtype.Node{ElementId: "4:db:1", Labels: []string{"Device"}, Props: map[string]interface{}{"ip": "10.0.0.5"}}
	vuln := dbtype.Node{ElementId: "4:db:2", Labels: []string{"Vulnerability"}, Props: map[string]interface{}{"name": "CVE-2024-1"}}
	affects := dbtype.Relationship{ElementId: "5:db:9", Type: "AFFECTS", StartElementId: "4:db:2", EndElementId: "4:db:1"}
	path := dbtype.Path{Nodes: []dbtype.Node{vuln, device}, Relationships: []dbtype.Relationship{affects}}

	uc := usecase.UseCase{ID: "uc1", Name: "Vulnerable devices", ResponseFile: "uc1_response.json", Cypher: "MATCH p=()-[]->() RETURN p"}
	runner.On("Run", ctx, uc.Cypher, map[string]interface{}(nil)).Return(&neo4j.EagerResult{
		Keys: []string{"p", "extra"},
		Records: []*neo4j.Record{
			record([]string{"p", "extra"}, path, []interface{}{device, affects}),
			record([]string{"p", "extra"}, path, "scalar"),
		},
	}, nil)

	exporter := NewExporter(runner, zap.NewNop())
	exporter.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	// Act
	export, err := exporter.Fetch(ctx, uc)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "success", export.Analysis.Status)
	assert.Equal(t, "2024-05-01T12:00:00Z", export.Analysis.Timestamp)
	assert.Equal(t, 2, export.Analysis.RecordCount)
	assert.Equal(t, 2, export.Analysis.NodeCount)
	assert.Equal(t, 1, export.Analysis.RelationshipCount)
	assert.Equal(t, "4:db:2", export.Data.Nodes[0].ID)
	assert.Equal(t, "4:db:2", export.Data.Relationships[0].StartID)
	runner.AssertExpectations(t)
}

func TestExporter_FetchOutputNormalizes(t *testing.T) {
	ctx := context.Background()
	runner := new(MockRunner)
	a := dbtype.Node{ElementId: "a", Labels: []string{"Device"}}
	b := dbtype.Node{ElementId: "b", Labels: []string{"Service"}}
	r := dbtype.Relationship{ElementId: "r", Type: "RUNS", StartElementId: "a", EndElementId: "b"}
	runner.On("Run", ctx, mock.Anything, mock.Anything).Return(&neo4j.EagerResult{
		Records: []*neo4j.Record{record([]string{"a", "r", "b"}, a, r, b)},
	}, nil)

	export, err := NewExporter(runner, zap.NewNop()).Fetch(ctx, usecase.UseCase{ID: "x", Name: "x", Cypher: "MATCH"})
	require.NoError(t, err)

	res := graph.Normalize(toDoc(t, export))
	assert.Equal(t, graph.ShapeData, res.Shape)
	assert.Len(t, res.Graph.Nodes, 2)
	require.Len(t, res.Graph.Edges, 1)
	assert.Equal(t, "a", res.Graph.Edges[0].From)
	assert.Equal(t, "RUNS", res.Graph.Edges[0].Label)
}

func TestExporter_FetchError(t *testing.T) {
	ctx := context.Background()
	runner := new(MockRunner)
	runner.On("Run", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	export, err := NewExporter(runner, zap.NewNop()).Fetch(ctx, usecase.UseCase{ID: "x", Name: "x", Cypher: "MATCH"})

	require.Error(t, err)
	require.NotNil(t, export)
	assert.Equal(t, "error", export.Analysis.Status)
	assert.Contains(t, export.Analysis.Error, "connection refused")
	assert.Empty(t, export.Data.Nodes)
	assert.NotNil(t, export.Data.Relationships)
}

func TestExporter_FetchWithoutCypher(t *testing.T) {
	runner := new(MockRunner)

	export, err := NewExporter(runner, zap.NewNop()).Fetch(context.Background(), usecase.UseCase{ID: "x"})

	require.Error(t, err)
	assert.Equal(t, "error", export.Analysis.Status)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestSanitize(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	got := sanitizeProps(map[string]interface{}{
		"seen":   ts,
		"nested": []interface{}{ts, int64(3)},
		"n":      int64(7),
	})

	assert.Equal(t, "2024-01-02T03:04:05Z", got["seen"])
	assert.Equal(t, []interface{}{"2024-01-02T03:04:05Z", int64(3)}, got["nested"])
	assert.Equal(t, int64(7), got["n"])
}

func TestExplorer_Explore(t *testing.T) {
	// Arrange
	ctx := context.Background()
	runner := new(MockRunner)
	runner.On("Run", ctx, "MATCH (n) RETURN count(n) AS count", map[string]interface{}(nil)).
		Return(&neo4j.EagerResult{Records: []*neo4j.Record{record([]string{"count"}, int64(42))}}, nil)
	runner.On("Run", ctx, "MATCH ()-[r]->() RETURN count(r) AS count", map[string]interface{}(nil)).
		Return(&neo4j.EagerResult{Records: []*neo4j.Record{record([]string{"count"}, int64(17))}}, nil)
	runner.On("Run", ctx, mock.MatchedBy(func(q string) bool { return strings.HasPrefix(q, "MATCH (n) UNWIND labels(n)") }), mock.Anything).
		Return(&neo4j.EagerResult{Records: []*neo4j.Record{
			record([]string{"name", "count"}, "Device", int64(30)),
			record([]string{"name", "count"}, "Vulnerability", int64(12)),
		}}, nil)
	runner.On("Run", ctx, mock.MatchedBy(func(q string) bool { return strings.HasPrefix(q, "MATCH ()-[r]->() RETURN type(r)") }), mock.Anything).
		Return(&neo4j.EagerResult{Records: []*neo4j.Record{record([]string{"name", "count"}, "AFFECTS", int64(17))}}, nil)
	runner.On("Run", ctx, mock.MatchedBy(func(q string) bool { return strings.HasPrefix(q, "MATCH (a)-[r]->(b)") }), map[string]interface{}{"limit": patternLimit}).
		Return(&neo4j.EagerResult{Records: []*neo4j.Record{
			record([]string{"from", "type", "to", "count"}, "Vulnerability", "AFFECTS", "Device", int64(17)),
		}}, nil)

	// Act
	report, err := NewExplorer(runner, zap.NewNop()).Explore(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(42), report.NodeCount)
	assert.Equal(t, int64(17), report.RelationshipCount)
	assert.Equal(t, []NamedCount{{"Device", 30}, {"Vulnerability", 12}}, report.Labels)
	assert.Equal(t, []NamedCount{{"AFFECTS", 17}}, report.RelationshipTypes)
	assert.Equal(t, []PatternCount{{From: "Vulnerability", Type: "AFFECTS", To: "Device", Count: 17}}, report.Patterns)
	runner.AssertExpectations(t)
}

func TestExplorer_ExploreError(t *testing.T) {
	ctx := context.Background()
	runner := new(MockRunner)
	runner.On("Run", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("auth failed"))

	_, err := NewExplorer(runner, zap.NewNop()).Explore(ctx)

	assert.ErrorContains(t, err, "auth failed")
}
