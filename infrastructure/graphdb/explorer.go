package graphdb

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

const patternLimit = 20

// SchemaReport summarizes what the database holds
type SchemaReport struct {
	NodeCount         int64          `json:"node_count"`
	RelationshipCount int64          `json:"relationship_count"`
	Labels            []NamedCount   `json:"labels"`
	RelationshipTypes []NamedCount   `json:"relationship_types"`
	Patterns          []PatternCount `json:"patterns"`
}

type NamedCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// PatternCount is one (from)-[type]->(to) shape and how often it occurs
type PatternCount struct {
	From  string `json:"from"`
	Type  string `json:"type"`
	To    string `json:"to"`
	Count int64  `json:"count"`
}

// Explorer inspects the database schema
type Explorer struct {
	runner DBRunner
	logger *zap.Logger
}

func NewExplorer(runner DBRunner, logger *zap.Logger) *Explorer {
	return &Explorer{runner: runner, logger: logger}
}

// Explore gathers counts, labels, relationship types and the most common
// relationship patterns.
func (x *Explorer) Explore(ctx context.Context) (*SchemaReport, error) {
	report := &SchemaReport{}

	var err error
	if report.NodeCount, err = x.count(ctx, "MATCH (n) RETURN count(n) AS count"); err != nil {
		return nil, err
	}
	if report.RelationshipCount, err = x.count(ctx, "MATCH ()-[r]->() RETURN count(r) AS count"); err != nil {
		return nil, err
	}

	labels, err := x.runner.Run(ctx, "MATCH (n) UNWIND labels(n) AS name RETURN name, count(*) AS count ORDER BY count DESC, name", nil)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	report.Labels = namedCounts(labels)

	types, err := x.runner.Run(ctx, "MATCH ()-[r]->() RETURN type(r) AS name, count(*) AS count ORDER BY count DESC, name", nil)
	if err != nil {
		return nil, fmt.Errorf("list relationship types: %w", err)
	}
	report.RelationshipTypes = namedCounts(types)

	patterns, err := x.runner.Run(ctx,
		"MATCH (a)-[r]->(b) RETURN labels(a)[0] AS from, type(r) AS type, labels(b)[0] AS to, count(*) AS count ORDER BY count DESC LIMIT $limit",
		map[string]interface{}{"limit": patternLimit},
	)
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	report.Patterns = make([]PatternCount, 0, len(patterns.Records))
	for _, rec := range patterns.Records {
		report.Patterns = append(report.Patterns, PatternCount{
			From:  stringValue(rec, "from"),
			Type:  stringValue(rec, "type"),
			To:    stringValue(rec, "to"),
			Count: intValue(rec, "count"),
		})
	}

	x.logger.Info("Schema explored",
		zap.Int64("nodes", report.NodeCount),
		zap.Int64("relationships", report.RelationshipCount),
		zap.Int("labels", len(report.Labels)),
	)
	return report, nil
}

func (x *Explorer) count(ctx context.Context, query string) (int64, error) {
	result, err := x.runner.Run(ctx, query, nil)
	if err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	if len(result.Records) == 0 {
		return 0, nil
	}
	return intValue(result.Records[0], "count"), nil
}

func namedCounts(result *neo4j.EagerResult) []NamedCount {
	out := make([]NamedCount, 0, len(result.Records))
	for _, rec := range result.Records {
		out = append(out, NamedCount{Name: stringValue(rec, "name"), Count: intValue(rec, "count")})
	}
	return out
}

func stringValue(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func intValue(rec *neo4j.Record, key string) int64 {
	v, ok := rec.Get(key)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
