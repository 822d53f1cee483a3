package graphdb

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"go.uber.org/zap"

	"csgclient/domain/usecase"
)

// Export is the response document written for a use case. Its data section
// uses the same node and relationship fields the normalizer reads.
type Export struct {
	Analysis Summary    `json:"analysis"`
	Data     ExportData `json:"data"`
}

type Summary struct {
	Status            string `json:"status"`
	Summary           string `json:"summary"`
	Timestamp         string `json:"timestamp"`
	RecordCount       int    `json:"record_count"`
	NodeCount         int    `json:"node_count"`
	RelationshipCount int    `json:"relationship_count"`
	Error             string `json:"error,omitempty"`
}

type ExportData struct {
	Nodes         []ExportNode         `json:"nodes"`
	Relationships []ExportRelationship `json:"relationships"`
}

type ExportNode struct {
	ID         string                 `json:"id"`
	Labels     []string               `json:"labels"`
	Properties map[string]interface{} `json:"properties"`
}

type ExportRelationship struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	StartID    string                 `json:"start_id"`
	EndID      string                 `json:"end_id"`
	Properties map[string]interface{} `json:"properties"`
}

// Exporter runs catalog Cypher queries and shapes their results
type Exporter struct {
	runner DBRunner
	logger *zap.Logger
	now    func() time.Time
}

func NewExporter(runner DBRunner, logger *zap.Logger) *Exporter {
	return &Exporter{runner: runner, logger: logger, now: time.Now}
}

// Fetch runs the use case's query. It always returns a document; on failure
// the document has status "error" and the error is returned alongside it.
func (e *Exporter) Fetch(ctx context.Context, uc usecase.UseCase) (*Export, error) {
	timestamp := e.now().UTC().Format(time.RFC3339)

	if uc.Cypher == "" {
		err := fmt.Errorf("use case %s has no cypher query", uc.ID)
		return errorExport(uc, timestamp, err), err
	}

	result, err := e.runner.Run(ctx, uc.Cypher, nil)
	if err != nil {
		e.logger.Error("Use case query failed", zap.String("use_case", uc.ID), zap.Error(err))
		return errorExport(uc, timestamp, err), err
	}

	acc := newCollector()
	for _, record := range result.Records {
		for _, v := range record.Values {
			acc.add(v)
		}
	}

	e.logger.Info("Use case exported",
		zap.String("use_case", uc.ID),
		zap.Int("records", len(result.Records)),
		zap.Int("nodes", len(acc.nodes)),
		zap.Int("relationships", len(acc.rels)),
	)

	return &Export{
		Analysis: Summary{
			Status:            "success",
			Summary:           fmt.Sprintf("%s: %d records, %d nodes, %d relationships", uc.Name, len(result.Records), len(acc.nodes), len(acc.rels)),
			Timestamp:         timestamp,
			RecordCount:       len(result.Records),
			NodeCount:         len(acc.nodes),
			RelationshipCount: len(acc.rels),
		},
		Data: ExportData{Nodes: acc.nodes, Relationships: acc.rels},
	}, nil
}

func errorExport(uc usecase.UseCase, timestamp string, err error) *Export {
	return &Export{
		Analysis: Summary{
			Status:    "error",
			Summary:   fmt.Sprintf("%s: query failed", uc.Name),
			Timestamp: timestamp,
			Error:     err.Error(),
		},
		Data: ExportData{
			Nodes:         make([]ExportNode, 0),
			Relationships: make([]ExportRelationship, 0),
		},
	}
}

// collector gathers graph entities from record values, once per element id
type collector struct {
	nodes    []ExportNode
	rels     []ExportRelationship
	seenNode map[string]struct{}
	seenRel  map[string]struct{}
}

func newCollector() *collector {
	return &collector{
		nodes:    make([]ExportNode, 0),
		rels:     make([]ExportRelationship, 0),
		seenNode: make(map[string]struct{}),
		seenRel:  make(map[string]struct{}),
	}
}

func (c *collector) add(v interface{}) {
	switch t := v.(type) {
	case dbtype.Node:
		c.addNode(t)
	case dbtype.Relationship:
		c.addRel(t)
	case dbtype.Path:
		for _, n := range t.Nodes {
			c.addNode(n)
		}
		for _, r := range t.Relationships {
			c.addRel(r)
		}
	case []interface{}:
		for _, item := range t {
			c.add(item)
		}
	}
}

func (c *collector) addNode(n dbtype.Node) {
	if _, ok := c.seenNode[n.ElementId]; ok {
		return
	}
	c.seenNode[n.ElementId] = struct{}{}

	labels := n.Labels
	if labels == nil {
		labels = make([]string, 0)
	}
	c.nodes = append(c.nodes, ExportNode{
		ID:         n.ElementId,
		Labels:     labels,
		Properties: sanitizeProps(n.Props),
	})
}

func (c *collector) addRel(r dbtype.Relationship) {
	if _, ok := c.seenRel[r.ElementId]; ok {
		return
	}
	c.seenRel[r.ElementId] = struct{}{}

	c.rels = append(c.rels, ExportRelationship{
		ID:         r.ElementId,
		Type:       r.Type,
		StartID:    r.StartElementId,
		EndID:      r.EndElementId,
		Properties: sanitizeProps(r.Props),
	})
}

func sanitizeProps(props map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = sanitize(v)
	}
	return out
}

// sanitize turns driver temporal and spatial values into strings so the
// export stays plain JSON.
func sanitize(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = sanitize(item)
		}
		return out
	case map[string]interface{}:
		return sanitizeProps(t)
	case fmt.Stringer:
		return t.String()
	default:
		return v
	}
}
