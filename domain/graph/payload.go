package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Payload is the parsed form of a raw analysis document. It is one of
// DirectPayload, DataPayload, AnalysisPayload, RecordListPayload or
// UnrecognizedPayload.
type Payload interface {
	Shape() Shape
}

// Section holds the raw node and relationship collections of a graph-bearing
// object. Either slice may be nil when the field had the wrong type.
type Section struct {
	Nodes         []interface{}
	Relationships []interface{}
}

// DirectPayload has nodes and relationships at the top level.
type DirectPayload struct{ Section }

// DataPayload has them under a top-level data object.
type DataPayload struct{ Section }

// AnalysisPayload has them under analysis.data.
type AnalysisPayload struct{ Section }

// RecordListPayload is the legacy format: a data array of records tagged
// with type "node" or "relationship".
type RecordListPayload struct {
	Records []interface{}
}

// UnrecognizedPayload is anything else; it is rendered by walking its tree.
type UnrecognizedPayload struct {
	Root interface{}
}

func (DirectPayload) Shape() Shape       { return ShapeDirect }
func (DataPayload) Shape() Shape         { return ShapeData }
func (AnalysisPayload) Shape() Shape     { return ShapeAnalysis }
func (RecordListPayload) Shape() Shape   { return ShapeRecords }
func (UnrecognizedPayload) Shape() Shape { return ShapeTree }

// Parse classifies a decoded JSON value. The first matching shape wins:
// top-level section, data section, analysis.data section, then a legacy
// record list under a top-level data array.
func Parse(raw interface{}) Payload {
	root, ok := raw.(map[string]interface{})
	if !ok {
		return UnrecognizedPayload{Root: raw}
	}

	if s, ok := sectionOf(root); ok {
		return DirectPayload{s}
	}

	if data, ok := root["data"].(map[string]interface{}); ok {
		if s, ok := sectionOf(data); ok {
			return DataPayload{s}
		}
	}

	analysis, _ := root["analysis"].(map[string]interface{})
	if data, ok := analysis["data"].(map[string]interface{}); ok {
		if s, ok := sectionOf(data); ok {
			return AnalysisPayload{s}
		}
	}

	if records, ok := root["data"].([]interface{}); ok {
		return RecordListPayload{Records: records}
	}

	return UnrecognizedPayload{Root: raw}
}

func sectionOf(obj map[string]interface{}) (Section, bool) {
	rawNodes, hasNodes := obj["nodes"]
	rawRels, hasRels := obj["relationships"]
	if !hasNodes || !hasRels {
		return Section{}, false
	}
	nodes, _ := rawNodes.([]interface{})
	rels, _ := rawRels.([]interface{})
	return Section{Nodes: nodes, Relationships: rels}, true
}

// DecodeJSON decodes a document keeping numbers in their textual form so ids
// like 4:abc:12 and 12 survive unchanged.
func DecodeJSON(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON document: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid JSON document: trailing data after top-level value")
	}
	return doc, nil
}
