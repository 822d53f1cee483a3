package graph

// Node is a visualization node ready to be handed to the graph widget.
type Node struct {
	ID         string                 `json:"id"`
	Label      string                 `json:"label"`
	Title      string                 `json:"title,omitempty"`
	Type       string                 `json:"type,omitempty"`
	Value      string                 `json:"value,omitempty"`
	Labels     []string               `json:"labels"`
	Properties map[string]interface{} `json:"properties"`
}

// Edge is a directed visualization edge between two node ids.
type Edge struct {
	From       string                 `json:"from"`
	To         string                 `json:"to"`
	Label      string                 `json:"label"`
	Title      string                 `json:"title,omitempty"`
	Properties map[string]interface{} `json:"properties"`
}

// Graph is the normalized {nodes, edges} document. Both slices are never nil
// so the JSON form always carries arrays.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NewGraph returns an empty graph with initialized slices.
func NewGraph() Graph {
	return Graph{
		Nodes: make([]Node, 0),
		Edges: make([]Edge, 0),
	}
}

// IsEmpty reports whether the graph has neither nodes nor edges.
func (g Graph) IsEmpty() bool {
	return len(g.Nodes) == 0 && len(g.Edges) == 0
}

// Shape identifies where in a payload the graph was found.
type Shape string

const (
	ShapeDirect   Shape = "direct"   // top-level nodes + relationships
	ShapeData     Shape = "data"     // data.nodes + data.relationships
	ShapeAnalysis Shape = "analysis" // analysis.data.nodes + analysis.data.relationships
	ShapeRecords  Shape = "records"  // legacy typed record list
	ShapeTree     Shape = "tree"     // generic tree walk
	ShapeNone     Shape = "none"     // normalization aborted
)

// DataBearing reports whether the shape carried explicit graph data rather
// than being synthesized from the document structure.
func (s Shape) DataBearing() bool {
	switch s {
	case ShapeDirect, ShapeData, ShapeAnalysis, ShapeRecords:
		return true
	default:
		return false
	}
}

// Diagnostic explains why a payload could not be normalized.
type Diagnostic struct {
	Reason string
}

func (d *Diagnostic) Error() string {
	return "could not normalize: " + d.Reason
}

// Result is the outcome of one normalization. Graph is always usable; a
// non-nil Diagnostic means it was replaced by an empty graph.
type Result struct {
	Graph      Graph
	Shape      Shape
	Diagnostic *Diagnostic
}

// OK reports whether normalization completed without a diagnostic.
func (r Result) OK() bool {
	return r.Diagnostic == nil
}
