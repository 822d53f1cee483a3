// Package graph converts heterogeneous analysis payloads into the flat
// {nodes, edges} document consumed by the visualizer.
package graph

import "fmt"

const (
	DefaultMaxArrayChildren = 10
	DefaultMaxDepth         = 64
)

// Options bounds the generic tree walk.
type Options struct {
	MaxArrayChildren int
	MaxDepth         int
}

// DefaultOptions returns the standard tree-walk bounds.
func DefaultOptions() Options {
	return Options{
		MaxArrayChildren: DefaultMaxArrayChildren,
		MaxDepth:         DefaultMaxDepth,
	}
}

// Normalizer turns decoded JSON into a Graph. It holds no mutable state and
// is safe for concurrent use.
type Normalizer struct {
	opts Options
}

// NewNormalizer creates a normalizer, filling unset bounds with defaults.
func NewNormalizer(opts Options) *Normalizer {
	if opts.MaxArrayChildren <= 0 {
		opts.MaxArrayChildren = DefaultMaxArrayChildren
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Normalizer{opts: opts}
}

var defaultNormalizer = NewNormalizer(DefaultOptions())

// parsePayload is swapped in tests to exercise the recovery path.
var parsePayload = Parse

// Normalize runs the default normalizer.
func Normalize(raw interface{}) Result {
	return defaultNormalizer.Normalize(raw)
}

// Normalize never fails: malformed fields degrade to defaults, and anything
// unexpected yields an empty graph with a Diagnostic.
func (n *Normalizer) Normalize(raw interface{}) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Graph:      NewGraph(),
				Shape:      ShapeNone,
				Diagnostic: &Diagnostic{Reason: fmt.Sprint(r)},
			}
		}
	}()

	payload := parsePayload(raw)
	g := NewGraph()

	switch p := payload.(type) {
	case DirectPayload:
		n.fromSection(&g, p.Section)
	case DataPayload:
		n.fromSection(&g, p.Section)
	case AnalysisPayload:
		n.fromSection(&g, p.Section)
	case RecordListPayload:
		n.fromRecords(&g, p.Records)
	case UnrecognizedPayload:
		w := &treeWalker{
			graph:       &g,
			maxChildren: n.opts.MaxArrayChildren,
			maxDepth:    n.opts.MaxDepth,
		}
		w.walk(p.Root, "", "root", 0)
	default:
		panic(fmt.Sprintf("unhandled payload %T", payload))
	}

	return Result{Graph: g, Shape: payload.Shape()}
}

func (n *Normalizer) fromSection(g *Graph, s Section) {
	for _, raw := range s.Nodes {
		g.Nodes = append(g.Nodes, projectNode(raw, len(g.Nodes)))
	}
	for _, raw := range s.Relationships {
		if e, ok := projectEdge(raw, sectionLabelKeys); ok {
			g.Edges = append(g.Edges, e)
		}
	}
}

// fromRecords handles the legacy record list. Records repeat nodes across
// paths, so nodes are kept once per id here.
func (n *Normalizer) fromRecords(g *Graph, records []interface{}) {
	seen := make(map[string]struct{})
	for _, raw := range records {
		rec, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		kind, _ := rec["type"].(string)
		switch kind {
		case "node":
			node := projectNode(rec, len(g.Nodes))
			if _, dup := seen[node.ID]; dup {
				continue
			}
			seen[node.ID] = struct{}{}
			g.Nodes = append(g.Nodes, node)
		case "relationship":
			if e, ok := projectEdge(rec, recordLabelKeys); ok {
				g.Edges = append(g.Edges, e)
			}
		}
	}
}
