package graph

import (
	"fmt"
	"sort"
)

// treeWalker renders an arbitrary JSON document as a tree: one node per
// object or non-empty array, one edge per parent/child link.
type treeWalker struct {
	graph       *Graph
	maxChildren int
	maxDepth    int
}

func (w *treeWalker) walk(v interface{}, parentID, key string, depth int) {
	if depth > w.maxDepth {
		return
	}

	switch t := v.(type) {
	case map[string]interface{}:
		summary := fmt.Sprintf("{%d keys}", len(t))
		id := w.add(parentID, Node{
			Label:      key,
			Title:      summary,
			Type:       "object",
			Value:      summary,
			Properties: scalarFields(t),
		})
		for _, k := range sortedKeys(t) {
			// data sections are rendered by the shape-aware paths
			if k == "data" {
				continue
			}
			w.walk(t[k], id, k, depth+1)
		}

	case []interface{}:
		if len(t) == 0 {
			return
		}
		summary := fmt.Sprintf("[%d items]", len(t))
		id := w.add(parentID, Node{
			Label: key,
			Title: summary,
			Type:  "array",
			Value: summary,
		})
		limit := len(t)
		if limit > w.maxChildren {
			limit = w.maxChildren
		}
		for i := 0; i < limit; i++ {
			w.walk(t[i], id, fmt.Sprintf("[%d]", i), depth+1)
		}
	}
}

func (w *treeWalker) add(parentID string, n Node) string {
	n.ID = fmt.Sprintf("node_%d", len(w.graph.Nodes))
	if n.Labels == nil {
		n.Labels = make([]string, 0)
	}
	if n.Properties == nil {
		n.Properties = make(map[string]interface{})
	}
	w.graph.Nodes = append(w.graph.Nodes, n)

	if parentID != "" {
		w.graph.Edges = append(w.graph.Edges, Edge{
			From:       parentID,
			To:         n.ID,
			Properties: make(map[string]interface{}),
		})
	}
	return n.ID
}

func scalarFields(obj map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for k, v := range obj {
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			continue
		default:
			out[k] = v
		}
	}
	return out
}

func sortedKeys(obj map[string]interface{}) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
