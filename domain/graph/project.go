package graph

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// projectNode maps one raw node record. index is the node's position in the
// output and is used to synthesize an id when the record has none.
func projectNode(raw interface{}, index int) Node {
	rec, _ := raw.(map[string]interface{})
	props := asObject(rec["properties"])
	labels := asStrings(rec["labels"])

	id, ok := scalarString(rec["id"])
	if !ok {
		id, ok = scalarString(props["id"])
	}
	if !ok {
		id, ok = scalarString(rec["label"])
	}
	if !ok {
		id = fmt.Sprintf("node_%d", index)
	}

	label := displayLabel(labels, props, rec, id)

	return Node{
		ID:         id,
		Label:      label,
		Title:      nodeTitle(props, label),
		Type:       nodeType(labels),
		Labels:     labels,
		Properties: props,
	}
}

// displayLabel: joined labels, then properties.name, then name, then id.
func displayLabel(labels []string, props, rec map[string]interface{}, id string) string {
	if len(labels) > 0 {
		return strings.Join(labels, ", ")
	}
	if name, ok := scalarString(props["name"]); ok {
		return name
	}
	if name, ok := scalarString(rec["name"]); ok {
		return name
	}
	return id
}

func nodeTitle(props map[string]interface{}, label string) string {
	var details []string
	if ip, ok := scalarString(props["ip"]); ok {
		details = append(details, "IP: "+ip)
	}
	if crit, ok := scalarString(props["criticality"]); ok {
		details = append(details, "Criticality: "+crit)
	}
	if len(details) == 0 {
		return label
	}
	return strings.Join(details, "\n")
}

func nodeType(labels []string) string {
	for _, l := range labels {
		if l == "Device" {
			return "device"
		}
	}
	if len(labels) > 0 {
		return labels[0]
	}
	return "node"
}

var (
	sectionLabelKeys = []string{"type", "relationship_type"}
	// legacy records use type as the record tag
	recordLabelKeys = []string{"relationship_type"}
)

// projectEdge maps one raw relationship record, taking the label from the
// first of labelKeys present. The second return is false when either
// endpoint is missing; such edges cannot be rendered.
func projectEdge(raw interface{}, labelKeys []string) (Edge, bool) {
	rec, _ := raw.(map[string]interface{})

	from, ok := firstScalar(rec, "start_id", "from", "start")
	if !ok {
		return Edge{}, false
	}
	to, ok := firstScalar(rec, "end_id", "to", "end")
	if !ok {
		return Edge{}, false
	}
	label, _ := firstScalar(rec, labelKeys...)

	return Edge{
		From:       from,
		To:         to,
		Label:      label,
		Title:      label,
		Properties: asObject(rec["properties"]),
	}, true
}

func firstScalar(rec map[string]interface{}, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := scalarString(rec[k]); ok {
			return s, true
		}
	}
	return "", false
}

// scalarString stringifies JSON scalars. Objects, arrays, null and empty
// strings count as absent.
func scalarString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func asObject(v interface{}) map[string]interface{} {
	if obj, ok := v.(map[string]interface{}); ok && obj != nil {
		return obj
	}
	return make(map[string]interface{})
}

func asStrings(v interface{}) []string {
	out := make([]string, 0)
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, t...)
	}
	return out
}
