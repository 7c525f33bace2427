package stream

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/matzehuels/diagramflow/pkg/geo"
)

// RawNode is a node record exactly as the producer emitted it, before id
// namespacing or validation. Unrecognised keys are kept in Data.
type RawNode struct {
	ID       string
	Kind     string
	Parent   string
	Position *geo.Point
	Width    float64
	Height   float64
	Pinned   bool
	Data     map[string]any
}

// RawEdge is an edge record as emitted by the producer.
type RawEdge struct {
	ID         string
	Source     string
	Target     string
	SourcePort string
	TargetPort string
	Waypoints  []geo.Point
	Data       map[string]any
}

// RawGroup is a group membership record as emitted by the producer.
type RawGroup struct {
	ID      string
	Label   string
	Members []string
}

// Key aliases accepted from producers.
var (
	nodeKindKeys   = []string{"kind", "type"}
	nodeParentKeys = []string{"parentId", "parent", "group"}
	edgeSourceKeys = []string{"source", "from"}
	edgeTargetKeys = []string{"target", "to"}
	groupMemberKey = []string{"members", "children", "nodes"}
)

// UnmarshalJSON decodes a node record, accepting kind and parent aliases.
func (n *RawNode) UnmarshalJSON(b []byte) error {
	fields, err := decodeObject(b)
	if err != nil {
		return err
	}
	n.ID = takeString(fields, "id")
	n.Kind = takeString(fields, nodeKindKeys...)
	n.Parent = takeString(fields, nodeParentKeys...)
	if raw, ok := take(fields, "position"); ok {
		var p geo.Point
		if json.Unmarshal(raw, &p) == nil {
			n.Position = &p
		}
	}
	n.Width = takeFloat(fields, "width")
	n.Height = takeFloat(fields, "height")
	n.Pinned = takeBool(fields, "pinned")
	n.Data = takeData(fields)
	return nil
}

// UnmarshalJSON decodes an edge record, accepting from/to aliases.
func (e *RawEdge) UnmarshalJSON(b []byte) error {
	fields, err := decodeObject(b)
	if err != nil {
		return err
	}
	e.ID = takeString(fields, "id")
	e.Source = takeString(fields, edgeSourceKeys...)
	e.Target = takeString(fields, edgeTargetKeys...)
	e.SourcePort = takeString(fields, "sourcePort", "sourceHandle")
	e.TargetPort = takeString(fields, "targetPort", "targetHandle")
	if raw, ok := take(fields, "waypoints"); ok {
		var pts []geo.Point
		if json.Unmarshal(raw, &pts) == nil {
			e.Waypoints = pts
		}
	}
	e.Data = takeData(fields)
	return nil
}

// UnmarshalJSON decodes a group record.
func (g *RawGroup) UnmarshalJSON(b []byte) error {
	fields, err := decodeObject(b)
	if err != nil {
		return err
	}
	g.ID = takeString(fields, "id")
	g.Label = takeString(fields, "label", "name")
	for _, k := range groupMemberKey {
		raw, ok := take(fields, k)
		if !ok {
			continue
		}
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) != nil {
			continue
		}
		for _, it := range items {
			if s, ok := scalarString(it); ok {
				g.Members = append(g.Members, s)
			}
		}
		break
	}
	return nil
}

func decodeObject(b []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// take removes and returns the first present key.
func take(fields map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if raw, ok := fields[k]; ok {
			delete(fields, k)
			return raw, true
		}
	}
	return nil, false
}

func takeString(fields map[string]json.RawMessage, keys ...string) string {
	raw, ok := take(fields, keys...)
	if !ok {
		return ""
	}
	s, _ := scalarString(raw)
	return s
}

func takeFloat(fields map[string]json.RawMessage, key string) float64 {
	raw, ok := take(fields, key)
	if !ok {
		return 0
	}
	var f float64
	if json.Unmarshal(raw, &f) != nil {
		return 0
	}
	return f
}

func takeBool(fields map[string]json.RawMessage, key string) bool {
	raw, ok := take(fields, key)
	if !ok {
		return false
	}
	var v bool
	_ = json.Unmarshal(raw, &v)
	return v
}

// takeData folds an explicit "data" object and every remaining key into
// one payload map. Top-level keys win over keys inside "data".
func takeData(fields map[string]json.RawMessage) map[string]any {
	out := map[string]any{}
	if raw, ok := take(fields, "data"); ok {
		var inner map[string]any
		if json.Unmarshal(raw, &inner) == nil {
			for k, v := range inner {
				out[k] = v
			}
		}
	}
	for k, raw := range fields {
		var v any
		if json.Unmarshal(raw, &v) == nil {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// scalarString accepts JSON strings and numbers as ids.
func scalarString(raw json.RawMessage) (string, bool) {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s, true
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		return n.String(), true
	}
	return "", false
}
