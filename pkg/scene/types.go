package scene

import (
	"maps"

	"github.com/matzehuels/diagramflow/pkg/geo"
)

// ExtentParent marks a node whose displayed bounds are clamped to its container.
const ExtentParent = "parent"

// =============================================================================
// Node
// =============================================================================

// Node is one positioned element of a scene.
//
// Position is the top-left corner. When Parent is set it is relative to the
// parent's origin, otherwise it is in absolute scene units. Parent is a weak
// id reference: it is resolved through the owning [Scene], never through a
// pointer.
type Node struct {
	ID       string         `json:"id" bson:"id"`
	Kind     Kind           `json:"kind" bson:"kind"`
	Position geo.Point      `json:"position" bson:"position"`
	Width    float64        `json:"width,omitempty" bson:"width,omitempty"`   // 0 = kind default
	Height   float64        `json:"height,omitempty" bson:"height,omitempty"` // 0 = kind default
	Parent   string         `json:"parent,omitempty" bson:"parent,omitempty"`
	Extent   string         `json:"extent,omitempty" bson:"extent,omitempty"`
	Pinned   bool           `json:"pinned,omitempty" bson:"pinned,omitempty"`
	Data     map[string]any `json:"data,omitempty" bson:"data,omitempty"`
}

// Spec returns the node's kind dispatch entry.
func (n Node) Spec() KindSpec { return n.Kind.Spec() }

// IsContainer reports whether the node's kind can hold children.
func (n Node) IsContainer() bool { return n.Spec().Container }

// Size returns the node's effective size: explicit dimensions when set and
// finite, otherwise the kind default. Explicit sizes never go below the
// kind minimum.
func (n Node) Size() geo.Size {
	spec := n.Spec()
	w := geo.Finite(n.Width, 0)
	h := geo.Finite(n.Height, 0)
	if w <= 0 {
		w = spec.DefaultSize.Width
	}
	if h <= 0 {
		h = spec.DefaultSize.Height
	}
	if w < spec.MinSize.Width {
		w = spec.MinSize.Width
	}
	if h < spec.MinSize.Height {
		h = spec.MinSize.Height
	}
	return geo.Size{Width: w, Height: h}
}

// Box returns the node's bounds in its own coordinate frame.
func (n Node) Box() geo.Box { return geo.NewBox(n.Position, n.Size()) }

// Label returns the display text, read from the key the kind declares.
// Falls back to the id.
func (n Node) Label() string {
	if s, ok := n.Data[n.Spec().LabelKey].(string); ok && s != "" {
		return s
	}
	return n.ID
}

// Collapsed reports whether a hierarchical node hides its subtree.
func (n Node) Collapsed() bool {
	if !n.Spec().Hierarchical {
		return false
	}
	b, _ := n.Data["collapsed"].(bool)
	return b
}

// Side returns the branch side requested by a hierarchical node
// ("left", "right", "top", "bottom"), or "" when unset.
func (n Node) Side() string {
	if !n.Spec().Hierarchical {
		return ""
	}
	s, _ := n.Data["side"].(string)
	return s
}

// Sanitize replaces non-finite coordinates with 0 and non-finite or
// non-positive explicit sizes with the kind minimum.
func (n Node) Sanitize() Node {
	n.Position = n.Position.Sanitize()
	spec := n.Spec()
	if n.Width != 0 && geo.Finite(n.Width, -1) <= 0 {
		n.Width = spec.MinSize.Width
	}
	if n.Height != 0 && geo.Finite(n.Height, -1) <= 0 {
		n.Height = spec.MinSize.Height
	}
	return n
}

// Clone returns a copy with its own Data map.
func (n Node) Clone() Node {
	n.Data = maps.Clone(n.Data)
	return n
}

// =============================================================================
// Edge
// =============================================================================

// Port names a side of a node box where an edge attaches.
type Port string

// Ports.
const (
	PortNone   Port = ""
	PortLeft   Port = "left"
	PortRight  Port = "right"
	PortTop    Port = "top"
	PortBottom Port = "bottom"
)

// Valid reports whether p is empty or one of the four named sides.
func (p Port) Valid() bool {
	switch p {
	case PortNone, PortLeft, PortRight, PortTop, PortBottom:
		return true
	}
	return false
}

// Edge connects two nodes of the same scene.
type Edge struct {
	ID         string         `json:"id" bson:"id"`
	Source     string         `json:"source" bson:"source"`
	Target     string         `json:"target" bson:"target"`
	SourcePort Port           `json:"sourcePort,omitempty" bson:"source_port,omitempty"`
	TargetPort Port           `json:"targetPort,omitempty" bson:"target_port,omitempty"`
	Waypoints  []geo.Point    `json:"waypoints,omitempty" bson:"waypoints,omitempty"` // used verbatim when set
	Data       map[string]any `json:"data,omitempty" bson:"data,omitempty"`
}

// Clone returns a copy with its own Data map and waypoint slice.
func (e Edge) Clone() Edge {
	e.Data = maps.Clone(e.Data)
	if e.Waypoints != nil {
		e.Waypoints = append([]geo.Point(nil), e.Waypoints...)
	}
	return e
}

// =============================================================================
// Group metadata
// =============================================================================

// Group is a membership record: a container id, its label and the ordered
// ids of the nodes it holds. Members may name containers.
type Group struct {
	ID      string   `json:"id" bson:"id"`
	Label   string   `json:"label,omitempty" bson:"label,omitempty"`
	Members []string `json:"members" bson:"members"`
}
