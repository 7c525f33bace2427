package layout

import (
	"slices"
	"strings"

	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/geo"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

// =============================================================================
// Algorithms and directions
// =============================================================================

// Algorithm names a registered layout engine.
type Algorithm string

// Built-in algorithms. Graphviz is only available once registered by the
// caller (see pkg/layout/dot).
const (
	AlgorithmLayered  Algorithm = "layered"
	AlgorithmTree     Algorithm = "tree"
	AlgorithmGrid     Algorithm = "grid"
	AlgorithmGraphviz Algorithm = "graphviz"
)

// Direction is the main axis of a layout.
type Direction string

// Directions.
const (
	DirectionLR Direction = "LR" // layers advance left to right
	DirectionTB Direction = "TB" // layers advance top to bottom
)

// ParseDirection accepts the usual spellings ("LR", "left-right", "TB",
// "top-bottom", "vertical", ...). Unrecognised input yields "".
func ParseDirection(s string) Direction {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LR", "RL", "LEFT-RIGHT", "HORIZONTAL", "RIGHT":
		return DirectionLR
	case "TB", "TD", "BT", "TOP-BOTTOM", "VERTICAL", "DOWN":
		return DirectionTB
	}
	return ""
}

// Horizontal reports whether the main axis is x.
func (d Direction) Horizontal() bool { return d != DirectionTB }

// =============================================================================
// Preferences, tuning and choice
// =============================================================================

// Preferences are caller-supplied hints.
type Preferences struct {
	Direction   Direction // "" = no preference
	Tree        bool      // mind-map operation
	Algorithm   Algorithm // force an engine; "" = heuristic
	DiagramType string    // producer's content class, e.g. "flowchart"
}

// Tuning holds the empirically chosen thresholds and spacings the selector
// and engines use. All of it is configurable; see pkg/config.
type Tuning struct {
	DenseNodes    int      `toml:"dense_nodes" validate:"gte=1"`
	DenseEdges    int      `toml:"dense_edges" validate:"gte=1"`
	DenseFactor   float64  `toml:"dense_factor" validate:"gte=1"`
	SpacingX      float64  `toml:"spacing_x" validate:"gt=0"`
	SpacingY      float64  `toml:"spacing_y" validate:"gt=0"`
	GroupSpacingX float64  `toml:"group_spacing_x" validate:"gte=0"`
	GroupSpacingY float64  `toml:"group_spacing_y" validate:"gte=0"`
	FlowTypes     []string `toml:"flow_types"`
	Sweeps        int      `toml:"sweeps" validate:"gte=1,lte=64"`
}

// DefaultTuning returns the stock thresholds.
func DefaultTuning() Tuning {
	return Tuning{
		DenseNodes:    8,
		DenseEdges:    10,
		DenseFactor:   1.4,
		SpacingX:      100,
		SpacingY:      60,
		GroupSpacingX: 60,
		GroupSpacingY: 60,
		FlowTypes:     []string{"flow", "flowchart", "process", "sequence", "workflow", "pipeline"},
		Sweeps:        8,
	}
}

// SetDefaults fills zero-valued fields from [DefaultTuning]. The group
// spacings are left alone: zero is a valid setting for them.
func (t *Tuning) SetDefaults() {
	d := DefaultTuning()
	if t.DenseNodes == 0 {
		t.DenseNodes = d.DenseNodes
	}
	if t.DenseEdges == 0 {
		t.DenseEdges = d.DenseEdges
	}
	if t.DenseFactor == 0 {
		t.DenseFactor = d.DenseFactor
	}
	if t.SpacingX == 0 {
		t.SpacingX = d.SpacingX
	}
	if t.SpacingY == 0 {
		t.SpacingY = d.SpacingY
	}
	if t.FlowTypes == nil {
		t.FlowTypes = d.FlowTypes
	}
	if t.Sweeps == 0 {
		t.Sweeps = d.Sweeps
	}
}

// isFlow reports whether diagramType names a flow/process/sequence class.
func (t Tuning) isFlow(diagramType string) bool {
	dt := strings.ToLower(strings.TrimSpace(diagramType))
	return dt != "" && slices.Contains(t.FlowTypes, dt)
}

// Choice is the selector's decision.
type Choice struct {
	Algorithm Algorithm `json:"algorithm"`
	Direction Direction `json:"direction"`
	SpacingX  float64   `json:"spacingX"`
	SpacingY  float64   `json:"spacingY"`
	Dense     bool      `json:"dense,omitempty"`
	Grouped   bool      `json:"grouped,omitempty"`
}

// Gaps returns the inter-layer (main axis) and intra-layer (cross axis)
// gaps for the choice's direction.
func (c Choice) Gaps() (inter, intra float64) {
	if c.Direction.Horizontal() {
		return c.SpacingX, c.SpacingY
	}
	return c.SpacingY, c.SpacingX
}

// =============================================================================
// Engine contract
// =============================================================================

// Placement is what an engine returns: top-left positions for the nodes it
// placed, optional routing waypoints keyed by edge id, and the ids it chose
// to leave where they are (collapsed subtrees).
type Placement struct {
	Positions map[string]geo.Point
	Waypoints map[string][]geo.Point
	Hidden    []string
}

// Engine is one layout algorithm. Engines receive sanitised nodes sorted by
// id and edges whose endpoints are all present; they must be deterministic.
// Nodes missing from the returned placement are laid out on a grid by the
// [Executor].
type Engine interface {
	Place(nodes []scene.Node, edges []scene.Edge, c Choice) (Placement, error)
}

// EngineFunc adapts a function to [Engine].
type EngineFunc func(nodes []scene.Node, edges []scene.Edge, c Choice) (Placement, error)

// Place implements Engine.
func (f EngineFunc) Place(nodes []scene.Node, edges []scene.Edge, c Choice) (Placement, error) {
	return f(nodes, edges, c)
}

// Result is the executor's output.
type Result struct {
	Nodes    []scene.Node // sorted by id, absolute positions
	Edges    []scene.Edge // sorted by id, ports and waypoints filled in
	Engine   Algorithm    // engine that produced the placement
	Unplaced []string     // ids placed by the grid fallback
	Hidden   []string     // ids left unpositioned under a collapsed node
	Warnings errors.Warnings
}

// Bounds returns the union of the result's node boxes.
func (r Result) Bounds() (geo.Box, bool) {
	boxes := make([]geo.Box, len(r.Nodes))
	for i, n := range r.Nodes {
		boxes[i] = n.Box()
	}
	return geo.Bounds(boxes)
}
