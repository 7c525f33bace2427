package merge

import (
	"maps"
	"slices"

	"github.com/matzehuels/diagramflow/pkg/geo"
	"github.com/matzehuels/diagramflow/pkg/ident"
	"github.com/matzehuels/diagramflow/pkg/layout"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

// Run is the context of one merge session: a generation run or a refine.
// It is created when a stream starts, passed to every [Controller.Apply]
// call for that stream and dropped when the stream ends. Nothing in it is
// shared between runs.
type Run struct {
	// Token prefixes every id the run produces. Empty means ids pass
	// through unchanged (loading a saved scene).
	Token string
	// Replaces is the token of earlier content this run supersedes. It is
	// removed from the scene on the first batch of a non-refine run.
	Replaces string
	// Anchor is the existing node a refine grafts onto. It is laid out
	// with the run but never moved.
	Anchor string
	// Prefs are the caller's layout hints.
	Prefs layout.Preferences

	ns           *ident.Namespacer
	nodes        map[string]bool
	edges        map[string]bool
	groups       map[string]scene.Group
	parents      map[string]string
	placeholders map[string]bool
	ports        map[string]Ports
	direction    layout.Direction
	origin       *geo.Point
	batches      int
}

// Ports are the edge ports a producer asked for. Sides left empty are
// recomputed from the geometry after every pass.
type Ports struct {
	Source scene.Port `json:"source,omitempty"`
	Target scene.Port `json:"target,omitempty"`
}

func (p Ports) apply(e *scene.Edge) {
	e.SourcePort, e.TargetPort = p.Source, p.Target
}

// NewRun starts a run. A non-empty anchor makes it a refine: the anchor id
// (and its token-free form) map onto the existing node instead of being
// namespaced.
func NewRun(token, anchor string, prefs layout.Preferences) *Run {
	r := &Run{
		Token:  token,
		Anchor: anchor,
		Prefs:  prefs,
		ns:     ident.NewNamespacer(token),
	}
	r.reset()
	if anchor != "" {
		r.ns.Pin(anchor, anchor)
		for _, tok := range []string{token, ident.TokenOf(anchor)} {
			if raw := ident.Strip(anchor, tok); raw != anchor {
				r.ns.Pin(raw, anchor)
			}
		}
	}
	return r
}

func (r *Run) reset() {
	r.nodes = map[string]bool{}
	r.edges = map[string]bool{}
	r.groups = map[string]scene.Group{}
	r.parents = map[string]string{}
	r.placeholders = map[string]bool{}
	r.ports = map[string]Ports{}
}

// Refine reports whether the run grafts onto an anchor.
func (r *Run) Refine() bool { return r.Anchor != "" }

// Namespacer returns the run's id mapper.
func (r *Run) Namespacer() *ident.Namespacer { return r.ns }

// Batches returns how many batches have been applied.
func (r *Run) Batches() int { return r.batches }

// NodeIDs returns the ids of the nodes the run owns, sorted.
func (r *Run) NodeIDs() []string { return slices.Sorted(maps.Keys(r.nodes)) }

// EdgeIDs returns the ids of the edges the run owns, sorted.
func (r *Run) EdgeIDs() []string { return slices.Sorted(maps.Keys(r.edges)) }

// Owns reports whether the run produced node or edge id.
func (r *Run) Owns(id string) bool { return r.nodes[id] || r.edges[id] }

// Placeholders returns the ids still waiting for a full layout pass.
func (r *Run) Placeholders() []string { return slices.Sorted(maps.Keys(r.placeholders)) }

// Origin returns where the run's content is anchored on the canvas, once
// known.
func (r *Run) Origin() (geo.Point, bool) {
	if r.origin == nil {
		return geo.Point{}, false
	}
	return *r.origin, true
}

// Subset extracts the run's nodes and edges from s.
func (r *Run) Subset(s scene.Scene) scene.Scene {
	out := scene.New()
	for id := range r.nodes {
		if n, ok := s.Nodes[id]; ok {
			out.PutNode(n.Clone())
		}
	}
	for id := range r.edges {
		if e, ok := s.Edges[id]; ok {
			out.PutEdge(e.Clone())
		}
	}
	return out
}

// =============================================================================
// Persistence
// =============================================================================

// State is the serialisable form of a [Run], stored between batches by
// the stream runner.
type State struct {
	Token        string             `json:"token"`
	Replaces     string             `json:"replaces,omitempty"`
	Anchor       string             `json:"anchor,omitempty"`
	Prefs        layout.Preferences `json:"prefs"`
	IDs          map[string]string  `json:"ids"`
	Nodes        []string           `json:"nodes"`
	Edges        []string           `json:"edges"`
	Groups       []scene.Group      `json:"groups,omitempty"`
	Parents      map[string]string  `json:"parents,omitempty"`
	Placeholders []string           `json:"placeholders,omitempty"`
	Ports        map[string]Ports   `json:"ports,omitempty"`
	Direction    layout.Direction   `json:"direction,omitempty"`
	Origin       *geo.Point         `json:"origin,omitempty"`
	Batches      int                `json:"batches"`
}

// State snapshots the run.
func (r *Run) State() State {
	st := State{
		Token:        r.Token,
		Replaces:     r.Replaces,
		Anchor:       r.Anchor,
		Prefs:        r.Prefs,
		IDs:          r.ns.Table(),
		Nodes:        r.NodeIDs(),
		Edges:        r.EdgeIDs(),
		Parents:      maps.Clone(r.parents),
		Placeholders: r.Placeholders(),
		Direction:    r.direction,
		Batches:      r.batches,
	}
	if len(r.ports) > 0 {
		st.Ports = maps.Clone(r.ports)
	}
	for _, id := range slices.Sorted(maps.Keys(r.groups)) {
		st.Groups = append(st.Groups, r.groups[id])
	}
	if r.origin != nil {
		o := *r.origin
		st.Origin = &o
	}
	return st
}

// RestoreRun rebuilds a run from a snapshot. Ids already handed out keep
// their mapping.
func RestoreRun(st State) *Run {
	r := &Run{
		Token:     st.Token,
		Replaces:  st.Replaces,
		Anchor:    st.Anchor,
		Prefs:     st.Prefs,
		ns:        ident.Restore(st.Token, st.IDs),
		direction: st.Direction,
		batches:   st.Batches,
	}
	r.reset()
	for _, id := range st.Nodes {
		r.nodes[id] = true
	}
	for _, id := range st.Edges {
		r.edges[id] = true
	}
	for _, g := range st.Groups {
		r.groups[g.ID] = g
	}
	maps.Copy(r.parents, st.Parents)
	maps.Copy(r.ports, st.Ports)
	for _, id := range st.Placeholders {
		r.placeholders[id] = true
	}
	if st.Origin != nil {
		o := *st.Origin
		r.origin = &o
	}
	return r
}
