package scene

import (
	"slices"
	"strings"

	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/geo"
)

// =============================================================================
// Scene
// =============================================================================

// Scene is one coherent diagram snapshot: nodes and edges keyed by id.
//
// Map keys are the ids, so uniqueness holds by construction. A Scene is
// treated as a value by the engine: every stage returns a new Scene (see
// [Scene.Clone]) rather than mutating its input.
type Scene struct {
	Nodes map[string]Node
	Edges map[string]Edge
}

// New returns an empty scene.
func New() Scene {
	return Scene{Nodes: map[string]Node{}, Edges: map[string]Edge{}}
}

// Clone deep-copies the scene.
func (s Scene) Clone() Scene {
	out := Scene{
		Nodes: make(map[string]Node, len(s.Nodes)),
		Edges: make(map[string]Edge, len(s.Edges)),
	}
	for id, n := range s.Nodes {
		out.Nodes[id] = n.Clone()
	}
	for id, e := range s.Edges {
		out.Edges[id] = e.Clone()
	}
	return out
}

// Len returns the node and edge counts.
func (s Scene) Len() (nodes, edges int) { return len(s.Nodes), len(s.Edges) }

// PutNode inserts or replaces a node by id.
func (s Scene) PutNode(n Node) { s.Nodes[n.ID] = n }

// PutEdge inserts or replaces an edge by id.
func (s Scene) PutEdge(e Edge) { s.Edges[e.ID] = e }

// RemoveNode deletes a node and every edge touching it.
func (s Scene) RemoveNode(id string) {
	delete(s.Nodes, id)
	for eid, e := range s.Edges {
		if e.Source == id || e.Target == id {
			delete(s.Edges, eid)
		}
	}
}

// NodeIDs returns node ids in ascending order.
func (s Scene) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SortedNodes returns nodes ordered by id.
func (s Scene) SortedNodes() []Node {
	out := make([]Node, 0, len(s.Nodes))
	for _, id := range s.NodeIDs() {
		out = append(out, s.Nodes[id])
	}
	return out
}

// SortedEdges returns edges ordered by id.
func (s Scene) SortedEdges() []Edge {
	out := make([]Edge, 0, len(s.Edges))
	for _, e := range s.Edges {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Edge) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Children returns the ids of nodes whose parent is id, sorted. An empty id
// returns the top-level nodes.
func (s Scene) Children(id string) []string {
	var out []string
	for cid, n := range s.Nodes {
		if n.Parent == id {
			out = append(out, cid)
		}
	}
	slices.Sort(out)
	return out
}

// Ancestors returns the chain of parent ids from the immediate parent up to
// the top-level container. A parent cycle or a dangling parent stops the
// walk.
func (s Scene) Ancestors(id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	cur := s.Nodes[id].Parent
	for cur != "" && !seen[cur] {
		p, ok := s.Nodes[cur]
		if !ok {
			break
		}
		out = append(out, cur)
		seen[cur] = true
		cur = p.Parent
	}
	return out
}

// IsAncestor reports whether anc is a (transitive) parent of id.
func (s Scene) IsAncestor(anc, id string) bool {
	return slices.Contains(s.Ancestors(id), anc)
}

// Depth is the number of ancestors of id.
func (s Scene) Depth(id string) int { return len(s.Ancestors(id)) }

// TopLevel returns the outermost ancestor of id, or id itself when it has no
// parent.
func (s Scene) TopLevel(id string) string {
	anc := s.Ancestors(id)
	if len(anc) == 0 {
		return id
	}
	return anc[len(anc)-1]
}

// AbsolutePosition resolves a node's top-left corner in scene coordinates by
// summing the positions of its ancestors.
func (s Scene) AbsolutePosition(id string) geo.Point {
	p := s.Nodes[id].Position
	for _, a := range s.Ancestors(id) {
		p = p.Add(s.Nodes[a].Position)
	}
	return p
}

// AbsoluteBox returns the node's bounds in scene coordinates.
func (s Scene) AbsoluteBox(id string) geo.Box {
	return geo.NewBox(s.AbsolutePosition(id), s.Nodes[id].Size())
}

// Bounds returns the union of the absolute boxes of ids, or of all top-level
// nodes when ids is nil.
func (s Scene) Bounds(ids []string) (geo.Box, bool) {
	if ids == nil {
		ids = s.Children("")
	}
	boxes := make([]geo.Box, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.Nodes[id]; ok {
			boxes = append(boxes, s.AbsoluteBox(id))
		}
	}
	return geo.Bounds(boxes)
}

// Validate checks the scene invariants: map keys match ids, edge endpoints
// resolve, no edge joins a node to its own ancestor, and parent references
// resolve to containers without cycles.
func (s Scene) Validate() error {
	for _, id := range s.NodeIDs() {
		n := s.Nodes[id]
		if n.ID != id {
			return errors.New(errors.ErrCodeInvalidInput, "node keyed %q has id %q", id, n.ID)
		}
		if _, err := LookupKind(string(n.Kind)); err != nil {
			return err
		}
		if n.Parent == "" {
			continue
		}
		p, ok := s.Nodes[n.Parent]
		if !ok {
			return errors.New(errors.ErrCodeInvalidInput, "node %q: parent %q not in scene", id, n.Parent)
		}
		if !p.IsContainer() {
			return errors.New(errors.ErrCodeInvalidInput, "node %q: parent %q is not a container", id, n.Parent)
		}
		if s.inParentCycle(id) {
			return errors.New(errors.ErrCodeParentCycle, "node %q is its own ancestor", id)
		}
	}
	for _, e := range s.SortedEdges() {
		if _, ok := s.Nodes[e.Source]; !ok {
			return errors.New(errors.ErrCodeDanglingEdge, "edge %q: source %q not in scene", e.ID, e.Source)
		}
		if _, ok := s.Nodes[e.Target]; !ok {
			return errors.New(errors.ErrCodeDanglingEdge, "edge %q: target %q not in scene", e.ID, e.Target)
		}
		if s.IsAncestor(e.Source, e.Target) || s.IsAncestor(e.Target, e.Source) {
			return errors.New(errors.ErrCodeAncestorEdge, "edge %q joins a node to its own container", e.ID)
		}
	}
	return nil
}

func (s Scene) inParentCycle(id string) bool {
	seen := map[string]bool{}
	for cur := id; cur != ""; cur = s.Nodes[cur].Parent {
		if seen[cur] {
			return cur == id || s.inParentCycle(cur)
		}
		seen[cur] = true
		if _, ok := s.Nodes[cur]; !ok {
			return false
		}
	}
	return false
}
