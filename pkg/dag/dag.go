package dag

import (
	"errors"
	"maps"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrSelfLoop is returned by [DAG.AddEdge] for edges from a node to itself.
	// Layered layouts cannot rank a self loop; callers route those separately.
	ErrSelfLoop = errors.New("self loop")

	// ErrInvalidEdgeEndpoint is returned by [DAG.Validate] when an edge
	// references a node that doesn't exist.
	ErrInvalidEdgeEndpoint = errors.New("invalid edge endpoint")

	// ErrNonConsecutiveLayers is returned by [DAG.Validate] when an edge
	// connects nodes that are not in adjacent layers (From.Layer+1 != To.Layer).
	ErrNonConsecutiveLayers = errors.New("edges must connect consecutive layers")

	// ErrGraphHasCycle is returned by [DAG.Validate] when a cycle is detected.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// NodeKind distinguishes between scene nodes and synthetic nodes created
// during transformation.
type NodeKind int

const (
	// NodeKindRegular represents a node from the scene being laid out.
	NodeKindRegular NodeKind = iota
	// NodeKindDummy represents a synthetic node inserted to split a long edge
	// into single-layer hops. Dummies carry the id of the edge they belong to
	// in Origin and have zero size.
	NodeKindDummy
)

// Node is a vertex of the layered graph.
//
// The zero value is not usable - ID must be set before adding to a DAG.
type Node struct {
	ID    string // Unique identifier
	Layer int    // Layer assignment (0 = first layer along the main axis)

	// Width and Height are the node's extent; dummies are zero-sized.
	Width  float64
	Height float64

	Kind NodeKind
	// Origin is the id of the edge a dummy node was created for.
	Origin string
}

// IsDummy reports whether the node was inserted to split a long edge.
func (n Node) IsDummy() bool { return n.Kind == NodeKindDummy }

// Edge is a directed connection between two nodes.
type Edge struct {
	From string
	To   string

	// ID is the scene edge this edge (or edge segment) represents.
	ID string
	// Reversed is set when cycle breaking flipped the edge; the scene edge
	// runs To→From.
	Reversed bool
}

// DAG is a directed graph organised into ordered layers for Sugiyama-style
// layout. Nodes keep insertion order everywhere (Nodes, Sources, layer
// membership until an ordering is set), so every algorithm built on top of
// it is deterministic for a deterministic insertion sequence.
//
// The zero value is not usable - use New to create a valid DAG instance.
// DAG is not safe for concurrent use without external synchronization.
type DAG struct {
	order    []*Node
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]string // nodeID -> target IDs
	incoming map[string][]string // nodeID -> source IDs
	layers   map[int][]*Node     // layer -> nodes in cross-axis order
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		layers:   make(map[int][]*Node),
	}
}

// AddNode adds a node to the graph and indexes it by its Layer.
// Returns ErrInvalidNodeID if the node ID is empty, or ErrDuplicateNodeID
// if a node with the same ID already exists.
func (d *DAG) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := d.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	node := &n
	d.order = append(d.order, node)
	d.nodes[node.ID] = node
	d.layers[node.Layer] = append(d.layers[node.Layer], node)
	return nil
}

// AddEdge adds a directed edge between two existing nodes.
// Multiple edges between the same nodes are allowed.
func (d *DAG) AddEdge(e Edge) error {
	if _, ok := d.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := d.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if e.From == e.To {
		return ErrSelfLoop
	}
	d.edges = append(d.edges, e)
	d.outgoing[e.From] = append(d.outgoing[e.From], e.To)
	d.incoming[e.To] = append(d.incoming[e.To], e.From)
	return nil
}

// RemoveEdge removes every edge from→to.
func (d *DAG) RemoveEdge(from, to string) {
	d.edges = slices.DeleteFunc(d.edges, func(e Edge) bool { return e.From == from && e.To == to })
	d.outgoing[from] = slices.DeleteFunc(d.outgoing[from], func(s string) bool { return s == to })
	d.incoming[to] = slices.DeleteFunc(d.incoming[to], func(s string) bool { return s == from })
}

// ReverseEdge flips every edge from→to and marks it reversed. Flipping an
// edge that was already reversed clears the mark.
func (d *DAG) ReverseEdge(from, to string) {
	var flipped []Edge
	for _, e := range d.edges {
		if e.From == from && e.To == to {
			flipped = append(flipped, Edge{From: to, To: from, ID: e.ID, Reversed: !e.Reversed})
		}
	}
	d.RemoveEdge(from, to)
	for _, e := range flipped {
		_ = d.AddEdge(e)
	}
}

// SetLayers updates layer assignments and rebuilds the layer index in node
// insertion order. Nodes not present in the map keep their layer.
func (d *DAG) SetLayers(layers map[string]int) {
	d.layers = make(map[int][]*Node)
	for _, n := range d.order {
		if l, ok := layers[n.ID]; ok {
			n.Layer = l
		}
		d.layers[n.Layer] = append(d.layers[n.Layer], n)
	}
}

// SetLayerOrder replaces the cross-axis order of one layer. ids must be a
// permutation of the layer's current members; unknown ids are ignored and
// members missing from ids keep their relative order at the end.
func (d *DAG) SetLayerOrder(layer int, ids []string) {
	cur := d.layers[layer]
	inLayer := make(map[string]bool, len(cur))
	for _, n := range cur {
		inLayer[n.ID] = true
	}
	next := make([]*Node, 0, len(cur))
	placed := make(map[string]bool, len(cur))
	for _, id := range ids {
		if inLayer[id] && !placed[id] {
			next = append(next, d.nodes[id])
			placed[id] = true
		}
	}
	for _, n := range cur {
		if !placed[n.ID] {
			next = append(next, n)
		}
	}
	d.layers[layer] = next
}

// Nodes returns all nodes in insertion order. The returned slice contains
// pointers to the actual node structs, so modifications affect the graph.
func (d *DAG) Nodes() []*Node { return slices.Clone(d.order) }

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// NodeCount returns the number of nodes in the graph.
func (d *DAG) NodeCount() int { return len(d.order) }

// EdgeCount returns the number of edges in the graph.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Children returns the IDs of edge targets of id. Read-only view.
func (d *DAG) Children(id string) []string { return d.outgoing[id] }

// Parents returns the IDs of edge sources into id. Read-only view.
func (d *DAG) Parents(id string) []string { return d.incoming[id] }

// OutDegree returns the number of outgoing edges from the node.
func (d *DAG) OutDegree(id string) int { return len(d.outgoing[id]) }

// InDegree returns the number of incoming edges to the node.
func (d *DAG) InDegree(id string) int { return len(d.incoming[id]) }

// Node returns the node with the given ID and true, or nil and false if not found.
func (d *DAG) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// NodesInLayer returns the nodes of a layer in cross-axis order.
func (d *DAG) NodesInLayer(layer int) []*Node { return d.layers[layer] }

// LayerIDs returns all layer indices in ascending order.
func (d *DAG) LayerIDs() []int {
	return slices.Sorted(maps.Keys(d.layers))
}

// LayerCount returns the number of distinct layers.
func (d *DAG) LayerCount() int { return len(d.layers) }

// MaxLayer returns the highest layer index, or 0 if the graph is empty.
func (d *DAG) MaxLayer() int {
	ids := d.LayerIDs()
	if len(ids) == 0 {
		return 0
	}
	return ids[len(ids)-1]
}

// Orders returns a snapshot of every layer's current order.
func (d *DAG) Orders() map[int][]string {
	out := make(map[int][]string, len(d.layers))
	for l, ns := range d.layers {
		out[l] = NodeIDs(ns)
	}
	return out
}

// Sources returns nodes with no incoming edges, in insertion order.
func (d *DAG) Sources() []*Node {
	var sources []*Node
	for _, n := range d.order {
		if len(d.incoming[n.ID]) == 0 {
			sources = append(sources, n)
		}
	}
	return sources
}

// Validate checks that every edge joins existing nodes in consecutive
// layers and that the graph is acyclic.
func (d *DAG) Validate() error {
	for _, e := range d.edges {
		src, okS := d.nodes[e.From]
		dst, okD := d.nodes[e.To]
		if !okS || !okD {
			return ErrInvalidEdgeEndpoint
		}
		if dst.Layer != src.Layer+1 {
			return ErrNonConsecutiveLayers
		}
	}
	return d.detectCycles()
}

func (d *DAG) detectCycles() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(d.nodes))
	var hasCycle bool

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, child := range d.outgoing[id] {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				hasCycle = true
			}
			if hasCycle {
				return
			}
		}
		color[id] = black
	}

	for _, n := range d.order {
		if color[n.ID] == white {
			dfs(n.ID)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}

// PosMap maps each ID to its index in the slice.
func PosMap(ids []string) map[string]int {
	m := make(map[string]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m
}

// NodeIDs extracts the ID from each node in a slice.
func NodeIDs(nodes []*Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
