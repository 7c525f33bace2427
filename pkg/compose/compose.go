package compose

import (
	"maps"
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/geo"
	"github.com/matzehuels/diagramflow/pkg/layout"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

// Input is one compositor pass.
type Input struct {
	// Nodes carry absolute positions, as returned by the executor. A
	// node's Parent is read as a membership hint when it names a
	// container among Nodes or a group in Groups.
	Nodes  []scene.Node
	Edges  []scene.Edge
	Groups []scene.Group
	Choice layout.Choice
	Chrome scene.Chrome

	// Executor re-lays out the top level once containers exist. Nil skips
	// the outer pass.
	Executor *layout.Executor
}

// Output is the compound scene.
type Output struct {
	// Nodes are id-sorted. Members of a container carry Parent, a
	// position relative to the container and Extent "parent".
	Nodes      []scene.Node
	Edges      []scene.Edge
	Containers []string // ids of the containers built, bottom-up
	Warnings   errors.Warnings
}

// Compose turns flat positioned nodes plus group metadata into a compound
// scene.
//
// Members are filtered to nodes actually present; a group left without
// members is dropped with an EMPTY_GROUP warning. Groups that contain each
// other in a cycle lose their nesting (GROUP_CYCLE). A node claimed by
// several groups stays with the first group in id order.
//
// Containers are sized bottom-up to their members' bounding box plus
// chrome. The top level (containers and ungrouped nodes) is then laid out
// again with edges lifted to their top-level endpoints, each container
// dragging its subtree along. Finally containers are refitted deepest first
// so their children sit centred inside them.
func Compose(in Input) Output {
	var out Output

	abs := make(map[string]scene.Node, len(in.Nodes))
	for _, n := range in.Nodes {
		if n.ID == "" {
			continue
		}
		n = n.Clone().Sanitize()
		abs[n.ID] = n
	}

	members, labels := collectMembers(in.Groups, abs, &out.Warnings)
	if len(members) == 0 {
		out.Nodes = flatten(abs)
		out.Edges = cloneEdges(in.Edges, abs)
		return out
	}

	order := nestingOrder(members, &out.Warnings)
	owner := map[string]string{}
	for _, g := range order {
		for _, m := range members[g] {
			owner[m] = g
		}
	}

	// Containers bottom-up in absolute coordinates.
	for _, g := range order {
		boxes := make([]geo.Box, 0, len(members[g]))
		for _, m := range members[g] {
			boxes = append(boxes, abs[m].Box())
		}
		bb, _ := geo.Bounds(boxes)
		box := in.Chrome.Outer(bb)

		c, ok := abs[g]
		if !ok || !c.IsContainer() {
			c = containerFrom(c, g)
		}
		if l := labels[g]; l != "" {
			if _, set := c.Data["label"]; !set {
				if c.Data == nil {
					c.Data = map[string]any{}
				}
				c.Data["label"] = l
			}
		}
		c.Position = box.TopLeft()
		c.Width, c.Height = box.Width, box.Height
		c.Parent = ""
		abs[g] = c
	}
	out.Containers = order

	var moved map[string]geo.Point
	if in.Executor != nil {
		moved = relayoutTop(in, abs, owner)
	}

	s := scene.New()
	for id, n := range abs {
		n.Parent = owner[id]
		n.Extent = ""
		if n.Parent != "" {
			n.Extent = scene.ExtentParent
		}
		s.Nodes[id] = n
	}
	// Every conversion reads the absolute map, so order does not matter.
	for id, n := range s.Nodes {
		if n.Parent != "" {
			n.Position = abs[id].Position.Sub(abs[n.Parent].Position)
			s.Nodes[id] = n
		}
	}
	s.FitAll(in.Chrome)

	out.Nodes = s.SortedNodes()
	out.Edges = routeEdges(in.Edges, abs, moved)
	return out
}

// collectMembers resolves group records and parent hints into a member
// list per group. A member is either a node or another group that ends up
// with members of its own.
func collectMembers(groups []scene.Group, nodes map[string]scene.Node, ws *errors.Warnings) (map[string][]string, map[string]string) {
	sorted := slices.Clone(groups)
	slices.SortStableFunc(sorted, func(a, b scene.Group) int { return strings.Compare(a.ID, b.ID) })

	members := map[string][]string{}
	labels := map[string]string{}
	claimed := map[string]string{}
	known := map[string]bool{}
	for _, g := range sorted {
		if g.ID != "" {
			known[g.ID] = true
		}
	}

	done := map[string]bool{}
	for _, g := range sorted {
		if g.ID == "" || done[g.ID] {
			continue
		}
		done[g.ID] = true
		labels[g.ID] = g.Label
		for _, m := range g.Members {
			if _, ok := nodes[m]; (!ok && !known[m]) || m == g.ID {
				continue
			}
			if prev, ok := claimed[m]; ok {
				if prev != g.ID {
					ws.Add(errors.ErrCodeInvalidInput, m, "node already in group %q; ignoring membership of %q", prev, g.ID)
				}
				continue
			}
			claimed[m] = g.ID
			members[g.ID] = append(members[g.ID], m)
		}
	}

	// Parent hints fill in membership the group records did not state.
	for _, id := range slices.Sorted(maps.Keys(nodes)) {
		p := nodes[id].Parent
		if p == "" || p == id {
			continue
		}
		if _, ok := claimed[id]; ok {
			continue
		}
		if pn, ok := nodes[p]; !known[p] && !(ok && pn.IsContainer()) {
			continue
		}
		claimed[id] = p
		members[p] = append(members[p], id)
	}

	// Drop groups that end up empty, and references to them, until stable.
	for changed := true; changed; {
		changed = false
		for _, g := range slices.Sorted(maps.Keys(members)) {
			kept := slices.DeleteFunc(slices.Clone(members[g]), func(m string) bool {
				_, isNode := nodes[m]
				return !isNode && len(members[m]) == 0
			})
			switch {
			case len(kept) == 0:
				delete(members, g)
				changed = true
			case len(kept) != len(members[g]):
				members[g] = kept
				changed = true
			}
		}
	}

	for _, id := range slices.Sorted(maps.Keys(done)) {
		if _, ok := members[id]; !ok {
			ws.Add(errors.ErrCodeEmptyGroup, id, "group has no members present; dropped")
		}
	}
	return members, labels
}

// nestingOrder returns the groups bottom-up: every group comes after all
// groups it contains. Nesting cycles are broken by releasing the member
// groups of each cyclic component to the top level.
func nestingOrder(members map[string][]string, ws *errors.Warnings) []string {
	ids := slices.Sorted(maps.Keys(members))
	index := make(map[string]int64, len(ids))
	dg := simple.NewDirectedGraph()
	for i, id := range ids {
		index[id] = int64(i)
		dg.AddNode(simple.Node(i))
	}
	for _, g := range ids {
		for _, m := range members[g] {
			if j, ok := index[m]; ok {
				dg.SetEdge(dg.NewEdge(simple.Node(index[g]), simple.Node(j)))
			}
		}
	}

	for _, scc := range topo.TarjanSCC(dg) {
		if len(scc) < 2 {
			continue
		}
		in := map[string]bool{}
		var names []string
		for _, n := range scc {
			in[ids[n.ID()]] = true
			names = append(names, ids[n.ID()])
		}
		slices.Sort(names)
		ws.Add(errors.ErrCodeGroupCycle, names[0], "groups %s contain each other; nesting removed", strings.Join(names, ", "))
		for g := range in {
			members[g] = slices.DeleteFunc(members[g], func(m string) bool {
				if in[m] {
					dg.RemoveEdge(index[g], index[m])
					return true
				}
				return false
			})
		}
	}

	sorted, err := topo.SortStabilized(dg, byID)
	if err != nil {
		// Unreachable once cycles are released; keep id order.
		return ids
	}
	out := make([]string, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		g := ids[sorted[i].ID()]
		if len(members[g]) > 0 {
			out = append(out, g)
		}
	}
	return out
}

func byID(nodes []graph.Node) {
	slices.SortFunc(nodes, func(a, b graph.Node) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
}

// containerFrom turns a missing or non-container node into a group node,
// keeping whatever payload it had.
func containerFrom(n scene.Node, id string) scene.Node {
	n.ID = id
	n.Kind = scene.KindGroup
	return n
}

// relayoutTop lays the top level out again and translates every subtree
// with its top-level ancestor. It returns each node's translation.
func relayoutTop(in Input, abs map[string]scene.Node, owner map[string]string) map[string]geo.Point {
	top := func(id string) string {
		seen := map[string]bool{}
		for owner[id] != "" && !seen[id] {
			seen[id] = true
			id = owner[id]
		}
		return id
	}

	var topNodes []scene.Node
	for _, id := range slices.Sorted(maps.Keys(abs)) {
		if owner[id] == "" {
			topNodes = append(topNodes, abs[id])
		}
	}

	type pair struct{ s, t string }
	seen := map[pair]bool{}
	var lifted []scene.Edge
	edges := slices.Clone(in.Edges)
	slices.SortStableFunc(edges, func(a, b scene.Edge) int { return strings.Compare(a.ID, b.ID) })
	for _, e := range edges {
		if _, ok := abs[e.Source]; !ok {
			continue
		}
		if _, ok := abs[e.Target]; !ok {
			continue
		}
		p := pair{top(e.Source), top(e.Target)}
		if p.s == p.t || seen[p] {
			continue
		}
		seen[p] = true
		lifted = append(lifted, scene.Edge{ID: e.ID, Source: p.s, Target: p.t})
	}

	res := in.Executor.Layout(topNodes, lifted, in.Choice)
	delta := make(map[string]geo.Point, len(res.Nodes))
	for _, n := range res.Nodes {
		delta[n.ID] = n.Position.Sub(abs[n.ID].Position)
	}
	moved := make(map[string]geo.Point, len(abs))
	for id, n := range abs {
		d := delta[top(id)]
		n.Position = n.Position.Add(d)
		abs[id] = n
		moved[id] = d
	}
	return moved
}

// routeEdges keeps edges whose endpoints survived. Waypoints follow when
// both endpoints moved together; otherwise they are dropped and the
// consumer routes the edge.
func routeEdges(edges []scene.Edge, abs map[string]scene.Node, moved map[string]geo.Point) []scene.Edge {
	out := cloneEdges(edges, abs)
	for i := range out {
		e := &out[i]
		if len(e.Waypoints) == 0 {
			continue
		}
		ds, dt := moved[e.Source], moved[e.Target]
		if ds != dt {
			e.Waypoints = nil
			continue
		}
		for j := range e.Waypoints {
			e.Waypoints[j] = e.Waypoints[j].Add(ds)
		}
	}
	return out
}

func cloneEdges(edges []scene.Edge, nodes map[string]scene.Node) []scene.Edge {
	out := make([]scene.Edge, 0, len(edges))
	for _, e := range edges {
		_, okS := nodes[e.Source]
		_, okT := nodes[e.Target]
		if okS && okT {
			out = append(out, e.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b scene.Edge) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func flatten(nodes map[string]scene.Node) []scene.Node {
	out := make([]scene.Node, 0, len(nodes))
	for _, id := range slices.Sorted(maps.Keys(nodes)) {
		n := nodes[id]
		n.Parent = ""
		n.Extent = ""
		out = append(out, n)
	}
	return out
}
