package merge

import (
	"maps"
	"slices"
	"strconv"

	"github.com/matzehuels/diagramflow/pkg/collide"
	"github.com/matzehuels/diagramflow/pkg/compose"
	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/geo"
	"github.com/matzehuels/diagramflow/pkg/ident"
	"github.com/matzehuels/diagramflow/pkg/layout"
	"github.com/matzehuels/diagramflow/pkg/scene"
	"github.com/matzehuels/diagramflow/pkg/stream"
)

// =============================================================================
// Options
// =============================================================================

// Options configures a [Controller].
type Options struct {
	Tuning  layout.Tuning   `toml:"layout"`
	Chrome  scene.Chrome    `toml:"compose"`
	Collide collide.Options `toml:"collide"`
	// RunGap separates a new run's content from what is already on the
	// canvas.
	RunGap float64 `toml:"run_gap" validate:"gte=0"`
}

// DefaultOptions returns the stock controller settings.
func DefaultOptions() Options {
	return Options{
		Tuning:  layout.DefaultTuning(),
		Chrome:  scene.Chrome{Padding: 20, Header: 30},
		Collide: collide.DefaultOptions(),
		RunGap:  120,
	}
}

// =============================================================================
// Batch and report
// =============================================================================

// Batch is what one Apply call ingests. Record lists may repeat records
// from earlier batches (the parser returns everything seen so far);
// records merge by id.
type Batch struct {
	Nodes       []stream.RawNode
	Edges       []stream.RawEdge
	Groups      []stream.RawGroup
	Direction   string
	DiagramType string

	// Layout requests the full layout pass. When false the batch is a
	// throttled step: new nodes go to placeholder cells.
	Layout bool
	// Final marks the last batch of the stream. It always lays out.
	Final bool
}

// FromResult wraps a parser result as a batch with layout enabled and
// Final set when the payload is complete.
func FromResult(r stream.Result) Batch {
	return Batch{
		Nodes:       r.Nodes,
		Edges:       r.Edges,
		Groups:      r.Groups,
		Direction:   r.Direction,
		DiagramType: r.DiagramType,
		Layout:      true,
		Final:       r.Complete,
	}
}

// Report describes what an Apply call did.
type Report struct {
	Added        []string         `json:"added,omitempty"`
	Updated      []string         `json:"updated,omitempty"`
	Removed      []string         `json:"removed,omitempty"`
	Placeholders []string         `json:"placeholders,omitempty"`
	Unplaced     []string         `json:"unplaced,omitempty"`
	Hidden       []string         `json:"hidden,omitempty"`
	Choice       layout.Choice    `json:"choice"`
	Engine       layout.Algorithm `json:"engine,omitempty"`
	LaidOut      bool             `json:"laidOut"`
	Iterations   int              `json:"iterations"`
	Converged    bool             `json:"converged"`
	Settled      bool             `json:"settled"`
	Nodes        int              `json:"nodes"`
	Edges        int              `json:"edges"`
	Warnings     errors.Warnings  `json:"warnings,omitempty"`
}

// =============================================================================
// Controller
// =============================================================================

// Controller merges streamed batches into a scene. It holds no per-run
// state; everything run-specific travels in the [Run]. A Controller is
// safe for concurrent use by different runs.
type Controller struct {
	opts     Options
	executor *layout.Executor
}

// NewController returns a controller. A nil executor gets the built-in
// engines with opts.Tuning.
func NewController(opts Options, x *layout.Executor) *Controller {
	opts.Tuning.SetDefaults()
	opts.Collide.SetDefaults()
	opts.Collide.Chrome = opts.Chrome
	if x == nil {
		x = layout.NewExecutor(opts.Tuning)
	}
	return &Controller{opts: opts, executor: x}
}

// Executor returns the layout executor in use.
func (c *Controller) Executor() *layout.Executor { return c.executor }

// Options returns the controller settings.
func (c *Controller) Options() Options { return c.opts }

// Apply merges b into prev and returns the new scene. prev is not
// modified.
//
// The first batch of a non-refine run first removes the content of the
// run it replaces (and any content left over under its own token). Records
// are then namespaced and merged by id; malformed ones are dropped with a
// warning. Unless the batch is a throttled step, the run's nodes (plus a
// refine anchor, pinned) go through select, layout, compose and resolve,
// and are placed at the run's origin. Content outside the run is never
// moved. Edge ports the producer did not set are recomputed from the
// final geometry on every call.
func (c *Controller) Apply(prev scene.Scene, run *Run, b Batch) (scene.Scene, Report) {
	out := prev.Clone()
	var rep Report

	if run.Anchor != "" {
		if _, ok := out.Nodes[run.Anchor]; !ok {
			rep.Warnings.Add(errors.ErrCodeInvalidInput, run.Anchor, "refine anchor not in scene")
		}
	}
	if run.batches == 0 && !run.Refine() {
		rep.Removed = c.clear(out, run)
	}
	if run.origin == nil {
		o := c.origin(out, run)
		run.origin = &o
	}

	fresh := c.ingestNodes(out, run, b.Nodes, &rep)
	ingestGroups(run, b.Groups, &rep)
	breakParentCycles(run, &rep)
	c.ingestEdges(out, run, b.Edges, &rep)

	if b.Layout || b.Final {
		c.layoutRun(out, run, c.prefs(run, b), &rep)
		clear(run.placeholders)
		rep.LaidOut = true
	} else {
		c.placeholders(out, run, fresh)
		if run.direction == "" {
			run.direction = c.prefs(run, b).Direction
		}
		rep.Converged = true
	}
	dropAncestorEdges(out, run, &rep)
	routePorts(out, run)

	run.batches++
	rep.Settled = b.Final
	rep.Placeholders = run.Placeholders()
	rep.Nodes, rep.Edges = len(run.nodes), len(run.edges)
	return out, rep
}

func (c *Controller) prefs(run *Run, b Batch) layout.Preferences {
	p := run.Prefs
	if p.Direction == "" {
		p.Direction = layout.ParseDirection(b.Direction)
	}
	if p.DiagramType == "" {
		p.DiagramType = b.DiagramType
	}
	return p
}

// clear removes content owned by the replaced token and by the run's own
// token. Children of removed containers that survive are made top-level
// at their absolute position.
func (c *Controller) clear(out scene.Scene, run *Run) []string {
	doomed := func(id string) bool {
		return run.nodes[id] || ident.Owns(id, run.Replaces) || ident.Owns(id, run.Token)
	}
	var removed []string
	for _, id := range out.NodeIDs() {
		if doomed(id) {
			removed = append(removed, id)
		}
	}
	for _, id := range out.NodeIDs() {
		n := out.Nodes[id]
		if n.Parent != "" && doomed(n.Parent) && !doomed(id) {
			n.Position = out.AbsolutePosition(id)
			n.Parent, n.Extent = "", ""
			out.Nodes[id] = n
		}
	}
	for _, id := range removed {
		out.RemoveNode(id)
	}
	for id := range out.Edges {
		if ident.Owns(id, run.Replaces) || ident.Owns(id, run.Token) || run.edges[id] {
			delete(out.Edges, id)
		}
	}
	run.reset()
	return removed
}

// origin picks where the run's content goes: right of the anchor for a
// refine, otherwise right of everything already on the canvas.
func (c *Controller) origin(out scene.Scene, run *Run) geo.Point {
	if a, ok := out.Nodes[run.Anchor]; ok && run.Refine() {
		box := out.AbsoluteBox(a.ID)
		return geo.Point{X: box.MaxX() + c.opts.Tuning.SpacingX, Y: box.Y}
	}
	var boxes []geo.Box
	for _, id := range out.NodeIDs() {
		if out.Nodes[id].Parent == "" && !run.nodes[id] {
			boxes = append(boxes, out.Nodes[id].Box())
		}
	}
	bb, ok := geo.Bounds(boxes)
	if !ok {
		return geo.Point{}
	}
	return geo.Point{X: bb.MaxX() + c.opts.RunGap, Y: bb.Y}
}

// =============================================================================
// Ingestion
// =============================================================================

// ingestNodes merges node records and returns the ids created without an
// explicit position.
func (c *Controller) ingestNodes(out scene.Scene, run *Run, raws []stream.RawNode, rep *Report) []string {
	var fresh []string
	seen := map[string]bool{}
	for _, raw := range raws {
		if raw.ID == "" {
			rep.Warnings.Add(errors.ErrCodeMissingID, "", "node record without id dropped")
			continue
		}
		id := run.ns.Map(raw.ID)
		existing, exists := out.Nodes[id]

		n := scene.Node{ID: id}
		if exists {
			n = existing.Clone()
		}
		if raw.Kind != "" || !exists {
			spec, err := scene.LookupKind(raw.Kind)
			if err != nil {
				rep.Warnings.Add(errors.ErrCodeUnknownKind, id, "%s", errors.UserMessage(err))
				continue
			}
			n.Kind = spec.Kind
		}
		if raw.Width > 0 {
			n.Width = raw.Width
		}
		if raw.Height > 0 {
			n.Height = raw.Height
		}
		if raw.Pinned {
			n.Pinned = true
		}
		if raw.Position != nil && (!exists || run.placeholders[id]) {
			n.Position = *raw.Position
			n.Parent, n.Extent = "", ""
			delete(run.placeholders, id)
		}
		if len(raw.Data) > 0 {
			if n.Data == nil {
				n.Data = make(map[string]any, len(raw.Data))
			}
			maps.Copy(n.Data, raw.Data)
		}
		n = n.Sanitize()
		out.Nodes[id] = n

		if id == run.Anchor {
			continue
		}
		if raw.Parent != "" {
			run.parents[id] = run.ns.Map(raw.Parent)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		switch {
		case !exists:
			rep.Added = append(rep.Added, id)
			if raw.Position == nil {
				fresh = append(fresh, id)
			}
		case run.nodes[id]:
			rep.Updated = append(rep.Updated, id)
		}
		run.nodes[id] = true
	}
	return fresh
}

func ingestGroups(run *Run, raws []stream.RawGroup, rep *Report) {
	for _, raw := range raws {
		if raw.ID == "" {
			rep.Warnings.Add(errors.ErrCodeMissingID, "", "group record without id dropped")
			continue
		}
		g := scene.Group{ID: run.ns.Map(raw.ID), Label: raw.Label}
		for _, m := range raw.Members {
			if m != "" {
				g.Members = append(g.Members, run.ns.Map(m))
			}
		}
		run.groups[g.ID] = g
	}
}

// breakParentCycles drops parent hints that lead back to their own node.
func breakParentCycles(run *Run, rep *Report) {
	for _, id := range slices.Sorted(maps.Keys(run.parents)) {
		seen := map[string]bool{id: true}
		for cur := run.parents[id]; cur != ""; cur = run.parents[cur] {
			if cur == id {
				rep.Warnings.Add(errors.ErrCodeParentCycle, id, "parent chain leads back to the node; hint dropped")
				delete(run.parents, id)
				break
			}
			if seen[cur] {
				break
			}
			seen[cur] = true
		}
	}
}

// membership resolves the run's containment: group records first (a node
// claimed twice stays with the first group in id order), then parent
// hints.
func (r *Run) membership() map[string]string {
	parent := map[string]string{}
	for _, gid := range slices.Sorted(maps.Keys(r.groups)) {
		for _, m := range r.groups[gid].Members {
			if _, ok := parent[m]; !ok && m != gid {
				parent[m] = gid
			}
		}
	}
	for _, id := range slices.Sorted(maps.Keys(r.parents)) {
		if _, ok := parent[id]; !ok {
			parent[id] = r.parents[id]
		}
	}
	return parent
}

func isAncestor(parent map[string]string, anc, id string) bool {
	seen := map[string]bool{}
	for cur := parent[id]; cur != "" && !seen[cur]; cur = parent[cur] {
		if cur == anc {
			return true
		}
		seen[cur] = true
	}
	return false
}

func (c *Controller) ingestEdges(out scene.Scene, run *Run, raws []stream.RawEdge, rep *Report) {
	parent := run.membership()
	seq := map[string]int{}
	for _, raw := range raws {
		if raw.Source == "" || raw.Target == "" {
			rep.Warnings.Add(errors.ErrCodeMissingID, raw.ID, "edge record without source or target dropped")
			continue
		}
		rawID := raw.ID
		if rawID == "" {
			base := "e-" + raw.Source + "-" + raw.Target
			seq[base]++
			rawID = base
			if n := seq[base]; n > 1 {
				rawID += "-" + strconv.Itoa(n)
			}
		}
		id := run.ns.Map(rawID)
		src, tgt := run.ns.Map(raw.Source), run.ns.Map(raw.Target)

		if _, ok := out.Nodes[src]; !ok {
			rep.Warnings.Add(errors.ErrCodeDanglingEdge, id, "source %q not in scene", src)
			continue
		}
		if _, ok := out.Nodes[tgt]; !ok {
			rep.Warnings.Add(errors.ErrCodeDanglingEdge, id, "target %q not in scene", tgt)
			continue
		}
		if isAncestor(parent, src, tgt) || isAncestor(parent, tgt, src) ||
			out.IsAncestor(src, tgt) || out.IsAncestor(tgt, src) {
			rep.Warnings.Add(errors.ErrCodeAncestorEdge, id, "edge joins a node to its own container")
			continue
		}

		e, exists := out.Edges[id]
		if exists {
			e = e.Clone()
		} else {
			e = scene.Edge{ID: id}
		}
		e.Source, e.Target = src, tgt
		pin := run.ports[id]
		if p := scene.Port(raw.SourcePort); p != scene.PortNone && p.Valid() {
			pin.Source = p
			e.SourcePort = p
		}
		if p := scene.Port(raw.TargetPort); p != scene.PortNone && p.Valid() {
			pin.Target = p
			e.TargetPort = p
		}
		if pin != (Ports{}) {
			run.ports[id] = pin
		}
		if len(raw.Waypoints) > 0 {
			e.Waypoints = make([]geo.Point, len(raw.Waypoints))
			for i, w := range raw.Waypoints {
				e.Waypoints[i] = w.Sanitize()
			}
		}
		if len(raw.Data) > 0 {
			if e.Data == nil {
				e.Data = make(map[string]any, len(raw.Data))
			}
			maps.Copy(e.Data, raw.Data)
		}
		out.Edges[id] = e
		run.edges[id] = true
	}
}

// dropAncestorEdges removes run edges that ended up joining a node to one
// of its containers.
func dropAncestorEdges(out scene.Scene, run *Run, rep *Report) {
	for _, id := range run.EdgeIDs() {
		e, ok := out.Edges[id]
		if !ok {
			delete(run.edges, id)
			continue
		}
		if out.IsAncestor(e.Source, e.Target) || out.IsAncestor(e.Target, e.Source) {
			rep.Warnings.Add(errors.ErrCodeAncestorEdge, id, "edge joins a node to its own container")
			delete(out.Edges, id)
			delete(run.edges, id)
		}
	}
}

// =============================================================================
// Placement
// =============================================================================

// placeholders puts fresh nodes on a grid below the run's current content.
func (c *Controller) placeholders(out scene.Scene, run *Run, fresh []string) {
	if len(fresh) == 0 {
		return
	}
	isFresh := map[string]bool{}
	for _, id := range fresh {
		isFresh[id] = true
	}
	var boxes []geo.Box
	for _, id := range run.NodeIDs() {
		if n, ok := out.Nodes[id]; ok && n.Parent == "" && !isFresh[id] {
			boxes = append(boxes, n.Box())
		}
	}
	start := *run.origin
	if bb, ok := geo.Bounds(boxes); ok {
		start = geo.Point{X: bb.X, Y: bb.MaxY() + c.opts.Tuning.SpacingY}
	}

	nodes := make([]scene.Node, 0, len(fresh))
	for _, id := range fresh {
		nodes = append(nodes, out.Nodes[id])
	}
	pos := layout.GridPositions(nodes, start, c.opts.Tuning.SpacingX, c.opts.Tuning.SpacingY)
	for _, id := range fresh {
		n := out.Nodes[id]
		n.Position = pos[id]
		n.Parent, n.Extent = "", ""
		out.Nodes[id] = n
		run.placeholders[id] = true
	}
}

// layoutRun runs select, layout, compose and resolve over the run's nodes
// and writes the result back into out.
func (c *Controller) layoutRun(out scene.Scene, run *Run, prefs layout.Preferences, rep *Report) {
	parent := run.membership()
	composite := map[string]bool{}
	for _, p := range parent {
		_, grouped := run.groups[p]
		if n, ok := out.Nodes[p]; grouped || (ok && n.IsContainer()) {
			composite[p] = true
		}
	}

	var flat, all []scene.Node
	present := map[string]bool{}
	pinnedAt := map[string]geo.Point{}
	for _, id := range run.NodeIDs() {
		if _, ok := out.Nodes[id]; !ok {
			continue
		}
		n := out.Nodes[id].Clone()
		n.Position = out.AbsolutePosition(id)
		n.Parent, n.Extent = parent[id], ""
		all = append(all, n)
		present[id] = true
		if n.Pinned {
			pinnedAt[id] = n.Position
		}
		if !composite[id] {
			flat = append(flat, n)
		}
	}
	anchor, hasAnchor := out.Nodes[run.Anchor]
	if hasAnchor && run.Refine() {
		anchor = anchor.Clone()
		anchor.Position = out.AbsolutePosition(anchor.ID)
		anchor.Parent, anchor.Extent = "", ""
		anchor.Pinned = true
		flat = append(flat, anchor)
		all = append(all, anchor)
		present[anchor.ID] = true
	} else {
		hasAnchor = false
	}

	var edges []scene.Edge
	for _, id := range run.EdgeIDs() {
		if e, ok := out.Edges[id]; ok && present[e.Source] && present[e.Target] {
			e = e.Clone()
			run.ports[id].apply(&e)
			edges = append(edges, e)
		}
	}

	members := slices.Sorted(maps.Keys(parent))
	choice := layout.Select(flat, edges, members, prefs, c.opts.Tuning)
	res := c.executor.Layout(flat, edges, choice)
	rep.Choice, rep.Engine, rep.Unplaced = choice, res.Engine, res.Unplaced
	rep.Warnings.Extend(res.Warnings)
	run.direction = choice.Direction

	// Nodes under a collapsed parent keep their place and stay out of
	// compose and the resolver.
	hidden := hiddenSet(res.Hidden, parent)
	if len(hidden) > 0 {
		rep.Hidden = slices.Sorted(maps.Keys(hidden))
		all = slices.DeleteFunc(all, func(n scene.Node) bool { return hidden[n.ID] })
		edges = slices.DeleteFunc(edges, func(e scene.Edge) bool { return hidden[e.Source] || hidden[e.Target] })
	}

	laid := make(map[string]scene.Node, len(res.Nodes))
	for _, n := range res.Nodes {
		laid[n.ID] = n
	}
	routed := make(map[string]scene.Edge, len(res.Edges))
	for _, e := range res.Edges {
		routed[e.ID] = e
	}
	for i, n := range all {
		if l, ok := laid[n.ID]; ok {
			all[i].Position = l.Position
		}
	}
	for i, e := range edges {
		if r, ok := routed[e.ID]; ok {
			edges[i] = r
		}
	}

	var groups []scene.Group
	for _, id := range slices.Sorted(maps.Keys(run.groups)) {
		if !hidden[id] {
			groups = append(groups, run.groups[id])
		}
	}
	comp := compose.Compose(compose.Input{
		Nodes:    all,
		Edges:    edges,
		Groups:   groups,
		Choice:   choice,
		Chrome:   c.opts.Chrome,
		Executor: c.executor,
	})
	rep.Warnings.Extend(comp.Warnings)

	// Move the run into place.
	nodes := comp.Nodes
	shift := c.shift(nodes, run, anchor, hasAnchor)
	for i, n := range nodes {
		if n.Parent != "" {
			continue
		}
		nodes[i].Position = n.Position.Add(shift)
		if p, ok := pinnedAt[n.ID]; ok {
			nodes[i].Position = p
		}
		if hasAnchor && n.ID == anchor.ID {
			nodes[i].Position = anchor.Position
		}
	}
	placed := absolute(nodes)

	// Resolve against the rest of the canvas, which stays put.
	inRun := map[string]bool{}
	for _, n := range nodes {
		inRun[n.ID] = true
	}
	for _, id := range out.NodeIDs() {
		if n := out.Nodes[id]; n.Parent == "" && !inRun[id] && !hidden[id] {
			n = n.Clone()
			n.Pinned = true
			nodes = append(nodes, n)
		}
	}
	settled := collide.Resolve(nodes, c.opts.Collide)
	rep.Iterations, rep.Converged = settled.Iterations, settled.Converged
	rep.Warnings.Extend(settled.Warnings)
	final := absolute(settled.Nodes)

	built := map[string]bool{}
	for _, id := range comp.Containers {
		built[id] = true
	}
	for _, n := range settled.Nodes {
		if hasAnchor && n.ID == anchor.ID {
			if built[n.ID] {
				a := out.Nodes[n.ID]
				a.Width, a.Height = n.Width, n.Height
				out.Nodes[n.ID] = a
			}
			continue
		}
		if !run.nodes[n.ID] && !built[n.ID] {
			continue
		}
		out.Nodes[n.ID] = n
		run.nodes[n.ID] = true
	}
	for _, e := range comp.Edges {
		if !run.edges[e.ID] {
			continue
		}
		ds := final[e.Source].Sub(placed[e.Source])
		dt := final[e.Target].Sub(placed[e.Target])
		for j := range e.Waypoints {
			e.Waypoints[j] = e.Waypoints[j].Add(shift).Add(ds)
		}
		if ds != dt {
			e.Waypoints = nil
		}
		out.Edges[e.ID] = e
	}
}

// hiddenSet expands the ids an engine left unpositioned to everything
// contained in them.
func hiddenSet(ids []string, parent map[string]string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	hidden := make(map[string]bool, len(ids))
	for _, id := range ids {
		hidden[id] = true
	}
	for _, id := range slices.Sorted(maps.Keys(parent)) {
		seen := map[string]bool{}
		for cur := parent[id]; cur != "" && !seen[cur]; cur = parent[cur] {
			if hidden[cur] {
				hidden[id] = true
				break
			}
			seen[cur] = true
		}
	}
	return hidden
}

// routePorts recomputes the ports of the run's edges from the absolute
// geometry now in out. Sides the producer set are kept.
func routePorts(out scene.Scene, run *Run) {
	ids := run.EdgeIDs()
	edges := make([]scene.Edge, 0, len(ids))
	boxes := map[string]geo.Box{}
	for _, id := range ids {
		e, ok := out.Edges[id]
		if !ok {
			continue
		}
		run.ports[id].apply(&e)
		edges = append(edges, e)
		for _, n := range []string{e.Source, e.Target} {
			if _, done := boxes[n]; done {
				continue
			}
			if _, ok := out.Nodes[n]; ok {
				boxes[n] = out.AbsoluteBox(n)
			}
		}
	}
	layout.AssignPorts(edges, boxes, run.direction)
	for _, e := range edges {
		out.Edges[e.ID] = e
	}
}

// shift is the translation that moves the composed run to its place: the
// anchor back onto itself for a refine, otherwise the run's top-left corner
// onto its origin.
func (c *Controller) shift(nodes []scene.Node, run *Run, anchor scene.Node, hasAnchor bool) geo.Point {
	var boxes []geo.Box
	for _, n := range nodes {
		if n.Parent != "" {
			continue
		}
		if hasAnchor && n.ID == anchor.ID {
			return anchor.Position.Sub(n.Position)
		}
		if !n.Pinned {
			boxes = append(boxes, n.Box())
		}
	}
	if bb, ok := geo.Bounds(boxes); ok {
		return run.origin.Sub(bb.TopLeft())
	}
	return geo.Point{}
}

// absolute maps node ids to absolute positions.
func absolute(nodes []scene.Node) map[string]geo.Point {
	s := scene.New()
	for _, n := range nodes {
		s.PutNode(n)
	}
	out := make(map[string]geo.Point, len(nodes))
	for id := range s.Nodes {
		out[id] = s.AbsolutePosition(id)
	}
	return out
}
