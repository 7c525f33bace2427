package merge

import (
	"encoding/json"
	"reflect"
	"slices"
	"testing"

	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/geo"
	"github.com/matzehuels/diagramflow/pkg/ident"
	"github.com/matzehuels/diagramflow/pkg/layout"
	"github.com/matzehuels/diagramflow/pkg/scene"
	"github.com/matzehuels/diagramflow/pkg/stream"
)

const (
	tok1 = "g0123456789ab"
	tok2 = "gba9876543210"
)

func node(id string) stream.RawNode { return stream.RawNode{ID: id} }

func edge(src, tgt string) stream.RawEdge { return stream.RawEdge{Source: src, Target: tgt} }

func newController() *Controller { return NewController(DefaultOptions(), nil) }

// owned returns the ids in s produced under token.
func owned(s scene.Scene, token string) []string {
	var ids []string
	for _, id := range s.NodeIDs() {
		if ident.Owns(id, token) {
			ids = append(ids, id)
		}
	}
	return ids
}

func topLevelOverlaps(s scene.Scene) int {
	var boxes []geo.Box
	for _, id := range s.NodeIDs() {
		if s.Nodes[id].Parent == "" {
			boxes = append(boxes, s.Nodes[id].Box())
		}
	}
	count := 0
	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			if boxes[i].Intersects(boxes[j]) {
				count++
			}
		}
	}
	return count
}

func mustValid(t *testing.T, s scene.Scene) {
	t.Helper()
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

// checkPorts fails for every edge whose ports disagree with the final
// horizontal order of its endpoints.
func checkPorts(t *testing.T, s scene.Scene) {
	t.Helper()
	for _, e := range s.SortedEdges() {
		sb, tb := s.AbsoluteBox(e.Source), s.AbsoluteBox(e.Target)
		var src, tgt scene.Port
		switch {
		case tb.X >= sb.MaxX():
			src, tgt = scene.PortRight, scene.PortLeft
		case tb.MaxX() <= sb.X:
			src, tgt = scene.PortLeft, scene.PortRight
		default:
			continue
		}
		if e.SourcePort != src || e.TargetPort != tgt {
			t.Errorf("edge %s ports = %s/%s, want %s/%s (source %v, target %v)",
				e.ID, e.SourcePort, e.TargetPort, src, tgt, sb, tb)
		}
	}
}

func TestApplyStreamedChunks(t *testing.T) {
	const payload = `{"nodes":[{"id":"a","label":"A"},{"id":"b","label":"B"},{"id":"c"}],"edges":[{"source":"a","target":"b"}]}`
	chunk1 := `{"nodes":[{"id":"a","label":"A"},{"id":"b"`

	c := newController()
	run := NewRun(tok1, "", layout.Preferences{})

	s, rep := c.Apply(scene.New(), run, FromResult(stream.Extract(chunk1)))
	if n, e := s.Len(); n != 1 || e != 0 {
		t.Fatalf("after chunk 1: %d nodes, %d edges, want 1, 0", n, e)
	}
	if !reflect.DeepEqual(rep.Added, []string{tok1 + "-a"}) {
		t.Errorf("Added = %v", rep.Added)
	}
	if rep.Settled {
		t.Error("Settled = true before the payload completed")
	}

	s, rep = c.Apply(s, run, FromResult(stream.Extract(payload)))
	if n, e := s.Len(); n != 3 || e != 1 {
		t.Fatalf("after chunk 2: %d nodes, %d edges, want 3, 1", n, e)
	}
	if !reflect.DeepEqual(rep.Added, []string{tok1 + "-b", tok1 + "-c"}) {
		t.Errorf("Added = %v", rep.Added)
	}
	if !reflect.DeepEqual(rep.Updated, []string{tok1 + "-a"}) {
		t.Errorf("Updated = %v", rep.Updated)
	}
	if !rep.Settled || !rep.LaidOut {
		t.Errorf("Settled/LaidOut = %v/%v, want true/true", rep.Settled, rep.LaidOut)
	}
	e, ok := s.Edges[tok1+"-e-a-b"]
	if !ok {
		t.Fatalf("edges = %v, want synthesized id %s", s.SortedEdges(), tok1+"-e-a-b")
	}
	if e.Source != tok1+"-a" || e.Target != tok1+"-b" {
		t.Errorf("edge endpoints = %s -> %s", e.Source, e.Target)
	}
	if s.Nodes[tok1+"-a"].Label() != "A" {
		t.Errorf("label = %q, want A", s.Nodes[tok1+"-a"].Label())
	}
	if n := topLevelOverlaps(s); n != 0 {
		t.Errorf("overlapping nodes = %d", n)
	}
	mustValid(t, s)
}

func TestApplyGroups(t *testing.T) {
	c := newController()
	run := NewRun(tok1, "", layout.Preferences{})
	b := Batch{
		Nodes:  []stream.RawNode{node("a"), node("b"), node("c")},
		Edges:  []stream.RawEdge{edge("a", "c")},
		Groups: []stream.RawGroup{{ID: "g", Label: "Backend", Members: []string{"a", "b", "ghost"}}},
		Final:  true,
	}
	s, rep := c.Apply(scene.New(), run, b)
	mustValid(t, s)

	g, ok := s.Nodes[tok1+"-g"]
	if !ok || g.Kind != scene.KindGroup {
		t.Fatalf("container = %+v, %v", g, ok)
	}
	if g.Label() != "Backend" {
		t.Errorf("container label = %q", g.Label())
	}
	frame := geo.Box{Width: g.Size().Width, Height: g.Size().Height}
	for _, id := range []string{tok1 + "-a", tok1 + "-b"} {
		n := s.Nodes[id]
		if n.Parent != g.ID || n.Extent != scene.ExtentParent {
			t.Errorf("%s parent/extent = %q/%q", id, n.Parent, n.Extent)
		}
		if !frame.Contains(n.Box(), 1e-6) {
			t.Errorf("%s %v escapes %v", id, n.Box(), frame)
		}
	}
	if p := s.Nodes[tok1+"-c"].Parent; p != "" {
		t.Errorf("ungrouped node has parent %q", p)
	}
	if !slices.Contains(run.NodeIDs(), g.ID) {
		t.Error("run does not own its container")
	}
	if n := topLevelOverlaps(s); n != 0 {
		t.Errorf("overlapping top-level nodes = %d", n)
	}
	if !rep.Converged {
		t.Errorf("Converged = false, warnings %v", rep.Warnings)
	}
}

func TestApplyPortsFollowFinalGeometry(t *testing.T) {
	c := newController()
	run := NewRun(tok1, "", layout.Preferences{})
	s, _ := c.Apply(scene.New(), run, Batch{
		Nodes:  []stream.RawNode{node("a"), node("b"), node("c")},
		Edges:  []stream.RawEdge{edge("b", "a"), edge("a", "c")},
		Groups: []stream.RawGroup{{ID: "g", Members: []string{"b", "c"}}},
		Final:  true,
	})
	mustValid(t, s)
	if n, e := s.Len(); n != 4 || e != 2 {
		t.Fatalf("%d nodes, %d edges, want 4 and 2", n, e)
	}
	checkPorts(t, s)
}

func TestApplyExplicitPortsSurviveRelayout(t *testing.T) {
	c := newController()
	run := NewRun(tok1, "", layout.Preferences{})
	pinned := stream.RawEdge{Source: "a", Target: "b", SourcePort: "bottom"}
	s, _ := c.Apply(scene.New(), run, Batch{
		Nodes:  []stream.RawNode{node("a"), node("b")},
		Edges:  []stream.RawEdge{pinned},
		Layout: true,
	})
	s, _ = c.Apply(s, run, Batch{
		Nodes: []stream.RawNode{node("a"), node("b"), node("c")},
		Edges: []stream.RawEdge{edge("a", "b"), edge("c", "a")},
		Final: true,
	})
	e := s.Edges[tok1+"-e-a-b"]
	if e.SourcePort != scene.PortBottom {
		t.Errorf("SourcePort = %s, want the producer's bottom", e.SourcePort)
	}
	if e.TargetPort == scene.PortNone {
		t.Error("TargetPort left unset")
	}
}

func TestApplyStreamedMatchesOneShot(t *testing.T) {
	final := Batch{
		Nodes: []stream.RawNode{node("z"), node("y"), node("a")},
		Edges: []stream.RawEdge{edge("z", "y"), edge("y", "z"), edge("a", "y")},
		Final: true,
	}

	c := newController()
	run := NewRun(tok1, "", layout.Preferences{})
	streamed, _ := c.Apply(scene.New(), run, Batch{
		Nodes:  []stream.RawNode{node("z"), node("y")},
		Edges:  []stream.RawEdge{edge("z", "y")},
		Layout: true,
	})
	streamed, _ = c.Apply(streamed, run, final)

	oneShot, _ := newController().Apply(scene.New(), NewRun(tok1, "", layout.Preferences{}), final)

	if !reflect.DeepEqual(streamed.NodeIDs(), oneShot.NodeIDs()) {
		t.Fatalf("nodes = %v, want %v", streamed.NodeIDs(), oneShot.NodeIDs())
	}
	for _, id := range oneShot.NodeIDs() {
		if got, want := streamed.Nodes[id].Position, oneShot.Nodes[id].Position; got != want {
			t.Errorf("%s position = %v, want %v", id, got, want)
		}
	}
	for _, want := range oneShot.SortedEdges() {
		got, ok := streamed.Edges[want.ID]
		if !ok {
			t.Errorf("edge %s missing from streamed run", want.ID)
			continue
		}
		if got.SourcePort != want.SourcePort || got.TargetPort != want.TargetPort {
			t.Errorf("edge %s ports = %s/%s, want %s/%s", want.ID, got.SourcePort, got.TargetPort, want.SourcePort, want.TargetPort)
		}
	}
	checkPorts(t, streamed)
}

func TestApplyCollapsedSubtreeKeepsPlace(t *testing.T) {
	c := newController()
	run := NewRun(tok1, "", layout.Preferences{})
	at := []geo.Point{{X: 40, Y: 0}, {X: 40, Y: 10}}
	s, rep := c.Apply(scene.New(), run, Batch{
		Nodes: []stream.RawNode{
			{ID: "root", Kind: "tree-item"},
			{ID: "hub", Kind: "tree-item", Data: map[string]any{"collapsed": true}},
			{ID: "l1", Kind: "tree-item", Position: &at[0]},
			{ID: "l2", Kind: "tree-item", Position: &at[1]},
		},
		Edges: []stream.RawEdge{edge("root", "hub"), edge("hub", "l1"), edge("hub", "l2")},
		Final: true,
	})
	mustValid(t, s)

	want := []string{tok1 + "-l1", tok1 + "-l2"}
	if !reflect.DeepEqual(rep.Hidden, want) {
		t.Errorf("Hidden = %v, want %v", rep.Hidden, want)
	}
	for i, id := range want {
		if p := s.Nodes[id].Position; p != at[i] {
			t.Errorf("%s moved to %v, want %v", id, p, at[i])
		}
	}
	if rep.Choice.Algorithm != layout.AlgorithmTree {
		t.Errorf("Algorithm = %s, want tree", rep.Choice.Algorithm)
	}
}

func TestApplyTwoRunsStayApart(t *testing.T) {
	c := newController()
	b := Batch{
		Nodes: []stream.RawNode{node("a"), node("b")},
		Edges: []stream.RawEdge{edge("a", "b")},
		Final: true,
	}
	s, _ := c.Apply(scene.New(), NewRun(tok1, "", layout.Preferences{}), b)
	s, _ = c.Apply(s, NewRun(tok2, "", layout.Preferences{}), b)
	mustValid(t, s)

	if n, e := s.Len(); n != 4 || e != 2 {
		t.Fatalf("scene has %d nodes, %d edges, want 4, 2", n, e)
	}
	first, _ := s.Bounds(owned(s, tok1))
	second, _ := s.Bounds(owned(s, tok2))
	if second.X <= first.MaxX() {
		t.Errorf("second run %v not right of first %v", second, first)
	}
}

func TestApplyReplaces(t *testing.T) {
	c := newController()
	s, _ := c.Apply(scene.New(), NewRun(tok1, "", layout.Preferences{}), Batch{
		Nodes: []stream.RawNode{node("a"), node("b")},
		Edges: []stream.RawEdge{edge("a", "b")},
		Final: true,
	})

	run := NewRun(tok2, "", layout.Preferences{})
	run.Replaces = tok1
	s, rep := c.Apply(s, run, Batch{Nodes: []stream.RawNode{node("x")}, Final: true})
	mustValid(t, s)

	if got := owned(s, tok1); len(got) != 0 {
		t.Errorf("replaced content survived: %v", got)
	}
	if len(rep.Removed) != 2 {
		t.Errorf("Removed = %v, want 2 ids", rep.Removed)
	}
	if n, e := s.Len(); n != 1 || e != 0 {
		t.Errorf("scene has %d nodes, %d edges, want 1, 0", n, e)
	}
}

func TestApplyRefineKeepsAnchor(t *testing.T) {
	prev := scene.New()
	prev.PutNode(scene.Node{ID: "hub", Kind: scene.KindShape, Position: geo.Point{X: 500, Y: 300}})
	prev.PutNode(scene.Node{ID: "other", Kind: scene.KindShape, Position: geo.Point{X: 0, Y: 0}})

	c := newController()
	run := NewRun(tok1, "hub", layout.Preferences{})
	s, rep := c.Apply(prev, run, Batch{
		Nodes: []stream.RawNode{{ID: "hub", Data: map[string]any{"label": "Hub"}}, node("c1"), node("c2")},
		Edges: []stream.RawEdge{edge("hub", "c1"), edge("hub", "c2")},
		Final: true,
	})
	mustValid(t, s)

	if p := s.AbsolutePosition("hub"); p != (geo.Point{X: 500, Y: 300}) {
		t.Errorf("anchor moved to %v", p)
	}
	if p := s.AbsolutePosition("other"); p != (geo.Point{}) {
		t.Errorf("foreign node moved to %v", p)
	}
	if s.Nodes["hub"].Label() != "Hub" {
		t.Errorf("anchor data not merged: %v", s.Nodes["hub"].Data)
	}
	for _, raw := range []string{"c1", "c2"} {
		e, ok := s.Edges[tok1+"-e-hub-"+raw]
		if !ok {
			t.Fatalf("missing edge to %s; edges %v", raw, s.SortedEdges())
		}
		if e.Source != "hub" || e.Target != tok1+"-"+raw {
			t.Errorf("edge = %s -> %s", e.Source, e.Target)
		}
	}
	if slices.Contains(run.NodeIDs(), "hub") {
		t.Error("run claims the anchor")
	}
	if len(rep.Warnings) != 0 {
		t.Errorf("Warnings = %v", rep.Warnings)
	}
	if n := topLevelOverlaps(s); n != 0 {
		t.Errorf("overlapping nodes = %d", n)
	}
}

func TestApplyThrottledPlaceholders(t *testing.T) {
	c := newController()
	run := NewRun(tok1, "", layout.Preferences{})

	s, rep := c.Apply(scene.New(), run, Batch{Nodes: []stream.RawNode{node("a"), node("b")}})
	if rep.LaidOut {
		t.Error("throttled batch ran the layout pass")
	}
	want := []string{tok1 + "-a", tok1 + "-b"}
	if !reflect.DeepEqual(rep.Placeholders, want) {
		t.Errorf("Placeholders = %v, want %v", rep.Placeholders, want)
	}
	if n := topLevelOverlaps(s); n != 0 {
		t.Errorf("placeholders overlap: %d", n)
	}

	s, rep = c.Apply(s, run, Batch{Nodes: []stream.RawNode{node("a"), node("b"), node("c")}})
	if len(rep.Placeholders) != 3 {
		t.Errorf("Placeholders = %v, want 3", rep.Placeholders)
	}
	if pc, pa := s.Nodes[tok1+"-c"].Position, s.Nodes[tok1+"-a"].Position; pc.Y <= pa.Y {
		t.Errorf("new placeholder %v not below earlier content %v", pc, pa)
	}

	s, rep = c.Apply(s, run, Batch{Nodes: []stream.RawNode{node("a"), node("b"), node("c")}, Final: true})
	if len(rep.Placeholders) != 0 || len(run.Placeholders()) != 0 {
		t.Errorf("placeholders survived the final pass: %v", rep.Placeholders)
	}
	mustValid(t, s)
}

func TestApplyWarnings(t *testing.T) {
	c := newController()
	run := NewRun(tok1, "", layout.Preferences{})
	s, rep := c.Apply(scene.New(), run, Batch{
		Nodes: []stream.RawNode{
			node(""),
			{ID: "odd", Kind: "hexagon"},
			{ID: "box", Kind: "group"},
			{ID: "a", Parent: "box"},
		},
		Edges: []stream.RawEdge{edge("a", "nowhere"), edge("a", "box"), {Source: "a"}},
		Final: true,
	})
	mustValid(t, s)

	for _, code := range []errors.Code{
		errors.ErrCodeMissingID,
		errors.ErrCodeUnknownKind,
		errors.ErrCodeDanglingEdge,
		errors.ErrCodeAncestorEdge,
	} {
		if !rep.Warnings.Has(code) {
			t.Errorf("Warnings = %v, missing %s", rep.Warnings, code)
		}
	}
	if rep.Warnings.Count(errors.ErrCodeMissingID) != 2 {
		t.Errorf("MISSING_ID count = %d, want 2", rep.Warnings.Count(errors.ErrCodeMissingID))
	}
	if _, ok := s.Nodes[tok1+"-odd"]; ok {
		t.Error("unknown kind was ingested")
	}
	if len(s.Edges) != 0 {
		t.Errorf("edges = %v, want none", s.SortedEdges())
	}
	if p := s.Nodes[tok1+"-a"].Parent; p != tok1+"-box" {
		t.Errorf("parent hint not honoured: %q", p)
	}
}

func TestApplyParentCycle(t *testing.T) {
	c := newController()
	run := NewRun(tok1, "", layout.Preferences{})
	s, rep := c.Apply(scene.New(), run, Batch{
		Nodes: []stream.RawNode{
			{ID: "x", Kind: "group", Parent: "y"},
			{ID: "y", Kind: "group", Parent: "x"},
		},
		Final: true,
	})
	mustValid(t, s)
	if !rep.Warnings.Has(errors.ErrCodeParentCycle) {
		t.Errorf("Warnings = %v, want PARENT_CYCLE", rep.Warnings)
	}
}

func TestRunStateRoundTrip(t *testing.T) {
	c := newController()
	run := NewRun(tok1, "", layout.Preferences{Direction: layout.DirectionTB})
	s, _ := c.Apply(scene.New(), run, Batch{
		Nodes:  []stream.RawNode{node("a"), node("b")},
		Groups: []stream.RawGroup{{ID: "g", Members: []string{"a"}}},
		Layout: true,
	})

	data, err := json.Marshal(run.State())
	if err != nil {
		t.Fatal(err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatal(err)
	}
	restored := RestoreRun(st)
	if !reflect.DeepEqual(restored.State(), run.State()) {
		t.Errorf("restored state differs:\n%+v\n%+v", restored.State(), run.State())
	}

	s, rep := c.Apply(s, restored, Batch{
		Nodes:  []stream.RawNode{node("a"), node("b"), node("c")},
		Groups: []stream.RawGroup{{ID: "g", Members: []string{"a"}}},
		Final:  true,
	})
	mustValid(t, s)
	if !reflect.DeepEqual(rep.Added, []string{tok1 + "-c"}) {
		t.Errorf("Added = %v, want only the new node", rep.Added)
	}
	if len(rep.Removed) != 0 {
		t.Errorf("restored run cleared its own content: %v", rep.Removed)
	}
	if n, _ := s.Len(); n != 4 {
		t.Errorf("nodes = %v, want a, b, c and the container", s.NodeIDs())
	}
}

func TestApplyDeterministic(t *testing.T) {
	b := Batch{
		Nodes:  []stream.RawNode{node("d"), node("a"), node("c"), node("b"), node("e")},
		Edges:  []stream.RawEdge{edge("a", "b"), edge("a", "c"), edge("c", "d"), edge("b", "e")},
		Groups: []stream.RawGroup{{ID: "g", Members: []string{"c", "d"}}},
		Final:  true,
	}
	first, _ := newController().Apply(scene.New(), NewRun(tok1, "", layout.Preferences{}), b)
	for range 3 {
		again, _ := newController().Apply(scene.New(), NewRun(tok1, "", layout.Preferences{}), b)
		if !reflect.DeepEqual(first, again) {
			t.Fatal("Apply is not deterministic")
		}
	}
}

func TestApplyDoesNotModifyPrev(t *testing.T) {
	prev := scene.New()
	prev.PutNode(scene.Node{ID: "keep", Kind: scene.KindShape})
	snapshot := prev.Clone()

	newController().Apply(prev, NewRun(tok1, "", layout.Preferences{}), Batch{
		Nodes: []stream.RawNode{node("a")},
		Final: true,
	})
	if !reflect.DeepEqual(prev, snapshot) {
		t.Error("Apply modified its input scene")
	}
}
