package scene

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/geo"
)

func TestLookupKind(t *testing.T) {
	tests := []struct {
		tag     string
		want    Kind
		wantErr bool
	}{
		{"", KindShape, false},
		{"shape", KindShape, false},
		{"group", KindGroup, false},
		{"tree-item", KindTreeItem, false},
		{"actor", KindActor, false},
		{"cloud", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			spec, err := LookupKind(tt.tag)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LookupKind(%q) error = %v, wantErr %v", tt.tag, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errors.ErrCodeUnknownKind) {
					t.Errorf("code = %v, want UNKNOWN_KIND", errors.GetCode(err))
				}
				return
			}
			if spec.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", spec.Kind, tt.want)
			}
		})
	}
}

func TestNodeSize(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want geo.Size
	}{
		{"default shape", Node{Kind: KindShape}, geo.Size{Width: 160, Height: 60}},
		{"explicit", Node{Kind: KindShape, Width: 200, Height: 90}, geo.Size{Width: 200, Height: 90}},
		{"below minimum", Node{Kind: KindText, Width: 5, Height: 5}, geo.Size{Width: 20, Height: 10}},
		{"nan width", Node{Kind: KindTreeItem, Width: math.NaN()}, geo.Size{Width: 140, Height: 40}},
		{"unknown kind falls back", Node{Kind: "mystery"}, geo.Size{Width: 160, Height: 60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.Size(); got != tt.want {
				t.Errorf("Size() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNodeSanitize(t *testing.T) {
	n := Node{
		Kind:     KindActor,
		Position: geo.Point{X: math.NaN(), Y: math.Inf(1)},
		Width:    math.Inf(-1),
		Height:   -3,
	}.Sanitize()
	if n.Position != (geo.Point{}) {
		t.Errorf("Position = %v, want origin", n.Position)
	}
	if n.Width != 40 || n.Height != 40 {
		t.Errorf("size = %vx%v, want actor minimum 40x40", n.Width, n.Height)
	}
}

func TestKindAccessors(t *testing.T) {
	item := Node{ID: "t", Kind: KindTreeItem, Data: map[string]any{"label": "Root", "collapsed": true, "side": "left"}}
	if item.Label() != "Root" || !item.Collapsed() || item.Side() != "left" {
		t.Errorf("tree-item accessors = %q %v %q", item.Label(), item.Collapsed(), item.Side())
	}

	shape := Node{ID: "s", Kind: KindShape, Data: map[string]any{"collapsed": true, "side": "left"}}
	if shape.Collapsed() || shape.Side() != "" {
		t.Error("non-hierarchical kinds ignore collapsed/side")
	}
	if shape.Label() != "s" {
		t.Errorf("Label() = %q, want id fallback", shape.Label())
	}

	text := Node{ID: "x", Kind: KindText, Data: map[string]any{"text": "note", "label": "ignored"}}
	if text.Label() != "note" {
		t.Errorf("text Label() = %q, want note", text.Label())
	}
}

func nestedScene() Scene {
	s := New()
	s.PutNode(Node{ID: "outer", Kind: KindGroup, Position: geo.Point{X: 100, Y: 100}})
	s.PutNode(Node{ID: "inner", Kind: KindGroup, Parent: "outer", Position: geo.Point{X: 10, Y: 20}})
	s.PutNode(Node{ID: "a", Kind: KindShape, Parent: "inner", Position: geo.Point{X: 1, Y: 2}})
	s.PutNode(Node{ID: "b", Kind: KindShape, Position: geo.Point{X: 500, Y: 0}})
	s.PutEdge(Edge{ID: "e1", Source: "a", Target: "b"})
	return s
}

func TestAncestorsAndAbsolutePosition(t *testing.T) {
	s := nestedScene()

	anc := s.Ancestors("a")
	if len(anc) != 2 || anc[0] != "inner" || anc[1] != "outer" {
		t.Errorf("Ancestors(a) = %v, want [inner outer]", anc)
	}
	if got := s.AbsolutePosition("a"); got != (geo.Point{X: 111, Y: 122}) {
		t.Errorf("AbsolutePosition(a) = %v, want (111, 122)", got)
	}
	if s.TopLevel("a") != "outer" || s.TopLevel("b") != "b" {
		t.Error("TopLevel mismatch")
	}
	if got := s.Children(""); len(got) != 2 || got[0] != "b" || got[1] != "outer" {
		t.Errorf("Children(\"\") = %v", got)
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		if err := nestedScene().Validate(); err != nil {
			t.Errorf("Validate() = %v", err)
		}
	})

	t.Run("dangling edge", func(t *testing.T) {
		s := nestedScene()
		s.PutEdge(Edge{ID: "e2", Source: "a", Target: "ghost"})
		if err := s.Validate(); !errors.Is(err, errors.ErrCodeDanglingEdge) {
			t.Errorf("Validate() = %v, want DANGLING_EDGE", err)
		}
	})

	t.Run("ancestor edge", func(t *testing.T) {
		s := nestedScene()
		s.PutEdge(Edge{ID: "e2", Source: "outer", Target: "a"})
		if err := s.Validate(); !errors.Is(err, errors.ErrCodeAncestorEdge) {
			t.Errorf("Validate() = %v, want ANCESTOR_EDGE", err)
		}
	})

	t.Run("parent cycle", func(t *testing.T) {
		s := nestedScene()
		outer := s.Nodes["outer"]
		outer.Parent = "inner"
		s.PutNode(outer)
		if err := s.Validate(); !errors.Is(err, errors.ErrCodeParentCycle) {
			t.Errorf("Validate() = %v, want PARENT_CYCLE", err)
		}
	})
}

func TestRemoveNode(t *testing.T) {
	s := nestedScene()
	s.RemoveNode("b")
	if _, ok := s.Edges["e1"]; ok {
		t.Error("edges touching a removed node should be removed")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := New()
	s.PutNode(Node{ID: "a", Data: map[string]any{"label": "A"}})
	c := s.Clone()
	c.Nodes["a"].Data["label"] = "changed"
	if s.Nodes["a"].Data["label"] != "A" {
		t.Error("Clone shares Data maps")
	}
}

func TestSerdeRoundTrip(t *testing.T) {
	s := nestedScene()
	data, err := MarshalScene(s)
	if err != nil {
		t.Fatalf("MarshalScene: %v", err)
	}
	back, err := UnmarshalScene(data)
	if err != nil {
		t.Fatalf("UnmarshalScene: %v", err)
	}
	if len(back.Nodes) != 4 || len(back.Edges) != 1 {
		t.Fatalf("round trip = %d nodes, %d edges", len(back.Nodes), len(back.Edges))
	}
	if back.Nodes["a"].Parent != "inner" {
		t.Errorf("parent lost: %+v", back.Nodes["a"])
	}

	path := filepath.Join(t.TempDir(), "scene.json")
	if err := WriteSceneFile(s, path); err != nil {
		t.Fatalf("WriteSceneFile: %v", err)
	}
	if _, err := ReadSceneFile(path); err != nil {
		t.Errorf("ReadSceneFile: %v", err)
	}
}

func TestReadSceneDefaultsKind(t *testing.T) {
	in := `{"nodes":[{"id":"a","position":{"x":0,"y":0}}],"edges":[]}`
	s, err := ReadScene(bytes.NewBufferString(in))
	if err != nil {
		t.Fatalf("ReadScene: %v", err)
	}
	if s.Nodes["a"].Kind != KindShape {
		t.Errorf("Kind = %q, want shape", s.Nodes["a"].Kind)
	}
}
