package scene

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/diagramflow/pkg/geo"
)

// Chrome is the space a container reserves around its children: Padding
// on every side plus a Header band above the content for the label.
type Chrome struct {
	Padding float64 `json:"padding" toml:"padding" validate:"gte=0"`
	Header  float64 `json:"header" toml:"header" validate:"gte=0"`
}

// Outer returns the container box that wraps content with the chrome.
func (c Chrome) Outer(content geo.Box) geo.Box {
	return geo.Box{
		X:      content.X - c.Padding,
		Y:      content.Y - c.Padding - c.Header,
		Width:  content.Width + 2*c.Padding,
		Height: content.Height + 2*c.Padding + c.Header,
	}
}

// FitContainer resizes container id to wrap its children and centres them
// inside it. Children keep their absolute positions: the container moves
// instead, which changes its position relative to its own parent. When the
// kind's minimum size exceeds what the children need, the spare room is
// split evenly around them.
//
// It reports false when id is not a container with children.
func (s Scene) FitContainer(id string, ch Chrome) bool {
	c, ok := s.Nodes[id]
	if !ok || !c.IsContainer() {
		return false
	}
	kids := s.Children(id)
	if len(kids) == 0 {
		return false
	}
	boxes := make([]geo.Box, len(kids))
	for i, k := range kids {
		boxes[i] = s.Nodes[k].Box()
	}
	bb, _ := geo.Bounds(boxes)

	need := ch.Outer(bb)
	minSize := c.Spec().MinSize
	w := math.Max(need.Width, minSize.Width)
	h := math.Max(need.Height, minSize.Height)

	// where the children's bounding box lands inside the container
	at := geo.Point{
		X: ch.Padding + (w-need.Width)/2,
		Y: ch.Padding + ch.Header + (h-need.Height)/2,
	}
	shift := at.Sub(bb.TopLeft())

	c.Position = c.Position.Sub(shift)
	c.Width, c.Height = w, h
	s.Nodes[id] = c
	for _, k := range kids {
		n := s.Nodes[k]
		n.Position = n.Position.Add(shift)
		s.Nodes[k] = n
	}
	return true
}

// ContainersByDepth returns the ids of container nodes that have children,
// deepest first, ties broken by id.
func (s Scene) ContainersByDepth() []string {
	hasKids := map[string]bool{}
	for _, n := range s.Nodes {
		if n.Parent != "" {
			hasKids[n.Parent] = true
		}
	}
	var ids []string
	depth := map[string]int{}
	for id := range hasKids {
		if n, ok := s.Nodes[id]; ok && n.IsContainer() {
			ids = append(ids, id)
			depth[id] = s.Depth(id)
		}
	}
	slices.SortFunc(ids, func(a, b string) int {
		if c := cmp.Compare(depth[b], depth[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return ids
}

// FitAll fits every container deepest first so each parent sees its
// children's final boxes.
func (s Scene) FitAll(ch Chrome) {
	for _, id := range s.ContainersByDepth() {
		s.FitContainer(id, ch)
	}
}
