// Package geo provides the small amount of planar geometry the layout
// engine needs: points, sizes, axis-aligned boxes and overlap math.
//
// All coordinates are scene units with the origin at the top-left and y
// growing downward. Values produced upstream may be NaN or infinite; use
// [Finite] and [Point.Sanitize] to replace them before doing arithmetic.
package geo

import (
	"fmt"
	"math"
)

// Point is a position in scene units.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point { return Point{X: p.X + d.X, Y: p.Y + d.Y} }

// Sub returns p - o.
func (p Point) Sub(o Point) Point { return Point{X: p.X - o.X, Y: p.Y - o.Y} }

// Sanitize replaces non-finite components with 0.
func (p Point) Sanitize() Point {
	return Point{X: Finite(p.X, 0), Y: Finite(p.Y, 0)}
}

func (p Point) String() string { return fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y) }

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// Box is an axis-aligned rectangle anchored at its top-left corner.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NewBox builds a box from a top-left point and a size.
func NewBox(tl Point, s Size) Box {
	return Box{X: tl.X, Y: tl.Y, Width: s.Width, Height: s.Height}
}

// TopLeft returns the anchor corner.
func (b Box) TopLeft() Point { return Point{X: b.X, Y: b.Y} }

// MaxX is the right edge.
func (b Box) MaxX() float64 { return b.X + b.Width }

// MaxY is the bottom edge.
func (b Box) MaxY() float64 { return b.Y + b.Height }

// Center returns the midpoint.
func (b Box) Center() Point { return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2} }

// Size returns the box dimensions.
func (b Box) Size() Size { return Size{Width: b.Width, Height: b.Height} }

// Inflate grows the box by d on every side. Negative d shrinks it.
func (b Box) Inflate(d float64) Box {
	return Box{X: b.X - d, Y: b.Y - d, Width: b.Width + 2*d, Height: b.Height + 2*d}
}

// Translate moves the box by d.
func (b Box) Translate(d Point) Box {
	b.X += d.X
	b.Y += d.Y
	return b
}

// Overlap returns the penetration depth of b and o along each axis.
// A non-positive value on either axis means the boxes do not intersect.
func (b Box) Overlap(o Box) (dx, dy float64) {
	dx = math.Min(b.MaxX(), o.MaxX()) - math.Max(b.X, o.X)
	dy = math.Min(b.MaxY(), o.MaxY()) - math.Max(b.Y, o.Y)
	return dx, dy
}

// Intersects reports whether b and o share a region of positive area.
func (b Box) Intersects(o Box) bool {
	dx, dy := b.Overlap(o)
	return dx > 0 && dy > 0
}

// Union returns the smallest box containing both b and o.
func (b Box) Union(o Box) Box {
	minX := math.Min(b.X, o.X)
	minY := math.Min(b.Y, o.Y)
	maxX := math.Max(b.MaxX(), o.MaxX())
	maxY := math.Max(b.MaxY(), o.MaxY())
	return Box{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Contains reports whether o lies within b, allowing tol of slack on each edge.
func (b Box) Contains(o Box, tol float64) bool {
	return o.X >= b.X-tol && o.Y >= b.Y-tol &&
		o.MaxX() <= b.MaxX()+tol && o.MaxY() <= b.MaxY()+tol
}

func (b Box) String() string {
	return fmt.Sprintf("{%.1f, %.1f, %.1fx%.1f}", b.X, b.Y, b.Width, b.Height)
}

// Bounds returns the union of all boxes and false when boxes is empty.
func Bounds(boxes []Box) (Box, bool) {
	if len(boxes) == 0 {
		return Box{}, false
	}
	out := boxes[0]
	for _, b := range boxes[1:] {
		out = out.Union(b)
	}
	return out, true
}

// Finite returns v, or fallback when v is NaN or infinite.
func Finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
