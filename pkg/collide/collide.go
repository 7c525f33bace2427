package collide

import (
	"slices"

	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/geo"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

const (
	// slack is added to every push so halving cannot leave a sliver of
	// overlap that takes many passes to close.
	slack = 1e-3
	// tolerance is the overlap below which a pair counts as separated.
	tolerance = 1e-6
)

// Options configures [Resolve].
type Options struct {
	// MaxIterations caps the passes over each sibling set.
	MaxIterations int `toml:"max_iterations" validate:"gte=1,lte=10000"`
	// OverlapThreshold is the penetration, on both axes, a pair may keep.
	OverlapThreshold float64 `toml:"overlap_threshold" validate:"gte=0"`
	// Margin is the clearance kept between siblings.
	Margin float64 `toml:"margin" validate:"gte=0"`
	// Chrome is used to refit containers after their children move.
	Chrome scene.Chrome `toml:"chrome"`
}

// DefaultOptions returns the stock resolver settings.
func DefaultOptions() Options {
	return Options{
		MaxIterations:    50,
		OverlapThreshold: 0,
		Margin:           20,
		Chrome:           scene.Chrome{Padding: 20, Header: 30},
	}
}

// SetDefaults fills a zero iteration budget.
func (o *Options) SetDefaults() {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultOptions().MaxIterations
	}
}

// Result is the resolver's output.
type Result struct {
	Nodes      []scene.Node // id-sorted
	Iterations int          // passes used by the busiest sibling set
	Converged  bool         // every sibling set reached zero displacement
	Warnings   errors.Warnings
}

// Resolve pushes overlapping siblings apart.
//
// Only siblings are compared: nodes sharing a parent, or all top-level
// nodes. Sibling sets inside the deepest containers are settled first, and
// each container is refitted around its settled children before its own
// level is processed, so containment holds throughout.
//
// Within a set, pairs are visited in id order. Boxes are inflated by half
// the margin each; a pair overlapping by more than the threshold on both
// axes is separated along the axis needing the shorter push, each node
// moving half. A pinned node does not move and its partner takes the whole
// push; two pinned nodes are left alone. A set stops as soon as a pass
// moves nothing, or after MaxIterations passes with ITERATION_CAP.
func Resolve(nodes []scene.Node, opt Options) Result {
	opt.SetDefaults()

	s := scene.New()
	for _, n := range nodes {
		if n.ID != "" {
			s.PutNode(n.Clone().Sanitize())
		}
	}

	sets := map[string][]string{}
	for _, id := range s.NodeIDs() {
		p := s.Nodes[id].Parent
		if _, ok := s.Nodes[p]; !ok {
			p = ""
		}
		sets[p] = append(sets[p], id)
	}

	res := Result{Converged: true}
	settle := func(parent string) {
		it, ok := separate(s, sets[parent], opt)
		res.Iterations = max(res.Iterations, it)
		if !ok {
			res.Converged = false
			res.Warnings.Add(errors.ErrCodeIterationCap, parent,
				"overlaps remain after %d iterations", opt.MaxIterations)
		}
	}
	for _, c := range s.ContainersByDepth() {
		if len(sets[c]) == 0 {
			continue
		}
		settle(c)
		s.FitContainer(c, opt.Chrome)
	}
	settle("")

	res.Nodes = s.SortedNodes()
	return res
}

// separate runs passes over one sibling set until nothing moves. It
// reports the passes used and whether the set converged.
func separate(s scene.Scene, ids []string, opt Options) (int, bool) {
	if len(ids) < 2 {
		return 0, true
	}
	ids = slices.Clone(ids)
	slices.Sort(ids)
	half := opt.Margin / 2

	for it := 1; it <= opt.MaxIterations; it++ {
		moved := false
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				a, b := s.Nodes[ids[i]], s.Nodes[ids[j]]
				if a.Pinned && b.Pinned {
					continue
				}
				ba, bb := a.Box().Inflate(half), b.Box().Inflate(half)
				dx, dy := ba.Overlap(bb)
				if dx <= opt.OverlapThreshold+tolerance || dy <= opt.OverlapThreshold+tolerance {
					continue
				}
				push := minimalPush(ba, bb)
				shareA, shareB := 0.5, 0.5
				switch {
				case a.Pinned:
					shareA, shareB = 0, 1
				case b.Pinned:
					shareA, shareB = 1, 0
				}
				a.Position = a.Position.Sub(scale(push, shareA))
				b.Position = b.Position.Add(scale(push, shareB))
				s.Nodes[a.ID] = a
				s.Nodes[b.ID] = b
				moved = true
			}
		}
		if !moved {
			return it, true
		}
	}
	return opt.MaxIterations, false
}

// minimalPush returns the translation that, applied to b (and its
// negation to a), separates the two boxes along the axis needing the
// smaller move. Ties go to the x axis; coincident centres push b right
// or down.
func minimalPush(a, b geo.Box) geo.Point {
	ca, cb := a.Center(), b.Center()

	sepX := a.MaxX() - b.X
	dirX := 1.0
	if cb.X < ca.X {
		sepX = b.MaxX() - a.X
		dirX = -1
	}
	sepY := a.MaxY() - b.Y
	dirY := 1.0
	if cb.Y < ca.Y {
		sepY = b.MaxY() - a.Y
		dirY = -1
	}

	if sepX <= sepY {
		return geo.Point{X: dirX * (sepX + slack)}
	}
	return geo.Point{Y: dirY * (sepY + slack)}
}

func scale(p geo.Point, f float64) geo.Point {
	return geo.Point{X: p.X * f, Y: p.Y * f}
}
