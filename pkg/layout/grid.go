package layout

import (
	"math"

	"github.com/matzehuels/diagramflow/pkg/geo"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

// Grid places nodes in id order on a near-square grid of uniform cells.
// It ignores edges. The executor also uses it for nodes other engines
// leave unplaced.
type Grid struct{}

// Place implements Engine.
func (Grid) Place(nodes []scene.Node, _ []scene.Edge, c Choice) (Placement, error) {
	return Placement{Positions: GridPositions(nodes, geo.Point{}, c.SpacingX, c.SpacingY)}, nil
}

// GridPositions lays nodes out row by row starting at origin. Cells are as
// large as the largest node so no two nodes can overlap.
func GridPositions(nodes []scene.Node, origin geo.Point, gapX, gapY float64) map[string]geo.Point {
	out := make(map[string]geo.Point, len(nodes))
	if len(nodes) == 0 {
		return out
	}
	cols := int(math.Ceil(math.Sqrt(float64(len(nodes)))))
	var cellW, cellH float64
	for _, n := range nodes {
		s := n.Size()
		cellW = math.Max(cellW, s.Width)
		cellH = math.Max(cellH, s.Height)
	}
	for i, n := range nodes {
		col, row := i%cols, i/cols
		out[n.ID] = geo.Point{
			X: origin.X + float64(col)*(cellW+gapX),
			Y: origin.Y + float64(row)*(cellH+gapY),
		}
	}
	return out
}
