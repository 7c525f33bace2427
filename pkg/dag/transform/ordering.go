package transform

import (
	"cmp"
	"slices"

	"github.com/matzehuels/diagramflow/pkg/dag"
)

// DefaultSweeps is the number of down+up barycenter passes OrderLayers runs
// when called with sweeps <= 0.
const DefaultSweeps = 8

// OrderLayers reduces edge crossings by reordering nodes within each layer.
//
// Each sweep moves every node to the barycenter (mean position) of its
// neighbours in the adjacent layer: first top-down using parents, then
// bottom-up using children. Nodes without neighbours keep their current
// position as their barycenter, and ties keep the current relative order,
// so the result depends only on the starting order.
//
// The ordering with the fewest crossings across all sweeps is kept, then a
// transposition pass swaps adjacent neighbours while that strictly lowers
// the crossing count. The final order is written back into g and the
// remaining crossing count is returned.
func OrderLayers(g *dag.DAG, sweeps int) int {
	if sweeps <= 0 {
		sweeps = DefaultSweeps
	}
	layers := g.LayerIDs()
	if len(layers) < 2 {
		return 0
	}

	orders := g.Orders()
	best := cloneOrders(orders)
	bestCross := dag.CountCrossings(g, orders)

	for i := 0; i < sweeps && bestCross > 0; i++ {
		for j := 1; j < len(layers); j++ {
			l := layers[j]
			orders[l] = byBarycenter(orders[l], orders[layers[j-1]], g.Parents)
		}
		for j := len(layers) - 2; j >= 0; j-- {
			l := layers[j]
			orders[l] = byBarycenter(orders[l], orders[layers[j+1]], g.Children)
		}
		if c := dag.CountCrossings(g, orders); c < bestCross {
			best, bestCross = cloneOrders(orders), c
		}
	}

	bestCross -= transpose(g, layers, best)

	for l, ids := range best {
		g.SetLayerOrder(l, ids)
	}
	return bestCross
}

func byBarycenter(layer, adjacent []string, neighbours func(string) []string) []string {
	adjPos := dag.PosMap(adjacent)
	type keyed struct {
		id   string
		bary float64
	}
	ks := make([]keyed, len(layer))
	for i, id := range layer {
		sum, n := 0.0, 0
		for _, nb := range neighbours(id) {
			if p, ok := adjPos[nb]; ok {
				sum += float64(p)
				n++
			}
		}
		bary := float64(i)
		if n > 0 {
			bary = sum / float64(n)
		}
		ks[i] = keyed{id, bary}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int { return cmp.Compare(a.bary, b.bary) })
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = k.id
	}
	return out
}

// transpose swaps adjacent nodes while doing so strictly reduces crossings
// against both neighbouring layers. It returns the number of crossings
// removed.
func transpose(g *dag.DAG, layers []int, orders map[int][]string) int {
	removed := 0
	for improved, rounds := true, 0; improved && rounds < 4*len(layers); rounds++ {
		improved = false
		for j, l := range layers {
			row := orders[l]
			var above, below map[string]int
			if j > 0 {
				above = dag.PosMap(orders[layers[j-1]])
			}
			if j < len(layers)-1 {
				below = dag.PosMap(orders[layers[j+1]])
			}
			for i := 0; i+1 < len(row); i++ {
				a, b := row[i], row[i+1]
				cur := dag.CountPairCrossingsWithPos(g, a, b, above, true) + dag.CountPairCrossingsWithPos(g, a, b, below, false)
				swp := dag.CountPairCrossingsWithPos(g, b, a, above, true) + dag.CountPairCrossingsWithPos(g, b, a, below, false)
				if swp < cur {
					row[i], row[i+1] = b, a
					removed += cur - swp
					improved = true
				}
			}
		}
	}
	return removed
}

func cloneOrders(o map[int][]string) map[int][]string {
	out := make(map[int][]string, len(o))
	for l, ids := range o {
		out[l] = slices.Clone(ids)
	}
	return out
}
