package layout

import "github.com/matzehuels/diagramflow/pkg/scene"

// Select picks an algorithm, direction and spacing for a set of nodes.
//
// Heuristics, in priority order:
//
//  1. every node is a tree-item (or the caller asked for a mind map): tree
//  2. at least DenseNodes nodes or DenseEdges edges: dense, spacing scaled
//     by DenseFactor
//  3. group members present: spacing widened by GroupSpacingX/Y
//  4. direction LR unless the caller prefers TB, or the content is a
//     flow/process/sequence diagram (diagram type hint or any actor node)
//
// A preferred algorithm overrides step 1. Select is a pure function: no
// randomness, no clock, no I/O.
func Select(nodes []scene.Node, edges []scene.Edge, memberIDs []string, prefs Preferences, t Tuning) Choice {
	t.SetDefaults()
	c := Choice{
		Algorithm: AlgorithmLayered,
		Direction: DirectionLR,
		SpacingX:  t.SpacingX,
		SpacingY:  t.SpacingY,
	}

	switch {
	case prefs.Algorithm != "":
		c.Algorithm = prefs.Algorithm
	case prefs.Tree || allTreeItems(nodes):
		c.Algorithm = AlgorithmTree
	}

	if len(nodes) >= t.DenseNodes || len(edges) >= t.DenseEdges {
		c.Dense = true
		c.SpacingX *= t.DenseFactor
		c.SpacingY *= t.DenseFactor
	}

	if len(memberIDs) > 0 {
		c.Grouped = true
		c.SpacingX += t.GroupSpacingX
		c.SpacingY += t.GroupSpacingY
	}

	if prefs.Direction == DirectionTB || t.isFlow(prefs.DiagramType) || hasActor(nodes) {
		c.Direction = DirectionTB
	}
	return c
}

func allTreeItems(nodes []scene.Node) bool {
	if len(nodes) == 0 {
		return false
	}
	for _, n := range nodes {
		if n.Kind != scene.KindTreeItem {
			return false
		}
	}
	return true
}

func hasActor(nodes []scene.Node) bool {
	for _, n := range nodes {
		if n.Kind == scene.KindActor {
			return true
		}
	}
	return false
}
