// Package dag provides a layered directed graph for Sugiyama-style diagram
// layout.
//
// # Overview
//
// The layered layout engine converts a scene's nodes and edges into a [DAG],
// runs the [transform] pipeline over it (cycle breaking, layer assignment,
// long-edge splitting, crossing reduction) and reads positions back out of
// the ordered layers.
//
// Unlike a plain adjacency map, a DAG remembers insertion order. [DAG.Nodes],
// [DAG.Sources] and the initial order of every layer follow the order in
// which nodes were added, so a caller that adds nodes sorted by id gets the
// same layout on every run.
//
// # Basic Usage
//
//	g := dag.New()
//	g.AddNode(dag.Node{ID: "api", Width: 160, Height: 60})
//	g.AddNode(dag.Node{ID: "db", Width: 160, Height: 60})
//	g.AddEdge(dag.Edge{From: "api", To: "db", ID: "e-api-db"})
//
// Query the structure with [DAG.Children], [DAG.Parents] and
// [DAG.NodesInLayer]. [DAG.Validate] checks that every edge joins
// consecutive layers and that no cycle remains.
//
// # Node Types
//
//   - [NodeKindRegular]: a node of the scene being laid out
//   - [NodeKindDummy]: a zero-sized waypoint splitting a long edge
//
// Dummies record the scene edge they belong to in [Node.Origin]; their
// final coordinates become the edge's routing hints.
//
// # Edge Crossings
//
// [CountCrossings] and [CountLayerCrossings] use a Fenwick tree to count
// inversions in O(E log V) time. Ordering heuristics evaluate every sweep
// with them and keep the best ordering seen.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use.
//
// [transform]: github.com/matzehuels/diagramflow/pkg/dag/transform
package dag
