// Package transform provides the graph transformations of the layered
// (Sugiyama) layout.
//
// # Overview
//
// A scene graph rarely arrives in a shape a layered drawing can use
// directly. This package turns an arbitrary directed graph into ordered
// layers where:
//
//   - No cycles remain (some edges are drawn reversed)
//   - Every node sits in a layer after all of its parents
//   - Edges connect only consecutive layers (long edges get dummy nodes)
//   - Nodes within a layer are ordered to reduce edge crossings
//
// [Normalize] applies the complete pipeline in the correct order.
//
// # Cycle Breaking
//
// [BreakCycles] reverses the back edges of a depth-first search started
// from sources in insertion order. Reversed edges keep their id and a flag
// so they can be routed in their original direction.
//
// # Layer Assignment
//
// [AssignLayers] uses gonum's stabilised topological sort and assigns each
// node one plus the maximum layer of its parents (longest path).
//
// # Dummy Nodes
//
// [InsertDummies] replaces an edge spanning k layers with k-1 zero-sized
// dummies. Their final coordinates are the edge's waypoints.
//
//	Before: api (layer 0) → db (layer 3)
//	After:  api → ~e1~1 → ~e1~2 → db
//
// # Crossing Reduction
//
// [OrderLayers] runs alternating barycenter sweeps, keeps the best ordering
// found, then applies adjacent transpositions.
//
// # Usage
//
//	stats, err := transform.Normalize(g, transform.DefaultSweeps)
//
// For fine-grained control, apply transformations individually:
//
//	transform.BreakCycles(g)
//	transform.AssignLayers(g)
//	transform.InsertDummies(g)
//	transform.OrderLayers(g, 4)
package transform
