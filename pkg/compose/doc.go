// Package compose builds compound scenes: containers around grouped nodes.
//
// The executor places every node flat, in absolute coordinates. [Compose]
// then wraps each group's members in a container node sized to their
// bounding box plus [scene.Chrome], working bottom-up so nested groups are
// finished before the group that holds them. Nesting order comes from a
// gonum stabilised topological sort of the group graph; cycles in that
// graph are found with Tarjan's algorithm and broken.
//
// With containers in place, the top level is laid out a second time so
// containers are spaced like any other node. Edges that cross a container
// boundary are lifted to the outermost containers for that pass. Every
// member ends up with a position relative to its container and the
// "parent" extent.
package compose
