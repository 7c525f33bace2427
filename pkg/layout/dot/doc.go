// Package dot adapts Graphviz to the layout executor.
//
// The engine writes the nodes as fixed-size boxes in DOT source, lets
// [github.com/goccy/go-graphviz] run dot in-process and reads the attributed
// DOT it renders back: node pos attributes become top-left positions, edge
// polylines become waypoints. Graphviz measures y upwards, so coordinates
// are flipped against the graph bounding box.
//
// The engine is not registered by default:
//
//	x := layout.NewExecutor(tuning)
//	dot.Register(x)
//
// Any error (Graphviz failing to initialise, unparseable output) makes the
// executor fall back to its layered engine.
package dot
