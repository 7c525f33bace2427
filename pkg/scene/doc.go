// Package scene defines the diagram data model shared by every engine stage.
//
// # Overview
//
// A [Scene] maps node ids to [Node] values and edge ids to [Edge] values.
// Nodes carry a shared header (id, kind, top-left position, optional size,
// weak parent reference, extent marker) and an opaque Data payload that the
// engine passes through untouched, apart from the handful of keys a kind
// declares in its [KindSpec].
//
// # Kinds
//
// Kinds form a closed set resolved through a strict dispatch table:
//
//	kind       default    min      container
//	shape      160x60     40x20    no
//	group      240x160    80x60    yes
//	tree-item  140x40     40x20    no
//	text       120x30     20x10    no
//	actor      100x80     40x40    no
//	image      160x120    20x20    no
//
// [LookupKind] rejects unknown tags with UNKNOWN_KIND; accessors such as
// [Node.Label] and [Node.Collapsed] read payload keys through the table.
//
// # Containment
//
// Node.Parent is an id, never a pointer. Positions of parented nodes are
// relative to the parent's origin; [Scene.AbsolutePosition] resolves them.
// [Scene.Validate] rejects parent cycles, dangling endpoints and edges that
// join a node to its own container.
//
// # Serialization
//
// [Document] is the wire form: sorted node and edge arrays with json and
// bson tags. Use [MarshalScene], [ReadSceneFile] and friends for I/O.
package scene
