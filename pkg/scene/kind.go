package scene

import (
	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/geo"
)

// =============================================================================
// Kinds - Strict Dispatch Table
// =============================================================================

// Kind tags a node with one of a fixed set of variants. Every kind has a
// [KindSpec] that decides its default size, its minimum size, whether it
// can contain other nodes, and which payload keys carry its kind-specific
// fields.
type Kind string

// Known kinds.
const (
	KindShape    Kind = "shape"
	KindGroup    Kind = "group"
	KindTreeItem Kind = "tree-item"
	KindText     Kind = "text"
	KindActor    Kind = "actor"
	KindImage    Kind = "image"
)

// KindSpec describes how a kind is sized and which payload fields it reads.
type KindSpec struct {
	Kind        Kind
	DefaultSize geo.Size
	MinSize     geo.Size
	Container   bool

	// LabelKey is the Data key holding the display text.
	LabelKey string
	// Hierarchical kinds honour the "collapsed" and "side" payload keys.
	Hierarchical bool
}

var kindTable = map[Kind]KindSpec{
	KindShape: {
		Kind: KindShape, DefaultSize: geo.Size{Width: 160, Height: 60},
		MinSize: geo.Size{Width: 40, Height: 20}, LabelKey: "label",
	},
	KindGroup: {
		Kind: KindGroup, DefaultSize: geo.Size{Width: 240, Height: 160},
		MinSize: geo.Size{Width: 80, Height: 60}, Container: true, LabelKey: "label",
	},
	KindTreeItem: {
		Kind: KindTreeItem, DefaultSize: geo.Size{Width: 140, Height: 40},
		MinSize: geo.Size{Width: 40, Height: 20}, LabelKey: "label", Hierarchical: true,
	},
	KindText: {
		Kind: KindText, DefaultSize: geo.Size{Width: 120, Height: 30},
		MinSize: geo.Size{Width: 20, Height: 10}, LabelKey: "text",
	},
	KindActor: {
		Kind: KindActor, DefaultSize: geo.Size{Width: 100, Height: 80},
		MinSize: geo.Size{Width: 40, Height: 40}, LabelKey: "label",
	},
	KindImage: {
		Kind: KindImage, DefaultSize: geo.Size{Width: 160, Height: 120},
		MinSize: geo.Size{Width: 20, Height: 20}, LabelKey: "src",
	},
}

// LookupKind resolves a producer-supplied tag. An empty tag means
// [KindShape]. Unknown tags fail with UNKNOWN_KIND.
func LookupKind(tag string) (KindSpec, error) {
	if tag == "" {
		return kindTable[KindShape], nil
	}
	spec, ok := kindTable[Kind(tag)]
	if !ok {
		return KindSpec{}, errors.New(errors.ErrCodeUnknownKind, "unknown node kind %q", tag)
	}
	return spec, nil
}

// Spec returns the dispatch entry for k, falling back to shape for
// kinds that never went through [LookupKind].
func (k Kind) Spec() KindSpec {
	if spec, ok := kindTable[k]; ok {
		return spec
	}
	return kindTable[KindShape]
}

// Kinds lists every known kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindShape, KindGroup, KindTreeItem, KindText, KindActor, KindImage}
}
