package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Scene Serialization API
// =============================================================================

// Document is the canonical serialization format for scenes: nodes and
// edges as arrays sorted by id. Used for API responses, preset storage and
// session payloads.
type Document struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// ToDocument converts a scene to its serialization form.
// Nodes and edges are sorted by id for deterministic output.
func ToDocument(s Scene) Document {
	doc := Document{Nodes: s.SortedNodes(), Edges: s.SortedEdges()}
	if doc.Nodes == nil {
		doc.Nodes = []Node{}
	}
	if doc.Edges == nil {
		doc.Edges = []Edge{}
	}
	return doc
}

// FromDocument builds a scene from a document. Later duplicates of an id
// replace earlier ones. The result is not validated; call [Scene.Validate].
func FromDocument(doc Document) Scene {
	s := New()
	for _, n := range doc.Nodes {
		s.PutNode(n.Clone())
	}
	for _, e := range doc.Edges {
		s.PutEdge(e.Clone())
	}
	return s
}

// MarshalScene converts a scene to JSON bytes.
func MarshalScene(s Scene) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeSceneTo(s, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalScene decodes and validates JSON bytes.
func UnmarshalScene(data []byte) (Scene, error) {
	return readSceneFrom(bytes.NewReader(data))
}

// WriteScene writes a scene as JSON to an io.Writer.
func WriteScene(s Scene, w io.Writer) error {
	return writeSceneTo(s, w)
}

// WriteSceneFile writes a scene to a JSON file.
func WriteSceneFile(s Scene, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeSceneTo(s, f)
}

// ReadScene decodes a JSON scene from an io.Reader and validates it.
func ReadScene(r io.Reader) (Scene, error) {
	return readSceneFrom(r)
}

// ReadSceneFile reads and validates a JSON scene file.
func ReadSceneFile(path string) (Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scene{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readSceneFrom(f)
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeSceneTo(s Scene, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToDocument(s)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readSceneFrom(r io.Reader) (Scene, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Scene{}, fmt.Errorf("decode: %w", err)
	}
	for i := range doc.Nodes {
		if doc.Nodes[i].Kind == "" {
			doc.Nodes[i].Kind = KindShape
		}
	}
	s := FromDocument(doc)
	if err := s.Validate(); err != nil {
		return Scene{}, err
	}
	return s, nil
}
