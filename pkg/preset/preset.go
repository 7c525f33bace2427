// Package preset persists finished diagrams so they can be loaded again.
//
// A preset is a scene with run tokens stripped from every id
// ([ident.StripScene]), so loading it into a new canvas, or feeding it to a
// later run, does not carry over the identity of the run that produced it.
//
// Two backends implement [Store]: [FileStore] writes one JSON file per
// preset and [MongoStore] keeps presets in a MongoDB collection.
package preset

import (
	"context"
	"time"

	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

// Preset is a stored, token-free scene.
type Preset struct {
	ID        string         `json:"id" bson:"_id"`
	Name      string         `json:"name,omitempty" bson:"name,omitempty"`
	Scene     scene.Document `json:"scene" bson:"scene"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" bson:"updated_at"`
}

// Info is a listing entry.
type Info struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name,omitempty" bson:"name,omitempty"`
	Nodes     int       `json:"nodes" bson:"-"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Store persists presets.
type Store interface {
	// Put creates or replaces a preset. CreatedAt is kept on replace.
	Put(ctx context.Context, p *Preset) error
	// Get returns the preset or a PRESET_NOT_FOUND error.
	Get(ctx context.Context, id string) (*Preset, error)
	// List returns every preset, newest first.
	List(ctx context.Context) ([]Info, error)
	// Delete removes a preset. Missing ids are not an error.
	Delete(ctx context.Context, id string) error
	Close() error
}

// New builds a preset from a scene.
func New(id, name string, s scene.Scene) *Preset {
	now := time.Now().UTC()
	return &Preset{ID: id, Name: name, Scene: scene.ToDocument(s), CreatedAt: now, UpdatedAt: now}
}

// SceneOf rebuilds and validates the stored scene.
func (p *Preset) SceneOf() (scene.Scene, error) {
	s := scene.FromDocument(p.Scene)
	if err := s.Validate(); err != nil {
		return scene.Scene{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "preset %q", p.ID)
	}
	return s, nil
}

func notFound(id string) error {
	return errors.New(errors.ErrCodePresetNotFound, "preset %q not found", id)
}
