// Package cache stores the results of full layout passes so that feeding
// the same buffer twice does not lay it out twice.
//
// A pass is keyed by a hash of everything that influences its output: the
// scene before the pass, the run state, the records in the batch and the
// layout settings. Hits return the serialised step verbatim.
//
// Three backends implement [Cache]:
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared entries for server deployments
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the stored bytes and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backend.
	Close() error
}

// Default entry lifetimes.
const (
	TTLLayout = 24 * time.Hour
	TTLPreset = 7 * 24 * time.Hour
)

// Keyer derives cache keys.
type Keyer interface {
	// LayoutKey is the key of one full layout pass.
	LayoutKey(inputHash string, opts LayoutKeyOpts) string
	// PresetKey is the key of a stored preset document.
	PresetKey(id string) string
}

// LayoutKeyOpts are the settings a layout pass depends on besides its
// input.
type LayoutKeyOpts struct {
	Direction   string `json:"direction,omitempty"`
	DiagramType string `json:"diagram_type,omitempty"`
	Algorithm   string `json:"algorithm,omitempty"`
	Tree        bool   `json:"tree,omitempty"`
	Final       bool   `json:"final,omitempty"`
	// Settings is a hash of the engine configuration.
	Settings string `json:"settings,omitempty"`
}

// DefaultKeyer is the stock [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns the stock keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey hashes the input hash together with the options.
func (DefaultKeyer) LayoutKey(inputHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", inputHash, opts)
}

// PresetKey returns "preset:<id>".
func (DefaultKeyer) PresetKey(id string) string {
	return "preset:" + id
}

var _ Keyer = DefaultKeyer{}
