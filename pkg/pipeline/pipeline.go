// Package pipeline drives streamed diagram runs from first chunk to
// settled scene.
//
// It is the one place the CLI and the HTTP service share: both create a
// [Runner] and call the same lifecycle methods, so throttling, caching and
// persistence behave identically across entry points.
//
// # Lifecycle
//
//  1. Begin: create a run session (a generation, a refine of one anchor
//     node, or the load of a saved scene) on top of a base scene.
//  2. Feed: append a chunk of producer output. Complete records are
//     extracted from the buffer and merged; a full layout pass runs once
//     enough new records arrived, otherwise new nodes go to placeholder
//     cells.
//  3. Complete: the final settled pass.
//  4. Save or Cancel: persist the run's content as a token-free preset, or
//     drop the session and its id table.
//
// # Usage
//
//	runner := pipeline.NewRunner(session.NewMemoryStore(), nil, nil, logger)
//	step, err := runner.Begin(ctx, pipeline.BeginOptions{Base: canvas})
//	for chunk := range chunks {
//	    step, err = runner.Feed(ctx, step.ID, chunk)
//	}
//	step, err = runner.Complete(ctx, step.ID)
//
// [Runner.Assemble] does all of this for an [io.Reader].
package pipeline

import (
	"time"

	"github.com/matzehuels/diagramflow/pkg/layout"
	"github.com/matzehuels/diagramflow/pkg/merge"
	"github.com/matzehuels/diagramflow/pkg/scene"
	"github.com/matzehuels/diagramflow/pkg/session"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultThrottleRecords is how many new records a feed needs before a
	// full layout pass runs. Smaller steps only place placeholders.
	DefaultThrottleRecords = 4

	// DefaultChunkSize is the read size Assemble uses.
	DefaultChunkSize = 256
)

// Mode selects what kind of run Begin starts.
type Mode string

const (
	// ModeGenerate is a brand-new generation. Its ids are namespaced with
	// a fresh token and its first batch replaces the content of the run
	// named by Replaces.
	ModeGenerate Mode = "generate"
	// ModeRefine grafts new nodes onto one existing anchor node. Ids pass
	// through unchanged; an id already on the canvas updates that node.
	ModeRefine Mode = "refine"
	// ModeLoad re-lays a previously saved scene. Ids pass through unchanged.
	ModeLoad Mode = "load"
)

// ValidModes is the set of accepted run modes.
var ValidModes = map[Mode]bool{
	ModeGenerate: true,
	ModeRefine:   true,
	ModeLoad:     true,
}

// =============================================================================
// Options
// =============================================================================

// Options configures a [Runner].
type Options struct {
	// ThrottleRecords is the number of new records between full layout
	// passes.
	ThrottleRecords int `toml:"throttle_records" validate:"gte=1"`
	// SessionTTL is how long an idle run lives.
	SessionTTL time.Duration `toml:"session_ttl"`
	// ChunkSize is the read size used by Assemble.
	ChunkSize int `toml:"chunk_size" validate:"gte=1"`
}

// DefaultOptions returns the stock runner settings.
func DefaultOptions() Options {
	return Options{
		ThrottleRecords: DefaultThrottleRecords,
		SessionTTL:      session.DefaultTTL,
		ChunkSize:       DefaultChunkSize,
	}
}

// SetDefaults fills zero fields.
func (o *Options) SetDefaults() {
	if o.ThrottleRecords <= 0 {
		o.ThrottleRecords = DefaultThrottleRecords
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = session.DefaultTTL
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
}

// BeginOptions describes a new run.
type BeginOptions struct {
	// Base is the canvas the run starts from. It may be empty.
	Base scene.Scene `json:"-"`
	Mode Mode        `json:"mode,omitempty"`
	// Anchor is the node a refine grafts onto.
	Anchor string `json:"anchor,omitempty"`
	// Replaces is the token of the earlier generation this one supersedes.
	Replaces string             `json:"replaces,omitempty"`
	Prefs    layout.Preferences `json:"-"`
}

// Step is the outcome of one lifecycle call.
type Step struct {
	// ID is the run session id.
	ID string `json:"id"`
	// Token is the run's id prefix; empty for refine and load runs.
	Token string `json:"token,omitempty"`
	// Scene is the whole canvas after the step.
	Scene scene.Scene `json:"-"`
	// Records is the number of complete records parsed so far.
	Records int `json:"records"`
	// Applied is false when the chunk held no new complete record.
	Applied  bool         `json:"applied"`
	CacheHit bool         `json:"cache_hit,omitempty"`
	// Closed is true once the payload's closing brace has arrived.
	Closed   bool         `json:"closed,omitempty"`
	Complete bool         `json:"complete,omitempty"`
	Report   merge.Report `json:"report"`
}
