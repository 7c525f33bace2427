// Package session stores in-flight stream runs between chunks.
//
// A [Session] holds everything needed to resume a run on the next chunk:
// the raw buffer received so far, the serialised merge run (including the
// namespacer memo table) and the scene as of the last step. Sessions expire
// so abandoned runs do not pile up, and deleting a session discards its
// memo table.
//
// Backends:
//   - memory: in-process map, for tests and single-process servers
//   - file: one JSON file per session, for the CLI
//   - redis: zstd-compressed JSON, shared by several server instances
package session

import (
	"context"
	"errors"
	"time"

	"github.com/matzehuels/diagramflow/pkg/merge"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when a session has exceeded its TTL.
	ErrExpired = errors.New("expired")
)

// DefaultTTL is how long an idle run session lives.
const DefaultTTL = 30 * time.Minute

// Session is one in-flight run.
type Session struct {
	ID     string         `json:"id"`
	Buffer string         `json:"buffer"`
	Run    merge.State    `json:"run"`
	Scene  scene.Document `json:"scene"`

	// Seen is the parser's record count at the last applied batch; LaidOut
	// is the count at the last full layout pass.
	Seen    int `json:"seen"`
	LaidOut int `json:"laid_out"`
	// Steps counts applied batches.
	Steps    int  `json:"steps"`
	Complete bool `json:"complete,omitempty"`

	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a session for a run.
func New(id string, run *merge.Run, base scene.Scene, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	return &Session{
		ID:        id,
		Run:       run.State(),
		Scene:     scene.ToDocument(base),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch extends the session's lifetime by ttl from now.
func (s *Session) Touch(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.UpdatedAt = time.Now()
	s.ExpiresAt = s.UpdatedAt.Add(ttl)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, s *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions (may be a no-op where the backend
	// expires keys itself).
	Cleanup(ctx context.Context) error

	// Close releases the backend.
	Close() error
}
