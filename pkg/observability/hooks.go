// Package observability provides hooks for metrics, tracing and logging.
//
// The engine packages stay free of any metrics backend. The runner, the
// caches and the HTTP service call the registered hooks; main registers an
// implementation at startup (see observability/prom for Prometheus).
//
// # Usage
//
//	func main() {
//	    c := prom.NewCollector("diagramflow")
//	    observability.SetEngineHooks(c)
//	    observability.SetCacheHooks(c)
//	    observability.SetHTTPHooks(c)
//	    // ... run application
//	}
//
// Callers emit events through the registry:
//
//	observability.Engine().OnBatch(ctx, runID, stats)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Engine Hooks
// =============================================================================

// Run outcomes reported by [EngineHooks.OnRunEnd].
const (
	OutcomeComplete  = "complete"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// BatchStats describes one applied batch.
type BatchStats struct {
	Records    int           // complete records in the buffer
	Nodes      int           // nodes owned by the run afterwards
	Edges      int           // edges owned by the run afterwards
	Warnings   int           // soft warnings raised by the batch
	Iterations int           // collision resolver passes
	Engine     string        // layout engine used; empty for throttled steps
	LaidOut    bool          // full layout pass rather than placeholders
	Converged  bool          // resolver reached zero overlap
	CacheHit   bool          // the pass was served from the layout cache
	Duration   time.Duration // wall time of the batch
}

// EngineHooks receives events from the stream runner.
type EngineHooks interface {
	OnRunStart(ctx context.Context, runID string, refine bool)
	OnBatch(ctx context.Context, runID string, stats BatchStats)
	OnRunEnd(ctx context.Context, runID, outcome string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP service.
type HTTPHooks interface {
	// OnRequest records a served request. route is the matched pattern,
	// not the raw path.
	OnRequest(ctx context.Context, method, route string, status int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEngineHooks is a no-op implementation of EngineHooks.
type NoopEngineHooks struct{}

func (NoopEngineHooks) OnRunStart(context.Context, string, bool)    {}
func (NoopEngineHooks) OnBatch(context.Context, string, BatchStats) {}
func (NoopEngineHooks) OnRunEnd(context.Context, string, string)    {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	engineHooks EngineHooks = NoopEngineHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetEngineHooks registers custom engine hooks.
// This should be called once at application startup.
func SetEngineHooks(h EngineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		engineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Engine returns the registered engine hooks.
func Engine() EngineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return engineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	engineHooks = NoopEngineHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
