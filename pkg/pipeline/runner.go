package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/diagramflow/pkg/cache"
	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/ident"
	"github.com/matzehuels/diagramflow/pkg/merge"
	"github.com/matzehuels/diagramflow/pkg/observability"
	"github.com/matzehuels/diagramflow/pkg/preset"
	"github.com/matzehuels/diagramflow/pkg/scene"
	"github.com/matzehuels/diagramflow/pkg/session"
	"github.com/matzehuels/diagramflow/pkg/stream"
)

// Runner executes run lifecycles against a session store, with caching of
// full layout passes.
//
// All per-run state lives in the session store, so a Runner can serve any
// number of runs concurrently. Calls for the same run id are serialised
// within one process.
type Runner struct {
	Sessions   session.Store
	Cache      cache.Cache
	Keyer      cache.Keyer
	Presets    preset.Store // optional; Save and Preset fail without one
	Controller *merge.Controller
	Logger     *log.Logger
	Options    Options

	locks sync.Map // run id -> *sync.Mutex
}

// NewRunner creates a runner.
// If sessions is nil, an in-memory store is used.
// If c is nil, a NullCache is used (caching disabled).
// If ctrl is nil, a controller with default options is used.
func NewRunner(sessions session.Store, c cache.Cache, ctrl *merge.Controller, logger *log.Logger) *Runner {
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if ctrl == nil {
		ctrl = merge.NewController(merge.DefaultOptions(), nil)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Sessions:   sessions,
		Cache:      c,
		Keyer:      cache.NewDefaultKeyer(),
		Controller: ctrl,
		Logger:     logger,
		Options:    DefaultOptions(),
	}
}

// options returns the runner settings with zero fields defaulted. Options
// itself is never written, so runs in flight may read it concurrently.
func (r *Runner) options() Options {
	o := r.Options
	o.SetDefaults()
	return o
}

// lock serialises calls for one run and returns the unlock function.
func (r *Runner) lock(id string) func() {
	m, _ := r.locks.LoadOrStore(id, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// =============================================================================
// Lifecycle
// =============================================================================

// Begin starts a run on top of opts.Base and returns its id.
func (r *Runner) Begin(ctx context.Context, opts BeginOptions) (*Step, error) {
	o := r.options()
	if opts.Mode == "" {
		opts.Mode = ModeGenerate
	}
	if !ValidModes[opts.Mode] {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid mode %q (must be one of: generate, refine, load)", opts.Mode)
	}
	base := opts.Base
	if base.Nodes == nil {
		base = scene.New()
	}
	if err := base.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "base scene")
	}

	id := ident.NewToken()
	var run *merge.Run
	switch opts.Mode {
	case ModeGenerate:
		if opts.Replaces != "" {
			if err := errors.ValidateRunToken(opts.Replaces); err != nil {
				return nil, err
			}
		}
		run = merge.NewRun(id, "", opts.Prefs)
		run.Replaces = opts.Replaces
	case ModeRefine:
		if opts.Anchor == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "refine needs an anchor node")
		}
		if _, ok := base.Nodes[opts.Anchor]; !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "anchor %q not in base scene", opts.Anchor)
		}
		run = merge.NewRun("", opts.Anchor, opts.Prefs)
	case ModeLoad:
		run = merge.NewRun("", "", opts.Prefs)
	}

	sess := session.New(id, run, base, o.SessionTTL)
	if err := r.Sessions.Set(ctx, sess); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "store run")
	}
	observability.Engine().OnRunStart(ctx, id, run.Refine())
	r.Logger.Debug("run started", "run", id, "mode", opts.Mode, "base_nodes", len(base.Nodes))
	return &Step{ID: id, Token: run.Token, Scene: base}, nil
}

// Feed appends chunk to the run's buffer and merges any new complete
// records. A full layout pass runs when ThrottleRecords new records have
// arrived since the last one, or when the payload is complete; otherwise
// new nodes are parked in placeholder cells.
func (r *Runner) Feed(ctx context.Context, id, chunk string) (*Step, error) {
	defer r.lock(id)()
	o := r.options()

	sess, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Complete {
		return nil, errors.New(errors.ErrCodeInvalidInput, "run %s already complete", id)
	}
	sess.Buffer += chunk

	res := stream.Extract(sess.Buffer)
	count := res.RecordCount()
	step := &Step{ID: id, Token: sess.Run.Token, Scene: scene.FromDocument(sess.Scene), Records: count, Closed: res.Complete}
	if count > sess.Seen {
		b := merge.FromResult(res)
		b.Final = false
		b.Layout = res.Complete || count-sess.LaidOut >= o.ThrottleRecords
		r.apply(ctx, sess, b, step)
		sess.Seen = count
		if b.Layout {
			sess.LaidOut = count
		}
	}

	sess.Touch(o.SessionTTL)
	if err := r.Sessions.Set(ctx, sess); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "store run")
	}
	return step, nil
}

// Complete runs the final settled pass over everything received. Calling
// it again returns the settled scene unchanged.
func (r *Runner) Complete(ctx context.Context, id string) (*Step, error) {
	defer r.lock(id)()
	o := r.options()

	sess, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	res := stream.Extract(sess.Buffer)
	step := &Step{ID: id, Token: sess.Run.Token, Scene: scene.FromDocument(sess.Scene), Records: res.RecordCount(), Closed: res.Complete, Complete: true}
	if sess.Complete {
		return step, nil
	}

	if !res.Complete && !res.Empty() {
		r.Logger.Warn("stream ended before the payload closed", "run", id, "records", step.Records)
	}
	if !res.Empty() {
		b := merge.FromResult(res)
		b.Final = true
		r.apply(ctx, sess, b, step)
	}
	sess.Seen, sess.LaidOut = step.Records, step.Records
	sess.Complete = true
	sess.Touch(o.SessionTTL)
	if err := r.Sessions.Set(ctx, sess); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "store run")
	}

	observability.Engine().OnRunEnd(ctx, id, observability.OutcomeComplete)
	nodes, edges := step.Scene.Len()
	r.Logger.Info("run settled", "run", id, "records", step.Records, "nodes", nodes, "edges", edges, "steps", sess.Steps)
	return step, nil
}

// Cancel drops the run and its id table. The canvas keeps whatever the
// caller already received.
func (r *Runner) Cancel(ctx context.Context, id string) error {
	unlock := r.lock(id)
	defer func() {
		unlock()
		r.locks.Delete(id)
	}()

	if _, err := r.load(ctx, id); err != nil {
		return err
	}
	if err := r.Sessions.Delete(ctx, id); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "delete run")
	}
	observability.Engine().OnRunEnd(ctx, id, observability.OutcomeCancelled)
	r.Logger.Debug("run cancelled", "run", id)
	return nil
}

// Scene returns the run's current state without changing it.
func (r *Runner) Scene(ctx context.Context, id string) (*Step, error) {
	sess, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Step{
		ID:       id,
		Token:    sess.Run.Token,
		Scene:    scene.FromDocument(sess.Scene),
		Records:  sess.Seen,
		Complete: sess.Complete,
	}, nil
}

// Assemble drives a whole stream through one run: Begin, a Feed per read
// of ChunkSize bytes, then Complete. onStep, if not nil, sees every step.
// A failed read or a cancelled context cancels the run.
func (r *Runner) Assemble(ctx context.Context, rd io.Reader, opts BeginOptions, onStep func(*Step)) (*Step, error) {
	o := r.options()
	step, err := r.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	id := step.ID
	abort := func(err error) (*Step, error) {
		_ = r.Sessions.Delete(context.WithoutCancel(ctx), id)
		r.locks.Delete(id)
		observability.Engine().OnRunEnd(ctx, id, observability.OutcomeFailed)
		r.Logger.Debug("run aborted", "run", id, "error", err)
		return nil, err
	}

	buf := make([]byte, o.ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		n, rerr := rd.Read(buf)
		if n > 0 {
			step, err = r.Feed(ctx, id, string(buf[:n]))
			if err != nil {
				return abort(err)
			}
			if onStep != nil && step.Applied {
				onStep(step)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return abort(errors.Wrap(errors.ErrCodeInvalidInput, rerr, "read stream"))
		}
	}

	step, err = r.Complete(ctx, id)
	if err != nil {
		return abort(err)
	}
	if onStep != nil {
		onStep(step)
	}
	return step, nil
}

// Cleanup removes expired runs from the session store.
func (r *Runner) Cleanup(ctx context.Context) error {
	return r.Sessions.Cleanup(ctx)
}

// Close releases the session store, the cache and the preset store.
func (r *Runner) Close() error {
	var first error
	for _, c := range []io.Closer{r.Sessions, r.Cache} {
		if c != nil {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	if r.Presets != nil {
		if err := r.Presets.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *Runner) load(ctx context.Context, id string) (*session.Session, error) {
	if err := errors.ValidateRunToken(id); err != nil {
		return nil, err
	}
	sess, err := r.Sessions.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "load run")
	}
	if sess == nil {
		return nil, errors.New(errors.ErrCodeRunNotFound, "run %s not found", id)
	}
	return sess, nil
}

// =============================================================================
// Merge step with caching
// =============================================================================

// cachedPass is what a cached full layout pass stores.
type cachedPass struct {
	Scene  scene.Document `json:"scene"`
	Run    merge.State    `json:"run"`
	Report merge.Report   `json:"report"`
}

// apply merges b into the session and fills step. Full passes are looked
// up in and written to the cache.
func (r *Runner) apply(ctx context.Context, sess *session.Session, b merge.Batch, step *Step) {
	start := time.Now()
	full := b.Layout || b.Final

	var key string
	if full {
		key = r.layoutKey(sess, b)
	}
	pass, hit := r.cached(ctx, key)
	if !hit {
		run := merge.RestoreRun(sess.Run)
		next, rep := r.Controller.Apply(step.Scene, run, b)
		pass = cachedPass{Scene: scene.ToDocument(next), Run: run.State(), Report: rep}
		if key != "" {
			r.store(ctx, key, pass)
		}
		step.Scene = next
	} else {
		step.Scene = scene.FromDocument(pass.Scene)
	}

	sess.Scene = pass.Scene
	sess.Run = pass.Run
	sess.Steps++
	step.Report = pass.Report
	step.Applied = true
	step.CacheHit = hit

	rep := pass.Report
	for _, w := range rep.Warnings {
		r.Logger.Warn(w.Message, "run", sess.ID, "code", w.Code, "subject", w.Subject)
	}
	if full && !rep.Converged {
		r.Logger.Warn("overlaps left after iteration budget", "run", sess.ID, "iterations", rep.Iterations)
	}
	r.Logger.Debug("batch applied",
		"run", sess.ID,
		"records", step.Records,
		"layout", rep.LaidOut,
		"engine", rep.Engine,
		"cached", hit,
		"duration", time.Since(start))

	observability.Engine().OnBatch(ctx, sess.ID, observability.BatchStats{
		Records:    step.Records,
		Nodes:      rep.Nodes,
		Edges:      rep.Edges,
		Warnings:   len(rep.Warnings),
		Iterations: rep.Iterations,
		Engine:     string(rep.Engine),
		LaidOut:    rep.LaidOut,
		Converged:  rep.Converged,
		CacheHit:   hit,
		Duration:   time.Since(start),
	})
}

// layoutKey hashes everything a full pass depends on. It returns "" when
// the input cannot be hashed, which disables caching for the pass.
func (r *Runner) layoutKey(sess *session.Session, b merge.Batch) string {
	input, err := cache.HashJSON(struct {
		Scene scene.Document `json:"scene"`
		Run   merge.State    `json:"run"`
		Batch merge.Batch    `json:"batch"`
	}{sess.Scene, sess.Run, b})
	if err != nil {
		r.Logger.Debug("layout input not hashable", "run", sess.ID, "error", err)
		return ""
	}
	settings, err := cache.HashJSON(r.Controller.Options())
	if err != nil {
		return ""
	}
	p := sess.Run.Prefs
	return r.Keyer.LayoutKey(input, cache.LayoutKeyOpts{
		Direction:   string(p.Direction),
		DiagramType: p.DiagramType,
		Algorithm:   string(p.Algorithm),
		Tree:        p.Tree,
		Final:       b.Final,
		Settings:    settings,
	})
}

func (r *Runner) cached(ctx context.Context, key string) (cachedPass, bool) {
	if key == "" {
		return cachedPass{}, false
	}
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Debug("cache read failed", "error", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "layout")
		return cachedPass{}, false
	}
	var pass cachedPass
	if err := json.Unmarshal(data, &pass); err != nil {
		observability.Cache().OnCacheMiss(ctx, "layout")
		return cachedPass{}, false
	}
	observability.Cache().OnCacheHit(ctx, "layout")
	return pass, true
}

func (r *Runner) store(ctx context.Context, key string, pass cachedPass) {
	data, err := json.Marshal(pass)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLLayout); err != nil {
		r.Logger.Debug("cache write failed", "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "layout", len(data))
}
