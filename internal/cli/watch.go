package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramflow/pkg/pipeline"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

const (
	defaultDebounce = 50 * time.Millisecond
)

// watchOptions holds the flags of the watch command.
type watchOptions struct {
	runFlags
	output   string
	noCache  bool
	idle     time.Duration
	debounce time.Duration
	plain    bool
}

// watchCommand creates the watch command, which follows a payload file as
// a producer appends to it.
func (c *CLI) watchCommand() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch <payload.json>",
		Short: "Follow a growing payload file and lay it out live",
		Long: `Follow a payload file while a producer writes it.

Every append is fed to the run as a chunk. The run settles when the
payload's closing brace arrives, or after --idle without writes. With
-o the scene file is rewritten after every batch, so a viewer can
reload it as the diagram grows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), args[0], opts)
		},
	}

	opts.runFlags.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "scene file rewritten after every batch")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the layout cache")
	cmd.Flags().DurationVar(&opts.idle, "idle", 0, "settle after this long without writes (0 waits for the closing brace)")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", defaultDebounce, "coalesce writes arriving within this window")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "log batches instead of the live view")

	return cmd
}

func (c *CLI) runWatch(ctx context.Context, file string, opts watchOptions) error {
	path, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	begin, err := opts.beginOptions(ctx, runner)
	if err != nil {
		return err
	}
	first, err := runner.Begin(ctx, begin)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan watchEvent)
	loop := &watchLoop{
		runner:   runner,
		id:       first.ID,
		tail:     &tail{path: path},
		idle:     opts.idle,
		debounce: opts.debounce,
		output:   opts.output,
	}
	go loop.run(ctx, events)

	var last *pipeline.Step
	var runErr error
	if opts.plain {
		c.Logger.Info("Watching", "file", path, "run", first.ID)
		for ev := range events {
			if ev.Err != nil {
				runErr = ev.Err
				continue
			}
			last = ev.Step
			c.Logger.Info("batch",
				"records", ev.Step.Records,
				"added", len(ev.Step.Report.Added),
				"placeholders", len(ev.Step.Report.Placeholders),
				"pass", passLabel(ev.Step))
		}
	} else {
		final, err := tea.NewProgram(newWatchModel(path, first.ID, events), tea.WithContext(ctx)).Run()
		if err != nil && ctx.Err() == nil {
			runErr = err
		}
		if m, ok := final.(watchModel); ok {
			last = m.last
			if m.err != nil {
				runErr = m.err
			}
		}
		cancel()
		for range events {
		}
	}

	if last == nil || !last.Complete {
		_ = runner.Cancel(context.WithoutCancel(ctx), first.ID)
		if runErr != nil {
			return runErr
		}
		printWarning("Stopped before the payload completed")
		return nil
	}
	logWarnings(c.Logger, last.Report.Warnings)
	printSuccess("Settled run %s", last.ID)
	printStats(len(last.Scene.Nodes), len(last.Scene.Edges), last.CacheHit)
	if opts.output != "" {
		printFile(opts.output)
	}
	return runErr
}

// passLabel names the kind of pass a step ran.
func passLabel(s *pipeline.Step) string {
	switch {
	case s.Complete:
		return "settled"
	case s.CacheHit:
		return "cached"
	case s.Report.LaidOut:
		return "layout"
	}
	return "placeholder"
}

// =============================================================================
// Watch Loop
// =============================================================================

// watchEvent is one applied step, or the error that ended the loop.
type watchEvent struct {
	Step *pipeline.Step
	Err  error
}

// watchLoop feeds appends to a file into a run until the payload closes,
// the file goes idle or ctx is cancelled. It closes events on return.
type watchLoop struct {
	runner   *pipeline.Runner
	id       string
	tail     *tail
	idle     time.Duration
	debounce time.Duration
	output   string
}

func (w *watchLoop) run(ctx context.Context, events chan<- watchEvent) {
	defer close(events)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.emit(ctx, events, watchEvent{Err: err})
		return
	}
	defer fw.Close()
	// The directory is watched so the file may be created after we start.
	if err := fw.Add(filepath.Dir(w.tail.path)); err != nil {
		w.emit(ctx, events, watchEvent{Err: err})
		return
	}

	if closed, ok := w.pull(ctx, events); !ok || closed {
		if ok {
			w.settle(ctx, events)
		}
		return
	}

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()
	var idle *time.Timer
	var idleC <-chan time.Time
	if w.idle > 0 {
		idle = time.NewTimer(w.idle)
		defer idle.Stop()
		idleC = idle.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) == w.tail.path && ev.Has(fsnotify.Write|fsnotify.Create) {
				debounce.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.emit(ctx, events, watchEvent{Err: err})
			return
		case <-debounce.C:
			closed, ok := w.pull(ctx, events)
			if !ok {
				return
			}
			if closed {
				w.settle(ctx, events)
				return
			}
			if idle != nil {
				idle.Reset(w.idle)
			}
		case <-idleC:
			w.settle(ctx, events)
			return
		}
	}
}

// pull feeds whatever was appended since the last read. ok is false when
// the loop must stop.
func (w *watchLoop) pull(ctx context.Context, events chan<- watchEvent) (closed, ok bool) {
	chunk, err := w.tail.next()
	if err != nil {
		w.emit(ctx, events, watchEvent{Err: err})
		return false, false
	}
	if chunk == "" {
		return false, true
	}
	step, err := w.runner.Feed(ctx, w.id, chunk)
	if err != nil {
		w.emit(ctx, events, watchEvent{Err: err})
		return false, false
	}
	if step.Applied {
		if !w.write(ctx, events, step) {
			return false, false
		}
		w.emit(ctx, events, watchEvent{Step: step})
	}
	return step.Closed, true
}

func (w *watchLoop) settle(ctx context.Context, events chan<- watchEvent) {
	step, err := w.runner.Complete(ctx, w.id)
	if err != nil {
		w.emit(ctx, events, watchEvent{Err: err})
		return
	}
	if w.write(ctx, events, step) {
		w.emit(ctx, events, watchEvent{Step: step})
	}
}

func (w *watchLoop) write(ctx context.Context, events chan<- watchEvent, step *pipeline.Step) bool {
	if w.output == "" {
		return true
	}
	if err := scene.WriteSceneFile(step.Scene, w.output); err != nil {
		w.emit(ctx, events, watchEvent{Err: err})
		return false
	}
	return true
}

func (w *watchLoop) emit(ctx context.Context, events chan<- watchEvent, ev watchEvent) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// tail reads what was appended to a file since the previous call.
type tail struct {
	path   string
	offset int64
}

// next returns the new bytes, or "" when there are none or the file does
// not exist yet.
func (t *tail) next() (string, error) {
	f, err := os.Open(t.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	switch {
	case info.Size() < t.offset:
		return "", fmt.Errorf("%s was truncated", t.path)
	case info.Size() == t.offset:
		return "", nil
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return "", err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	t.offset += int64(len(data))
	return string(data), nil
}
