package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// passSpinner shows an animated status line with the elapsed time while a
// one-shot layout pass runs. It stops on its own when ctx is cancelled.
type passSpinner struct {
	ctx      context.Context
	cancel   context.CancelFunc
	out      io.Writer
	label    string
	interval time.Duration
	start    time.Time

	mu      sync.Mutex
	width   int // widest line written so far
	started bool
	once    sync.Once
	done    chan struct{}
	stopped chan struct{}
}

// newPassSpinner creates a spinner for a pass over the given scene size.
func newPassSpinner(ctx context.Context, nodes, edges int) *passSpinner {
	ctx, cancel := context.WithCancel(ctx)
	return &passSpinner{
		ctx:      ctx,
		cancel:   cancel,
		out:      os.Stderr,
		label:    fmt.Sprintf("Laying out %d nodes, %d edges", nodes, edges),
		interval: 80 * time.Millisecond,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start begins the animation.
func (s *passSpinner) Start() {
	s.start = time.Now()
	s.started = true
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.write("\r" + s.line(i, time.Since(s.start)))
			}
		}
	}()
}

// line renders frame i of the status line.
func (s *passSpinner) line(i int, elapsed time.Duration) string {
	frame := spinnerFrames[i%len(spinnerFrames)]
	return fmt.Sprintf("%s %s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.label),
		StyleDim.Render(elapsed.Round(100*time.Millisecond).String()))
}

func (s *passSpinner) write(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = max(s.width, len(text))
	fmt.Fprint(s.out, text)
}

// Stop ends the animation, clears the line and returns the time since
// Start. Calling it again is harmless.
func (s *passSpinner) Stop() time.Duration {
	elapsed := time.Since(s.start)
	s.once.Do(func() {
		close(s.done)
		if s.started {
			<-s.stopped
		}
		s.cancel()
		s.mu.Lock()
		if s.width > 0 {
			fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", s.width))
		}
		s.mu.Unlock()
	})
	return elapsed
}

// Fail stops the spinner and prints msg as an error.
func (s *passSpinner) Fail(msg string) {
	s.Stop()
	printError("%s", msg)
}

// Cancelled reports whether the context ended the pass before Stop.
func (s *passSpinner) Cancelled() bool {
	select {
	case <-s.done:
		return false
	default:
		return s.ctx.Err() != nil
	}
}
