package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func testSpinner(ctx context.Context) (*passSpinner, *bytes.Buffer) {
	var buf bytes.Buffer
	s := newPassSpinner(ctx, 12, 7)
	s.out = &buf
	s.interval = time.Millisecond
	return s, &buf
}

func TestPassSpinnerLabel(t *testing.T) {
	s, _ := testSpinner(context.Background())
	if want := "Laying out 12 nodes, 7 edges"; s.label != want {
		t.Errorf("label = %q, want %q", s.label, want)
	}
	line := s.line(1, 1250*time.Millisecond)
	for _, want := range []string{spinnerFrames[1], s.label, "1.3s"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q does not contain %q", line, want)
		}
	}
}

func TestPassSpinnerWritesAndClears(t *testing.T) {
	s, buf := testSpinner(context.Background())
	s.Start()
	time.Sleep(20 * time.Millisecond)
	elapsed := s.Stop()

	if elapsed < 20*time.Millisecond {
		t.Errorf("elapsed = %v, want at least 20ms", elapsed)
	}
	out := buf.String()
	if !strings.Contains(out, s.label) {
		t.Errorf("output %q does not contain the label", out)
	}
	if !strings.HasSuffix(out, "\r") {
		t.Errorf("output %q does not end by clearing the line", out)
	}
	if s.Cancelled() {
		t.Error("Cancelled() = true after a normal Stop")
	}
}

func TestPassSpinnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, _ := testSpinner(ctx)
	s.Start()
	cancel()
	time.Sleep(10 * time.Millisecond)
	if !s.Cancelled() {
		t.Error("Cancelled() = false after the context ended")
	}
	s.Stop()
}

func TestPassSpinnerStopTwice(t *testing.T) {
	s, _ := testSpinner(context.Background())
	s.Start()
	s.Stop()
	s.Stop()
}

func TestPassSpinnerStopWithoutStart(t *testing.T) {
	s, buf := testSpinner(context.Background())
	s.Stop()
	if buf.Len() != 0 {
		t.Errorf("output = %q, want nothing", buf.String())
	}
}
