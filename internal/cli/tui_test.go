package cli

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/diagramflow/pkg/merge"
	"github.com/matzehuels/diagramflow/pkg/pipeline"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestWatchModelBatches(t *testing.T) {
	m := newWatchModel("payload.json", "gabc", nil)

	laidOut := &pipeline.Step{
		Records: 3,
		Applied: true,
		Scene:   scene.New(),
		Report:  merge.Report{Added: []string{"a", "b", "c"}, LaidOut: true, Engine: "layered"},
	}
	next, cmd := m.Update(watchEventMsg{Step: laidOut})
	m = next.(watchModel)
	if cmd == nil || m.done {
		t.Fatal("model stopped after a partial batch")
	}
	if len(m.rows) != 1 || m.rows[0].pass != "layout" || m.rows[0].added != 3 {
		t.Errorf("rows = %+v, want one layout row adding 3", m.rows)
	}

	settled := &pipeline.Step{Records: 4, Applied: true, Complete: true, Scene: scene.New()}
	next, cmd = m.Update(watchEventMsg{Step: settled})
	m = next.(watchModel)
	if !m.done || !isQuit(cmd) {
		t.Error("model did not quit after the settled step")
	}
	if m.last != settled {
		t.Error("last step not recorded")
	}

	view := m.View()
	for _, want := range []string{"Watching payload.json", "gabc", "layered", "settled 4 records"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestWatchModelError(t *testing.T) {
	m := newWatchModel("payload.json", "gabc", nil)
	next, cmd := m.Update(watchEventMsg{Err: errors.New("payload.json was truncated")})
	m = next.(watchModel)
	if m.err == nil || !isQuit(cmd) {
		t.Fatalf("err = %v, want the loop error and a quit", m.err)
	}
	if !strings.Contains(m.View(), "truncated") {
		t.Error("View() does not show the error")
	}
}

func TestWatchModelKeys(t *testing.T) {
	tests := []struct {
		key  tea.KeyMsg
		quit bool
	}{
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}, true},
		{tea.KeyMsg{Type: tea.KeyEsc}, true},
		{tea.KeyMsg{Type: tea.KeyCtrlC}, true},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}, false},
	}
	for _, tt := range tests {
		_, cmd := newWatchModel("f", "r", nil).Update(tt.key)
		if got := isQuit(cmd); got != tt.quit {
			t.Errorf("key %q: quit = %v, want %v", tt.key.String(), got, tt.quit)
		}
	}
}

func TestWatchModelWaiting(t *testing.T) {
	if v := newWatchModel("f", "r", nil).View(); !strings.Contains(v, "waiting for records") {
		t.Errorf("View() = %q, want waiting notice", v)
	}
}

func TestPassLabel(t *testing.T) {
	tests := []struct {
		step pipeline.Step
		want string
	}{
		{pipeline.Step{Complete: true, CacheHit: true}, "settled"},
		{pipeline.Step{CacheHit: true}, "cached"},
		{pipeline.Step{Report: merge.Report{LaidOut: true}}, "layout"},
		{pipeline.Step{}, "placeholder"},
	}
	for _, tt := range tests {
		if got := passLabel(&tt.step); got != tt.want {
			t.Errorf("passLabel(%+v) = %q, want %q", tt.step, got, tt.want)
		}
	}
}
