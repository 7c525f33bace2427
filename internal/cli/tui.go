package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/diagramflow/pkg/pipeline"
)

var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// watchModel - live view of a followed run
// =============================================================================

type (
	watchEventMsg  watchEvent
	watchClosedMsg struct{}
)

// waitForEvent blocks on the next loop event.
func waitForEvent(ch <-chan watchEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return watchClosedMsg{}
		}
		return watchEventMsg(ev)
	}
}

// watchRow is one applied batch as shown in the table.
type watchRow struct {
	records      int
	added        int
	placeholders int
	nodes        int
	engine       string
	pass         string
	at           time.Duration
}

// watchModel is the bubbletea model of the watch command. It only
// displays; the run itself is driven by the watch loop.
type watchModel struct {
	file   string
	runID  string
	events <-chan watchEvent
	start  time.Time
	height int

	rows []watchRow
	last *pipeline.Step
	err  error
	done bool
}

func newWatchModel(file, runID string, events <-chan watchEvent) watchModel {
	return watchModel{file: file, runID: runID, events: events, start: time.Now(), height: 12}
}

func (m watchModel) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-8, 3)
	case watchEventMsg:
		if msg.Err != nil {
			m.err, m.done = msg.Err, true
			return m, tea.Quit
		}
		s := msg.Step
		m.last = s
		m.rows = append(m.rows, watchRow{
			records:      s.Records,
			added:        len(s.Report.Added),
			placeholders: len(s.Report.Placeholders),
			nodes:        len(s.Scene.Nodes),
			engine:       string(s.Report.Engine),
			pass:         passLabel(s),
			at:           time.Since(m.start),
		})
		if s.Complete {
			m.done = true
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)
	case watchClosedMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Watching " + m.file))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("run " + m.runID + "  q quit"))
	b.WriteString("\n\n")

	start := max(len(m.rows)-m.height, 0)
	rows := make([][]string, 0, len(m.rows)-start)
	for i, r := range m.rows[start:] {
		engine := r.engine
		if engine == "" {
			engine = "—"
		}
		rows = append(rows, []string{
			strconv.Itoa(start + i + 1),
			strconv.Itoa(r.records),
			strconv.Itoa(r.added),
			strconv.Itoa(r.placeholders),
			strconv.Itoa(r.nodes),
			engine,
			r.pass,
			r.at.Round(time.Millisecond).String(),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Records", "Added", "Held", "Nodes", "Engine", "Pass", "At").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row < 0 || start+row >= len(m.rows) {
				return lipgloss.NewStyle()
			}
			switch m.rows[start+row].pass {
			case "settled":
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			case "placeholder":
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
	b.WriteString(t.Render())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(iconError + " " + m.err.Error()))
	case m.last != nil && m.last.Complete:
		b.WriteString(StyleSuccess.Render(fmt.Sprintf("%s settled %d records", iconSuccess, m.last.Records)))
	case len(m.rows) == 0:
		b.WriteString(listDimStyle.Render("  waiting for records..."))
	default:
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d batches]", len(m.rows))))
	}
	b.WriteString("\n")
	return b.String()
}
