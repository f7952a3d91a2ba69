// Package tui renders a live monitor of a running simulation: the current
// time state plus a sparkline of the masked scalar mean.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const historyCapacity = 120

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// Snapshot is one full-step observation of the run.
type Snapshot struct {
	Time       float64
	Dt         float64
	Iteration  int
	Substep    int
	ScalarMean float64
}

type snapMsg Snapshot

type doneMsg struct{}

// Model consumes snapshots from the run loop and renders them.
type Model struct {
	snaps       <-chan Snapshot
	latest      Snapshot
	history     []float64
	ghostCounts string
	finished    bool
}

func NewModel(snaps <-chan Snapshot, ghostCounts map[string]int) Model {
	parts := make([]string, 0, len(ghostCounts))
	for _, name := range []string{"u", "v", "w", "s"} {
		if n, ok := ghostCounts[name]; ok {
			parts = append(parts, fmt.Sprintf("%s:%d", name, n))
		}
	}
	return Model{
		snaps:       snaps,
		history:     make([]float64, 0, historyCapacity),
		ghostCounts: strings.Join(parts, "  "),
	}
}

func waitForSnap(snaps <-chan Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-snaps
		if !ok {
			return doneMsg{}
		}
		return snapMsg(s)
	}
}

func (m Model) Init() tea.Cmd {
	return waitForSnap(m.snaps)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapMsg:
		m.latest = Snapshot(msg)
		m.history = append(m.history, m.latest.ScalarMean)
		if len(m.history) > historyCapacity {
			m.history = m.history[1:]
		}
		return m, waitForSnap(m.snaps)
	case doneMsg:
		m.finished = true
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("ibflow live monitor"))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	row("time", fmt.Sprintf("%.4f s", m.latest.Time))
	row("dt", fmt.Sprintf("%.6f s", m.latest.Dt))
	row("iteration", fmt.Sprintf("%d", m.latest.Iteration))
	row("substep", fmt.Sprintf("%d", m.latest.Substep))
	row("ghost cells", m.ghostCounts)

	if len(m.history) > 1 {
		graph := asciigraph.Plot(m.history,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption("masked scalar mean"))
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n")
	}

	if m.finished {
		b.WriteString(helpStyle.Render("run finished, press q to exit"))
	} else {
		b.WriteString(helpStyle.Render("q: quit"))
	}
	b.WriteString("\n")

	return b.String()
}

// Run blocks until the snapshot channel closes and the user exits.
func Run(snaps <-chan Snapshot, ghostCounts map[string]int) error {
	_, err := tea.NewProgram(NewModel(snaps, ghostCounts)).Run()
	return err
}
