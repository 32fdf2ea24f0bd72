package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"examguard/internal/integrity/console"
	"examguard/internal/integrity/models"
)

// controller is the part of *console.Console the model drives.
type controller interface {
	Toggle() bool
	Snapshot() console.Snapshot
}

type snapshotMsg console.Snapshot

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	liveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	pauseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	staleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	freshStyle = lipgloss.NewStyle().Bold(true)

	severityStyles = map[models.Severity]lipgloss.Style{
		models.SeverityCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		models.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		models.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		models.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	}
)

type model struct {
	ctrl   controller
	snap   console.Snapshot
	height int
	quit   func()
}

func newModel(ctrl controller, quit func()) model {
	return model{ctrl: ctrl, snap: ctrl.Snapshot(), quit: quit}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = console.Snapshot(msg)
	case tea.WindowSizeMsg:
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "p", " ":
			m.snap.Live = m.ctrl.Toggle()
		case "q", "ctrl+c", "esc":
			if m.quit != nil {
				m.quit()
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	mode := liveStyle.Render("LIVE")
	if !m.snap.Live {
		mode = pauseStyle.Render("PAUSED")
	}
	fmt.Fprintf(&b, "%s  %s", titleStyle.Render("Integrity events"), mode)
	if !m.snap.LastFetchedAt.IsZero() {
		fmt.Fprintf(&b, "  %s", dimStyle.Render("updated "+m.snap.LastFetchedAt.Format(time.TimeOnly)))
	}
	if m.snap.Stale {
		fmt.Fprintf(&b, "  %s", staleStyle.Render("stale: last refresh failed"))
	}
	b.WriteString("\n\n")

	switch m.snap.Status {
	case console.StatusLoading:
		b.WriteString(dimStyle.Render("Loading…"))
	case console.StatusEmpty:
		b.WriteString(dimStyle.Render("No recent integrity events."))
	default:
		fresh := make(map[string]bool, len(m.snap.Fresh))
		for _, ev := range m.snap.Fresh {
			fresh[ev.ID] = true
		}
		rows := m.snap.Events
		if limit := m.height - 5; m.height > 0 && limit > 0 && len(rows) > limit {
			rows = rows[:limit]
		}
		for _, ev := range rows {
			line := renderRow(ev)
			if fresh[ev.ID] {
				line = freshStyle.Render("● ") + line
			} else {
				line = "  " + line
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n" + dimStyle.Render("p/space: pause or resume   q: quit"))
	return b.String()
}

func renderRow(ev models.EventView) string {
	sev := string(ev.Severity)
	if sev == "" {
		sev = "-"
	}
	if style, ok := severityStyles[ev.Severity]; ok {
		sev = style.Render(fmt.Sprintf("%-8s", sev))
	} else {
		sev = fmt.Sprintf("%-8s", sev)
	}
	return fmt.Sprintf("%s  %s  %-22s  %-24s  %-20s  %s",
		ev.OccurredAt.Local().Format(time.TimeOnly),
		sev,
		ev.Type,
		truncate(ev.StudentLabel(), 24),
		truncate(ev.ExamLabel(), 20),
		ev.Details,
	)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
