// Package tui renders a live view of a probe run: outcomes stream in as
// they complete, followed by the run summary.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/fleetprobe/internal/model"
)

// OutcomeMsg delivers one completed outcome to the view.
type OutcomeMsg model.Outcome

// DoneMsg signals that the run finished and ends the program.
type DoneMsg struct{}

// RunModel is the bubbletea model for a live run.
type RunModel struct {
	spinner  spinner.Model
	total    int
	outcomes []model.Outcome
	done     bool
	quitting bool
}

// NewRunModel creates the live view for a run of total pairs.
func NewRunModel(total int) RunModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return RunModel{spinner: s, total: total}
}

func (m RunModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case OutcomeMsg:
		m.outcomes = append(m.outcomes, model.Outcome(msg))
		return m, nil

	case DoneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m RunModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("fleetprobe"))
	b.WriteString("\n\n")

	lastTarget := ""
	for _, out := range m.outcomes {
		if out.Target != lastTarget {
			b.WriteString(targetStyle.Render("▸ " + out.Target))
			b.WriteString("\n")
			lastTarget = out.Target
		}
		b.WriteString(fmt.Sprintf("  %-14s %s\n", out.Kind, renderStatus(out.Status)))
	}

	if m.done {
		var ok, failed, timedOut, skipped int
		for _, out := range m.outcomes {
			switch out.Status {
			case model.StatusSuccess:
				ok++
			case model.StatusFailure:
				failed++
			case model.StatusTimeout:
				timedOut++
			default:
				skipped++
			}
		}
		b.WriteString(fmt.Sprintf("\ndone: %d probes, %s %s %s %s\n",
			len(m.outcomes),
			okStyle.Render(fmt.Sprintf("%d ok", ok)),
			failStyle.Render(fmt.Sprintf("%d failed", failed)),
			timeoutStyle.Render(fmt.Sprintf("%d timed out", timedOut)),
			skipStyle.Render(fmt.Sprintf("%d unsupported", skipped))))
	} else if !m.quitting {
		b.WriteString(fmt.Sprintf("\n%s probing... %d/%d\n",
			m.spinner.View(), len(m.outcomes), m.total))
		b.WriteString(helpStyle.Render("press q to cancel"))
		b.WriteString("\n")
	}

	return b.String()
}

// Cancelled reports whether the user quit before the run finished.
func (m RunModel) Cancelled() bool {
	return m.quitting && !m.done
}

func renderStatus(status model.Status) string {
	switch status {
	case model.StatusSuccess:
		return okStyle.Render("✓ " + string(status))
	case model.StatusFailure:
		return failStyle.Render("✗ " + string(status))
	case model.StatusTimeout:
		return timeoutStyle.Render("⧗ " + string(status))
	default:
		return skipStyle.Render("- " + string(status))
	}
}
