package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/nodeprep/internal/state"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	completeStyle = lipgloss.NewStyle().Foreground(colorGreen)
	failedStyle   = lipgloss.NewStyle().Foreground(colorRed)
	runningStyle  = lipgloss.NewStyle().Foreground(colorYellow)
	dimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	runMark   = "[..]"
	pendMark  = "[  ]"
)

// StageView is one row of the status report.
type StageView struct {
	Record state.StageRecord
	Phases []state.PhaseRecord
}

// RenderStatus renders the stage/phase table for the status command.
// Read-only: it never mutates records.
func RenderStatus(hostname string, stages []StageView, complete bool) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("nodeprep status - "+hostname) + "\n\n")

	for _, s := range stages {
		b.WriteString(fmt.Sprintf("%s %s\n", stageMark(s.Record.Status), s.Record.Name))
		for _, p := range s.Phases {
			b.WriteString(dimStyle.Render(fmt.Sprintf("     %s %s", phaseMark(p.Status), p.Name)) + "\n")
		}
	}

	b.WriteString("\n")
	if complete {
		b.WriteString(completeStyle.Render("provisioning complete") + "\n")
	} else {
		b.WriteString(dimStyle.Render("provisioning incomplete") + "\n")
	}
	return b.String()
}

func stageMark(s state.StageStatus) string {
	switch s {
	case state.StageComplete:
		return completeStyle.Render(checkMark)
	case state.StageFailed:
		return failedStyle.Render(crossMark)
	case state.StageRunning:
		return runningStyle.Render(runMark)
	default:
		return dimStyle.Render(pendMark)
	}
}

func phaseMark(s state.PhaseStatus) string {
	switch s {
	case state.PhaseComplete:
		return checkMark
	case state.PhaseFailed:
		return crossMark
	case state.PhaseRunning:
		return runMark
	default:
		return pendMark
	}
}
