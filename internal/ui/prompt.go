// Package ui provides the interactive prompts and status rendering for the
// nodeprep CLI.
package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/imamik/nodeprep/internal/storage"
)

// IsTerminal reports whether stdin is attached to a TTY. Interactive
// prompts are only offered when it is.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// skipValue marks the explicit "none of these" choice.
const skipValue = "__skip__"

// ChooseCandidate presents storage candidates and returns the choice, or
// skip=true when the operator declines all of them.
func ChooseCandidate(prompt string, candidates []storage.Candidate) (*storage.Candidate, bool, error) {
	opts := make([]huh.Option[string], 0, len(candidates)+1)
	for _, c := range candidates {
		label := fmt.Sprintf("%s (%s)", c.ID, formatBytes(capacityOf(c)))
		for _, w := range c.Warnings {
			label += " [" + w + "]"
		}
		opts = append(opts, huh.NewOption(label, c.ID))
	}
	opts = append(opts, huh.NewOption("Skip - try the next storage option", skipValue))

	var picked string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(prompt).
			Options(opts...).
			Value(&picked),
	))
	if err := form.Run(); err != nil {
		return nil, false, err
	}
	if picked == skipValue {
		return nil, true, nil
	}
	for i, c := range candidates {
		if c.ID == picked {
			return &candidates[i], false, nil
		}
	}
	return nil, true, nil
}

// Confirm asks a yes/no question, defaulting to no.
func Confirm(prompt string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(prompt).
			Affirmative("Yes").
			Negative("No").
			Value(&ok),
	))
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}

func capacityOf(c storage.Candidate) uint64 {
	if c.Kind == storage.KindPool {
		return c.FreeBytes
	}
	return c.TotalBytes
}

// formatBytes renders a byte count in binary units.
func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
