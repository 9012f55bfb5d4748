package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/qcm/internal/ui/theme"
)

// ProgressBar shows how many of Total questions are answered.
type ProgressBar struct {
	Done  int
	Total int
	Width int
}

// NewProgressBar creates a progress bar.
func NewProgressBar(done, total, width int) ProgressBar {
	return ProgressBar{Done: done, Total: total, Width: width}
}

// Fraction returns Done/Total clamped to [0, 1]; zero when Total is zero.
func (p ProgressBar) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	f := float64(p.Done) / float64(p.Total)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// View renders the bar followed by "done/total".
func (p ProgressBar) View() string {
	counter := fmt.Sprintf("  %d/%d", p.Done, p.Total)

	barWidth := p.Width - len(counter)
	if barWidth < 4 {
		barWidth = 4
	}

	filled := int(float64(barWidth) * p.Fraction())
	empty := barWidth - filled

	return lipgloss.NewStyle().Background(theme.Secondary).Render(strings.Repeat(" ", filled)) +
		lipgloss.NewStyle().Background(theme.Border).Render(strings.Repeat(" ", empty)) +
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(counter)
}
