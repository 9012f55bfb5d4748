package invite

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/qcm/internal/ui/layout"
	"github.com/abhisek/qcm/internal/ui/theme"
)

func (s *InviteScreen) View(width, height int) string {
	switch {
	case s.loading:
		return s.renderLoading(width)
	case s.notFound:
		return renderNotFound(width)
	case s.err != nil:
		return s.renderError(width)
	}
	return ""
}

func (s *InviteScreen) renderLoading(width int) string {
	return layout.Centered(width, lipgloss.NewStyle().Foreground(theme.TextDim),
		"\n\n\n"+spinnerFrames[s.frame]+"  Loading your invitation...")
}

func renderNotFound(width int) string {
	var b strings.Builder
	b.WriteString("\n\n\n")
	b.WriteString(layout.Centered(width, theme.Title, "This invitation link is not valid"))
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(width, theme.Body,
		"It may have expired or been revoked.\nPlease ask your recruiter for a new link."))
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(width, theme.Hint, "Press q to quit."))
	return b.String()
}

func (s *InviteScreen) renderError(width int) string {
	var b strings.Builder
	b.WriteString("\n\n\n")
	b.WriteString(layout.Centered(width, lipgloss.NewStyle().Foreground(theme.Error).Bold(true),
		"Could not load the invitation"))
	b.WriteString("\n\n")

	msg := lipgloss.NewStyle().
		Width(layout.ContentWidth(width)).
		Foreground(theme.TextDim).
		Render(s.err.Error())
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, msg))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.menu.View()))
	return b.String()
}
