package attempt

import (
	"errors"
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/qcm/internal/assessment"
	att "github.com/abhisek/qcm/internal/attempt"
	"github.com/abhisek/qcm/internal/ui/components"
	"github.com/abhisek/qcm/internal/ui/layout"
	"github.com/abhisek/qcm/internal/ui/theme"
)

func (s *AttemptScreen) View(width, height int) string {
	if s.confirmQuit {
		return renderQuitConfirm(width)
	}
	switch s.session.Phase() {
	case att.PhaseNotStarted:
		return s.renderForm(width)
	case att.PhaseInProgress, att.PhaseFinishing:
		if s.session.QuestionCount() == 0 {
			return s.renderEmpty(width)
		}
		return s.renderQuestion(width)
	}
	return layout.Centered(width, theme.Hint, "\n\n\nSubmitted.")
}

// renderForm renders the identity form and the start button.
func (s *AttemptScreen) renderForm(width int) string {
	cw := layout.ContentWidth(width)

	var b strings.Builder
	if a := s.session.Assessment(); a != nil && a.ID != "" {
		title := "Assessment " + a.ID
		if a.Language != "" {
			title += " (" + a.Language + ")"
		}
		b.WriteString(theme.Title.Render(title))
		b.WriteString("\n")
	}
	b.WriteString(theme.Subtitle.Render("Please enter your details to begin."))
	b.WriteString("\n\n")

	for _, in := range s.inputs {
		b.WriteString(in.View())
		b.WriteString("\n\n")
	}

	btn := components.Button{
		Label:     att.StartLabel(s.session.QuestionCount()),
		BusyLabel: "Starting...",
		Focused:   s.focus == len(s.inputs),
		Busy:      s.session.Busy(),
	}
	b.WriteString(btn.View())

	var verr *assessment.ValidationError
	if err := s.session.Err(); err != nil && !errors.As(err, &verr) {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Width(cw).Foreground(theme.Error).
			Render(fmt.Sprintf("Could not start the test: %v. Press Enter on the button to try again.", err)))
	}

	return lipgloss.PlaceHorizontal(width, lipgloss.Center,
		lipgloss.NewStyle().Width(cw).Render(b.String()))
}

// renderQuestion renders the current question with navigation.
func (s *AttemptScreen) renderQuestion(width int) string {
	cw := layout.ContentWidth(width)
	q, _ := s.session.Current()
	total := s.session.QuestionCount()

	var b strings.Builder
	b.WriteString(components.NewProgressBar(s.session.AnsweredCount(), total, cw).View())
	b.WriteString("\n\n")

	heading := fmt.Sprintf("Question %d of %d", s.session.Cursor()+1, total)
	b.WriteString(theme.Label.Render(heading))
	if q.SkillTag != "" {
		b.WriteString(theme.Hint.Render("  " + q.SkillTag))
	}
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().Width(cw).Foreground(theme.Text).Bold(true).Render(q.Text))
	b.WriteString("\n\n")
	b.WriteString(s.choice.View())
	b.WriteString("\n")
	b.WriteString(s.renderNav())

	if err := s.session.Err(); err != nil {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Width(cw).Foreground(theme.Error).
			Render(fmt.Sprintf("Could not submit your answers: %v. Press → to try again.", err)))
	}
	b.WriteString(s.renderWarnings(cw))

	return lipgloss.PlaceHorizontal(width, lipgloss.Center,
		lipgloss.NewStyle().Width(cw).Render(b.String()))
}

// renderEmpty renders an attempt without questions, which can only be
// finished.
func (s *AttemptScreen) renderEmpty(width int) string {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(width, theme.Body, "This test has no questions."))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.finishButton().View()))
	if err := s.session.Err(); err != nil {
		b.WriteString("\n\n")
		b.WriteString(layout.Centered(width, theme.ErrorText, fmt.Sprintf("Could not submit: %v", err)))
	}
	return b.String()
}

func (s *AttemptScreen) renderNav() string {
	prev := theme.Unselected.Render("← Previous")
	if s.session.Cursor() == 0 {
		prev = theme.Hint.Render("← Previous")
	}

	var next string
	switch {
	case s.session.IsLastQuestion():
		next = s.finishButton().View()
	case s.session.CanAdvance():
		next = theme.Selected.Render("Next →")
	default:
		next = theme.Hint.Render("Next →")
	}
	return prev + "    " + next
}

func (s *AttemptScreen) finishButton() components.Button {
	return components.Button{
		Label:     "Finish",
		BusyLabel: "Submitting...",
		Focused:   s.session.CanFinish(),
		Busy:      s.session.Phase() == att.PhaseFinishing,
	}
}

func (s *AttemptScreen) renderWarnings(width int) string {
	warnings := s.session.Warnings()
	if len(warnings) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n")
	for _, w := range warnings {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Foreground(theme.Warning).
			Render("! " + w.Error() + " Your choice is kept."))
	}
	return b.String()
}

func renderQuitConfirm(width int) string {
	var b strings.Builder
	b.WriteString("\n\n\n")
	b.WriteString(layout.Centered(width, theme.Title, "Leave the test?"))
	b.WriteString("\n")
	b.WriteString(layout.Centered(width, theme.Subtitle,
		"Your answers so far are kept, but the test will not be submitted."))
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(width, lipgloss.NewStyle().Foreground(theme.Error), "[Y] Yes, leave"))
	b.WriteString("\n")
	b.WriteString(layout.Centered(width, lipgloss.NewStyle().Foreground(theme.Primary), "[N] No, keep going"))
	return b.String()
}
