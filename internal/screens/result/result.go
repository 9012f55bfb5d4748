package result

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/qcm/internal/assessment"
	"github.com/abhisek/qcm/internal/completion"
	"github.com/abhisek/qcm/internal/screen"
	"github.com/abhisek/qcm/internal/ui/layout"
	"github.com/abhisek/qcm/internal/ui/theme"
)

// ResultScreen is the terminal score card. Nothing can be done from it
// except leaving.
type ResultScreen struct {
	result assessment.Result
}

var _ screen.Screen = (*ResultScreen)(nil)
var _ screen.KeyHintProvider = (*ResultScreen)(nil)

// New creates a ResultScreen for r.
func New(r assessment.Result) *ResultScreen {
	return &ResultScreen{result: r}
}

// Result returns the displayed result.
func (s *ResultScreen) Result() assessment.Result { return s.result }

func (s *ResultScreen) Init() tea.Cmd {
	return nil
}

func (s *ResultScreen) Title() string {
	return "Result"
}

func (s *ResultScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{{Key: "Q", Description: "Exit"}}
}

func (s *ResultScreen) CapturesEsc() bool { return true }

func (s *ResultScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "q", "enter", "esc":
			return s, tea.Quit
		}
	}
	return s, nil
}

func (s *ResultScreen) View(width, height int) string {
	r := s.result

	verdictStyle := theme.NotPassed
	if r.Passed {
		verdictStyle = theme.Passed
	}

	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(width, theme.Title, "Thank you for taking the test"))
	b.WriteString("\n\n")

	card := theme.Card.Width(34).Align(lipgloss.Center).Render(strings.Join([]string{
		verdictStyle.Render(completion.Verdict(r)),
		"",
		lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(completion.FormatScore(r)),
		lipgloss.NewStyle().Foreground(theme.Text).Render(completion.FormatCorrect(r)),
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(completion.FormatDuration(r)),
	}, "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, card))
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(width, theme.Hint, "Your answers have been recorded. You can close this window."))
	return b.String()
}
