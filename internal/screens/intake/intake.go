package intake

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/qcm/internal/screen"
	"github.com/abhisek/qcm/internal/ui/layout"
	"github.com/abhisek/qcm/internal/ui/theme"
)

// Opener opens a URL outside the terminal.
type Opener func(url string) error

// openedMsg reports the outcome of an Opener call.
type openedMsg struct {
	Err error
}

// IntakeScreen hands a passing candidate over to the intake form.
type IntakeScreen struct {
	url      string
	open     Opener
	autoOpen bool

	opened bool
	err    error
}

var _ screen.Screen = (*IntakeScreen)(nil)
var _ screen.KeyHintProvider = (*IntakeScreen)(nil)

// New creates an IntakeScreen for url. When autoOpen is set the URL is
// opened as soon as the screen appears. A nil open disables opening.
func New(url string, open Opener, autoOpen bool) *IntakeScreen {
	return &IntakeScreen{url: url, open: open, autoOpen: autoOpen}
}

// URL returns the intake URL.
func (s *IntakeScreen) URL() string { return s.url }

func (s *IntakeScreen) Init() tea.Cmd {
	if s.autoOpen {
		return s.openCmd()
	}
	return nil
}

func (s *IntakeScreen) Title() string {
	return "Next step"
}

func (s *IntakeScreen) KeyHints() []layout.KeyHint {
	hints := make([]layout.KeyHint, 0, 2)
	if s.open != nil {
		hints = append(hints, layout.KeyHint{Key: "O", Description: "Open in browser"})
	}
	return append(hints, layout.KeyHint{Key: "Q", Description: "Exit"})
}

func (s *IntakeScreen) CapturesEsc() bool { return true }

func (s *IntakeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case openedMsg:
		s.err = msg.Err
		s.opened = msg.Err == nil
		if msg.Err != nil {
			slog.Warn("open intake url failed", "error", msg.Err)
		}
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "o":
			return s, s.openCmd()
		case "q", "esc":
			return s, tea.Quit
		}
	}
	return s, nil
}

func (s *IntakeScreen) openCmd() tea.Cmd {
	if s.open == nil {
		return nil
	}
	open, url := s.open, s.url
	return func() tea.Msg {
		return openedMsg{Err: open(url)}
	}
}

func (s *IntakeScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(width, theme.Passed, "Congratulations, you passed!"))
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(width, theme.Body,
		"One more step: please complete the application form at"))
	b.WriteString("\n\n")

	link := lipgloss.NewStyle().
		Width(layout.ContentWidth(width)).
		Foreground(theme.Secondary).
		Render(s.url)
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, link))
	b.WriteString("\n\n")

	switch {
	case s.opened:
		b.WriteString(layout.Centered(width, theme.Hint, "Opened in your browser."))
	case s.err != nil:
		b.WriteString(layout.Centered(width, theme.WarningText,
			fmt.Sprintf("Could not open a browser (%v). Copy the link above.", s.err)))
	case s.open != nil:
		b.WriteString(layout.Centered(width, theme.Hint, "Press o to open it in your browser."))
	}
	return b.String()
}

// OpenBrowser opens url with the platform's default handler.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
