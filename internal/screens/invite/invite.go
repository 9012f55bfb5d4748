package invite

import (
	"context"
	"errors"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/qcm/internal/assessment"
	inv "github.com/abhisek/qcm/internal/invite"
	"github.com/abhisek/qcm/internal/router"
	"github.com/abhisek/qcm/internal/screen"
	"github.com/abhisek/qcm/internal/ui/components"
	"github.com/abhisek/qcm/internal/ui/layout"
)

// loadedMsg carries the outcome of an invite load.
type loadedMsg struct {
	Assessment *assessment.Assessment
	Err        error
}

// retryMsg asks the screen to load the invite again.
type retryMsg struct{}

// spinnerTickMsg animates the loading indicator.
type spinnerTickMsg time.Time

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Next builds the screen that follows a loaded invite.
type Next func(a *assessment.Assessment) screen.Screen

// InviteScreen loads an invite token and hands the assessment to the next
// screen. Unknown or expired tokens end on a dedicated screen.
type InviteScreen struct {
	loader *inv.Loader
	token  string
	next   Next

	loading  bool
	frame    int
	notFound bool
	err      error
	menu     components.Menu
}

var _ screen.Screen = (*InviteScreen)(nil)
var _ screen.KeyHintProvider = (*InviteScreen)(nil)

// New creates an InviteScreen for token.
func New(loader *inv.Loader, token string, next Next) *InviteScreen {
	return &InviteScreen{
		loader: loader,
		token:  token,
		next:   next,
	}
}

func (s *InviteScreen) Init() tea.Cmd {
	s.loading = true
	return tea.Batch(s.load(), spinnerTick())
}

func (s *InviteScreen) Title() string {
	return "Invitation"
}

func (s *InviteScreen) KeyHints() []layout.KeyHint {
	switch {
	case s.loading:
		return []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
	case s.err != nil && !s.notFound:
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Select"},
		}
	default:
		return []layout.KeyHint{{Key: "Q", Description: "Quit"}}
	}
}

// CapturesEsc keeps Esc from popping the root screen.
func (s *InviteScreen) CapturesEsc() bool { return true }

func (s *InviteScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		return s.handleLoaded(msg)

	case retryMsg:
		s.loading = true
		s.err = nil
		return s, tea.Batch(s.load(), spinnerTick())

	case spinnerTickMsg:
		if !s.loading {
			return s, nil
		}
		s.frame = (s.frame + 1) % len(spinnerFrames)
		return s, spinnerTick()

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *InviteScreen) handleLoaded(msg loadedMsg) (screen.Screen, tea.Cmd) {
	s.loading = false
	if msg.Err == nil {
		return s, router.ReplaceCmd(s.next(msg.Assessment))
	}

	s.err = msg.Err
	if errors.Is(msg.Err, inv.ErrNotFound) {
		s.notFound = true
		return s, nil
	}

	items := make([]components.MenuItem, 0, 2)
	if inv.IsRetryable(msg.Err) {
		items = append(items, components.MenuItem{
			Label:  "Try again",
			Action: func() tea.Cmd { return func() tea.Msg { return retryMsg{} } },
		})
	}
	items = append(items, components.MenuItem{
		Label:  "Quit",
		Action: func() tea.Cmd { return tea.Quit },
	})
	s.menu = components.NewMenu(items)
	return s, nil
}

func (s *InviteScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if s.loading {
		return s, nil
	}

	if s.notFound {
		switch msg.String() {
		case "q", "enter", "esc":
			return s, tea.Quit
		}
		return s, nil
	}

	if s.err != nil {
		if msg.String() == "q" {
			return s, tea.Quit
		}
		var cmd tea.Cmd
		s.menu, cmd = s.menu.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *InviteScreen) load() tea.Cmd {
	loader, token := s.loader, s.token
	return func() tea.Msg {
		a, err := loader.Load(context.Background(), token)
		return loadedMsg{Assessment: a, Err: err}
	}
}

func spinnerTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}
