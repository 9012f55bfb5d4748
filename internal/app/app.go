package app

import (
	"context"
	"log/slog"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/qcm/internal/api"
	"github.com/abhisek/qcm/internal/assessment"
	"github.com/abhisek/qcm/internal/invite"
	"github.com/abhisek/qcm/internal/router"
	"github.com/abhisek/qcm/internal/screen"
	attemptscreen "github.com/abhisek/qcm/internal/screens/attempt"
	"github.com/abhisek/qcm/internal/screens/intake"
	invitescreen "github.com/abhisek/qcm/internal/screens/invite"
	"github.com/abhisek/qcm/internal/screens/result"
	"github.com/abhisek/qcm/internal/store"
	"github.com/abhisek/qcm/internal/ui/layout"
)

// Options wires the application.
type Options struct {
	Token   string
	Backend api.Backend

	// Attempts and Journal are optional local records.
	Attempts store.AttemptRepo
	Journal  store.AnswerWriteRepo

	APIURL       string
	IntakeBase   string
	FlushTimeout time.Duration
	Retry        api.RetryConfig

	// Open opens the intake URL; AutoOpen opens it without asking.
	Open     intake.Opener
	AutoOpen bool

	Logger *slog.Logger
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	width  int
	height int
}

// New creates an AppModel that starts on the invite screen.
func New(opts Options) AppModel {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	deps := attemptscreen.Deps{
		Backend:      opts.Backend,
		Attempts:     opts.Attempts,
		Journal:      opts.Journal,
		Retry:        opts.Retry,
		FlushTimeout: opts.FlushTimeout,
		Token:        opts.Token,
		APIURL:       opts.APIURL,
		IntakeBase:   opts.IntakeBase,
		Open:         opts.Open,
		AutoOpen:     opts.AutoOpen,
		Logger:       opts.Logger,
	}
	next := func(a *assessment.Assessment) screen.Screen {
		return attemptscreen.New(a, deps)
	}

	return AppModel{
		router: router.New(invitescreen.New(invite.NewLoader(opts.Backend), opts.Token, next)),
	}
}

func (m AppModel) Init() tea.Cmd {
	if active := m.router.Active(); active != nil {
		return active.Init()
	}
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.Close()
			return m, tea.Quit
		case "esc":
			if ec, ok := m.router.Active().(screen.EscCapturer); ok && ec.CapturesEsc() {
				break
			}
			if m.router.Depth() > 1 {
				return m, router.PopCmd()
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title, status := "", ""
	if active != nil {
		title = active.Title()
	}
	if sp, ok := active.(screen.StatusProvider); ok {
		status = sp.Status()
	}
	header := layout.RenderHeader(title, status, m.width)

	footerHints := []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
	if kp, ok := active.(screen.KeyHintProvider); ok {
		if hints := kp.KeyHints(); len(hints) > 0 {
			footerHints = hints
		}
	}
	footer := layout.RenderFooter(footerHints, m.width)

	contentHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

// Close releases resources held by the active screen.
func (m AppModel) Close() {
	if c, ok := m.router.Active().(screen.Closer); ok {
		c.Close()
	}
}

// Outcome describes where the program ended.
type Outcome struct {
	// IntakeURL is set when the candidate passed.
	IntakeURL string

	// Result is set when the attempt was scored.
	Result *assessment.Result
}

// Outcome reports the final screen's result, if any.
func (m AppModel) Outcome() Outcome {
	switch s := m.router.Active().(type) {
	case *intake.IntakeScreen:
		return Outcome{IntakeURL: s.URL()}
	case *result.ResultScreen:
		r := s.Result()
		return Outcome{Result: &r}
	}
	return Outcome{}
}

// Run runs the program until the candidate quits or ctx is canceled and
// returns the final model.
func Run(ctx context.Context, m AppModel, opts ...tea.ProgramOption) (AppModel, error) {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(m, opts...)
	final, err := p.Run()
	if fm, ok := final.(AppModel); ok {
		m = fm
	}
	m.Close()
	return m, err
}
