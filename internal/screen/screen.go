package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/qcm/internal/ui/layout"
)

// Screen is implemented by every application screen.
type Screen interface {
	// Init returns an initial command when the screen becomes active.
	Init() tea.Cmd

	// Update handles messages and returns the updated screen and command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	// Title returns the screen name for the header.
	Title() string
}

// KeyHintProvider lets a screen supply its own footer key hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// StatusProvider lets a screen fill the right side of the header.
type StatusProvider interface {
	Status() string
}

// EscCapturer is implemented by screens that handle Esc themselves instead
// of letting the app pop them off the stack.
type EscCapturer interface {
	CapturesEsc() bool
}

// Closer is implemented by screens that hold resources to release when
// the program exits.
type Closer interface {
	Close()
}
