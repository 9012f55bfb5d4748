package components

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/qcm/internal/ui/theme"
)

// Button is a focusable action button. While Busy it ignores presses and
// shows BusyLabel.
type Button struct {
	Label     string
	BusyLabel string
	Focused   bool
	Busy      bool
	OnPress   func() tea.Cmd
}

// NewButton creates a button.
func NewButton(label string, onPress func() tea.Cmd) Button {
	return Button{
		Label:   label,
		OnPress: onPress,
	}
}

// Update fires OnPress on Enter when focused and not busy.
func (b Button) Update(msg tea.Msg) (Button, tea.Cmd) {
	if !b.Focused || b.Busy {
		return b, nil
	}

	if kmsg, ok := msg.(tea.KeyMsg); ok {
		if kmsg.String() == "enter" && b.OnPress != nil {
			return b, b.OnPress()
		}
	}

	return b, nil
}

// View renders the button.
func (b Button) View() string {
	if b.Busy {
		label := b.BusyLabel
		if label == "" {
			label = b.Label
		}
		return theme.ButtonBusy.Render(label)
	}
	if b.Focused {
		return theme.ButtonActive.Render("▸ " + b.Label)
	}
	return theme.ButtonInactive.Render("  " + b.Label)
}
