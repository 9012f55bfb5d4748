package components

import (
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/qcm/internal/ui/theme"
)

// TextInput wraps bubbles/textinput with a label and an inline error.
type TextInput struct {
	Label string
	Model textinput.Model
	Err   string
}

// NewTextInput creates a labelled input.
func NewTextInput(label, placeholder string, charLimit int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	if charLimit > 0 {
		ti.CharLimit = charLimit
	}
	return TextInput{Label: label, Model: ti}
}

// Focus focuses the input and returns the cursor blink command.
func (t *TextInput) Focus() tea.Cmd {
	return t.Model.Focus()
}

// Blur removes focus.
func (t *TextInput) Blur() {
	t.Model.Blur()
}

// Focused reports whether the input has focus.
func (t TextInput) Focused() bool {
	return t.Model.Focused()
}

// Update forwards messages to the wrapped input.
func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

// View renders the label, input and any error below it.
func (t TextInput) View() string {
	label := theme.Label.Render(t.Label)
	if t.Model.Focused() {
		label = theme.Selected.Render(t.Label)
	}
	view := label + "\n" + t.Model.View()
	if t.Err != "" {
		view += "\n" + theme.ErrorText.Render(t.Err)
	}
	return view
}

// Value returns the current input value.
func (t TextInput) Value() string {
	return t.Model.Value()
}

// SetValue replaces the input value.
func (t *TextInput) SetValue(v string) {
	t.Model.SetValue(v)
}
