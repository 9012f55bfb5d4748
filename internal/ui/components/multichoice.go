package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/qcm/internal/assessment"
	"github.com/abhisek/qcm/internal/ui/theme"
)

// OptionChosenMsg is emitted when the candidate picks an option.
type OptionChosenMsg struct {
	QuestionID string
	OptionID   string
}

// MultiChoice renders one question's options and tracks the highlighted
// row. The chosen option is owned by the caller and passed in via Chosen.
type MultiChoice struct {
	QuestionID string
	Options    []assessment.Option
	Cursor     int
	Chosen     string
	Disabled   bool
}

// NewMultiChoice creates a selector for q. The cursor starts on the chosen
// option, if any.
func NewMultiChoice(q assessment.Question, chosen string) MultiChoice {
	m := MultiChoice{
		QuestionID: q.ID,
		Options:    q.Options,
		Chosen:     chosen,
	}
	if i := q.OptionIndex(chosen); i >= 0 {
		m.Cursor = i
	}
	return m
}

// Update moves the cursor with up/down (or k/j) and emits OptionChosenMsg
// on Enter or on a number key 1..9.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, tea.Cmd) {
	if m.Disabled || len(m.Options) == 0 {
		return m, nil
	}

	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	key := kmsg.String()
	switch key {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
		return m, nil
	case "down", "j":
		if m.Cursor < len(m.Options)-1 {
			m.Cursor++
		}
		return m, nil
	case "enter", "space":
		return m, m.choose(m.Cursor)
	}

	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		i := int(key[0] - '1')
		if i < len(m.Options) {
			m.Cursor = i
			return m, m.choose(i)
		}
	}
	return m, nil
}

func (m MultiChoice) choose(i int) tea.Cmd {
	msg := OptionChosenMsg{QuestionID: m.QuestionID, OptionID: m.Options[i].ID}
	return func() tea.Msg { return msg }
}

// View renders the option list.
func (m MultiChoice) View() string {
	var b strings.Builder
	for i, opt := range m.Options {
		prefix := "  "
		if i == m.Cursor && !m.Disabled {
			prefix = "▸ "
		}
		mark := "( )"
		if opt.ID == m.Chosen {
			mark = "(•)"
		}
		line := fmt.Sprintf("%s%d. %s %s", prefix, i+1, mark, opt.Text)

		style := theme.Unselected
		switch {
		case opt.ID == m.Chosen:
			style = theme.Chosen
		case i == m.Cursor && !m.Disabled:
			style = theme.Selected
		case m.Disabled:
			style = lipgloss.NewStyle().Foreground(theme.TextDim)
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}
