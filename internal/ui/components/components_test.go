package components

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/qcm/internal/assessment"
)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func question() assessment.Question {
	return assessment.Question{
		ID:   "q1",
		Text: "Pick one",
		Options: []assessment.Option{
			{ID: "a", Text: "alpha"},
			{ID: "b", Text: "beta"},
			{ID: "c", Text: "gamma"},
		},
	}
}

func chosen(t *testing.T, cmd tea.Cmd) OptionChosenMsg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(OptionChosenMsg)
	if !ok {
		t.Fatalf("expected OptionChosenMsg, got %T", cmd())
	}
	return msg
}

func TestMultiChoiceCursorStartsOnChosen(t *testing.T) {
	m := NewMultiChoice(question(), "c")
	if m.Cursor != 2 {
		t.Errorf("expected cursor 2, got %d", m.Cursor)
	}
	m = NewMultiChoice(question(), "")
	if m.Cursor != 0 {
		t.Errorf("expected cursor 0, got %d", m.Cursor)
	}
}

func TestMultiChoiceArrowsClamp(t *testing.T) {
	m := NewMultiChoice(question(), "")
	m, _ = m.Update(specialKey(tea.KeyUp))
	if m.Cursor != 0 {
		t.Errorf("cursor should not go below 0, got %d", m.Cursor)
	}
	for range 5 {
		m, _ = m.Update(specialKey(tea.KeyDown))
	}
	if m.Cursor != 2 {
		t.Errorf("cursor should stop at last option, got %d", m.Cursor)
	}
}

func TestMultiChoiceEnterChoosesCursor(t *testing.T) {
	m := NewMultiChoice(question(), "")
	m, _ = m.Update(keyPress('j'))
	_, cmd := m.Update(specialKey(tea.KeyEnter))

	got := chosen(t, cmd)
	if got.QuestionID != "q1" || got.OptionID != "b" {
		t.Errorf("unexpected choice %+v", got)
	}
}

func TestMultiChoiceNumberKeys(t *testing.T) {
	m := NewMultiChoice(question(), "")
	m, cmd := m.Update(keyPress('3'))
	if got := chosen(t, cmd); got.OptionID != "c" {
		t.Errorf("expected c, got %q", got.OptionID)
	}
	if m.Cursor != 2 {
		t.Errorf("expected cursor to follow number key, got %d", m.Cursor)
	}

	_, cmd = m.Update(keyPress('9'))
	if cmd != nil {
		t.Error("out-of-range number key should be ignored")
	}
}

func TestMultiChoiceDisabled(t *testing.T) {
	m := NewMultiChoice(question(), "")
	m.Disabled = true
	if _, cmd := m.Update(keyPress('1')); cmd != nil {
		t.Error("disabled list should not emit choices")
	}
}

func TestMultiChoiceViewMarksChosen(t *testing.T) {
	view := NewMultiChoice(question(), "b").View()
	if !strings.Contains(view, "(•) beta") {
		t.Errorf("expected chosen marker on beta, got:\n%s", view)
	}
	if !strings.Contains(view, "( ) alpha") {
		t.Errorf("expected empty marker on alpha, got:\n%s", view)
	}
}

func TestButtonBusyIgnoresEnter(t *testing.T) {
	pressed := 0
	b := NewButton("Finish", func() tea.Cmd { pressed++; return nil })
	b.Focused = true
	b.Busy = true
	b.BusyLabel = "Submitting..."

	b.Update(specialKey(tea.KeyEnter))
	if pressed != 0 {
		t.Error("busy button should ignore Enter")
	}
	if !strings.Contains(b.View(), "Submitting...") {
		t.Errorf("expected busy label, got %q", b.View())
	}

	b.Busy = false
	b.Update(specialKey(tea.KeyEnter))
	if pressed != 1 {
		t.Errorf("expected one press, got %d", pressed)
	}
}

func TestProgressFraction(t *testing.T) {
	tests := []struct {
		done, total int
		want        float64
	}{
		{0, 0, 0},
		{1, 4, 0.25},
		{5, 4, 1},
	}
	for _, tt := range tests {
		if got := NewProgressBar(tt.done, tt.total, 40).Fraction(); got != tt.want {
			t.Errorf("Fraction(%d/%d) = %v, want %v", tt.done, tt.total, got, tt.want)
		}
	}
	if !strings.Contains(NewProgressBar(2, 5, 40).View(), "2/5") {
		t.Error("expected counter in progress view")
	}
}

func TestMenuSkipsDisabled(t *testing.T) {
	ran := ""
	m := NewMenu([]MenuItem{
		{Label: "Hidden", Disabled: true},
		{Label: "Retry", Action: func() tea.Cmd { ran = "retry"; return nil }},
		{Label: "Quit", Action: func() tea.Cmd { ran = "quit"; return nil }},
	})
	if m.Selected != 1 {
		t.Fatalf("expected first enabled item selected, got %d", m.Selected)
	}
	m, _ = m.Update(specialKey(tea.KeyUp))
	if m.Selected != 1 {
		t.Errorf("up should not land on disabled item, got %d", m.Selected)
	}
	m, _ = m.Update(specialKey(tea.KeyDown))
	m.Update(specialKey(tea.KeyEnter))
	if ran != "quit" {
		t.Errorf("expected quit action, got %q", ran)
	}
}

func TestTextInputShowsError(t *testing.T) {
	in := NewTextInput("Email", "you@example.com", 0)
	in.SetValue("nope")
	in.Err = "Email address is not valid"
	if in.Value() != "nope" {
		t.Errorf("unexpected value %q", in.Value())
	}
	if !strings.Contains(in.View(), "Email address is not valid") {
		t.Error("expected error below input")
	}
}
