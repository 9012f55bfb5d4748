package intake

import (
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
)

const testURL = "https://jobs.example.com/intake?attempt_id=att-1&email=ada%40example.com"

func TestAutoOpen(t *testing.T) {
	var got string
	s := New(testURL, func(url string) error { got = url; return nil }, true)

	cmd := s.Init()
	if cmd == nil {
		t.Fatal("expected open command")
	}
	s.Update(cmd())
	if got != testURL {
		t.Errorf("opened %q, want %q", got, testURL)
	}
	if !strings.Contains(s.View(100, 30), "Opened in your browser") {
		t.Error("expected confirmation")
	}
}

func TestManualOpenAndFailure(t *testing.T) {
	s := New(testURL, func(string) error { return errors.New("no display") }, false)
	if s.Init() != nil {
		t.Fatal("should not open without autoOpen")
	}

	_, cmd := s.Update(tea.KeyPressMsg{Code: 'o', Text: "o"})
	if cmd == nil {
		t.Fatal("expected open command on o")
	}
	s.Update(cmd())

	view := s.View(100, 30)
	if !strings.Contains(view, "no display") {
		t.Errorf("expected open failure in view:\n%s", view)
	}
	if !strings.Contains(view, "attempt_id=att-1") {
		t.Error("URL must stay visible for copying")
	}
}

func TestNilOpener(t *testing.T) {
	s := New(testURL, nil, true)
	if s.Init() != nil {
		t.Error("nil opener should never produce a command")
	}
	if _, cmd := s.Update(tea.KeyPressMsg{Code: 'o', Text: "o"}); cmd != nil {
		t.Error("o should be a no-op without an opener")
	}
	if s.URL() != testURL {
		t.Errorf("unexpected URL %q", s.URL())
	}
}

func TestQuit(t *testing.T) {
	s := New(testURL, nil, false)
	_, cmd := s.Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
	if cmd == nil {
		t.Fatal("expected quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
}
