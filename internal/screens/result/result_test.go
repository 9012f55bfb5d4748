package result

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/qcm/internal/assessment"
)

func TestScoreCardShowsBackendValues(t *testing.T) {
	s := New(assessment.Result{
		Score:           67,
		CorrectCount:    2,
		TotalQuestions:  3,
		DurationSeconds: 120,
		Passed:          false,
	})

	view := s.View(100, 30)
	for _, want := range []string{"67%", "2 correct / 3 questions", "Duration: 120s", "Not passed"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestScoreIsNotRecomputed(t *testing.T) {
	// 1 of 3 would be 33%; the backend said 50 and that is what is shown.
	s := New(assessment.Result{Score: 50, CorrectCount: 1, TotalQuestions: 3})
	if !strings.Contains(s.View(100, 30), "50%") {
		t.Error("expected backend score verbatim")
	}
}

func TestOnlyExitIsPossible(t *testing.T) {
	s := New(assessment.Result{})
	for _, key := range []tea.KeyPressMsg{
		{Code: 'q', Text: "q"},
		{Code: tea.KeyEnter},
		{Code: tea.KeyEscape},
	} {
		_, cmd := s.Update(key)
		if cmd == nil {
			t.Fatalf("expected quit for %q", key.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("expected QuitMsg for %q", key.String())
		}
	}

	if _, cmd := s.Update(tea.KeyPressMsg{Code: 'n', Text: "n"}); cmd != nil {
		t.Error("other keys should do nothing")
	}
}
