package attempt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/qcm/internal/api"
	"github.com/abhisek/qcm/internal/assessment"
	att "github.com/abhisek/qcm/internal/attempt"
	"github.com/abhisek/qcm/internal/router"
	"github.com/abhisek/qcm/internal/screens/intake"
	"github.com/abhisek/qcm/internal/screens/result"
	"github.com/abhisek/qcm/internal/store"
	"github.com/abhisek/qcm/internal/ui/components"
)

// fakeBackend implements api.Backend for testing.
type fakeBackend struct {
	mu sync.Mutex

	startResp *api.StartResponse
	startErr  error
	starts    []api.StartRequest

	answerErr error
	answers   []api.AnswerRequest

	finishRes *assessment.Result
	finishErr error
	finishes  int
}

func (f *fakeBackend) GetInvite(context.Context, string) (*assessment.Assessment, error) {
	return nil, errors.New("not used")
}

func (f *fakeBackend) StartAttempt(_ context.Context, req api.StartRequest) (*api.StartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, req)
	if f.startErr != nil {
		return nil, f.startErr
	}
	if f.startResp != nil {
		return f.startResp, nil
	}
	return &api.StartResponse{AttemptID: "att-1"}, nil
}

func (f *fakeBackend) SubmitAnswer(_ context.Context, _ string, req api.AnswerRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.answerErr != nil {
		return f.answerErr
	}
	f.answers = append(f.answers, req)
	return nil
}

func (f *fakeBackend) FinishAttempt(context.Context, string) (*assessment.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishes++
	if f.finishErr != nil {
		return nil, f.finishErr
	}
	return f.finishRes, nil
}

func (f *fakeBackend) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

func (f *fakeBackend) sentAnswers() []api.AnswerRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.AnswerRequest(nil), f.answers...)
}

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func threeQuestions() *assessment.Assessment {
	q := func(id string) assessment.Question {
		return assessment.Question{
			ID:       id,
			SkillTag: "go",
			Text:     "Question " + id,
			Options: []assessment.Option{
				{ID: id + "-a", Text: "A"},
				{ID: id + "-b", Text: "B"},
				{ID: id + "-c", Text: "C"},
				{ID: id + "-d", Text: "D"},
			},
		}
	}
	return &assessment.Assessment{
		ID:        "abc",
		Token:     "abc123",
		Language:  "en",
		Questions: []assessment.Question{q("q1"), q("q2"), q("q3")},
	}
}

func fastRetry() api.RetryConfig {
	return api.RetryConfig{MaxAttempts: 1, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1}
}

func newScreen(t *testing.T, a *assessment.Assessment, b *fakeBackend, mutate ...func(*Deps)) *AttemptScreen {
	t.Helper()
	deps := Deps{
		Backend:      b,
		Retry:        fastRetry(),
		FlushTimeout: 2 * time.Second,
		Token:        "abc123",
		IntakeBase:   "https://jobs.example.com",
	}
	for _, m := range mutate {
		m(&deps)
	}
	s := New(a, deps)
	s.Init()
	t.Cleanup(s.Close)
	return s
}

func fillForm(s *AttemptScreen) {
	values := []string{"Ada", "Lovelace", "ada@example.com", "0600000000"}
	for i := range s.inputs {
		s.inputs[i].SetValue(values[i])
	}
}

// start fills the form, submits it and feeds the start response back.
func start(t *testing.T, s *AttemptScreen) {
	t.Helper()
	fillForm(s)
	s.setFocus(len(s.inputs))

	_, cmd := s.Update(specialKey(tea.KeyEnter))
	require.NotNil(t, cmd)
	msg := cmd()
	started, ok := msg.(startedMsg)
	require.True(t, ok, "expected startedMsg, got %T", msg)
	s.Update(started)
	require.Equal(t, att.PhaseInProgress, s.session.Phase())
}

// choose presses a number key and delivers the resulting choice.
func choose(t *testing.T, s *AttemptScreen, n rune) {
	t.Helper()
	_, cmd := s.Update(keyPress(n))
	require.NotNil(t, cmd, "expected a choice for key %q", n)
	s.Update(cmd())
}

func TestStartLabelReflectsQuestionCount(t *testing.T) {
	s := newScreen(t, threeQuestions(), &fakeBackend{})
	assert.Contains(t, s.View(100, 40), "Start the test (3 questions)")

	empty := newScreen(t, &assessment.Assessment{ID: "empty"}, &fakeBackend{})
	assert.Contains(t, empty.View(100, 40), "Start the test (0 questions)")
}

func TestTypingFillsFocusedInput(t *testing.T) {
	s := newScreen(t, threeQuestions(), &fakeBackend{})
	s.Update(keyPress('A'))
	s.Update(keyPress('d'))
	assert.Equal(t, "Ad", s.inputs[0].Value())

	s.Update(specialKey(tea.KeyTab))
	s.Update(keyPress('L'))
	assert.Equal(t, "L", s.inputs[1].Value())
}

func TestEmptyFieldsBlockStart(t *testing.T) {
	b := &fakeBackend{}
	s := newScreen(t, threeQuestions(), b)
	s.inputs[2].SetValue("not-an-email")
	s.setFocus(len(s.inputs))

	s.Update(specialKey(tea.KeyEnter))

	assert.Equal(t, 0, b.startCount())
	assert.False(t, s.session.Busy())
	assert.Equal(t, att.PhaseNotStarted, s.session.Phase())
	assert.Equal(t, 0, s.focus, "focus moves to the first invalid field")

	view := s.View(100, 40)
	assert.Contains(t, view, "First name is required")
	assert.Contains(t, view, "Email address is not valid")
}

func TestStartSendsTrimmedCandidate(t *testing.T) {
	b := &fakeBackend{}
	s := newScreen(t, threeQuestions(), b)
	fillForm(s)
	s.inputs[0].SetValue("  Ada ")
	start(t, s)

	require.Equal(t, 1, b.startCount())
	assert.Equal(t, "Ada", b.starts[0].FirstName)
	assert.Equal(t, "abc123", b.starts[0].Token)
	assert.Equal(t, "att-1", s.session.AttemptID())
}

func TestStartFailureIsInlineAndRetryable(t *testing.T) {
	b := &fakeBackend{startErr: &api.StatusError{Method: "POST", Path: "/attempts/start", StatusCode: 503}}
	s := newScreen(t, threeQuestions(), b)
	fillForm(s)
	s.setFocus(len(s.inputs))

	_, cmd := s.Update(specialKey(tea.KeyEnter))
	require.NotNil(t, cmd)
	s.Update(cmd())

	assert.Equal(t, att.PhaseNotStarted, s.session.Phase())
	assert.Contains(t, s.View(100, 40), "Could not start the test")

	b.startErr = nil
	start(t, s)
	assert.Equal(t, 2, b.startCount())
}

func TestDuplicateStartIsIgnored(t *testing.T) {
	b := &fakeBackend{}
	s := newScreen(t, threeQuestions(), b)
	fillForm(s)
	s.setFocus(len(s.inputs))

	_, first := s.Update(specialKey(tea.KeyEnter))
	require.NotNil(t, first)
	_, second := s.Update(specialKey(tea.KeyEnter))
	assert.Nil(t, second)
	assert.Contains(t, s.View(100, 40), "Starting...")
}

func TestSelectBeforeStartIsIgnored(t *testing.T) {
	s := newScreen(t, threeQuestions(), &fakeBackend{})
	_, cmd := s.Update(components.OptionChosenMsg{QuestionID: "q1", OptionID: "q1-a"})
	assert.Nil(t, cmd)
	assert.Equal(t, 0, s.session.AnsweredCount())
}

func TestNextRequiresAnswer(t *testing.T) {
	s := newScreen(t, threeQuestions(), &fakeBackend{})
	start(t, s)

	s.Update(specialKey(tea.KeyRight))
	assert.Equal(t, 0, s.session.Cursor(), "next is disabled until answered")

	choose(t, s, '1')
	s.Update(specialKey(tea.KeyRight))
	assert.Equal(t, 1, s.session.Cursor())

	s.Update(specialKey(tea.KeyLeft))
	assert.Equal(t, 0, s.session.Cursor())
	assert.Equal(t, "q1-a", s.choice.Chosen, "previous choice is shown again")
}

func TestFrozenQuestionsSupersedePublicSet(t *testing.T) {
	frozen := []assessment.Question{{
		ID:      "f1",
		Text:    "Frozen",
		Options: []assessment.Option{{ID: "x", Text: "X"}, {ID: "y", Text: "Y"}},
	}}
	b := &fakeBackend{startResp: &api.StartResponse{AttemptID: "att-9", Questions: frozen}}
	s := newScreen(t, threeQuestions(), b)
	start(t, s)

	assert.Equal(t, 1, s.session.QuestionCount())
	assert.True(t, s.session.IsLastQuestion())
	assert.Contains(t, s.View(100, 40), "Frozen")
}

func TestScenarioFailingCandidate(t *testing.T) {
	b := &fakeBackend{finishRes: &assessment.Result{
		Score:           67,
		CorrectCount:    2,
		TotalQuestions:  3,
		DurationSeconds: 120,
		Passed:          false,
	}}
	s := newScreen(t, threeQuestions(), b)
	start(t, s)

	choose(t, s, '1')
	s.Update(keyPress('n'))
	choose(t, s, '2')
	s.Update(keyPress('n'))
	require.True(t, s.session.IsLastQuestion())

	// Finish stays disabled until Q3 is answered.
	_, cmd := s.Update(keyPress('f'))
	assert.Nil(t, cmd)
	assert.False(t, s.session.CanFinish())

	choose(t, s, '3')
	assert.True(t, s.session.CanFinish())

	_, cmd = s.Update(keyPress('f'))
	require.NotNil(t, cmd)
	assert.Equal(t, att.PhaseFinishing, s.session.Phase())
	assert.Contains(t, s.View(100, 40), "Submitting...")

	_, again := s.Update(keyPress('f'))
	assert.Nil(t, again, "finish is not submitted twice")

	_, cmd = s.Update(cmd())
	require.NotNil(t, cmd)
	reset, ok := cmd().(router.ResetScreenMsg)
	require.True(t, ok)

	rs, ok := reset.Screen.(*result.ResultScreen)
	require.True(t, ok, "expected result screen, got %T", reset.Screen)
	view := rs.View(100, 40)
	assert.Contains(t, view, "67%")
	assert.Contains(t, view, "2 correct / 3 questions")
	assert.Contains(t, view, "Duration: 120s")

	// Flush ran before scoring.
	assert.Equal(t, []api.AnswerRequest{
		{QuestionID: "q1", OptionID: "q1-a", Seq: 1},
		{QuestionID: "q2", OptionID: "q2-b", Seq: 2},
		{QuestionID: "q3", OptionID: "q3-c", Seq: 3},
	}, b.sentAnswers())
	assert.Equal(t, 1, b.finishes)
}

func TestPassingCandidateIsHandedToIntake(t *testing.T) {
	b := &fakeBackend{finishRes: &assessment.Result{Score: 100, CorrectCount: 1, TotalQuestions: 1, Passed: true, Language: "fr"}}
	a := threeQuestions()
	a.Questions = a.Questions[:1]
	s := newScreen(t, a, b)
	start(t, s)

	choose(t, s, '2')
	_, cmd := s.Update(specialKey(tea.KeyRight))
	require.NotNil(t, cmd)
	_, cmd = s.Update(cmd())
	require.NotNil(t, cmd)

	reset := cmd().(router.ResetScreenMsg)
	is, ok := reset.Screen.(*intake.IntakeScreen)
	require.True(t, ok, "expected intake screen, got %T", reset.Screen)
	assert.Equal(t,
		"https://jobs.example.com/intake?attempt_id=att-1&email=ada%40example.com&first_name=Ada&last_name=Lovelace&phone=0600000000&lang=fr",
		is.URL())
}

func TestFinishFailureAllowsRetry(t *testing.T) {
	b := &fakeBackend{finishErr: &api.NetworkError{Op: "POST /attempts/att-1/finish", Err: errors.New("connection reset")}}
	a := threeQuestions()
	a.Questions = a.Questions[:1]
	s := newScreen(t, a, b)
	start(t, s)
	choose(t, s, '1')

	_, cmd := s.Update(keyPress('f'))
	require.NotNil(t, cmd)
	s.Update(cmd())

	assert.Equal(t, att.PhaseInProgress, s.session.Phase())
	assert.Contains(t, s.View(100, 40), "Could not submit your answers")

	b.finishErr = nil
	b.finishRes = &assessment.Result{TotalQuestions: 1}
	_, cmd = s.Update(keyPress('f'))
	require.NotNil(t, cmd)
	_, cmd = s.Update(cmd())
	require.NotNil(t, cmd)
	assert.Equal(t, att.PhaseFinished, s.session.Phase())
	assert.Equal(t, 2, b.finishes)
}

func TestSyncFailureIsAWarning(t *testing.T) {
	b := &fakeBackend{answerErr: &api.StatusError{Method: "POST", Path: "/attempts/att-1/answer", StatusCode: 400}}
	s := newScreen(t, threeQuestions(), b)
	start(t, s)

	choose(t, s, '2')
	msg := waitForSync(s.queue.Results())()
	_, cmd := s.Update(msg)
	assert.NotNil(t, cmd, "keeps listening for results")

	require.Len(t, s.session.Warnings(), 1)
	assert.Equal(t, "q1-b", s.choice.Chosen, "local choice is kept")
	assert.True(t, strings.Contains(s.View(100, 40), "answer to question 1 was not saved"))
}

func TestZeroQuestionAttemptCanFinish(t *testing.T) {
	b := &fakeBackend{finishRes: &assessment.Result{}}
	s := newScreen(t, &assessment.Assessment{ID: "empty"}, b)
	start(t, s)

	assert.Contains(t, s.View(100, 40), "no questions")
	_, cmd := s.Update(specialKey(tea.KeyEnter))
	require.NotNil(t, cmd)
	_, cmd = s.Update(cmd())
	require.NotNil(t, cmd)
	_, ok := cmd().(router.ResetScreenMsg)
	assert.True(t, ok)
}

func TestEscAsksBeforeLeaving(t *testing.T) {
	s := newScreen(t, threeQuestions(), &fakeBackend{})
	start(t, s)

	s.Update(specialKey(tea.KeyEscape))
	assert.Contains(t, s.View(100, 40), "Leave the test?")

	s.Update(keyPress('n'))
	assert.False(t, s.confirmQuit)
	assert.Equal(t, 0, s.session.Cursor(), "n answers the dialog, not navigation")

	s.Update(specialKey(tea.KeyEscape))
	_, cmd := s.Update(keyPress('y'))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)

	_, open := <-s.queue.Results()
	assert.False(t, open, "outbox closed on leave")
}

func TestJournalRecordsAttempt(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	b := &fakeBackend{finishRes: &assessment.Result{Score: 100, CorrectCount: 1, TotalQuestions: 1, Passed: true}}
	a := threeQuestions()
	a.Questions = a.Questions[:1]
	s := newScreen(t, a, b, func(d *Deps) {
		d.Attempts = st.AttemptRepo()
		d.Journal = st.AnswerWriteRepo()
	})
	start(t, s)
	choose(t, s, '1')

	_, cmd := s.Update(keyPress('f'))
	require.NotNil(t, cmd)
	s.Update(cmd())

	ctx := context.Background()
	rec, err := st.AttemptRepo().Get(ctx, "att-1")
	require.NoError(t, err)
	assert.Equal(t, "abc", rec.AssessmentID)
	assert.Equal(t, "Ada", rec.Candidate.FirstName)
	require.True(t, rec.Finished())
	assert.True(t, rec.Result.Passed)

	left, err := st.AnswerWriteRepo().Undelivered(ctx, "att-1")
	require.NoError(t, err)
	assert.Empty(t, left)
}
