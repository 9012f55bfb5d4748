package attempt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/qcm/internal/api"
	"github.com/abhisek/qcm/internal/assessment"
	att "github.com/abhisek/qcm/internal/attempt"
	"github.com/abhisek/qcm/internal/completion"
	"github.com/abhisek/qcm/internal/outbox"
	"github.com/abhisek/qcm/internal/router"
	"github.com/abhisek/qcm/internal/screen"
	"github.com/abhisek/qcm/internal/screens/intake"
	"github.com/abhisek/qcm/internal/screens/result"
	"github.com/abhisek/qcm/internal/store"
	"github.com/abhisek/qcm/internal/ui/components"
	"github.com/abhisek/qcm/internal/ui/layout"
)

// Deps are the collaborators of an AttemptScreen.
type Deps struct {
	Backend api.Backend

	// Attempts and Journal are optional local records.
	Attempts store.AttemptRepo
	Journal  store.AnswerWriteRepo

	// Retry is the answer delivery policy. Zero means the outbox default.
	Retry api.RetryConfig

	// FlushTimeout bounds the wait for pending answers before finishing.
	FlushTimeout time.Duration

	Token      string
	APIURL     string
	IntakeBase string

	// Open and AutoOpen configure the intake handoff.
	Open     intake.Opener
	AutoOpen bool

	Logger *slog.Logger
}

// AttemptScreen runs an attempt from the identity form to the final
// handoff. All attempt state lives in an attempt.Session; the screen only
// performs the calls and feeds their results back.
type AttemptScreen struct {
	deps    Deps
	session *att.Session
	logger  *slog.Logger

	inputs []components.TextInput
	focus  int

	choice components.MultiChoice
	queue  *outbox.Queue

	elapsed     time.Duration
	confirmQuit bool
}

var _ screen.Screen = (*AttemptScreen)(nil)
var _ screen.KeyHintProvider = (*AttemptScreen)(nil)
var _ screen.StatusProvider = (*AttemptScreen)(nil)
var _ screen.Closer = (*AttemptScreen)(nil)

// New creates an AttemptScreen for a loaded assessment.
func New(a *assessment.Assessment, deps Deps) *AttemptScreen {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushTimeout <= 0 {
		deps.FlushTimeout = 5 * time.Second
	}

	s := &AttemptScreen{
		deps:    deps,
		session: att.New(a),
		logger:  deps.Logger,
		inputs:  make([]components.TextInput, len(assessment.Fields)),
	}
	for i, f := range assessment.Fields {
		s.inputs[i] = components.NewTextInput(f.Label(), placeholder(f), 120)
	}
	return s
}

// Session exposes the underlying attempt state.
func (s *AttemptScreen) Session() *att.Session { return s.session }

func (s *AttemptScreen) Init() tea.Cmd {
	return s.inputs[0].Focus()
}

func (s *AttemptScreen) Title() string {
	return "Assessment"
}

func (s *AttemptScreen) CapturesEsc() bool { return true }

func (s *AttemptScreen) Status() string {
	switch s.session.Phase() {
	case att.PhaseInProgress, att.PhaseFinishing:
	default:
		return ""
	}
	clock := formatClock(s.elapsed)
	if n := s.session.QuestionCount(); n > 0 {
		return fmt.Sprintf("Question %d/%d  %s", s.session.Cursor()+1, n, clock)
	}
	return clock
}

func (s *AttemptScreen) KeyHints() []layout.KeyHint {
	if s.confirmQuit {
		return []layout.KeyHint{
			{Key: "Y", Description: "Leave"},
			{Key: "N", Description: "Stay"},
		}
	}
	if s.session.Phase() == att.PhaseNotStarted {
		return []layout.KeyHint{
			{Key: "Tab", Description: "Next field"},
			{Key: "Enter", Description: "Start"},
			{Key: "Esc", Description: "Quit"},
		}
	}

	hints := make([]layout.KeyHint, 0, 4)
	if q, ok := s.session.Current(); ok {
		hints = append(hints, layout.KeyHint{Key: fmt.Sprintf("1-%d", len(q.Options)), Description: "Choose"})
	}
	hints = append(hints, layout.KeyHint{Key: "←", Description: "Previous"})
	if s.session.IsLastQuestion() || s.session.QuestionCount() == 0 {
		hints = append(hints, layout.KeyHint{Key: "→", Description: "Finish"})
	} else {
		hints = append(hints, layout.KeyHint{Key: "→", Description: "Next"})
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Leave"})
}

func (s *AttemptScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case startedMsg:
		return s.handleStarted(msg)

	case finishedMsg:
		return s.handleFinished(msg)

	case syncMsg:
		return s.handleSync(msg)

	case timerTickMsg:
		return s.handleTimerTick()

	case components.OptionChosenMsg:
		return s.handleChosen(msg)

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	// Cursor blink and other input internals.
	if s.session.Phase() == att.PhaseNotStarted && s.focus < len(s.inputs) {
		var cmd tea.Cmd
		s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *AttemptScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if s.confirmQuit {
		switch msg.String() {
		case "y", "Y":
			s.Close()
			return s, tea.Quit
		case "n", "N", "esc":
			s.confirmQuit = false
		}
		return s, nil
	}

	switch s.session.Phase() {
	case att.PhaseNotStarted:
		return s.handleFormKey(msg)
	case att.PhaseInProgress, att.PhaseFinishing:
		return s.handleQuestionKey(msg)
	}
	return s, nil
}

func (s *AttemptScreen) handleFormKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return s, tea.Quit
	case "tab", "down":
		return s, s.moveFocus(1)
	case "shift+tab", "up":
		return s, s.moveFocus(-1)
	case "enter":
		if s.focus < len(s.inputs)-1 {
			return s, s.moveFocus(1)
		}
		return s.submit()
	}

	if s.focus < len(s.inputs) {
		var cmd tea.Cmd
		s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
		return s, cmd
	}
	return s, nil
}

// moveFocus cycles through the inputs and the start button.
func (s *AttemptScreen) moveFocus(delta int) tea.Cmd {
	return s.setFocus((s.focus + delta + len(s.inputs) + 1) % (len(s.inputs) + 1))
}

func (s *AttemptScreen) setFocus(i int) tea.Cmd {
	if s.focus < len(s.inputs) {
		s.inputs[s.focus].Blur()
	}
	s.focus = i
	if i < len(s.inputs) {
		return s.inputs[i].Focus()
	}
	return nil
}

// submit validates the form and starts the attempt. Invalid input never
// reaches the backend.
func (s *AttemptScreen) submit() (screen.Screen, tea.Cmd) {
	err := s.session.BeginStart(s.candidate())

	var verr *assessment.ValidationError
	switch {
	case errors.As(err, &verr):
		return s, s.showFieldErrors(verr)
	case err != nil:
		// A start is already in flight.
		return s, nil
	}

	s.showFieldErrors(nil)
	return s, s.startAttempt(s.session.Candidate())
}

func (s *AttemptScreen) showFieldErrors(verr *assessment.ValidationError) tea.Cmd {
	first := -1
	for i, f := range assessment.Fields {
		s.inputs[i].Err = verr.Message(f)
		if first < 0 && s.inputs[i].Err != "" {
			first = i
		}
	}
	if first >= 0 {
		return s.setFocus(first)
	}
	return nil
}

func (s *AttemptScreen) startAttempt(c assessment.Candidate) tea.Cmd {
	backend, token := s.deps.Backend, s.deps.Token
	return func() tea.Msg {
		resp, err := backend.StartAttempt(context.Background(), api.NewStartRequest(token, c))
		return startedMsg{Resp: resp, Err: err}
	}
}

func (s *AttemptScreen) handleStarted(msg startedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.logger.Warn("start attempt failed", "error", msg.Err)
		s.session.StartFailed(msg.Err)
		return s, nil
	}

	s.session.StartSucceeded(msg.Resp.AttemptID, msg.Resp.Questions)
	id := s.session.AttemptID()
	s.logger.Info("attempt started", "attempt_id", id, "questions", s.session.QuestionCount())

	s.recordStart()
	s.queue = outbox.New(id, s.deps.Backend, outbox.Options{
		Retry:   s.deps.Retry,
		Journal: s.deps.Journal,
		Logger:  s.logger,
	})
	s.resetChoice()

	return s, tea.Batch(waitForSync(s.queue.Results()), tickCmd())
}

func (s *AttemptScreen) recordStart() {
	if s.deps.Attempts == nil {
		return
	}
	a := s.session.Assessment()
	rec := store.AttemptRecord{
		ID:            s.session.AttemptID(),
		Token:         s.deps.Token,
		APIURL:        s.deps.APIURL,
		Candidate:     s.session.Candidate(),
		QuestionCount: s.session.QuestionCount(),
		StartedAt:     s.session.StartedAt(),
	}
	if a != nil {
		rec.AssessmentID = a.ID
		rec.Language = a.Language
	}
	if err := s.deps.Attempts.RecordStart(context.Background(), rec); err != nil {
		s.logger.Warn("journal attempt start failed", "attempt_id", rec.ID, "error", err)
	}
}

func (s *AttemptScreen) handleQuestionKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "esc":
		s.confirmQuit = true
		return s, nil
	case "left", "p", "h":
		if s.session.Previous() {
			s.resetChoice()
		}
		return s, nil
	case "right", "n", "l":
		if s.session.IsLastQuestion() || s.session.QuestionCount() == 0 {
			return s.finish()
		}
		if s.session.Next() {
			s.resetChoice()
		}
		return s, nil
	case "f":
		return s.finish()
	case "enter":
		if s.session.QuestionCount() == 0 {
			return s.finish()
		}
	}

	var cmd tea.Cmd
	s.choice, cmd = s.choice.Update(msg)
	return s, cmd
}

func (s *AttemptScreen) handleChosen(msg components.OptionChosenMsg) (screen.Screen, tea.Cmd) {
	q, ok := s.session.Current()
	if !ok || q.ID != msg.QuestionID {
		return s, nil
	}

	ans, ok := s.session.Select(msg.OptionID)
	if !ok {
		return s, nil
	}
	s.choice.Chosen = ans.OptionID

	if s.queue != nil {
		w := s.queue.Enqueue(ans.QuestionID, ans.OptionID)
		s.logger.Debug("answer queued",
			"attempt_id", ans.AttemptID,
			"question_id", ans.QuestionID,
			"seq", w.Seq,
		)
	}
	return s, nil
}

// finish submits the attempt for scoring. Busy and unanswered states make
// it a no-op.
func (s *AttemptScreen) finish() (screen.Screen, tea.Cmd) {
	if err := s.session.BeginFinish(); err != nil {
		return s, nil
	}
	s.choice.Disabled = true
	return s, s.finishAttempt()
}

func (s *AttemptScreen) finishAttempt() tea.Cmd {
	backend, queue := s.deps.Backend, s.queue
	id, timeout := s.session.AttemptID(), s.deps.FlushTimeout
	return func() tea.Msg {
		var flushErr error
		if queue != nil {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			flushErr = queue.Flush(ctx)
			cancel()
		}
		res, err := backend.FinishAttempt(context.Background(), id)
		if err == nil && res == nil {
			err = errors.New("finish attempt: empty result")
		}
		return finishedMsg{Result: res, Err: err, FlushErr: flushErr}
	}
}

func (s *AttemptScreen) handleFinished(msg finishedMsg) (screen.Screen, tea.Cmd) {
	id := s.session.AttemptID()
	if msg.FlushErr != nil {
		pending := 0
		if s.queue != nil {
			pending = s.queue.Pending()
		}
		s.logger.Warn("answers still pending at finish", "attempt_id", id, "pending", pending, "error", msg.FlushErr)
	}

	if msg.Err != nil {
		s.logger.Warn("finish attempt failed", "attempt_id", id, "error", msg.Err)
		s.session.FinishFailed(msg.Err)
		s.choice.Disabled = false
		return s, nil
	}

	s.session.FinishSucceeded(msg.Result)
	s.Close()
	s.recordFinish(*msg.Result)
	s.logger.Info("attempt finished", "attempt_id", id, "score", msg.Result.Score, "passed", msg.Result.Passed)

	return s, router.ResetCmd(s.outcomeScreen(*msg.Result))
}

func (s *AttemptScreen) recordFinish(res assessment.Result) {
	if s.deps.Attempts == nil {
		return
	}
	id := s.session.AttemptID()
	if err := s.deps.Attempts.RecordFinish(context.Background(), id, res, time.Now()); err != nil {
		s.logger.Warn("journal attempt finish failed", "attempt_id", id, "error", err)
	}
}

func (s *AttemptScreen) outcomeScreen(res assessment.Result) screen.Screen {
	in := completion.Input{
		AttemptID:     s.session.AttemptID(),
		Candidate:     s.session.Candidate(),
		Result:        res,
		IntakeBaseURL: s.deps.IntakeBase,
	}
	if a := s.session.Assessment(); a != nil {
		in.AssessmentLanguage = a.Language
	}

	switch o := completion.Decide(in).(type) {
	case completion.IntakeRedirect:
		return intake.New(o.URL, s.deps.Open, s.deps.AutoOpen)
	case completion.ScoreCard:
		return result.New(o.Result)
	default:
		panic(fmt.Sprintf("unhandled completion outcome %T", o))
	}
}

func (s *AttemptScreen) handleSync(msg syncMsg) (screen.Screen, tea.Cmd) {
	if msg.Closed || s.queue == nil {
		return s, nil
	}
	if err := msg.Result.Err; err != nil {
		s.session.SyncWarning(fmt.Errorf("answer to question %d was not saved: %w",
			s.questionNumber(msg.Result.Write.QuestionID), err))
	}
	return s, waitForSync(s.queue.Results())
}

func (s *AttemptScreen) handleTimerTick() (screen.Screen, tea.Cmd) {
	switch s.session.Phase() {
	case att.PhaseInProgress, att.PhaseFinishing:
		s.elapsed = time.Since(s.session.StartedAt())
		return s, tickCmd()
	}
	return s, nil
}

// Close stops answer delivery. Undelivered writes stay in the journal.
func (s *AttemptScreen) Close() {
	if s.queue != nil {
		s.queue.Close()
	}
}

func (s *AttemptScreen) resetChoice() {
	q, ok := s.session.Current()
	if !ok {
		s.choice = components.MultiChoice{}
		return
	}
	chosen, _ := s.session.ChosenOption(q.ID)
	s.choice = components.NewMultiChoice(q, chosen)
	s.choice.Disabled = s.session.Phase() != att.PhaseInProgress
}

func (s *AttemptScreen) candidate() assessment.Candidate {
	return assessment.Candidate{
		FirstName: s.value(assessment.FieldFirstName),
		LastName:  s.value(assessment.FieldLastName),
		Email:     s.value(assessment.FieldEmail),
		Phone:     s.value(assessment.FieldPhone),
	}
}

func (s *AttemptScreen) value(f assessment.Field) string {
	for i, field := range assessment.Fields {
		if field == f {
			return s.inputs[i].Value()
		}
	}
	return ""
}

func (s *AttemptScreen) questionNumber(questionID string) int {
	for i, q := range s.session.Questions() {
		if q.ID == questionID {
			return i + 1
		}
	}
	return 0
}

func waitForSync(ch <-chan outbox.Result) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return syncMsg{Closed: true}
		}
		return syncMsg{Result: r}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return timerTickMsg(t)
	})
}

func placeholder(f assessment.Field) string {
	switch f {
	case assessment.FieldFirstName:
		return "Ada"
	case assessment.FieldLastName:
		return "Lovelace"
	case assessment.FieldEmail:
		return "ada@example.com"
	case assessment.FieldPhone:
		return "+33 6 12 34 56 78"
	}
	return ""
}

func formatClock(d time.Duration) string {
	secs := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
