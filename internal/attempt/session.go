// Package attempt holds the candidate-side state machine for one run
// through an assessment. It performs no I/O: callers issue the backend
// calls and report their outcomes back through the *Succeeded and *Failed
// methods.
package attempt

import (
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/qcm/internal/assessment"
)

var (
	// ErrBusy is returned when a start or finish is already in flight.
	ErrBusy = errors.New("operation already in progress")

	// ErrInvalidState is returned when an operation is not legal in the
	// current phase.
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrUnanswered is returned when finishing without an answer on the
	// current question.
	ErrUnanswered = errors.New("current question has no answer")

	// ErrNotLastQuestion is returned when finishing before the last question.
	ErrNotLastQuestion = errors.New("finish is only available on the last question")
)

// Phase is the lifecycle phase of an attempt.
type Phase int

const (
	PhaseNotStarted Phase = iota // identity form, no attempt on the backend
	PhaseInProgress              // answering questions
	PhaseFinishing               // finish call in flight
	PhaseFinished                // sealed
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseInProgress:
		return "in_progress"
	case PhaseFinishing:
		return "finishing"
	case PhaseFinished:
		return "finished"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// maxWarnings bounds the retained sync warnings.
const maxWarnings = 5

// Session tracks one candidate's attempt. It is not safe for concurrent
// use; the UI update loop is its only writer.
type Session struct {
	assessment *assessment.Assessment
	questions  []assessment.Question

	phase    Phase
	starting bool

	candidate assessment.Candidate
	attemptID string
	answers   map[string]string
	cursor    int
	startedAt time.Time

	result   *assessment.Result
	err      error
	warnings []error

	now func() time.Time
}

// New creates a session for a loaded assessment.
func New(a *assessment.Assessment) *Session {
	s := &Session{
		assessment: a,
		answers:    make(map[string]string),
		now:        time.Now,
	}
	if a != nil {
		s.questions = a.Questions
	}
	return s
}

// Assessment returns the assessment the session was created for.
func (s *Session) Assessment() *assessment.Assessment { return s.assessment }

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase { return s.phase }

// Busy reports whether a start or finish call is in flight.
func (s *Session) Busy() bool { return s.starting || s.phase == PhaseFinishing }

// AttemptID returns the backend attempt id, empty before start succeeds.
func (s *Session) AttemptID() string { return s.attemptID }

// Candidate returns the identity submitted with BeginStart.
func (s *Session) Candidate() assessment.Candidate { return s.candidate }

// Questions returns the active question set.
func (s *Session) Questions() []assessment.Question { return s.questions }

// QuestionCount returns the number of active questions.
func (s *Session) QuestionCount() int { return len(s.questions) }

// StartedAt returns when the start call succeeded.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Result returns the finish result, nil until finished.
func (s *Session) Result() *assessment.Result { return s.result }

// Err returns the last start or finish error kept for inline display.
func (s *Session) Err() error { return s.err }

// Warnings returns recent answer-sync warnings, oldest first.
func (s *Session) Warnings() []error { return s.warnings }

// BeginStart validates the candidate and marks a start call as in flight.
// A *assessment.ValidationError means no call must be made.
func (s *Session) BeginStart(c assessment.Candidate) error {
	if s.phase != PhaseNotStarted {
		return ErrInvalidState
	}
	if s.starting {
		return ErrBusy
	}
	if err := c.Validate(); err != nil {
		s.err = err
		return err
	}
	s.candidate = c.Trimmed()
	s.starting = true
	s.err = nil
	return nil
}

// StartSucceeded moves the session into progress. A non-empty questions
// slice supersedes the publicly fetched set.
func (s *Session) StartSucceeded(attemptID string, questions []assessment.Question) {
	if s.phase != PhaseNotStarted {
		return
	}
	s.starting = false
	s.err = nil
	s.attemptID = attemptID
	if len(questions) > 0 {
		s.questions = questions
	}
	s.answers = make(map[string]string)
	s.cursor = 0
	s.startedAt = s.now()
	s.phase = PhaseInProgress
}

// StartFailed clears the busy flag and keeps err for inline display.
func (s *Session) StartFailed(err error) {
	if s.phase != PhaseNotStarted {
		return
	}
	s.starting = false
	s.err = err
}

// Cursor returns the zero-based index of the current question.
func (s *Session) Cursor() int { return s.cursor }

// Current returns the question under the cursor.
func (s *Session) Current() (assessment.Question, bool) {
	if s.cursor < 0 || s.cursor >= len(s.questions) {
		return assessment.Question{}, false
	}
	return s.questions[s.cursor], true
}

// ChosenOption returns the option recorded for questionID.
func (s *Session) ChosenOption(questionID string) (string, bool) {
	opt, ok := s.answers[questionID]
	return opt, ok
}

// Answers returns a copy of the recorded answers.
func (s *Session) Answers() map[string]string {
	out := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// AnsweredCount returns how many questions have a recorded answer.
func (s *Session) AnsweredCount() int { return len(s.answers) }

// Select records optionID for the current question, replacing any earlier
// choice, and returns the answer to persist. Selections before the attempt
// exists, after it is sealed, or for an option outside the current
// question are ignored.
func (s *Session) Select(optionID string) (assessment.Answer, bool) {
	if s.phase != PhaseInProgress {
		return assessment.Answer{}, false
	}
	q, ok := s.Current()
	if !ok || !q.HasOption(optionID) {
		return assessment.Answer{}, false
	}
	s.answers[q.ID] = optionID
	return assessment.Answer{AttemptID: s.attemptID, QuestionID: q.ID, OptionID: optionID}, true
}

// Previous moves back one question. It reports whether the cursor moved.
func (s *Session) Previous() bool {
	if s.phase != PhaseInProgress || s.cursor == 0 {
		return false
	}
	s.cursor--
	return true
}

// Next moves forward one question when the current one is answered.
func (s *Session) Next() bool {
	if !s.CanAdvance() {
		return false
	}
	s.cursor++
	return true
}

func (s *Session) currentAnswered() bool {
	q, ok := s.Current()
	if !ok {
		return false
	}
	_, answered := s.answers[q.ID]
	return answered
}

// IsLastQuestion reports whether the cursor is on the final question.
func (s *Session) IsLastQuestion() bool {
	return len(s.questions) > 0 && s.cursor == len(s.questions)-1
}

// CanAdvance reports whether Next would move the cursor.
func (s *Session) CanAdvance() bool {
	return s.phase == PhaseInProgress && !s.IsLastQuestion() && s.currentAnswered()
}

// CanFinish reports whether BeginFinish would succeed. An assessment
// without questions can be finished straight away.
func (s *Session) CanFinish() bool {
	if s.phase != PhaseInProgress {
		return false
	}
	if len(s.questions) == 0 {
		return true
	}
	return s.IsLastQuestion() && s.currentAnswered()
}

// BeginFinish marks a finish call as in flight.
func (s *Session) BeginFinish() error {
	switch s.phase {
	case PhaseFinishing:
		return ErrBusy
	case PhaseInProgress:
	default:
		return ErrInvalidState
	}
	if len(s.questions) > 0 {
		if !s.IsLastQuestion() {
			return ErrNotLastQuestion
		}
		if !s.currentAnswered() {
			return ErrUnanswered
		}
	}
	s.err = nil
	s.phase = PhaseFinishing
	return nil
}

// FinishFailed returns to progress so the candidate can retry.
func (s *Session) FinishFailed(err error) {
	if s.phase != PhaseFinishing {
		return
	}
	s.phase = PhaseInProgress
	s.err = err
}

// FinishSucceeded seals the session with the backend's result.
func (s *Session) FinishSucceeded(res *assessment.Result) {
	if s.phase != PhaseFinishing {
		return
	}
	s.result = res
	s.err = nil
	s.phase = PhaseFinished
}

// SyncWarning records a failed answer write. Local choices are kept.
func (s *Session) SyncWarning(err error) {
	if err == nil {
		return
	}
	s.warnings = append(s.warnings, err)
	if len(s.warnings) > maxWarnings {
		s.warnings = s.warnings[len(s.warnings)-maxWarnings:]
	}
}

// ClearWarnings drops recorded sync warnings.
func (s *Session) ClearWarnings() { s.warnings = nil }

// StartLabel returns the label of the start button for n questions.
func StartLabel(n int) string {
	if n == 1 {
		return "Start the test (1 question)"
	}
	return fmt.Sprintf("Start the test (%d questions)", n)
}
