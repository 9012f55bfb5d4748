package assessment

import "time"

// Option is one answer choice of a question.
type Option struct {
	ID   string
	Text string

	// Correct is only populated in administrative payloads. The candidate
	// flow never reads it.
	Correct *bool
}

// Question is a single multiple-choice question of an assessment.
type Question struct {
	ID       string
	SkillTag string
	Text     string
	Options  []Option
}

// HasOption reports whether optionID belongs to the question.
func (q Question) HasOption(optionID string) bool {
	return q.OptionIndex(optionID) >= 0
}

// OptionIndex returns the position of optionID in q.Options, or -1.
func (q Question) OptionIndex(optionID string) int {
	for i, o := range q.Options {
		if o.ID == optionID {
			return i
		}
	}
	return -1
}

// Assessment is a published QCM as seen by a candidate.
type Assessment struct {
	ID        string
	Token     string
	Language  string
	Questions []Question
}

// QuestionCount returns the number of questions, tolerating a nil receiver.
func (a *Assessment) QuestionCount() int {
	if a == nil {
		return 0
	}
	return len(a.Questions)
}

// Answer is one persisted choice within an attempt.
type Answer struct {
	AttemptID  string
	QuestionID string
	OptionID   string
}

// Result is the backend's verdict for a finished attempt. Values are shown
// to the candidate as received; the client never recomputes them.
type Result struct {
	Score           float64
	CorrectCount    int
	TotalQuestions  int
	DurationSeconds float64
	Passed          bool

	// Language is optional; when empty the assessment language applies.
	Language string
}

// Attempt is a read-only view of one candidate's run through an assessment.
type Attempt struct {
	ID         string
	Candidate  Candidate
	Answers    map[string]string // question ID → option ID
	StartedAt  time.Time
	FinishedAt time.Time
	Result     *Result
}

// Finished reports whether the attempt has been sealed by a finish call.
func (a Attempt) Finished() bool {
	return a.Result != nil
}
