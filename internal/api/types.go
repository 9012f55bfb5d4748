package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/abhisek/qcm/internal/assessment"
)

// ID is an identifier the backend may send either as a JSON string or as a
// JSON number. It is always handled as a string on the client.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("id: not an integer: %s", n)
	}
	*id = ID(n.String())
	return nil
}

// OptionPayload is an option as sent by the backend.
type OptionPayload struct {
	ID        ID     `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

// QuestionPayload is a question as sent by the backend.
type QuestionPayload struct {
	ID       ID              `json:"id"`
	SkillTag string          `json:"skill_tag,omitempty"`
	Text     string          `json:"text"`
	Options  []OptionPayload `json:"options"`
}

// InviteResponse is the body of GET /public/qcm/{token}.
type InviteResponse struct {
	QCM struct {
		ID       ID     `json:"id"`
		Language string `json:"language,omitempty"`
	} `json:"qcm"`
	Questions []QuestionPayload `json:"questions"`
}

// StartRequest is the body of POST /attempts/start.
type StartRequest struct {
	Token     string `json:"token"`
	Email     string `json:"candidate_email"`
	FirstName string `json:"candidate_first_name"`
	LastName  string `json:"candidate_last_name"`
	Phone     string `json:"candidate_phone"`
}

// NewStartRequest builds the start body for a candidate, trimming inputs.
func NewStartRequest(token string, c assessment.Candidate) StartRequest {
	c = c.Trimmed()
	return StartRequest{
		Token:     token,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Phone:     c.Phone,
	}
}

// StartResponse is the decoded result of a start call.
type StartResponse struct {
	AttemptID string
	// Questions supersedes the public set when non-empty.
	Questions []assessment.Question
}

type startPayload struct {
	AttemptID ID                `json:"attempt_id"`
	Questions []QuestionPayload `json:"questions,omitempty"`
}

// AnswerRequest is the body of POST /attempts/{id}/answer. Seq increases
// monotonically per attempt so the backend can keep the latest choice.
type AnswerRequest struct {
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id"`
	Seq        int64  `json:"seq"`
}

// FinishResponse is the body of POST /attempts/{id}/finish.
type FinishResponse struct {
	Score          float64 `json:"score"`
	CorrectCount   int     `json:"correct_count"`
	TotalQuestions int     `json:"total_questions"`
	Duration       float64 `json:"duration_s"`
	Passed         bool    `json:"passed"`
	Language       string  `json:"language,omitempty"`
}

// Result converts the wire body into the domain result.
func (f FinishResponse) Result() *assessment.Result {
	return &assessment.Result{
		Score:           f.Score,
		CorrectCount:    f.CorrectCount,
		TotalQuestions:  f.TotalQuestions,
		DurationSeconds: f.Duration,
		Passed:          f.Passed,
		Language:        f.Language,
	}
}

func toQuestions(in []QuestionPayload) []assessment.Question {
	out := make([]assessment.Question, 0, len(in))
	for _, q := range in {
		opts := make([]assessment.Option, 0, len(q.Options))
		for _, o := range q.Options {
			opts = append(opts, assessment.Option{ID: string(o.ID), Text: o.Text, Correct: o.IsCorrect})
		}
		out = append(out, assessment.Question{
			ID:       string(q.ID),
			SkillTag: q.SkillTag,
			Text:     q.Text,
			Options:  opts,
		})
	}
	return out
}

// FromQuestions converts domain questions back into wire payloads. The
// correctness flag is never copied.
func FromQuestions(in []assessment.Question) []QuestionPayload {
	out := make([]QuestionPayload, 0, len(in))
	for _, q := range in {
		opts := make([]OptionPayload, 0, len(q.Options))
		for _, o := range q.Options {
			opts = append(opts, OptionPayload{ID: ID(o.ID), Text: o.Text})
		}
		out = append(out, QuestionPayload{ID: ID(q.ID), SkillTag: q.SkillTag, Text: q.Text, Options: opts})
	}
	return out
}
