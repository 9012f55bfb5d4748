// Package completion decides where a candidate goes once an attempt is
// finished.
package completion

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/abhisek/qcm/internal/assessment"
)

// IntakePath is appended to the intake base URL.
const IntakePath = "/intake"

// Input is everything Decide needs. All fields are taken verbatim.
type Input struct {
	AttemptID          string
	Candidate          assessment.Candidate
	Result             assessment.Result
	AssessmentLanguage string

	// IntakeBaseURL is the origin serving the intake form. Empty yields a
	// relative URL.
	IntakeBaseURL string
}

// Outcome is either IntakeRedirect or ScoreCard.
type Outcome interface {
	isOutcome()
}

// IntakeRedirect sends a passing candidate to the intake step.
type IntakeRedirect struct {
	URL string
}

// ScoreCard is the terminal view for a candidate who did not pass.
type ScoreCard struct {
	Result assessment.Result
}

func (IntakeRedirect) isOutcome() {}
func (ScoreCard) isOutcome()      {}

// Decide branches on the backend's pass verdict.
func Decide(in Input) Outcome {
	if !in.Result.Passed {
		return ScoreCard{Result: in.Result}
	}
	return IntakeRedirect{URL: IntakeURL(in)}
}

// IntakeURL builds the intake URL. Parameters keep a fixed order.
func IntakeURL(in Input) string {
	lang := in.Result.Language
	if lang == "" {
		lang = in.AssessmentLanguage
	}

	params := []struct{ key, value string }{
		{"attempt_id", in.AttemptID},
		{"email", in.Candidate.Email},
		{"first_name", in.Candidate.FirstName},
		{"last_name", in.Candidate.LastName},
		{"phone", in.Candidate.Phone},
		{"lang", lang},
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(in.IntakeBaseURL, "/"))
	b.WriteString(IntakePath)
	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

// FormatScore renders the backend score as a percentage, e.g. "67%".
func FormatScore(r assessment.Result) string {
	return strconv.FormatFloat(r.Score, 'f', -1, 64) + "%"
}

// FormatCorrect renders e.g. "2 correct / 3 questions".
func FormatCorrect(r assessment.Result) string {
	return fmt.Sprintf("%d correct / %d questions", r.CorrectCount, r.TotalQuestions)
}

// FormatDuration renders e.g. "Duration: 120s" or "Duration: 95.5s".
func FormatDuration(r assessment.Result) string {
	return "Duration: " + strconv.FormatFloat(r.DurationSeconds, 'f', -1, 64) + "s"
}

// Verdict returns the pass/fail headline.
func Verdict(r assessment.Result) string {
	if r.Passed {
		return "Passed"
	}
	return "Not passed"
}
