package completion

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/qcm/internal/assessment"
)

func input(passed bool) Input {
	return Input{
		AttemptID: "att-42",
		Candidate: assessment.Candidate{
			FirstName: "Zoé",
			LastName:  "O'Neil",
			Email:     "zoe+qcm@example.com",
			Phone:     "+33 6 00 00 00 00",
		},
		Result: assessment.Result{
			Score:           67,
			CorrectCount:    2,
			TotalQuestions:  3,
			DurationSeconds: 120,
			Passed:          passed,
		},
		AssessmentLanguage: "fr",
		IntakeBaseURL:      "https://jobs.example.com/",
	}
}

func TestDecide_Passed(t *testing.T) {
	out := Decide(input(true))

	redirect, ok := out.(IntakeRedirect)
	require.True(t, ok, "expected IntakeRedirect, got %T", out)
	assert.Equal(t,
		"https://jobs.example.com/intake?attempt_id=att-42&email=zoe%2Bqcm%40example.com&first_name=Zo%C3%A9&last_name=O%27Neil&phone=%2B33+6+00+00+00+00&lang=fr",
		redirect.URL)

	u, err := url.Parse(redirect.URL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "att-42", q.Get("attempt_id"))
	assert.Equal(t, "zoe+qcm@example.com", q.Get("email"))
	assert.Equal(t, "Zoé", q.Get("first_name"))
	assert.Equal(t, "O'Neil", q.Get("last_name"))
	assert.Equal(t, "+33 6 00 00 00 00", q.Get("phone"))
}

func TestDecide_NotPassed(t *testing.T) {
	in := input(false)
	out := Decide(in)

	card, ok := out.(ScoreCard)
	require.True(t, ok, "expected ScoreCard, got %T", out)
	assert.Equal(t, in.Result, card.Result)
}

func TestIntakeURL_ResultLanguageWins(t *testing.T) {
	in := input(true)
	in.Result.Language = "en"
	u, err := url.Parse(IntakeURL(in))
	require.NoError(t, err)
	assert.Equal(t, "en", u.Query().Get("lang"))
}

func TestIntakeURL_RelativeWithoutBase(t *testing.T) {
	in := input(true)
	in.IntakeBaseURL = ""
	assert.Equal(t, "/intake?attempt_id=att-42", IntakeURL(in)[:len("/intake?attempt_id=att-42")])
}

func TestFormatters(t *testing.T) {
	r := assessment.Result{Score: 67, CorrectCount: 2, TotalQuestions: 3, DurationSeconds: 120}
	assert.Equal(t, "67%", FormatScore(r))
	assert.Equal(t, "2 correct / 3 questions", FormatCorrect(r))
	assert.Equal(t, "Duration: 120s", FormatDuration(r))
	r.DurationSeconds = 95.5
	assert.Equal(t, "Duration: 95.5s", FormatDuration(r))
	assert.Equal(t, "Not passed", Verdict(r))

	// Backend values are shown verbatim, never recomputed.
	r.Score = 66.67
	assert.Equal(t, "66.67%", FormatScore(r))
	r.Passed = true
	assert.Equal(t, "Passed", Verdict(r))
}

func TestOutcomeSwitchIsExhaustive(t *testing.T) {
	for _, passed := range []bool{true, false} {
		switch Decide(input(passed)).(type) {
		case IntakeRedirect:
			assert.True(t, passed)
		case ScoreCard:
			assert.False(t, passed)
		default:
			t.Fatalf("unexpected outcome type")
		}
	}
}
