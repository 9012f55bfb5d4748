package assessment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCandidate() Candidate {
	return Candidate{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "+33 6 12 34 56 78",
	}
}

func TestCandidateValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Candidate)
		invalid []Field
	}{
		{"valid", func(*Candidate) {}, nil},
		{"missing first name", func(c *Candidate) { c.FirstName = "" }, []Field{FieldFirstName}},
		{"blank last name", func(c *Candidate) { c.LastName = "   " }, []Field{FieldLastName}},
		{"missing phone", func(c *Candidate) { c.Phone = "" }, []Field{FieldPhone}},
		{"bad email", func(c *Candidate) { c.Email = "ada.example.com" }, []Field{FieldEmail}},
		{"email without tld", func(c *Candidate) { c.Email = "ada@example" }, []Field{FieldEmail}},
		{"email with spaces", func(c *Candidate) { c.Email = "ada lovelace@example.com" }, []Field{FieldEmail}},
		{"everything empty", func(c *Candidate) { *c = Candidate{} }, Fields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCandidate()
			tt.mutate(&c)
			err := c.Validate()
			if len(tt.invalid) == 0 {
				require.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected *ValidationError, got %T", err)
			assert.Len(t, verr.Fields, len(tt.invalid))
			for _, f := range tt.invalid {
				assert.NotEmpty(t, verr.Message(f), "missing message for %s", f)
			}
		})
	}
}

func TestCandidateValidate_RequiredMessageNamesField(t *testing.T) {
	c := validCandidate()
	c.Email = ""
	err := c.Validate()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Email is required", verr.Message(FieldEmail))
}

func TestCandidateTrimmed(t *testing.T) {
	c := Candidate{FirstName: "  Ada ", LastName: "Lovelace\t", Email: " ada@example.com", Phone: "1 "}
	got := c.Trimmed()
	assert.Equal(t, Candidate{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "1"}, got)
}

func TestQuestionOptionIndex(t *testing.T) {
	q := Question{ID: "q1", Options: []Option{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	assert.Equal(t, 1, q.OptionIndex("b"))
	assert.Equal(t, -1, q.OptionIndex("z"))
	assert.True(t, q.HasOption("c"))
	assert.False(t, q.HasOption(""))
}

func TestAssessmentQuestionCount_NilSafe(t *testing.T) {
	var a *Assessment
	assert.Equal(t, 0, a.QuestionCount())
	assert.Equal(t, 2, (&Assessment{Questions: make([]Question, 2)}).QuestionCount())
}
