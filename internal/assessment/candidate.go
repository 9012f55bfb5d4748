package assessment

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Field names a candidate identity field.
type Field string

const (
	FieldFirstName Field = "first_name"
	FieldLastName  Field = "last_name"
	FieldEmail     Field = "email"
	FieldPhone     Field = "phone"
)

// Fields lists the identity fields in form order.
var Fields = []Field{FieldFirstName, FieldLastName, FieldEmail, FieldPhone}

// Label returns the human-readable form label for the field.
func (f Field) Label() string {
	switch f {
	case FieldFirstName:
		return "First name"
	case FieldLastName:
		return "Last name"
	case FieldEmail:
		return "Email"
	case FieldPhone:
		return "Phone"
	default:
		return string(f)
	}
}

// emailPattern is a syntax check only; deliverability is the backend's concern.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Candidate holds the identity fields collected before an attempt starts.
type Candidate struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Get returns the value of the given field.
func (c Candidate) Get(f Field) string {
	switch f {
	case FieldFirstName:
		return c.FirstName
	case FieldLastName:
		return c.LastName
	case FieldEmail:
		return c.Email
	case FieldPhone:
		return c.Phone
	}
	return ""
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (c Candidate) Trimmed() Candidate {
	return Candidate{
		FirstName: strings.TrimSpace(c.FirstName),
		LastName:  strings.TrimSpace(c.LastName),
		Email:     strings.TrimSpace(c.Email),
		Phone:     strings.TrimSpace(c.Phone),
	}
}

// Validate checks that every field is present and the email is well formed.
// It returns a *ValidationError listing every offending field.
func (c Candidate) Validate() error {
	c = c.Trimmed()
	verr := &ValidationError{Fields: make(map[Field]string)}
	for _, f := range Fields {
		if c.Get(f) == "" {
			verr.Fields[f] = fmt.Sprintf("%s is required", f.Label())
		}
	}
	if c.Email != "" && !emailPattern.MatchString(c.Email) {
		verr.Fields[FieldEmail] = "Email address is not valid"
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// ValidationError reports field-specific problems with candidate input.
type ValidationError struct {
	Fields map[Field]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		keys = append(keys, string(f))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[Field(k)])
	}
	return "invalid candidate: " + strings.Join(parts, "; ")
}

// Message returns the message for field f, or "".
func (e *ValidationError) Message(f Field) string {
	if e == nil {
		return ""
	}
	return e.Fields[f]
}
