package devserver

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/demo.yml
var demoFixtures []byte

// Fixtures is the content served by the dev backend.
type Fixtures struct {
	// PassThreshold is the minimum score, in percent, that passes.
	PassThreshold float64             `yaml:"pass_threshold"`
	Assessments   []AssessmentFixture `yaml:"assessments"`
}

// AssessmentFixture is one published assessment.
type AssessmentFixture struct {
	ID       string `yaml:"id"`
	Token    string `yaml:"token"`
	Language string `yaml:"language"`

	// Expired invites answer 410 Gone.
	Expired bool `yaml:"expired"`

	// Freeze makes the start call return the question set, as a backend
	// does when it snapshots or randomizes questions per attempt.
	Freeze bool `yaml:"freeze"`

	Questions []QuestionFixture `yaml:"questions"`
}

// QuestionFixture is one question with its answer key.
type QuestionFixture struct {
	ID       string          `yaml:"id"`
	SkillTag string          `yaml:"skill_tag"`
	Text     string          `yaml:"text"`
	Options  []OptionFixture `yaml:"options"`
}

// OptionFixture is one option; Correct never leaves the server.
type OptionFixture struct {
	ID      string `yaml:"id"`
	Text    string `yaml:"text"`
	Correct bool   `yaml:"correct"`
}

// DemoFixtures returns the built-in fixtures.
func DemoFixtures() (*Fixtures, error) {
	return ParseFixtures(demoFixtures)
}

// LoadFixtures reads fixtures from a YAML file.
func LoadFixtures(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(raw)
}

// ParseFixtures decodes and validates fixtures.
func ParseFixtures(raw []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks ids are unique and every question has exactly one
// correct option.
func (f *Fixtures) Validate() error {
	if f.PassThreshold < 0 || f.PassThreshold > 100 {
		return fmt.Errorf("pass_threshold must be within 0..100, got %v", f.PassThreshold)
	}

	tokens := make(map[string]bool)
	for _, a := range f.Assessments {
		if a.Token == "" {
			return fmt.Errorf("assessment %q: empty token", a.ID)
		}
		if tokens[a.Token] {
			return fmt.Errorf("duplicate token %q", a.Token)
		}
		tokens[a.Token] = true

		qids := make(map[string]bool)
		for _, q := range a.Questions {
			if qids[q.ID] {
				return fmt.Errorf("assessment %q: duplicate question %q", a.ID, q.ID)
			}
			qids[q.ID] = true

			correct := 0
			oids := make(map[string]bool)
			for _, o := range q.Options {
				if oids[o.ID] {
					return fmt.Errorf("question %q: duplicate option %q", q.ID, o.ID)
				}
				oids[o.ID] = true
				if o.Correct {
					correct++
				}
			}
			if correct != 1 {
				return fmt.Errorf("question %q: exactly one option must be correct", q.ID)
			}
		}
	}
	return nil
}

func (q QuestionFixture) option(id string) (OptionFixture, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return OptionFixture{}, false
}
