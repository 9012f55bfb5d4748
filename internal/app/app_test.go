package app

import (
	"context"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/qcm/internal/api"
	"github.com/abhisek/qcm/internal/assessment"
	"github.com/abhisek/qcm/internal/router"
	"github.com/abhisek/qcm/internal/screens/intake"
	"github.com/abhisek/qcm/internal/screens/result"
)

type nopBackend struct{}

func (nopBackend) GetInvite(context.Context, string) (*assessment.Assessment, error) {
	return &assessment.Assessment{ID: "a-1"}, nil
}

func (nopBackend) StartAttempt(context.Context, api.StartRequest) (*api.StartResponse, error) {
	return &api.StartResponse{AttemptID: "att-1"}, nil
}

func (nopBackend) SubmitAnswer(context.Context, string, api.AnswerRequest) error { return nil }

func (nopBackend) FinishAttempt(context.Context, string) (*assessment.Result, error) {
	return &assessment.Result{}, nil
}

func newApp() AppModel {
	return New(Options{Token: "tok", Backend: nopBackend{}})
}

func update(m AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(AppModel), cmd
}

func TestStartsOnInvite(t *testing.T) {
	m := newApp()
	assert.Equal(t, "Invitation", m.router.Active().Title())
	assert.Equal(t, Outcome{}, m.Outcome())
}

func TestCtrlCQuits(t *testing.T) {
	m := newApp()
	_, cmd := update(m, tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestEscAtRootDoesNotPop(t *testing.T) {
	m := newApp()
	m, _ = update(m, tea.KeyPressMsg{Code: tea.KeyEscape})
	assert.Equal(t, 1, m.router.Depth())
	assert.Equal(t, "Invitation", m.router.Active().Title())
}

func TestWindowSizeIsTracked(t *testing.T) {
	m := newApp()
	m, cmd := update(m, tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Nil(t, cmd)
	assert.Equal(t, 100, m.width)
	assert.Equal(t, 40, m.height)
}

func TestOutcomeReportsResult(t *testing.T) {
	m := newApp()
	r := assessment.Result{Score: 2.0 / 3.0, CorrectCount: 2, TotalQuestions: 3, DurationSeconds: 120}
	m, _ = update(m, router.ResetScreenMsg{Screen: result.New(r)})

	out := m.Outcome()
	require.NotNil(t, out.Result)
	assert.Equal(t, r, *out.Result)
	assert.Empty(t, out.IntakeURL)
}

func TestOutcomeReportsIntakeURL(t *testing.T) {
	m := newApp()
	url := "https://jobs.example.com/intake?attempt_id=att-1"
	m, _ = update(m, router.ResetScreenMsg{Screen: intake.New(url, nil, false)})

	out := m.Outcome()
	assert.Equal(t, url, out.IntakeURL)
	assert.Nil(t, out.Result)
}
