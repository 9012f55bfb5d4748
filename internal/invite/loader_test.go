package invite

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/qcm/internal/api"
	"github.com/abhisek/qcm/internal/assessment"
)

type fakeFetcher struct {
	calls int
	got   string
	a     *assessment.Assessment
	err   error
}

func (f *fakeFetcher) GetInvite(_ context.Context, token string) (*assessment.Assessment, error) {
	f.calls++
	f.got = token
	return f.a, f.err
}

func TestLoad_Success(t *testing.T) {
	want := &assessment.Assessment{ID: "1", Token: "tok", Questions: make([]assessment.Question, 3)}
	f := &fakeFetcher{a: want}

	got, err := NewLoader(f).Load(context.Background(), " tok ")
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, "tok", f.got)
}

func TestLoad_ZeroQuestionsIsNotAnError(t *testing.T) {
	f := &fakeFetcher{a: &assessment.Assessment{ID: "1"}}

	got, err := NewLoader(f).Load(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, 0, got.QuestionCount())
}

func TestLoad_EmptyTokenSkipsRequest(t *testing.T) {
	f := &fakeFetcher{}

	_, err := NewLoader(f).Load(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, f.calls)
}

func TestLoad_NotFoundAndExpired(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusGone} {
		f := &fakeFetcher{err: &api.StatusError{Method: "GET", Path: "/public/qcm/x", StatusCode: status}}

		_, err := NewLoader(f).Load(context.Background(), "x")
		assert.ErrorIs(t, err, ErrNotFound, "status %d", status)
		assert.False(t, IsRetryable(err))
	}
}

func TestLoad_ServerErrorIsNetworkError(t *testing.T) {
	f := &fakeFetcher{err: &api.StatusError{Method: "GET", Path: "/public/qcm/x", StatusCode: 502}}

	_, err := NewLoader(f).Load(context.Background(), "x")
	var ne *api.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsRetryable(err))
}

func TestLoad_TransportError(t *testing.T) {
	f := &fakeFetcher{err: &api.NetworkError{Op: "GET", Err: errors.New("connection refused")}}

	_, err := NewLoader(f).Load(context.Background(), "x")
	var ne *api.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.True(t, IsRetryable(err))
}

func TestLoad_ContractError(t *testing.T) {
	f := &fakeFetcher{err: &api.ContractError{Endpoint: "invite", Err: errors.New("missing qcm")}}

	_, err := NewLoader(f).Load(context.Background(), "x")
	var ce *api.ContractError
	require.ErrorAs(t, err, &ce)
	assert.False(t, IsRetryable(err))
}
