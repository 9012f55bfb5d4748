// Package invite resolves an invite token into the public assessment a
// candidate is about to take.
package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/qcm/internal/api"
	"github.com/abhisek/qcm/internal/assessment"
)

// ErrNotFound means the token is unknown or the invite has expired.
var ErrNotFound = errors.New("invite not found or expired")

// Fetcher retrieves the public assessment for a token.
type Fetcher interface {
	GetInvite(ctx context.Context, token string) (*assessment.Assessment, error)
}

// Loader loads invites. It has no side effects.
type Loader struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewLoader creates a Loader backed by f.
func NewLoader(f Fetcher) *Loader {
	return &Loader{fetcher: f, logger: slog.Default()}
}

// Load returns the assessment behind token.
//
// Errors: ErrNotFound (wrapped) for an empty, unknown or expired token,
// *api.NetworkError for transport failures and server errors, and
// *api.ContractError for a malformed payload.
func (l *Loader) Load(ctx context.Context, token string) (*assessment.Assessment, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("empty token: %w", ErrNotFound)
	}

	a, err := l.fetcher.GetInvite(ctx, token)
	if err == nil {
		l.logger.Info("invite loaded", "assessment_id", a.ID, "questions", a.QuestionCount())
		return a, nil
	}

	switch {
	case api.IsNotFound(err):
		l.logger.Info("invite not found", "error", err)
		return nil, fmt.Errorf("load invite: %w", ErrNotFound)
	case isServerError(err):
		return nil, &api.NetworkError{Op: "load invite", Err: err}
	default:
		l.logger.Warn("invite load failed", "error", err)
		return nil, fmt.Errorf("load invite: %w", err)
	}
}

func isServerError(err error) bool {
	var se *api.StatusError
	return errors.As(err, &se) && se.StatusCode >= 500
}

// IsRetryable reports whether a failed Load may succeed if repeated.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return false
	}
	return api.IsRetryable(err)
}
