package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// StatusError indicates the backend answered with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string

	// RetryAfter is parsed from the Retry-After header when present.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
}

// NetworkError indicates the backend could not be reached or the exchange
// broke down before a status was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: backend unreachable: %v", e.Op, e.Err)
	}
	return e.Op + ": backend unreachable"
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ContractError indicates a response body that does not conform to the
// endpoint's JSON contract.
type ContractError struct {
	Endpoint string
	Body     json.RawMessage
	Err      error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("unexpected %s response: %v", e.Endpoint, e.Err)
}

func (e *ContractError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 or 410 from the backend.
func IsNotFound(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusGone
}

// IsRetryable reports whether repeating the same call could succeed.
// Context errors, contract violations and 4xx responses are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var ce *ContractError
	if errors.As(err, &ce) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusTooManyRequests,
			se.StatusCode == http.StatusRequestTimeout,
			se.StatusCode >= 500:
			return true
		default:
			return false
		}
	}

	var ne *NetworkError
	return errors.As(err, &ne)
}
