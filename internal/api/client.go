package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/qcm/internal/assessment"
)

// Backend is the set of calls the candidate flow makes against the
// assessment service.
type Backend interface {
	GetInvite(ctx context.Context, token string) (*assessment.Assessment, error)
	StartAttempt(ctx context.Context, req StartRequest) (*StartResponse, error)
	SubmitAnswer(ctx context.Context, attemptID string, req AnswerRequest) error
	FinishAttempt(ctx context.Context, attemptID string) (*assessment.Result, error)
}

// maxErrorBody bounds how much of an error body ends up in a StatusError.
const maxErrorBody = 512

// Client talks JSON over HTTP to the assessment backend.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Backend = (*Client)(nil)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout. The client set by
// WithHTTPClient is copied, not modified.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = timeout
		c.httpClient = &hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "qcm",
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// GetInvite fetches the public assessment for a share token.
func (c *Client) GetInvite(ctx context.Context, token string) (*assessment.Assessment, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/public/qcm/"+url.PathEscape(token), nil)
	if err != nil {
		return nil, err
	}

	var body InviteResponse
	if err := decode(ContractInvite, raw, &body); err != nil {
		return nil, err
	}

	return &assessment.Assessment{
		ID:        string(body.QCM.ID),
		Token:     token,
		Language:  body.QCM.Language,
		Questions: toQuestions(body.Questions),
	}, nil
}

// StartAttempt creates an attempt for the candidate in req.
func (c *Client) StartAttempt(ctx context.Context, req StartRequest) (*StartResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal start request: %w", err)
	}

	raw, err := c.doRequest(ctx, http.MethodPost, "/attempts/start", payload)
	if err != nil {
		return nil, err
	}

	var body startPayload
	if err := decode(ContractStart, raw, &body); err != nil {
		return nil, err
	}
	if body.AttemptID == "" {
		return nil, &ContractError{Endpoint: string(ContractStart), Body: raw, Err: errors.New("empty attempt_id")}
	}

	resp := &StartResponse{AttemptID: string(body.AttemptID)}
	if len(body.Questions) > 0 {
		resp.Questions = toQuestions(body.Questions)
	}
	return resp, nil
}

// SubmitAnswer persists one answer choice. The response body, if any, is
// only checked for shape.
func (c *Client) SubmitAnswer(ctx context.Context, attemptID string, req AnswerRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal answer request: %w", err)
	}

	raw, err := c.doRequest(ctx, http.MethodPost, "/attempts/"+url.PathEscape(attemptID)+"/answer", payload)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return Validate(ContractAnswer, raw)
}

// FinishAttempt seals the attempt and returns the backend's result.
func (c *Client) FinishAttempt(ctx context.Context, attemptID string) (*assessment.Result, error) {
	raw, err := c.doRequest(ctx, http.MethodPost, "/attempts/"+url.PathEscape(attemptID)+"/finish", []byte("{}"))
	if err != nil {
		return nil, err
	}

	var body FinishResponse
	if err := decode(ContractFinish, raw, &body); err != nil {
		return nil, err
	}
	return body.Result(), nil
}

// doRequest performs an HTTP request and returns the body of a 2xx reply.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", "op", op, "error", err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("backend request",
		"op", op,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return respBody, nil
}

// errorMessage extracts {"error": "..."} from an error body, falling back
// to the raw text.
func errorMessage(body []byte) string {
	var env struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
		return env.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return msg
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
