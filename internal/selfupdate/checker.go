// Package selfupdate checks GitHub releases for a newer qcm build and
// replaces the running binary with it.
package selfupdate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	defaultOwner   = "abhisek"
	defaultRepo    = "qcm"
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 10 * time.Second
)

// Checker talks to the release API and downloads release assets with the
// same HTTP client.
type Checker struct {
	client  *http.Client
	owner   string
	repo    string
	baseURL string

	goos, goarch string
	execPath     func() (string, error)
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient shares an existing HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Checker) { c.client = hc }
}

// WithTimeout bounds every HTTP request. A client passed to
// WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		hc := *c.client
		hc.Timeout = d
		c.client = &hc
	}
}

// WithBaseURL points the checker at another release API.
func WithBaseURL(u string) Option {
	return func(c *Checker) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithRepository overrides the GitHub owner and repository.
func WithRepository(owner, repo string) Option {
	return func(c *Checker) {
		c.owner = owner
		c.repo = repo
	}
}

func withPlatform(goos, goarch string) Option {
	return func(c *Checker) { c.goos, c.goarch = goos, goarch }
}

func withExecPath(fn func() (string, error)) Option {
	return func(c *Checker) { c.execPath = fn }
}

// NewChecker creates a Checker for the qcm releases.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		client:   &http.Client{Timeout: defaultTimeout},
		owner:    defaultOwner,
		repo:     defaultRepo,
		baseURL:  defaultBaseURL,
		goos:     runtime.GOOS,
		goarch:   runtime.GOARCH,
		execPath: resolveExecutable,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func resolveExecutable() (string, error) {
	p, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(p)
}

type CheckInput struct {
	Version string
}

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name string `json:"name"`
	URL  string `json:"browser_download_url"`
	Size int64  `json:"size"`
}

// CheckResult describes the latest release relative to the running
// version. Install consumes it directly.
type CheckResult struct {
	CurrentVersion  string
	LatestVersion   string
	ReleaseURL      string
	UpdateAvailable bool
	Assets          []Asset
}

// Asset returns the release asset called name.
func (r *CheckResult) Asset(name string) (Asset, bool) {
	for _, a := range r.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}

// Notice is the one-line hint shown when a newer release exists, or "".
func (r *CheckResult) Notice() string {
	if r == nil || !r.UpdateAvailable {
		return ""
	}
	return fmt.Sprintf("qcm %s is available (you have %s). Run `qcm update` or see %s",
		r.LatestVersion, r.CurrentVersion, r.ReleaseURL)
}

type releasePayload struct {
	TagName string  `json:"tag_name"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// Check fetches the latest release and compares it with input.Version.
// Versions that are not valid semver never report an update.
func (c *Checker) Check(ctx context.Context, input *CheckInput) (*CheckResult, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, c.owner, c.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	var rel releasePayload
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}

	current := canonical(input.Version)
	latest := canonical(rel.TagName)
	return &CheckResult{
		CurrentVersion:  input.Version,
		LatestVersion:   rel.TagName,
		ReleaseURL:      rel.HTMLURL,
		UpdateAvailable: current != "" && latest != "" && semver.Compare(latest, current) > 0,
		Assets:          rel.Assets,
	}, nil
}

// IsRelease reports whether v is a release version rather than a
// development build.
func IsRelease(v string) bool {
	return canonical(v) != ""
}

// canonical adds the "v" prefix semver expects; it returns "" for
// anything that is not a version.
func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}
