package selfupdate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func releaseServer(t *testing.T, tag string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/abhisek/qcm/releases/latest" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"tag_name":"` + tag + `","html_url":"https://example.com/` + tag + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		current string
		latest  string
		want    bool
	}{
		{"newer release", "v1.0.0", "v1.2.0", true},
		{"same release", "v1.2.0", "v1.2.0", false},
		{"older release", "v1.3.0", "v1.2.0", false},
		{"missing prefix", "1.0.0", "v1.0.1", true},
		{"dev build", "(devel)", "v1.0.0", false},
		{"garbage tag", "v1.0.0", "nightly", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := releaseServer(t, tt.latest)
			res, err := NewChecker(WithBaseURL(srv.URL)).Check(context.Background(), &CheckInput{Version: tt.current})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.UpdateAvailable)
			assert.Equal(t, tt.latest, res.LatestVersion)
		})
	}
}

func TestCheckHTTPError(t *testing.T) {
	srv := releaseServer(t, "v1.0.0")
	_, err := NewChecker(WithBaseURL(srv.URL), WithRepository("someone", "else")).
		Check(context.Background(), &CheckInput{Version: "v1.0.0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestCheckListsAssets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tag_name":"v1.1.0","html_url":"https://example.com/r","assets":[
			{"name":"qcm_Linux_x86_64.tar.gz","browser_download_url":"https://dl.example.com/a.tgz","size":12},
			{"name":"checksums.txt","browser_download_url":"https://dl.example.com/sums","size":3}]}`))
	}))
	t.Cleanup(srv.Close)

	res, err := NewChecker(WithBaseURL(srv.URL)).Check(context.Background(), &CheckInput{Version: "1.0.0"})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", res.CurrentVersion)
	require.Len(t, res.Assets, 2)

	a, ok := res.Asset("checksums.txt")
	require.True(t, ok)
	assert.Equal(t, "https://dl.example.com/sums", a.URL)
	_, ok = res.Asset("qcm_Darwin_all.tar.gz")
	assert.False(t, ok)
}

func TestNotice(t *testing.T) {
	assert.Empty(t, (*CheckResult)(nil).Notice())
	assert.Empty(t, (&CheckResult{LatestVersion: "v1.0.0"}).Notice())

	n := (&CheckResult{
		CurrentVersion:  "v1.0.0",
		LatestVersion:   "v1.1.0",
		ReleaseURL:      "https://example.com/v1.1.0",
		UpdateAvailable: true,
	}).Notice()
	assert.Equal(t, "qcm v1.1.0 is available (you have v1.0.0). Run `qcm update` or see https://example.com/v1.1.0", n)
}

func TestIsRelease(t *testing.T) {
	assert.True(t, IsRelease("v1.2.3"))
	assert.True(t, IsRelease("1.2.3"))
	assert.False(t, IsRelease("(devel)"))
	assert.False(t, IsRelease(""))
}

func TestWithTimeoutCopiesSharedClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	c := NewChecker(WithHTTPClient(shared), WithTimeout(3*time.Second))

	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Equal(t, 3*time.Second, c.client.Timeout)
}
