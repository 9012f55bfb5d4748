package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

var (
	ErrDevBuild      = errors.New("cannot update a development build")
	ErrAlreadyLatest = errors.New("already running the latest version")
	ErrChecksum      = errors.New("checksum verification failed")
	ErrNoAsset       = errors.New("release has no build for this platform")
)

// maxAssetSize bounds a single release download.
const maxAssetSize = 200 << 20

type Progress struct {
	Stage   string
	Message string
}

// Install downloads the release described by rel and swaps it in for the
// running executable. rel must come from Check.
func (c *Checker) Install(ctx context.Context, rel *CheckResult, progress func(Progress)) error {
	if !IsRelease(rel.CurrentVersion) {
		return ErrDevBuild
	}
	if !rel.UpdateAvailable {
		return ErrAlreadyLatest
	}
	if progress == nil {
		progress = func(Progress) {}
	}

	build, err := buildFor(c.goos, c.goarch)
	if err != nil {
		return err
	}
	archive, ok := rel.Asset(build.asset)
	if !ok {
		return fmt.Errorf("%w: %s missing from %s", ErrNoAsset, build.asset, rel.LatestVersion)
	}
	sums, ok := rel.Asset(checksumsAsset)
	if !ok {
		return fmt.Errorf("%w: %s missing from %s", ErrNoAsset, checksumsAsset, rel.LatestVersion)
	}

	progress(Progress{Stage: "download", Message: fmt.Sprintf("Downloading %s...", build.asset)})
	data, err := c.fetch(ctx, archive.URL)
	if err != nil {
		return fmt.Errorf("download archive: %w", err)
	}

	progress(Progress{Stage: "verify", Message: "Verifying checksum..."})
	manifest, err := c.fetch(ctx, sums.URL)
	if err != nil {
		return fmt.Errorf("download checksums: %w", err)
	}
	want, err := expectedSum(manifest, build.asset)
	if err != nil {
		return err
	}
	if err := verifySum(data, want); err != nil {
		return err
	}

	progress(Progress{Stage: "extract", Message: "Extracting binary..."})
	bin, err := build.format.extract(data, build.binary)
	if err != nil {
		return fmt.Errorf("extract binary: %w", err)
	}

	progress(Progress{Stage: "apply", Message: "Applying update..."})
	target, err := c.execPath()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}
	if err := replaceExecutable(target, bin); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}

	progress(Progress{Stage: "done", Message: fmt.Sprintf("Updated to %s", rel.LatestVersion)})
	return nil
}

func (c *Checker) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxAssetSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", url, maxAssetSize)
	}
	return data, nil
}

// replaceExecutable writes bin next to target and renames it over target,
// keeping target's permissions.
func replaceExecutable(target string, bin []byte) error {
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("stat target: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".qcm-update-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(bin); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	return os.Rename(tmpName, target)
}
