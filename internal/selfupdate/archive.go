package selfupdate

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// checksumsAsset is the sha256 manifest published with every release.
const checksumsAsset = "checksums.txt"

type archiveFormat int

const (
	formatTarGz archiveFormat = iota
	formatZip
)

// platformBuild names the release asset for one GOOS/GOARCH pair and the
// executable packed inside it.
type platformBuild struct {
	asset  string
	format archiveFormat
	binary string
}

var releaseOS = map[string]string{
	"darwin":  "Darwin",
	"linux":   "Linux",
	"windows": "Windows",
}

var releaseArch = map[string]string{
	"amd64": "x86_64",
	"arm64": "arm64",
	"386":   "i386",
}

// buildFor maps a platform onto the release naming scheme. macOS ships a
// single universal archive.
func buildFor(goos, goarch string) (platformBuild, error) {
	osName, ok := releaseOS[goos]
	if !ok {
		return platformBuild{}, fmt.Errorf("unsupported operating system: %s", goos)
	}

	arch := "all"
	if goos != "darwin" {
		if arch, ok = releaseArch[goarch]; !ok {
			return platformBuild{}, fmt.Errorf("unsupported architecture: %s", goarch)
		}
	}

	b := platformBuild{format: formatTarGz, binary: "qcm"}
	ext := ".tar.gz"
	if goos == "windows" {
		b.format, b.binary, ext = formatZip, "qcm.exe", ".zip"
	}
	b.asset = fmt.Sprintf("qcm_%s_%s%s", osName, arch, ext)
	return b, nil
}

// expectedSum finds the hex digest listed for asset in a sha256sum style
// manifest.
func expectedSum(manifest []byte, asset string) (string, error) {
	sc := bufio.NewScanner(bytes.NewReader(manifest))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 2 && strings.TrimPrefix(fields[1], "*") == asset {
			return strings.ToLower(fields[0]), nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read %s: %w", checksumsAsset, err)
	}
	return "", fmt.Errorf("no checksum for %s in %s", asset, checksumsAsset)
}

func verifySum(data []byte, want string) error {
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != want {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksum, want, got)
	}
	return nil
}

// extract returns the contents of the regular file called binary.
func (f archiveFormat) extract(data []byte, binary string) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch f {
	case formatZip:
		out, err = extractZip(data, binary)
	default:
		out, err = extractTarGz(data, binary)
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("binary %q not found in archive", binary)
	}
	return out, nil
}

func extractTarGz(data []byte, binary string) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag == tar.TypeReg && path.Base(hdr.Name) == binary {
			return io.ReadAll(tr)
		}
	}
}

func extractZip(data []byte, binary string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || path.Base(f.Name) != binary {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = rc.Close() }()
		return io.ReadAll(rc)
	}
	return nil, nil
}
