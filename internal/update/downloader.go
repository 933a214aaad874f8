package update

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/adamancini/shimsync/internal/errors"
)

// DefaultMaxDownloadBytes caps the size of a package archive.
const DefaultMaxDownloadBytes = int64(512 * 1024 * 1024)

// HTTPDownloader downloads package archives over HTTP
type HTTPDownloader struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPDownloader creates a new HTTP downloader whose requests fail once
// timeout elapses.
func NewHTTPDownloader(timeout time.Duration) *HTTPDownloader {
	return &HTTPDownloader{
		client:   &http.Client{Timeout: timeout},
		maxBytes: DefaultMaxDownloadBytes,
	}
}

// Download fetches url into dst. The body is written to a temp file next to
// dst and renamed into place only after it was fully received, so dst never
// holds a partial download.
func (d *HTTPDownloader) Download(ctx context.Context, url string, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, errors.KindDownloadFailed, "failed to build download request")
	}
	req.Header.Set("User-Agent", "shimsync")

	resp, err := d.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, errors.KindDownloadFailed, "failed to download %s", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.KindDownloadFailed, "download of %s returned status %d", url, resp.StatusCode)
	}
	if resp.ContentLength > d.maxBytes {
		return errors.Newf(errors.KindDownloadFailed, "download of %s is %d bytes, limit is %d", url, resp.ContentLength, d.maxBytes)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".part-*")
	if err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to create download file")
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	written, err := io.Copy(tmp, io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, errors.KindDownloadFailed, "failed to read body of %s", url)
	}
	if written > d.maxBytes {
		_ = tmp.Close()
		return errors.Newf(errors.KindDownloadFailed, "download of %s exceeds %d bytes", url, d.maxBytes)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to close download file")
	}

	if err := os.Rename(tmpName, dst); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to move download into place")
	}
	committed = true
	return nil
}

// calculateDigest returns the hex BLAKE3 digest of the file at path.
func calculateDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
