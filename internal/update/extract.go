package update

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// maxExtractedBytes caps the total decompressed size of a package archive.
var maxExtractedBytes = int64(2 << 30)

// extractZip unpacks archive into dest, which must not exist yet. Entries
// that would land outside dest and symlink entries are rejected.
func extractZip(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = r.Close() }()

	if len(r.File) == 0 {
		return fmt.Errorf("archive is empty")
	}

	if err := os.Mkdir(dest, 0755); err != nil {
		return fmt.Errorf("failed to create extraction directory: %w", err)
	}

	remaining := maxExtractedBytes
	for _, f := range r.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if !withinDir(dest, target) {
			return fmt.Errorf("archive entry %q escapes extraction directory", f.Name)
		}

		mode := f.Mode()
		switch {
		case mode&os.ModeSymlink != 0:
			return fmt.Errorf("archive entry %q is a symlink", f.Name)
		case mode.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create %s: %w", f.Name, err)
			}
		default:
			if err := extractFile(f, target, &remaining); err != nil {
				return err
			}
		}
	}

	return nil
}

// extractFile writes one entry and charges its size against remaining.
func extractFile(f *zip.File, target string, remaining *int64) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", f.Name, err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
	}
	defer func() { _ = src.Close() }()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm|0200)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", f.Name, err)
	}

	n, err := io.Copy(dst, io.LimitReader(src, *remaining+1))
	if err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	if n > *remaining {
		_ = dst.Close()
		return fmt.Errorf("archive expands beyond %d bytes at %s", maxExtractedBytes, f.Name)
	}
	*remaining -= n
	return dst.Close()
}

// withinDir reports whether path is dir or lies beneath it.
func withinDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// packageRoot returns the directory that should become the package tree.
// Archives that wrap everything in one top-level directory are flattened.
func packageRoot(tree string) (string, error) {
	entries, err := os.ReadDir(tree)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(tree, entries[0].Name()), nil
	}
	return tree, nil
}
