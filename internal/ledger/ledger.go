// Package ledger persists which upstream package version is unpacked locally.
package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/adamancini/shimsync/internal/errors"
)

const (
	// VersionFileName holds exactly the tag of the installed package.
	VersionFileName = "version.txt"
	// ReceiptFileName holds details of the last successful install.
	ReceiptFileName = "package.toml"
)

// Receipt records where the installed package came from.
type Receipt struct {
	Tag         string    `toml:"tag" json:"tag" yaml:"tag"`
	SourceURL   string    `toml:"source_url" json:"source_url" yaml:"source_url"`
	Digest      string    `toml:"digest" json:"digest" yaml:"digest"`
	InstalledAt time.Time `toml:"installed_at" json:"installed_at" yaml:"installed_at"`
}

// Ledger reads and writes the installed-version marker in a directory.
// It performs no locking; a single process is assumed to own the directory.
type Ledger struct {
	dir string
}

// New returns a ledger rooted at dir.
func New(dir string) *Ledger {
	return &Ledger{dir: dir}
}

// Path returns the location of the version marker.
func (l *Ledger) Path() string {
	return filepath.Join(l.dir, VersionFileName)
}

// ReceiptPath returns the location of the install receipt.
func (l *Ledger) ReceiptPath() string {
	return filepath.Join(l.dir, ReceiptFileName)
}

// Read returns the installed version. The second result is false when the
// marker was never written or cannot be read.
func (l *Ledger) Read() (string, bool) {
	data, err := os.ReadFile(l.Path())
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Write persists version as the installed version.
func (l *Ledger) Write(version string) error {
	if err := writeFileAtomic(l.Path(), []byte(version)); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to write version marker")
	}
	return nil
}

// WriteReceipt persists r next to the version marker.
func (l *Ledger) WriteReceipt(r Receipt) error {
	data, err := toml.Marshal(r)
	if err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to encode install receipt")
	}
	if err := writeFileAtomic(l.ReceiptPath(), data); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to write install receipt")
	}
	return nil
}

// ReadReceipt loads the install receipt. A missing receipt returns nil, nil.
func (l *Ledger) ReadReceipt() (*Receipt, error) {
	data, err := os.ReadFile(l.ReceiptPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.KindIO, "failed to read install receipt")
	}

	var r Receipt
	if err := toml.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, errors.KindIO, "failed to parse install receipt")
	}
	return &r, nil
}

// writeFileAtomic writes data to a temp file in path's directory and renames
// it into place, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(tmpName), err)
	}
	committed = true
	return nil
}
