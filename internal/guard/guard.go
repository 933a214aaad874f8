// Package guard backs up Steam API artifacts before they are replaced with
// the patched libraries from the package tree.
//
// Replace only accepts a Witness, and a Witness is only handed out by
// Backup, so an original can never be overwritten before a backup of it
// exists. Backups are created once and never modified afterwards.
package guard

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"

	"github.com/adamancini/shimsync/internal/errors"
	"github.com/adamancini/shimsync/internal/logging"
	"github.com/adamancini/shimsync/internal/types"
)

// ErrNoWitness is returned by Replace when called without a backup witness.
var ErrNoWitness = stderrors.New("replace requires a witness from Backup")

// State is the backup/replace state of one artifact kind.
type State string

const (
	// StateAbsent means the target directory has no original for the kind.
	StateAbsent State = "absent"
	// StateNotBackedUp means the original exists without a backup.
	StateNotBackedUp State = "not-backed-up"
	// StateBackedUp means a backup exists and the original is not the
	// patched library.
	StateBackedUp State = "backed-up"
	// StateReplaced means a backup exists and the original matches the
	// patched library.
	StateReplaced State = "replaced"
)

// Record names the files involved for one artifact kind.
type Record struct {
	Kind         types.Kind `json:"kind" yaml:"kind"`
	OriginalPath string     `json:"original" yaml:"original"`
	BackupPath   string     `json:"backup" yaml:"backup"`
}

// Witness proves that a backup exists for a record.
type Witness struct {
	record Record
}

// Record returns the record the witness was issued for.
func (w *Witness) Record() Record {
	return w.record
}

// Guard manages artifacts in a single directory.
type Guard struct {
	dir    string
	logger zerolog.Logger
}

// New returns a guard for the artifacts in dir.
func New(dir string) *Guard {
	return &Guard{dir: dir, logger: logging.GetLogger("guard")}
}

// Dir returns the directory the guard manages.
func (g *Guard) Dir() string {
	return g.dir
}

// Record returns the original and backup paths for kind.
func (g *Guard) Record(kind types.Kind) Record {
	return Record{
		Kind:         kind,
		OriginalPath: filepath.Join(g.dir, kind.FileName()),
		BackupPath:   filepath.Join(g.dir, kind.BackupName()),
	}
}

// State reports where kind stands. source is the patched library used to
// tell BackedUp and Replaced apart; when empty, a backed-up artifact is
// reported as BackedUp.
func (g *Guard) State(kind types.Kind, source string) (State, error) {
	rec := g.Record(kind)

	if !exists(rec.OriginalPath) {
		return StateAbsent, nil
	}
	if !exists(rec.BackupPath) {
		return StateNotBackedUp, nil
	}
	if source == "" {
		return StateBackedUp, nil
	}

	same, err := sameContent(rec.OriginalPath, source)
	if err != nil {
		return "", errors.Wrapf(err, errors.KindIO, "failed to compare %s", kind.FileName())
	}
	if same {
		return StateReplaced, nil
	}
	return StateBackedUp, nil
}

// Backup preserves the original artifact for kind. It returns nil, nil when
// the directory has no original for kind. An existing backup is left as it
// is and a witness is returned for it.
func (g *Guard) Backup(kind types.Kind) (*Witness, error) {
	rec := g.Record(kind)

	info, err := os.Stat(rec.OriginalPath)
	if err != nil {
		if os.IsNotExist(err) {
			g.logger.Debug().Str("kind", kind.String()).Msg("No original artifact, nothing to back up")
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.KindIO, "failed to inspect %s", rec.OriginalPath)
	}

	if exists(rec.BackupPath) {
		g.logger.Info().Str("backup", rec.BackupPath).Msg("Backup already exists, keeping it")
		return &Witness{record: rec}, nil
	}

	if err := createBackup(rec.OriginalPath, rec.BackupPath, info.Mode().Perm()); err != nil {
		return nil, errors.Wrapf(err, errors.KindIO, "failed to back up %s", rec.OriginalPath)
	}
	g.logger.Info().Str("backup", rec.BackupPath).Msg("Backed up original")
	return &Witness{record: rec}, nil
}

// Replace overwrites the original named by w with the file at source. The
// original is swapped with a rename, so it is never left half written.
func (g *Guard) Replace(w *Witness, source string) error {
	if w == nil {
		return ErrNoWitness
	}
	rec := w.record

	if _, err := os.Stat(source); err != nil {
		return errors.Wrapf(err, errors.KindIO, "patched library %s is not readable", source)
	}
	if !exists(rec.BackupPath) {
		return errors.Newf(errors.KindIO, "backup %s disappeared before replace", rec.BackupPath)
	}

	perm := os.FileMode(0644)
	if info, err := os.Stat(rec.OriginalPath); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := copyToTemp(source, filepath.Dir(rec.OriginalPath), perm)
	if err != nil {
		return errors.Wrapf(err, errors.KindIO, "failed to stage %s", filepath.Base(source))
	}
	if err := os.Rename(tmp, rec.OriginalPath); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, errors.KindIO, "failed to replace %s", rec.OriginalPath)
	}

	g.logger.Info().Str("path", rec.OriginalPath).Msg("Replaced with patched library")
	return nil
}

// createBackup copies original to a temp file and links it to backup. The
// link fails if backup appeared in the meantime, so an existing backup is
// never overwritten and a crash never leaves a partial one.
func createBackup(original, backup string, perm os.FileMode) error {
	tmp, err := copyToTemp(original, filepath.Dir(backup), perm)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp) }()

	linkErr := os.Link(tmp, backup)
	if linkErr == nil {
		return nil
	}
	if os.IsExist(linkErr) {
		return nil
	}

	// Filesystems without hard links.
	if exists(backup) {
		return nil
	}
	if err := os.Rename(tmp, backup); err != nil {
		return fmt.Errorf("link failed (%v) and rename failed: %w", linkErr, err)
	}
	return nil
}

// copyToTemp copies src into a new temp file in dir and returns its path.
func copyToTemp(src, dir string, perm os.FileMode) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer func() { _ = in.Close() }()

	out, err := os.CreateTemp(dir, ".shimsync-*")
	if err != nil {
		return "", err
	}
	name := out.Name()

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	if err := os.Chmod(name, perm); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func sameContent(a, b string) (bool, error) {
	da, err := digest(a)
	if err != nil {
		return false, err
	}
	db, err := digest(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(da, db), nil
}

func digest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
