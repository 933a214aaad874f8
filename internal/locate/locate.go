// Package locate finds the directory inside a game installation that holds
// the Steam API artifacts.
package locate

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/adamancini/shimsync/internal/errors"
	"github.com/adamancini/shimsync/internal/logging"
	"github.com/adamancini/shimsync/internal/types"
)

// Find walks root depth-first and returns the first directory that directly
// contains a file named after one of kinds. A directory's own files are
// checked before any of its subdirectories, which are visited in name order.
// The boolean result is false when no directory matches.
func Find(root string, kinds []types.Kind) (string, bool, error) {
	info, err := os.Stat(root)
	if err != nil {
		return "", false, errors.Wrapf(err, errors.KindInvalidPath, "cannot read %s", root)
	}
	if !info.IsDir() {
		return "", false, errors.Newf(errors.KindInvalidPath, "%s is not a directory", root)
	}

	names := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		names[k.FileName()] = true
	}

	dir, ok := walk(root, names)
	if ok {
		logger := logging.GetLogger("locate")
		logger.Debug().Str("dir", dir).Msg("Found artifact directory")
	}
	return dir, ok, nil
}

func walk(dir string, names map[string]bool) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable subtrees are skipped, the same way a walk ignores them.
		logger := logging.GetLogger("locate")
		logger.Debug().Err(err).Str("dir", dir).Msg("Skipping unreadable directory")
		return "", false
	}

	var subdirs []string
	for _, e := range entries {
		if e.IsDir() {
			subdirs = append(subdirs, e.Name())
			continue
		}
		if names[e.Name()] && isFile(dir, e) {
			return dir, true
		}
	}

	sort.Strings(subdirs)
	for _, name := range subdirs {
		if found, ok := walk(filepath.Join(dir, name), names); ok {
			return found, true
		}
	}
	return "", false
}

// isFile reports whether e is a regular file or a symlink that resolves to
// one. Symlinked directories are never descended into.
func isFile(dir string, e fs.DirEntry) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && info.Mode().IsRegular()
}

// Present returns the kinds whose artifact file exists directly in dir, in
// the order given.
func Present(dir string, kinds []types.Kind) ([]types.Kind, error) {
	var present []types.Kind
	for _, k := range kinds {
		info, err := os.Stat(filepath.Join(dir, k.FileName()))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to inspect %s: %w", k.FileName(), err)
		}
		if info.Mode().IsRegular() {
			present = append(present, k)
		}
	}
	return present, nil
}
