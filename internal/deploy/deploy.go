// Package deploy places generated settings next to the artifacts and
// prepares the per-app save directory.
package deploy

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adamancini/shimsync/internal/errors"
	"github.com/adamancini/shimsync/internal/types"
)

// Settings replaces targetDir/steam_settings with a copy of src. The copy is
// built beside the destination first, so a failed copy leaves any previous
// settings in place.
func Settings(src, targetDir string) (string, error) {
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return "", errors.Newf(errors.KindSettingsMissing, "generated settings not found at %s", src)
	}

	dst := filepath.Join(targetDir, types.SettingsDirName)
	staging, err := os.MkdirTemp(targetDir, "."+types.SettingsDirName+"-*")
	if err != nil {
		return "", errors.Wrap(err, errors.KindIO, "failed to stage settings")
	}
	defer func() { _ = os.RemoveAll(staging) }()

	tree := filepath.Join(staging, types.SettingsDirName)
	if err := copyTree(src, tree); err != nil {
		return "", errors.Wrap(err, errors.KindIO, "failed to copy settings")
	}

	if err := os.RemoveAll(dst); err != nil {
		return "", errors.Wrapf(err, errors.KindIO, "failed to remove old %s", dst)
	}
	if err := os.Rename(tree, dst); err != nil {
		return "", errors.Wrapf(err, errors.KindIO, "failed to move settings into %s", targetDir)
	}
	return dst, nil
}

// EnsureSaveDir creates root/<appID> if needed and returns it.
func EnsureSaveDir(root string, appID uint32) (string, error) {
	if root == "" {
		return "", errors.New(errors.KindInvalidPath, "no save directory configured")
	}
	dir := filepath.Join(root, strconv.FormatUint(uint64(appID), 10))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, errors.KindIO, "failed to create save directory %s", dir)
	}
	return dir, nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			return fmt.Errorf("unsupported file type at %s", path)
		}
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
