package deploy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamancini/shimsync/internal/errors"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestSettingsReplacesExisting(t *testing.T) {
	src := filepath.Join(t.TempDir(), "steam_settings")
	write(t, filepath.Join(src, "steam_appid.txt"), "400")
	write(t, filepath.Join(src, "achievements", "list.json"), "[]")

	target := t.TempDir()
	write(t, filepath.Join(target, "steam_settings", "stale.txt"), "old")

	dst, err := Settings(src, target)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(target, "steam_settings"), dst)

	data, err := os.ReadFile(filepath.Join(dst, "steam_appid.txt"))
	require.NoError(t, err)
	assert.Equal(t, "400", string(data))
	assert.FileExists(t, filepath.Join(dst, "achievements", "list.json"))
	assert.NoFileExists(t, filepath.Join(dst, "stale.txt"))

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging directory should be cleaned up")
}

func TestSettingsMissingSource(t *testing.T) {
	target := t.TempDir()
	write(t, filepath.Join(target, "steam_settings", "keep.txt"), "keep")

	_, err := Settings(filepath.Join(t.TempDir(), "nope"), target)
	assert.True(t, errors.IsKind(err, errors.KindSettingsMissing), "got %v", err)
	assert.FileExists(t, filepath.Join(target, "steam_settings", "keep.txt"))
}

func TestEnsureSaveDir(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Goldberg SteamEmu Saves")

	dir, err := EnsureSaveDir(root, 400)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "400"), dir)
	assert.DirExists(t, dir)

	// Existing directory is fine.
	_, err = EnsureSaveDir(root, 400)
	require.NoError(t, err)

	_, err = EnsureSaveDir("", 400)
	assert.True(t, errors.IsKind(err, errors.KindInvalidPath))
}
