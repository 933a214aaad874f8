package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/fatih/color"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamancini/shimsync/internal/catalog"
	"github.com/adamancini/shimsync/internal/config"
	"github.com/adamancini/shimsync/internal/credential"
	"github.com/adamancini/shimsync/internal/errors"
	"github.com/adamancini/shimsync/internal/guard"
	"github.com/adamancini/shimsync/internal/interactive"
	"github.com/adamancini/shimsync/internal/journal"
	"github.com/adamancini/shimsync/internal/provision"
	"github.com/adamancini/shimsync/internal/update"
)

// isolate points every XDG directory and the global flags at test-owned
// values.
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range []string{"XDG_STATE_HOME", "XDG_CONFIG_HOME", "XDG_DATA_HOME", "XDG_CACHE_HOME"} {
		t.Setenv(name, filepath.Join(root, strings.ToLower(name)))
	}
	t.Setenv("SHIMSYNC_CONFIG", "")
	xdg.Reload()

	origNoColor := color.NoColor
	color.NoColor = true

	t.Cleanup(func() {
		configPath = ""
		outputFormat = "text"
		newUI = interactive.New
		color.NoColor = origNoColor
		xdg.Reload()
	})
	outputFormat = "text"
	return root
}

// writeTestConfig writes a config rooted in dir that talks to baseURL and
// selects it.
func writeTestConfig(t *testing.T, dir, baseURL string) {
	t.Helper()
	content := fmt.Sprintf(`release_index_url = '%s/releases'
app_list_url = '%s/applist'
http_timeout = '5s'
lock_wait = '0s'
data_dir = '%s'
cache_dir = '%s'
save_dir = '%s'
credentials_file = '%s'

[generator]
command = 'sh'
args = ['-c', 'mkdir -p "${0}_output/steam_settings" && printf "%%s" "$SHIMSYNC_USERNAME" > "${0}_output/steam_settings/account_name.txt"']

[journal]
dir = '%s'
keep = 1
`, baseURL, baseURL,
		filepath.Join(dir, "data"),
		filepath.Join(dir, "cache"),
		filepath.Join(dir, "saves"),
		filepath.Join(dir, "creds.toml"),
		filepath.Join(dir, "runs"),
	)
	configPath = filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
}

func packageArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{"steam_api.dll": "patched32", "steam_api64.dll": "patched64"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// newUpstream serves releases, the archive and the app list. An empty
// releases body serves an empty index.
func newUpstream(t *testing.T, releases bool) *httptest.Server {
	t.Helper()
	archive := packageArchive(t)
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/releases", func(w http.ResponseWriter, r *http.Request) {
		if !releases {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		fmt.Fprintf(w, `[{"tag_name":"v1.0.0","assets":{"links":[{"name":"emu","url":%q}]}}]`, srv.URL+"/emu.zip")
	})
	mux.HandleFunc("/emu.zip", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	})
	mux.HandleFunc("/applist", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"applist":{"apps":[{"appid":480,"name":"Spacewar"},{"appid":620,"name":"Portal 2"},{"appid":400,"name":"Portal"}]}}`))
	})
	return srv
}

// fakeUI always picks the first match and answers with fixed credentials.
type fakeUI struct {
	selected []string
}

func (f *fakeUI) Select(_ context.Context, query string, apps []catalog.App) (catalog.App, bool, error) {
	f.selected = append(f.selected, query)
	return apps[0], true, nil
}

func (f *fakeUI) PromptCredentials(context.Context) (credential.Credentials, error) {
	return credential.Credentials{Username: "gaben", Password: "hunter2"}, nil
}

func writeGame(t *testing.T, dir string) string {
	t.Helper()
	bin := filepath.Join(dir, "game", "bin")
	require.NoError(t, os.MkdirAll(bin, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "steam_api.dll"), []byte("original32"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "steam_api64.dll"), []byte("original64"), 0644))
	return filepath.Join(dir, "game")
}

func TestRootArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no arguments", []string{}, "accepts 2 arg(s), received 0"},
		{"one argument", []string{"portal"}, "accepts 2 arg(s), received 1"},
		{"three arguments", []string{"a", "b", "c"}, "accepts 2 arg(s), received 3"},
		{"provision without app id", []string{"provision", "/games/x"}, "accepts 2 arg(s), received 1"},
		{"provision app id with too many", []string{"provision", "--app-id", "1", "a", "b", "c"}, "accepts between 1 and 2 arg(s)"},
		{"locate needs target", []string{"locate"}, "accepts 1 arg(s), received 0"},
		{"bad completion shell", []string{"completion", "tcsh"}, "invalid argument"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			root := newRootCmd("test", "abc", "today")
			root.SetArgs(tt.args)
			root.SetOut(&bytes.Buffer{})
			root.SetErr(&bytes.Buffer{})

			err := root.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProvisionRequest(t *testing.T) {
	assert.Equal(t, provision.Request{Query: "portal", TargetRoot: "/g"}, provisionRequest(0, []string{"portal", "/g"}))
	assert.Equal(t, provision.Request{AppID: 620, TargetRoot: "/g"}, provisionRequest(620, []string{"/g"}))
	assert.Equal(t, provision.Request{Query: "portal", AppID: 620, TargetRoot: "/g"}, provisionRequest(620, []string{"portal", "/g"}))
}

func TestVersionCommand(t *testing.T) {
	isolate(t)

	var out bytes.Buffer
	root := newRootCmd("1.2.3", "abc123", "2024-01-28")
	root.SetArgs([]string{"version"})
	root.SetOut(&out)

	require.NoError(t, root.Execute())
	assert.Equal(t, "shimsync version 1.2.3 (commit abc123, built 2024-01-28)\n", out.String())
}

func TestCompletionCommand(t *testing.T) {
	isolate(t)

	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			var out bytes.Buffer
			root := newRootCmd("test", "", "")
			root.SetArgs([]string{"completion", shell})
			root.SetOut(&out)

			require.NoError(t, root.Execute())
			assert.Contains(t, out.String(), "shimsync")
		})
	}
}

func TestRunProvision(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("generator is a shell script")
	}
	dir := isolate(t)
	srv := newUpstream(t, true)
	writeTestConfig(t, dir, srv.URL)
	game := writeGame(t, dir)

	ui := &fakeUI{}
	newUI = func() interactive.UI { return ui }

	var out bytes.Buffer
	require.NoError(t, runProvision(context.Background(), &out, provision.Request{Query: "portal", TargetRoot: game}))

	assert.Equal(t, []string{"portal"}, ui.selected)
	assert.Contains(t, out.String(), "Provisioned app 620")
	assert.Contains(t, out.String(), "(generated)")

	bin := filepath.Join(game, "bin")
	data, err := os.ReadFile(filepath.Join(bin, "steam_api64.dll"))
	require.NoError(t, err)
	assert.Equal(t, "patched64", string(data))
	data, err = os.ReadFile(filepath.Join(bin, "steam_settings", "account_name.txt"))
	require.NoError(t, err)
	assert.Equal(t, "gaben", string(data))
	assert.DirExists(t, filepath.Join(dir, "saves", "620"))

	// The prompted credentials were stored for next time.
	assert.FileExists(t, filepath.Join(dir, "creds.toml"))

	// A second run by app ID keeps the journal at journal.keep.
	out.Reset()
	outputFormat = "json"
	require.NoError(t, runProvision(context.Background(), &out, provision.Request{AppID: 620, TargetRoot: game}))

	var result provision.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, update.StatusAlreadyCurrent, result.Package.Status)
	assert.False(t, result.Generated)
	assert.Len(t, result.Artifacts, 2)

	runs, err := journal.NewManager(filepath.Join(dir, "runs"), "").List()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunProvisionFailureIsCoded(t *testing.T) {
	dir := isolate(t)
	srv := newUpstream(t, true)
	writeTestConfig(t, dir, srv.URL)

	err := runProvision(context.Background(), &bytes.Buffer{}, provision.Request{AppID: 1, TargetRoot: filepath.Join(dir, "missing")})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInvalidPath))
}

func TestRunUpdate(t *testing.T) {
	dir := isolate(t)

	t.Run("empty index", func(t *testing.T) {
		srv := newUpstream(t, false)
		writeTestConfig(t, dir, srv.URL)

		var out bytes.Buffer
		require.NoError(t, runUpdate(context.Background(), &out))
		assert.Equal(t, "! No releases found\n", out.String())
	})

	t.Run("downloads release", func(t *testing.T) {
		srv := newUpstream(t, true)
		writeTestConfig(t, dir, srv.URL)

		var out bytes.Buffer
		require.NoError(t, runUpdate(context.Background(), &out))
		assert.Equal(t, "✓ Downloaded latest release v1.0.0\n", out.String())
		assert.FileExists(t, filepath.Join(dir, "data", "emulator", "steam_api.dll"))
	})
}

func TestRunStatusAndLocate(t *testing.T) {
	dir := isolate(t)
	srv := newUpstream(t, true)
	writeTestConfig(t, dir, srv.URL)
	game := writeGame(t, dir)

	var out bytes.Buffer
	require.NoError(t, runStatus(&out, ""))
	assert.Contains(t, out.String(), "No emulator package installed")

	require.NoError(t, runUpdate(context.Background(), &bytes.Buffer{}))

	// Patch one kind by hand the way the pipeline does.
	g := guard.New(filepath.Join(game, "bin"))
	w, err := g.Backup("variant64")
	require.NoError(t, err)
	require.NoError(t, g.Replace(w, filepath.Join(dir, "data", "emulator", "steam_api64.dll")))

	outputFormat = "json"
	out.Reset()
	require.NoError(t, runStatus(&out, game))

	var report statusReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.True(t, report.Installed)
	assert.Equal(t, "v1.0.0", report.Version)
	require.NotNil(t, report.Receipt)
	assert.NotEmpty(t, report.Receipt.Digest)
	require.NotNil(t, report.Target)
	assert.Equal(t, filepath.Join(game, "bin"), report.Target.Dir)
	require.Len(t, report.Target.Artifacts, 2)
	assert.Equal(t, guard.StateReplaced, report.Target.Artifacts[0].State)
	assert.Equal(t, guard.StateNotBackedUp, report.Target.Artifacts[1].State)

	outputFormat = "text"
	out.Reset()
	require.NoError(t, runLocate(&out, game))
	assert.Contains(t, out.String(), "steam_api64.dll  replaced")

	err = runLocate(&out, filepath.Join(dir, "saves"))
	assert.True(t, errors.IsKind(err, errors.KindInvalidPath) || errors.IsKind(err, errors.KindArtifactNotFound))
}

func TestCatalogCommands(t *testing.T) {
	dir := isolate(t)
	srv := newUpstream(t, true)
	writeTestConfig(t, dir, srv.URL)

	var out bytes.Buffer
	require.NoError(t, runCatalogRefresh(context.Background(), &out))
	assert.Contains(t, out.String(), "Cached 3 apps")

	out.Reset()
	require.NoError(t, runCatalogSearch(context.Background(), &out, "PORTAL"))
	assert.Regexp(t, `620\s+Portal 2`, out.String())
	assert.Regexp(t, `400\s+Portal\n`, out.String())
	assert.NotContains(t, out.String(), "Spacewar")

	out.Reset()
	require.NoError(t, runCatalogSearch(context.Background(), &out, "zzz"))
	assert.Equal(t, "No games match \"zzz\".\n", out.String())

	outputFormat = "json"
	out.Reset()
	require.NoError(t, runCatalogSearch(context.Background(), &out, "zzz"))
	assert.Equal(t, "[]\n", out.String())
}

func TestHistoryCommands(t *testing.T) {
	dir := isolate(t)
	writeTestConfig(t, dir, "http://127.0.0.1:1")

	var out bytes.Buffer
	require.NoError(t, runHistoryList(&out))
	assert.Contains(t, out.String(), "No runs recorded.")

	m := journal.NewManager(filepath.Join(dir, "runs"), "test")
	for i := 0; i < 3; i++ {
		require.NoError(t, m.Record(&journal.Run{
			StartedAt: time.Date(2024, 1, 28, 10, i, 0, 0, time.UTC),
			AppID:     uint32(400 + i),
			TargetDir: "/games/portal/bin",
		}))
	}

	out.Reset()
	require.NoError(t, runHistoryList(&out))
	assert.Contains(t, out.String(), "Runs recorded in")
	assert.Contains(t, out.String(), "/games/portal/bin")

	out.Reset()
	require.NoError(t, runHistoryShow(&out, "latest"))
	assert.Contains(t, out.String(), "402")

	out.Reset()
	require.NoError(t, runHistoryPrune(&out, 1))
	assert.Contains(t, out.String(), "Pruned 2 runs, kept 1")

	runs, err := m.List()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	out.Reset()
	require.NoError(t, runHistoryDelete(&out, runs[0].ID))
	assert.Equal(t, "Deleted run: "+runs[0].ID+"\n", out.String())

	assert.Error(t, runHistoryDelete(&out, runs[0].ID))
	assert.Error(t, runHistoryShow(&out, "../etc/passwd"))
}

func TestConfigShow(t *testing.T) {
	dir := isolate(t)
	writeTestConfig(t, dir, "https://example.com")

	var out bytes.Buffer
	require.NoError(t, runConfigShow(&out))
	assert.Contains(t, out.String(), "Config file: "+configPath)
	assert.Contains(t, out.String(), "https://example.com/releases")
	assert.Regexp(t, `lock_wait\s+0s`, out.String())

	outputFormat = "yaml"
	out.Reset()
	require.NoError(t, runConfigShow(&out))
	assert.Contains(t, out.String(), "data_dir: "+filepath.Join(dir, "data"))
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	isolate(t)
	outputFormat = "xml"
	err := write(&bytes.Buffer{}, struct{}{}, pathsView(nil))
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	dir := isolate(t)

	var out bytes.Buffer
	require.NoError(t, runConfigInit(&out, "minimal", "", false))

	path := filepath.Join(dir, "xdg_config_home", "shimsync", "config.toml")
	assert.Contains(t, out.String(), "Created "+path+" from the minimal template")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "python3", cfg.Generator.Command)
	assert.Equal(t, []string{"generate_emu_config.py"}, cfg.Generator.Args)

	err = runConfigInit(&out, "full", path, false)
	assert.True(t, errors.IsKind(err, errors.KindConfig))

	require.NoError(t, runConfigInit(&out, "full", path, true))
	cfg, err = config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Journal.Keep)

	assert.Error(t, runConfigInit(&out, "nope", filepath.Join(dir, "other.toml"), false))
}
