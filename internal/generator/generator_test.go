package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/adamancini/shimsync/internal/credential"
	"github.com/adamancini/shimsync/internal/errors"
)

// mockRunner records calls and optionally creates the output directory.
type mockRunner struct {
	calls  []string
	env    []string
	dir    string
	output []byte
	err    error
	create string
}

func (m *mockRunner) Run(_ context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, name+" "+strings.Join(args, " "))
	m.env = env
	m.dir = dir
	if m.create != "" {
		if err := os.MkdirAll(m.create, 0755); err != nil {
			return nil, err
		}
	}
	return m.output, m.err
}

var testCreds = credential.Credentials{Username: "user", Password: "pass"}

func TestGenerate(t *testing.T) {
	work := t.TempDir()
	runner := &mockRunner{create: filepath.Join(work, "400_output", "steam_settings")}
	g := NewWithRunner("python3", []string{"generate_emu_config.py"}, work, runner)

	if err := g.Generate(context.Background(), 400, testCreds); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(runner.calls) != 1 || runner.calls[0] != "python3 generate_emu_config.py 400" {
		t.Errorf("calls = %v, want [python3 generate_emu_config.py 400]", runner.calls)
	}
	if runner.dir != work {
		t.Errorf("dir = %s, want %s", runner.dir, work)
	}
	wantEnv := []string{EnvUsername + "=user", EnvPassword + "=pass"}
	if strings.Join(runner.env, ",") != strings.Join(wantEnv, ",") {
		t.Errorf("env = %v, want %v", runner.env, wantEnv)
	}
}

func TestGenerate_CommandFails(t *testing.T) {
	runner := &mockRunner{output: []byte("login failed"), err: fmt.Errorf("exit status 1")}
	g := NewWithRunner("gen", nil, t.TempDir(), runner)

	err := g.Generate(context.Background(), 10, testCreds)
	if !errors.IsKind(err, errors.KindConfigGenerationFailed) {
		t.Fatalf("Generate() error = %v, want ConfigGenerationFailed", err)
	}
	if !strings.Contains(err.Error(), "login failed") {
		t.Errorf("error should include generator output, got %v", err)
	}
}

func TestGenerate_NoOutputDirectory(t *testing.T) {
	g := NewWithRunner("gen", nil, t.TempDir(), &mockRunner{})

	err := g.Generate(context.Background(), 10, testCreds)
	if !errors.IsKind(err, errors.KindConfigGenerationFailed) {
		t.Errorf("Generate() error = %v, want ConfigGenerationFailed", err)
	}
}

func TestGenerate_NoCommand(t *testing.T) {
	runner := &mockRunner{}
	g := NewWithRunner("", nil, t.TempDir(), runner)

	err := g.Generate(context.Background(), 10, testCreds)
	if !errors.IsKind(err, errors.KindConfigGenerationFailed) {
		t.Errorf("Generate() error = %v, want ConfigGenerationFailed", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("runner should not be called, got %v", runner.calls)
	}
}

func TestOutputDirAndCommandLine(t *testing.T) {
	g := New("gen", []string{"-x"}, "/work")
	if got := g.OutputDir(730); got != filepath.Join("/work", "730_output") {
		t.Errorf("OutputDir() = %s", got)
	}
	if got := g.CommandLine(730); got != "gen -x 730" {
		t.Errorf("CommandLine() = %s, want 'gen -x 730'", got)
	}
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	work := t.TempDir()
	script := `mkdir -p "$1_output/steam_settings" && printf %s "$SHIMSYNC_USERNAME" > "$1_output/user.txt"`
	g := New("sh", []string{"-c", script, "gen"}, work)

	if err := g.Generate(context.Background(), 480, testCreds); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(work, "480_output", "user.txt"))
	if err != nil {
		t.Fatalf("generator output missing: %v", err)
	}
	if string(data) != "user" {
		t.Errorf("user.txt = %q, want %q", data, "user")
	}
}
