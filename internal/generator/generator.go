// Package generator produces the per-app settings bundle by running an
// external generator command.
package generator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/adamancini/shimsync/internal/credential"
	"github.com/adamancini/shimsync/internal/errors"
	"github.com/adamancini/shimsync/internal/logging"
)

// Environment variables that carry the account to the generator.
const (
	EnvUsername = "SHIMSYNC_USERNAME"
	EnvPassword = "SHIMSYNC_PASSWORD"
)

// maxOutputInError bounds how much generator output is quoted in errors.
const maxOutputInError = 2048

// CommandRunner is an interface for running external commands.
// This allows for mocking in tests.
type CommandRunner interface {
	Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)
}

// ExecRunner uses os/exec to run commands.
type ExecRunner struct{}

// Run executes name in dir with env added to the current environment and
// returns its combined output.
func (r *ExecRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	return cmd.CombinedOutput()
}

// Generator runs the configured command for one app ID at a time.
type Generator struct {
	command string
	args    []string
	workDir string
	runner  CommandRunner
	logger  zerolog.Logger
}

// New creates a generator that runs command with args in workDir.
func New(command string, args []string, workDir string) *Generator {
	return NewWithRunner(command, args, workDir, &ExecRunner{})
}

// NewWithRunner creates a generator with a custom command runner (for testing).
func NewWithRunner(command string, args []string, workDir string, runner CommandRunner) *Generator {
	return &Generator{
		command: command,
		args:    args,
		workDir: workDir,
		runner:  runner,
		logger:  logging.GetLogger("generator"),
	}
}

// OutputDir returns where the bundle for appID is expected.
func (g *Generator) OutputDir(appID uint32) string {
	return filepath.Join(g.workDir, fmt.Sprintf("%d_output", appID))
}

// CommandLine returns the command that Generate would run for appID.
func (g *Generator) CommandLine(appID uint32) string {
	parts := append([]string{g.command}, g.args...)
	parts = append(parts, strconv.FormatUint(uint64(appID), 10))
	return strings.Join(parts, " ")
}

// Generate runs the generator for appID. It fails unless the command exits
// successfully and leaves the output directory behind.
func (g *Generator) Generate(ctx context.Context, appID uint32, creds credential.Credentials) error {
	if g.command == "" {
		return errors.New(errors.KindConfigGenerationFailed, "no generator command configured")
	}
	if err := os.MkdirAll(g.workDir, 0755); err != nil {
		return errors.Wrapf(err, errors.KindConfigGenerationFailed, "failed to create work directory %s", g.workDir)
	}

	args := append(append([]string{}, g.args...), strconv.FormatUint(uint64(appID), 10))
	env := []string{
		EnvUsername + "=" + creds.Username,
		EnvPassword + "=" + creds.Password,
	}

	g.logger.Info().Uint32("app_id", appID).Str("command", g.CommandLine(appID)).Msg("Generating settings")
	output, err := g.runner.Run(ctx, g.workDir, env, g.command, args...)
	if err != nil {
		return errors.Wrapf(err, errors.KindConfigGenerationFailed, "generator failed for app %d\nOutput: %s", appID, tail(output))
	}
	g.logger.Debug().Str("output", string(output)).Msg("Generator finished")

	if info, err := os.Stat(g.OutputDir(appID)); err != nil || !info.IsDir() {
		return errors.Newf(errors.KindConfigGenerationFailed, "generator did not produce %s", g.OutputDir(appID))
	}
	return nil
}

func tail(output []byte) string {
	if len(output) > maxOutputInError {
		output = output[len(output)-maxOutputInError:]
	}
	return strings.TrimSpace(string(output))
}
