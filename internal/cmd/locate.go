package cmd

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adamancini/shimsync/internal/errors"
	"github.com/adamancini/shimsync/internal/guard"
	"github.com/adamancini/shimsync/internal/locate"
	"github.com/adamancini/shimsync/internal/types"
)

// targetReport describes the Steam API directory of a game.
type targetReport struct {
	Root      string           `json:"root" yaml:"root"`
	Dir       string           `json:"dir" yaml:"dir"`
	Artifacts []artifactReport `json:"artifacts" yaml:"artifacts"`
}

type artifactReport struct {
	Kind     types.Kind  `json:"kind" yaml:"kind"`
	State    guard.State `json:"state" yaml:"state"`
	Original string      `json:"original" yaml:"original"`
	Backup   string      `json:"backup" yaml:"backup"`
}

func newLocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locate <target>",
		Short: "Find a game's Steam API libraries",
		Long: `Locate searches the game directory for steam_api.dll or steam_api64.dll and
shows, per library, whether it has been backed up and replaced.

Nothing is modified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocate(cmd.OutOrStdout(), args[0])
		},
	}
}

func runLocate(out io.Writer, root string) error {
	c, err := loadComponents()
	if err != nil {
		return err
	}

	report, err := inspectTarget(root, c.cfg.PackageDir())
	if err != nil {
		return err
	}
	return write(out, report, targetView{report})
}

// inspectTarget locates the artifact directory under root and reports the
// state of every kind. packageDir supplies the patched libraries used to
// tell replaced artifacts apart.
func inspectTarget(root, packageDir string) (*targetReport, error) {
	dir, ok, err := locate.Find(root, types.AllKinds())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Newf(errors.KindArtifactNotFound, "no Steam API library found under %s", root).
			WithDetail("root", root)
	}

	g := guard.New(dir)
	report := &targetReport{Root: root, Dir: dir}
	for _, kind := range types.AllKinds() {
		source := filepath.Join(packageDir, kind.FileName())
		if _, err := os.Stat(source); err != nil {
			source = ""
		}
		state, err := g.State(kind, source)
		if err != nil {
			return nil, err
		}
		rec := g.Record(kind)
		report.Artifacts = append(report.Artifacts, artifactReport{
			Kind:     kind,
			State:    state,
			Original: rec.OriginalPath,
			Backup:   rec.BackupPath,
		})
	}
	return report, nil
}
