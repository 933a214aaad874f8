package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/adamancini/shimsync/internal/ledger"
)

// statusReport shows the installed package and, optionally, one game.
type statusReport struct {
	PackageDir string          `json:"package_dir" yaml:"package_dir"`
	Installed  bool            `json:"installed" yaml:"installed"`
	Version    string          `json:"version,omitempty" yaml:"version,omitempty"`
	Receipt    *ledger.Receipt `json:"receipt,omitempty" yaml:"receipt,omitempty"`
	Target     *targetReport   `json:"target,omitempty" yaml:"target,omitempty"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [target]",
		Short: "Show the installed emulator package",
		Long: `Status shows which emulator release is installed locally and where it came
from. Given a game directory it also reports the state of the game's Steam
API libraries, like 'shimsync locate'.

Nothing is downloaded or modified.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			return runStatus(cmd.OutOrStdout(), target)
		},
	}
}

func runStatus(out io.Writer, target string) error {
	c, err := loadComponents()
	if err != nil {
		return err
	}

	report := &statusReport{PackageDir: c.cfg.PackageDir()}
	report.Version, report.Installed = c.ledger.Read()
	if report.Receipt, err = c.ledger.ReadReceipt(); err != nil {
		return err
	}

	if target != "" {
		if report.Target, err = inspectTarget(target, c.cfg.PackageDir()); err != nil {
			return err
		}
	}

	return write(out, report, statusView{report})
}
