package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/adamancini/shimsync/internal/update"
)

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Download the latest emulator release if needed",
		Long: `Update checks the release index and installs the newest emulator package
into the data directory when its tag differs from the installed one.

The installed package is replaced as a whole. When the download or the
archive fails, the previous package stays in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runUpdate(ctx context.Context, out io.Writer) error {
	c, err := loadComponents()
	if err != nil {
		return err
	}

	var outcome update.Outcome
	err = c.locked(func() error {
		var err error
		outcome, err = c.fetcher.Reconcile(ctx)
		return err
	})
	if err != nil {
		return err
	}

	return write(out, outcome, outcomeView{outcome})
}
