package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/adamancini/shimsync/internal/journal"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past provisioning runs",
		Long: `History lists the runs recorded in the run journal.

Every successful provisioning run records which game directory it patched,
which artifacts were backed up and which emulator release was installed.
Runs are kept in the XDG state directory unless journal.dir is set; only
the most recent journal.keep runs are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryDeleteCmd())
	cmd.AddCommand(newHistoryPruneCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd.OutOrStdout())
		},
	}
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run",
		Long:  `Show prints everything recorded for a run. Use 'latest' as the ID for the most recent run.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd.OutOrStdout(), args[0])
		},
	}
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a run record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryDelete(cmd.OutOrStdout(), args[0])
		},
	}
}

func newHistoryPruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old run records",
		Long: `Prune deletes old run records, keeping only the most recent N.

By default, keeps the 50 most recent runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryPrune(cmd.OutOrStdout(), keep)
		},
	}

	cmd.Flags().IntVar(&keep, "keep", journal.DefaultKeepCount, "Number of runs to keep")

	return cmd
}

func runHistoryList(out io.Writer) error {
	c, err := loadComponents()
	if err != nil {
		return err
	}

	runs, err := c.journal.List()
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []journal.RunInfo{}
	}

	return write(out, runs, historyView{dir: c.journal.Dir(), runs: runs})
}

func runHistoryShow(out io.Writer, id string) error {
	c, err := loadComponents()
	if err != nil {
		return err
	}

	run, err := c.journal.Get(id)
	if err != nil {
		return err
	}

	return write(out, run, runView{run})
}

func runHistoryDelete(out io.Writer, id string) error {
	c, err := loadComponents()
	if err != nil {
		return err
	}

	if err := c.journal.Delete(id); err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "Deleted run: %s\n", id)
	return err
}

func runHistoryPrune(out io.Writer, keep int) error {
	c, err := loadComponents()
	if err != nil {
		return err
	}

	result, err := c.journal.Prune(keep)
	if err != nil {
		return err
	}

	return write(out, result, pruneView{result})
}
