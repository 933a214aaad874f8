package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/adamancini/shimsync/internal/logging"
	"github.com/adamancini/shimsync/internal/provision"
)

var (
	// Global flags
	outputFormat string
	configPath   string
	verbosity    int
	quiet        bool
)

func Execute(version, commit, date string) error {
	shimsyncVersion = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return newRootCmd(version, commit, date).ExecuteContext(ctx)
}

func newRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shimsync <query> <target>",
		Short: "Install the Goldberg Steam emulator into a game",
		Long: `shimsync keeps a local copy of the Goldberg Steam emulator up to date and
installs it into a game.

Given a game name and the game's install directory it downloads the latest
emulator release when needed, finds the Steam API libraries in the game,
backs them up as .bk files, swaps in the emulator's libraries, generates the
game's steam_settings and creates its save directory.

Running 'shimsync <query> <target>' is the same as 'shimsync provision'.`,
		Example: `  shimsync "Portal 2" ~/Games/Portal2
  shimsync provision --app-id 620 ~/Games/Portal2`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(2),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := verbosity
			if quiet {
				level = -1
			}
			logging.SetupLogger(level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd.Context(), cmd.OutOrStdout(), provision.Request{
				Query:      args[0],
				TargetRoot: args[1],
			})
		},
	}
	rootCmd.SetVersionTemplate(versionLine(version, commit, date) + "\n")

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: $SHIMSYNC_CONFIG or the XDG config dir)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Verbose output (repeat for more)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (warnings and errors only)")

	// Add subcommands
	rootCmd.AddCommand(newProvisionCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newLocateCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newCatalogCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))
	rootCmd.AddCommand(newCompletionCmd())

	// Register completion function for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}
