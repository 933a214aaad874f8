package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/adamancini/shimsync/internal/provision"
)

func newProvisionCmd() *cobra.Command {
	var appID uint32

	cmd := &cobra.Command{
		Use:   "provision [query] <target>",
		Short: "Install the emulator into a game",
		Long: `Provision runs the whole pipeline for one game:

  1. Bring the local emulator package up to the latest release
  2. Resolve the game's app ID from the Steam app list
  3. Find the directory holding steam_api.dll / steam_api64.dll
  4. Back up each library as .bk (once) and replace it
  5. Generate steam_settings for the app ID unless already generated
  6. Copy steam_settings next to the libraries
  7. Create the game's save directory

The query is a case-insensitive substring of the game name. With --app-id
the Steam app list is not consulted and the query may be omitted.`,
		Example: `  shimsync provision "Portal 2" ~/Games/Portal2
  shimsync provision --app-id 620 ~/Games/Portal2`,
		Args: func(cmd *cobra.Command, args []string) error {
			if appID != 0 {
				return cobra.RangeArgs(1, 2)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd.Context(), cmd.OutOrStdout(), provisionRequest(appID, args))
		},
	}

	cmd.Flags().Uint32Var(&appID, "app-id", 0, "Steam app ID; skips the app list search")

	return cmd
}

func provisionRequest(appID uint32, args []string) provision.Request {
	req := provision.Request{AppID: appID, TargetRoot: args[len(args)-1]}
	if len(args) == 2 {
		req.Query = args[0]
	}
	return req
}

// runProvision runs the pipeline under the lock and prints what it did.
func runProvision(ctx context.Context, out io.Writer, req provision.Request) error {
	c, err := loadComponents()
	if err != nil {
		return err
	}

	var result *provision.Result
	err = c.locked(func() error {
		var err error
		result, err = c.orchestrator(newUI()).Provision(ctx, req)
		return err
	})
	if err != nil {
		return err
	}
	c.pruneJournal()

	return write(out, result, provisionSummary{result})
}
