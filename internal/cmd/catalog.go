package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/adamancini/shimsync/internal/catalog"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Search the Steam app list",
		Long: `Catalog manages the cached Steam app list used to turn a game name into an
app ID.

The list is downloaded on first use and cached in the cache directory. Use
'shimsync catalog refresh' to pick up newly released games.`,
	}

	cmd.AddCommand(newCatalogRefreshCmd())
	cmd.AddCommand(newCatalogSearchCmd())

	return cmd
}

func newCatalogRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Download the Steam app list again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogRefresh(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newCatalogSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "List games whose name contains query",
		Long:  `Search lists every app whose name contains query, ignoring case.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogSearch(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
}

// refreshReport is the result of a catalog refresh.
type refreshReport struct {
	Apps  int    `json:"apps" yaml:"apps"`
	Cache string `json:"cache" yaml:"cache"`
}

func runCatalogRefresh(ctx context.Context, out io.Writer) error {
	c, err := loadComponents()
	if err != nil {
		return err
	}

	n, err := c.catalog.Refresh(ctx)
	if err != nil {
		return err
	}

	report := refreshReport{Apps: n, Cache: c.catalog.CachePath()}
	return write(out, report, refreshView{report})
}

func runCatalogSearch(ctx context.Context, out io.Writer, query string) error {
	c, err := loadComponents()
	if err != nil {
		return err
	}

	matches, err := c.catalog.Search(ctx, query)
	if err != nil {
		return err
	}
	if matches == nil {
		matches = []catalog.App{}
	}

	return write(out, matches, matchesView{query: query, apps: matches})
}
