package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adamancini/shimsync/internal/config"
	"github.com/adamancini/shimsync/internal/errors"
	"github.com/adamancini/shimsync/internal/output"
	"github.com/adamancini/shimsync/internal/templates"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
		Long: `Config shows the configuration shimsync resolves from its defaults, the config
file and SHIMSYNC_* environment variables.

The config file is looked up in this order:
  --config flag
  $SHIMSYNC_CONFIG
  $XDG_CONFIG_HOME/shimsync/config.{toml,yaml,yml,json}`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "paths",
		Short: "List the config file locations searched",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return write(cmd.OutOrStdout(), config.SearchPaths(), pathsView(config.SearchPaths()))
		},
	})

	return cmd
}

func runConfigShow(out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	return write(out, cfg, configView{cfg})
}

func newConfigInitCmd() *cobra.Command {
	var templateName string
	var outputPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file from a template",
		Long: `Init writes a starter config file. Without --path it is created where
shimsync looks first, $XDG_CONFIG_HOME/shimsync/config.toml.

Available templates:
  minimal  - Generator command only
  full     - Every setting, with defaults commented out`,
		Example: `  shimsync config init
  shimsync config init --template full --path ./shimsync.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), templateName, outputPath, force)
		},
	}

	cmd.Flags().StringVarP(&templateName, "template", "t", templates.DefaultName, "Template name")
	cmd.Flags().StringVar(&outputPath, "path", "", "Output path for the config file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	// Register completion for template flag
	_ = cmd.RegisterFlagCompletionFunc("template", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var completions []string
		for _, name := range templates.List() {
			completions = append(completions, fmt.Sprintf("%s\t%s", name, templates.GetDescription(name)))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runConfigInit(out io.Writer, templateName, outputPath string, force bool) error {
	if outputPath == "" {
		outputPath = config.SearchPaths()[0]
	}

	if _, err := os.Stat(outputPath); err == nil && !force {
		return errors.Newf(errors.KindConfig, "config file already exists at %s (use --force to overwrite)", outputPath)
	}

	tmpl, err := templates.Get(templateName)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(outputPath), err)
	}
	if err := os.WriteFile(outputPath, tmpl.Content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// The written file must load cleanly.
	if _, err := config.Load(outputPath); err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "%s Created %s from the %s template\n", output.OK("✓"), outputPath, tmpl.Name)
	return err
}
