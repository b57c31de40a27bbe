package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"kurp-hq/kurp/pkg/cli"
	"kurp-hq/kurp/pkg/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create the configuration document",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check config.yml without starting the proxy",
	Long: `Load config.yml from the configuration directory, apply environment
overrides and report every validation problem. The exit status is 2 when the
document is invalid.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := config.ResolveDir(configDir)
		if _, err := loadConfig(dir); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid\n", config.Path(dir))
		return nil
	},
}

var configShowFlags struct {
	format string
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration the proxy would run with: defaults, then
config.yml, then environment overrides.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := cli.NewFormatter(cli.OutputFormat(configShowFlags.format))
		if err != nil {
			return err
		}
		cfg, err := loadConfig(config.ResolveDir(configDir))
		if err != nil {
			return err
		}

		var data any = cfg
		if configShowFlags.format == string(cli.FormatJSON) {
			if data, err = config.MarshalJSONDocument(cfg); err != nil {
				return err
			}
		}
		return formatter.FormatTo(cmd.OutOrStdout(), data)
	},
}

var configInitFlags struct {
	force bool
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config.yml with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := config.ResolveDir(configDir)
		path := config.Path(dir)

		if !configInitFlags.force {
			if _, err := os.Stat(path); err == nil {
				return cli.NewCommandError("config init", fmt.Errorf("%s already exists (use --force to overwrite)", path))
			} else if !errors.Is(err, fs.ErrNotExist) {
				return cli.NewCommandError("config init", err)
			}
		}

		if err := config.Write(dir, config.Default(dir)); err != nil {
			return cli.NewCommandError("config init", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ wrote %s\n", path)
		return nil
	},
}

// loadConfig loads the document in dir with environment overrides and maps
// failures to a ConfigError.
func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(dir)
	if err != nil {
		return nil, cli.NewConfigError(config.Path(dir), err.Error())
	}
	return cfg, nil
}

func init() {
	configShowCmd.Flags().StringVarP(&configShowFlags.format, "format", "o", string(cli.FormatYAML), "output format: yaml, json")
	configInitCmd.Flags().BoolVar(&configInitFlags.force, "force", false, "overwrite an existing config.yml")

	configCmd.AddCommand(configValidateCmd, configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
