package main

import (
	"fmt"
	"os"

	"kurp-hq/kurp/pkg/cli"
	"kurp-hq/kurp/pkg/config"

	"github.com/spf13/cobra"
)

// configDir is the --config-dir flag shared by all subcommands.
var configDir string

var rootCmd = &cobra.Command{
	Use:   "kurp",
	Short: "Kurp - upscaling reverse proxy for Komga and Kavita",
	Long: `Kurp is a reverse proxy for Komga and Kavita comic servers.

Every request is relayed to the upstream server. Page images are decoded,
upscaled with waifu2x, Real-CUGAN or an in-process resampler, re-encoded and
returned in place of the original. Upscaling can be limited to books and
series carrying a tag.

The configuration document is config.yml in the configuration directory
(--config-dir, then $KURP_CONF_DIR, then the working directory). Edits to it
restart the proxy with the new settings.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config-dir", "c", "",
		fmt.Sprintf("configuration directory (default $%s or the working directory)", config.EnvConfDir))
}
