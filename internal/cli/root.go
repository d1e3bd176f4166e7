// Package cli provides the command-line interface for autoupdate.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/autoupdate/internal/config"
	"github.com/jmylchreest/autoupdate/internal/version"
)

// globalOptions holds flags shared by every command.
type globalOptions struct {
	configFile string
	jsonOutput bool
}

// NewRootCmd builds the autoupdate command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   version.AppName,
		Short: "Self-update checker for host-managed plugins",
		Long: `autoupdate answers a plugin host's "plugin information" and "check for
update" queries for a single plugin, using metadata published by a remote
update server at {base-url}/api/plugin/{slug}.

It can run in-process (info, check), as an out-of-process updater plugin
(serve), or as a host driving updater plugins (scan).`,
		Version:      version.Short(),
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolP(config.KeyVerbose, "v", false, "enable verbose output")
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (default autoupdate.yaml or user config dir)")
	flags.BoolVar(&opts.jsonOutput, "json", false, "output JSON")
	config.RegisterFlags(flags)

	rootCmd.SetVersionTemplate(version.String() + "\n")

	rootCmd.AddCommand(
		newInfoCmd(opts),
		newCheckCmd(opts),
		newServeCmd(opts),
		newScanCmd(opts),
		newVersionCmd(opts),
	)

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
