package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/autoupdate/pkg/host"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run as an updater plugin for a go-plugin host",
		Long: `Serve the configured plugin's updater over go-plugin RPC. This command is
started by a host (see "autoupdate scan") and is not meant to be run by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			// go-plugin forwards structured stderr lines to the host logger.
			logger := newLogger(os.Stderr, cfg.Verbose, true)

			s, err := openSession(cfg, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			host.Serve(s.updater, logger)
			return nil
		},
	}
}
