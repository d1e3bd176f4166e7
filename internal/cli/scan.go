package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/autoupdate/internal/plugin/executor"
	"github.com/jmylchreest/autoupdate/internal/security"
	"github.com/jmylchreest/autoupdate/pkg/host"
)

type scanOptions struct {
	plugins    []string
	pluginArgs []string
}

func newScanCmd(opts *globalOptions) *cobra.Command {
	scanOpts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a host update scan against updater plugins",
		Long: `Act as the plugin host: launch each updater plugin binary over go-plugin,
record the versions they report and run one update scan through them.

Plugins inherit this process's environment, so AUTOUPDATE_* variables
configure them.`,
		Example: `  autoupdate scan --plugin ./autoupdate --host-version 6.4.2 --runtime-version 8.2.10`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, opts, scanOpts)
		},
	}

	cmd.Flags().StringSliceVar(&scanOpts.plugins, "plugin", nil, "updater plugin binary (repeatable)")
	cmd.Flags().StringSliceVar(&scanOpts.pluginArgs, "plugin-arg", []string{"serve"}, "arguments passed to each plugin binary")
	_ = cmd.MarkFlagRequired("plugin")

	return cmd
}

func runScan(cmd *cobra.Command, opts *globalOptions, scanOpts *scanOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose, false)

	env := environment(cfg)
	reg := host.NewRegistry(env)
	checked := make(map[string]string, len(scanOpts.plugins))

	for _, path := range scanOpts.plugins {
		if err := security.ValidatePluginBinary(path); err != nil {
			return err
		}

		e, err := executor.Launch(path, cfg.Verbose, scanOpts.pluginArgs...)
		if err != nil {
			return fmt.Errorf("failed to launch plugin %s: %w", path, err)
		}
		defer e.Close()

		meta := e.Updater().GetMetadata()
		if meta.FilePath == "" {
			logger.Warn("plugin reported no metadata; skipping", "path", path)
			continue
		}
		logger.Debug("plugin attached", "path", path, "slug", meta.Slug, "version", meta.Version)

		checked[meta.FilePath] = meta.Version
		if env.Admin {
			host.Attach(reg, e.Updater())
		}
	}

	if !env.Admin {
		logger.Warn(errNotAdmin.Error())
	}

	transient := &host.Transient{LastChecked: time.Now().UTC(), Checked: checked}
	return writeTransient(cmd.OutOrStdout(), opts.jsonOutput, reg.CheckUpdate(cmd.Context(), transient))
}
