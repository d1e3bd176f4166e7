package cli

import (
	"io"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/autoupdate/pkg/host"
)

func newCheckCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the configured plugin for an update",
		Long: `Run the configured plugin through a host update scan: the installed version
is recorded in the update transient and the updater adds a response entry
when the server publishes a newer version this host can run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, opts)
		},
	}
}

func runCheck(cmd *cobra.Command, opts *globalOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	s, err := openSession(cfg, newLogger(cmd.ErrOrStderr(), cfg.Verbose, false))
	if err != nil {
		return err
	}
	defer s.Close()

	reg := host.NewRegistry(environment(cfg))
	if !s.updater.Register(reg) {
		return errNotAdmin
	}

	desc := s.updater.Descriptor()
	transient := &host.Transient{
		LastChecked: time.Now().UTC(),
		Checked:     map[string]string{desc.FilePath: desc.Version},
	}

	return writeTransient(cmd.OutOrStdout(), opts.jsonOutput, reg.CheckUpdate(cmd.Context(), transient))
}

// writeTransient prints one row per checked plugin.
func writeTransient(w io.Writer, jsonOutput bool, transient *host.Transient) error {
	if jsonOutput {
		return writeJSON(w, transient)
	}

	t := NewTable("PLUGIN", "INSTALLED", "AVAILABLE", "PACKAGE")
	for _, file := range slices.Sorted(maps.Keys(transient.Checked)) {
		available, pkg := "up to date", ""
		if u, ok := transient.Response[file]; ok && u != nil {
			available, pkg = u.NewVersion, u.Package
		}
		t.AddRow(file, transient.Checked[file], available, pkg)
	}
	return writeTable(w, t)
}
