package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/autoupdate/pkg/host"
)

var errNotAdmin = errors.New("not an administrative context (host.admin is false); updater not registered")

func newInfoCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info [slug]",
		Short: "Show the plugin information the host would display",
		Long: `Answer a "plugin_information" query for slug (default: the configured
plugin's slug) using the remote metadata server.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, opts, args)
		},
	}
}

func runInfo(cmd *cobra.Command, opts *globalOptions, args []string) error {
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

	slug := s.updater.Descriptor().Slug
	if len(args) == 1 {
		slug = args[0]
	}

	info := reg.QueryInfo(cmd.Context(), host.ActionPluginInformation, host.InfoArgs{Slug: slug})
	if info == nil {
		return fmt.Errorf("no plugin information available for %q", slug)
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		return writeJSON(out, info)
	}
	return writeTable(out, infoTable(info))
}

func infoTable(info *host.PluginInformation) *Table {
	t := NewTable("FIELD", "VALUE")
	add := func(field, value string) {
		if value != "" {
			t.AddRow(field, value)
		}
	}

	add("Name", info.Name)
	add("Slug", info.Slug)
	add("Version", info.Version)
	add("Author", info.Author)
	add("Author Profile", info.AuthorProfile)
	add("Requires", info.Requires)
	add("Requires Runtime", info.RequiresPHP)
	add("Tested", info.Tested)
	add("Last Updated", info.LastUpdated)
	add("Download", info.DownloadLink)
	for _, name := range slices.Sorted(maps.Keys(info.Sections)) {
		add("Section "+name, info.Sections[name])
	}
	for _, name := range slices.Sorted(maps.Keys(info.Banners)) {
		add("Banner "+name, info.Banners[name])
	}
	return t
}
