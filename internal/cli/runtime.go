package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/autoupdate/internal/cache"
	"github.com/jmylchreest/autoupdate/internal/config"
	"github.com/jmylchreest/autoupdate/internal/plugin/descriptor"
	"github.com/jmylchreest/autoupdate/internal/plugin/remote"
	"github.com/jmylchreest/autoupdate/internal/security"
	"github.com/jmylchreest/autoupdate/internal/updater"
	"github.com/jmylchreest/autoupdate/pkg/host"
)

// session is the per-command wiring of config, logger, cache and updater.
type session struct {
	cfg     *config.Config
	logger  hclog.Logger
	store   cache.Store
	updater *updater.Updater
}

// loadConfig resolves configuration for cmd.
func loadConfig(cmd *cobra.Command, opts *globalOptions) (*config.Config, error) {
	var loadOpts []config.Option
	if opts.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(opts.configFile))
	}
	cfg, err := config.Load(cmd.Flags(), loadOpts...)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger returns the application logger writing to w.
func newLogger(w io.Writer, verbose, jsonFormat bool) hclog.Logger {
	level := hclog.Warn
	if verbose {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "autoupdate",
		Output:     w,
		Level:      level,
		JSONFormat: jsonFormat,
	})
}

// environment returns the host environment described by cfg.
func environment(cfg *config.Config) host.Environment {
	return host.Environment{
		HostVersion:    cfg.HostVersion,
		RuntimeVersion: cfg.RuntimeVersion,
		Admin:          cfg.Admin,
	}
}

// openSession builds an updater for the configured plugin.
func openSession(cfg *config.Config, logger hclog.Logger) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if security.Plaintext(cfg.BaseURL) {
		logger.Warn("base URL uses plain HTTP; plugin metadata is not protected in transit", "base-url", cfg.BaseURL)
	}

	desc, err := descriptor.Load(cfg.PluginDir, cfg.PluginFile)
	if err != nil {
		return nil, err
	}

	cacheCfg := cfg.CacheConfig()
	cacheCfg.Logger = logger.Named("cache")
	store, err := cache.Open(cacheCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	fetcher := remote.NewFetcher(cfg.BaseURL, store,
		remote.WithTimeout(cfg.HTTPTimeout),
		remote.WithTTL(cfg.CacheTTL),
		remote.WithLogger(logger.Named("remote")),
	)

	u := updater.New(desc, fetcher, updater.Options{
		Environment: environment(cfg),
		AdminOnly:   true,
		Logger:      logger.Named("updater"),
	})

	logger.Debug("session ready",
		"slug", desc.Slug,
		"file", desc.FilePath,
		"version", desc.Version,
		"endpoint", fetcher.Endpoint(desc.Slug),
		"cache", cfg.CacheBackend)

	return &session{cfg: cfg, logger: logger, store: store, updater: u}, nil
}

// Close releases the cache backend.
func (s *session) Close() {
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.logger.Debug("failed to close cache", "error", err)
		}
	}
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable renders t sized to w.
func writeTable(w io.Writer, t *Table) error {
	t.SetWidth(terminalWidth(w))
	_, err := io.WriteString(w, t.Render())
	return err
}
