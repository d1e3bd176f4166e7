// Package updater bridges a plugin host's update extension points to a
// remote plugin metadata server.
//
// Every failure to reach or understand the server fails open: the handler
// returns exactly what the host passed in, and the host's next scan is the
// retry.
package updater

import (
	"context"
	"maps"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/autoupdate/internal/plugin/descriptor"
	"github.com/jmylchreest/autoupdate/internal/plugin/remote"
	"github.com/jmylchreest/autoupdate/internal/plugin/versioning"
	"github.com/jmylchreest/autoupdate/pkg/host"
)

// Fetcher retrieves remote metadata for a slug.
type Fetcher interface {
	Fetch(ctx context.Context, slug string) (*remote.Metadata, error)
}

// Options configures an Updater.
type Options struct {
	// Environment is used by PluginInfo, CheckForUpdate and Available until
	// Register replaces it with the host's.
	Environment host.Environment

	// AdminOnly makes Register a no-op outside administrative contexts.
	AdminOnly bool

	Logger hclog.Logger
}

// Updater answers a host's information and update queries for one plugin.
type Updater struct {
	desc    descriptor.Descriptor
	fetcher Fetcher
	logger  hclog.Logger
	opts    Options

	mu  sync.RWMutex
	env host.Environment
}

var _ host.Updater = (*Updater)(nil)

// New creates an Updater for the plugin described by desc. It performs no I/O.
func New(desc *descriptor.Descriptor, fetcher Fetcher, opts Options) *Updater {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Updater{
		desc:    *desc,
		fetcher: fetcher,
		logger:  logger.With("slug", desc.Slug),
		opts:    opts,
		env:     opts.Environment,
	}
}

// Descriptor returns the local plugin descriptor.
func (u *Updater) Descriptor() descriptor.Descriptor {
	return u.desc
}

// Register wires the updater into h. It reports whether handlers were registered.
func (u *Updater) Register(h host.Host) bool {
	env := h.Environment()
	if u.opts.AdminOnly && !env.Admin {
		u.logger.Debug("not an administrative context, skipping registration")
		return false
	}

	u.setEnvironment(env)

	h.OnQueryInfo(func(ctx context.Context, result *host.PluginInformation, action string, args host.InfoArgs) *host.PluginInformation {
		return u.QueryInfo(ctx, h.Environment(), result, action, args)
	})
	h.OnCheckUpdate(func(ctx context.Context, transient *host.Transient) *host.Transient {
		return u.CheckUpdate(ctx, h.Environment(), transient)
	})

	u.logger.Debug("registered update handlers", "file", u.desc.FilePath, "version", u.desc.Version)
	return true
}

// Latest returns the newest published metadata for this plugin.
func (u *Updater) Latest(ctx context.Context) (*remote.Metadata, error) {
	return u.fetcher.Fetch(ctx, u.desc.Slug)
}

// Available returns the update descriptor when a newer compatible version exists.
func (u *Updater) Available(ctx context.Context) (*host.Update, bool) {
	md, err := u.Latest(ctx)
	if err != nil {
		return nil, false
	}
	return u.updateFor(md, u.environment())
}

// PluginInfo answers an information query using the current environment.
func (u *Updater) PluginInfo(ctx context.Context, result *host.PluginInformation, action string, args host.InfoArgs) *host.PluginInformation {
	return u.QueryInfo(ctx, u.environment(), result, action, args)
}

// CheckForUpdate runs the update check using the current environment.
func (u *Updater) CheckForUpdate(ctx context.Context, transient *host.Transient) *host.Transient {
	return u.CheckUpdate(ctx, u.environment(), transient)
}

// QueryInfo implements host.Updater. Queries for other actions or slugs,
// and fetch failures, return result unchanged.
func (u *Updater) QueryInfo(ctx context.Context, _ host.Environment, result *host.PluginInformation, action string, args host.InfoArgs) *host.PluginInformation {
	if action != host.ActionPluginInformation || args.Slug != u.desc.Slug {
		return result
	}

	md, err := u.fetcher.Fetch(ctx, args.Slug)
	if err != nil {
		u.logger.Debug("plugin information unavailable", "error", err)
		return result
	}

	return pluginInformation(md)
}

// CheckUpdate implements host.Updater. The transient is returned untouched
// unless a newer version whose requirements env meets is published.
func (u *Updater) CheckUpdate(ctx context.Context, env host.Environment, transient *host.Transient) *host.Transient {
	if transient == nil || len(transient.Checked) == 0 {
		return transient
	}

	md, err := u.fetcher.Fetch(ctx, u.desc.Slug)
	if err != nil {
		u.logger.Debug("update check skipped", "error", err)
		return transient
	}

	update, ok := u.updateFor(md, env)
	if !ok {
		return transient
	}

	if transient.Response == nil {
		transient.Response = make(map[string]*host.Update)
	}
	transient.Response[u.desc.FilePath] = update

	u.logger.Info("update available", "installed", u.desc.Version, "available", update.NewVersion)
	return transient
}

// GetMetadata implements host.Updater.
func (u *Updater) GetMetadata() host.Metadata {
	return host.Metadata{
		Slug:     u.desc.Slug,
		FilePath: u.desc.FilePath,
		Version:  u.desc.Version,
	}
}

// updateFor builds an update descriptor when md is newer than the installed
// version and env meets both of its minimum requirements.
func (u *Updater) updateFor(md *remote.Metadata, env host.Environment) (*host.Update, bool) {
	if !versioning.Newer(md.Version, u.desc.Version) {
		return nil, false
	}
	if !versioning.Satisfies(md.Requires, env.HostVersion) {
		u.logger.Debug("host too old for update", "requires", md.Requires, "host", env.HostVersion)
		return nil, false
	}
	if !versioning.Satisfies(md.RequiresPHP, env.RuntimeVersion) {
		u.logger.Debug("runtime too old for update", "requires", md.RequiresPHP, "runtime", env.RuntimeVersion)
		return nil, false
	}

	return &host.Update{
		Slug:       md.Slug,
		Plugin:     u.desc.FilePath,
		NewVersion: md.Version,
		Tested:     md.Tested,
		Package:    md.DownloadURL,
	}, true
}

func (u *Updater) environment() host.Environment {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.env
}

func (u *Updater) setEnvironment(env host.Environment) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.env = env
}

// pluginInformation maps remote metadata onto the host's descriptor shape.
func pluginInformation(md *remote.Metadata) *host.PluginInformation {
	info := &host.PluginInformation{
		Name:          md.Name,
		Slug:          md.Slug,
		Author:        md.Author,
		AuthorProfile: md.AuthorProfile,
		Version:       md.Version,
		Tested:        md.Tested,
		Requires:      md.Requires,
		RequiresPHP:   md.RequiresPHP,
		DownloadLink:  md.DownloadURL,
		Trunk:         md.DownloadURL,
		LastUpdated:   md.LastUpdated,
		Sections:      maps.Clone(md.Sections),
	}
	if len(md.Banners) > 0 {
		info.Banners = maps.Clone(md.Banners)
	}
	return info
}
