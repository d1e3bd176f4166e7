// Package host defines the plugin-host side of the update protocol: the
// values a host passes through its update extension points and the Host
// interface an updater registers its handlers with.
package host

import "time"

// ActionPluginInformation is the info action the updater answers.
const ActionPluginInformation = "plugin_information"

// Transient is the host's short-lived record of known plugin updates.
type Transient struct {
	// LastChecked is when the host last ran its own update scan.
	LastChecked time.Time `json:"last_checked"`

	// Checked maps plugin file path to the installed version seen by the
	// host scan. Empty means the host has not run its scan yet.
	Checked map[string]string `json:"checked,omitempty"`

	// Response maps plugin file path to an available update.
	Response map[string]*Update `json:"response,omitempty"`
}

// Update describes an available update for one plugin.
type Update struct {
	Slug       string `json:"slug"`
	Plugin     string `json:"plugin"` // plugin file path, the Response key
	NewVersion string `json:"new_version"`
	Tested     string `json:"tested,omitempty"`
	Package    string `json:"package"`
}

// PluginInformation is the descriptor the host shows in its plugin details view.
type PluginInformation struct {
	Name          string            `json:"name"`
	Slug          string            `json:"slug"`
	Author        string            `json:"author,omitempty"`
	AuthorProfile string            `json:"author_profile,omitempty"`
	Version       string            `json:"version"`
	Tested        string            `json:"tested,omitempty"`
	Requires      string            `json:"requires,omitempty"`
	RequiresPHP   string            `json:"requires_php,omitempty"`
	DownloadLink  string            `json:"download_link"`
	Trunk         string            `json:"trunk"`
	LastUpdated   string            `json:"last_updated,omitempty"`
	Sections      map[string]string `json:"sections,omitempty"`
	Banners       map[string]string `json:"banners,omitempty"`
}

// InfoArgs are the arguments of an information query.
type InfoArgs struct {
	Slug string `json:"slug"`
}

// Environment describes the running host.
type Environment struct {
	// HostVersion is the version of the host application.
	HostVersion string `json:"host_version"`

	// RuntimeVersion is the version of the runtime the host executes on.
	RuntimeVersion string `json:"runtime_version"`

	// Admin reports whether the host is serving an administrative context.
	Admin bool `json:"admin"`
}
