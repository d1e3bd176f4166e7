package host

import (
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

// PluginName is the name the updater is dispensed under.
const PluginName = "updater"

// Handshake is the handshake configuration for go-plugin protocol.
// It ensures updater binaries only connect to compatible hosts.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "AUTOUPDATE_PLUGIN",
	MagicCookieValue: "plugin_update_checker",
}

// PluginMap returns the plugin set used on both sides of the connection.
// The host side passes a nil impl.
func PluginMap(impl Updater) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginName: &UpdaterRPC{Impl: impl},
	}
}

// Serve runs impl as a go-plugin server. It blocks until the host disconnects.
// A nil logger uses go-plugin's default stderr logger.
func Serve(impl Updater, logger hclog.Logger) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins:         PluginMap(impl),
		Logger:          logger,
	})
}
