// Package executor launches updater plugins out of process over go-plugin
// RPC and exposes them as host.Updater values.
package executor

import (
	"fmt"
	"io"
	"log"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/jmylchreest/autoupdate/pkg/host"
)

// Executor owns a running updater plugin process.
type Executor struct {
	path    string
	client  *plugin.Client
	rpc     plugin.ClientProtocol
	updater host.Updater
}

// Launch starts the updater binary at path and connects to it.
// Extra args are passed to the binary (e.g. "serve").
func Launch(path string, verbose bool, args ...string) (*Executor, error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  host.Handshake,
		Plugins:          host.PluginMap(nil),
		Cmd:              exec.Command(path, args...), // #nosec G204 - plugin binary is chosen by the operator
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
		Logger:           pluginLogger(verbose),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to get RPC client: %w", err)
	}

	e, err := connect(path, rpcClient)
	if err != nil {
		client.Kill()
		return nil, err
	}
	e.client = client

	return e, nil
}

// connect dispenses the updater from an established RPC connection.
func connect(path string, rpcClient plugin.ClientProtocol) (*Executor, error) {
	raw, err := rpcClient.Dispense(host.PluginName)
	if err != nil {
		return nil, fmt.Errorf("failed to dispense plugin: %w", err)
	}

	u, ok := raw.(host.Updater)
	if !ok {
		return nil, fmt.Errorf("plugin %s dispensed %T, not an updater", path, raw)
	}

	return &Executor{path: path, rpc: rpcClient, updater: u}, nil
}

// Path returns the plugin binary path.
func (e *Executor) Path() string {
	return e.path
}

// Updater returns the remote updater.
func (e *Executor) Updater() host.Updater {
	return e.updater
}

// Close stops the plugin process.
func (e *Executor) Close() {
	if e.rpc != nil {
		_ = e.rpc.Close()
		e.rpc = nil
	}
	if e.client != nil {
		e.client.Kill()
		e.client = nil
	}
}

// pluginLogger returns the go-plugin client logger.
func pluginLogger(verbose bool) hclog.Logger {
	if verbose {
		return hclog.New(&hclog.LoggerOptions{
			Name:   "plugin",
			Output: log.Writer(),
			Level:  hclog.Debug,
		})
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "plugin",
		Output: io.Discard,
		Level:  hclog.Off,
	})
}
