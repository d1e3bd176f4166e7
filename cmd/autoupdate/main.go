// Autoupdate - self-update checker for host-managed plugins
//
// Autoupdate answers a plugin host's information and update queries from
// metadata published by a remote update server.
//
// Copyright (c) 2025 John Mylchreest
// Licensed under the MIT License
package main

import (
	"os"

	"github.com/jmylchreest/autoupdate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
