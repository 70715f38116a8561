// Command sandboxworker is the process-isolated host for the Sandbox
// Runtime: a single go-plugin net/rpc plugin binary, spawned and
// supervised by internal/app/worker's Pool. It never runs standalone.
package main

import (
	"github.com/hashicorp/go-plugin"

	"github.com/parascope/calcengine/internal/app/worker"
)

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: worker.Handshake,
		Plugins: map[string]plugin.Plugin{
			"sandbox": &worker.SandboxPlugin{Impl: worker.SandboxImpl{}},
		},
	})
}
