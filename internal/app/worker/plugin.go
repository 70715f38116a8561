package worker

import (
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// Handshake is the magic-cookie handshake every sandboxworker subprocess
// and its parent Pool slot must agree on before go-plugin will treat the
// child as a legitimate plugin rather than a stray process writing to its
// stdout — grounded on opentofu's provider plugin handshake, narrowed to
// this module's own cookie.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "CALCENGINE_SANDBOX_PLUGIN",
	MagicCookieValue: "calcengine-sandbox-v1",
}

// PluginMap names the single plugin this module's subprocess exposes.
var PluginMap = map[string]plugin.Plugin{
	"sandbox": &SandboxPlugin{},
}

// SandboxRPC is implemented on both sides of the subprocess boundary: the
// real dispatcher hosted inside cmd/sandboxworker (SandboxImpl), and the
// net/rpc client stub a Pool slot dispatches through.
type SandboxRPC interface {
	Run(req RunRequest) (RunResponse, error)
}

// SandboxPlugin adapts a SandboxRPC implementation to go-plugin's net/rpc
// plugin contract.
type SandboxPlugin struct {
	Impl SandboxRPC
}

func (p *SandboxPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &sandboxRPCServer{impl: p.Impl}, nil
}

func (p *SandboxPlugin) Client(_ *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &sandboxRPCClient{client: c}, nil
}

// sandboxRPCServer is the net/rpc-shaped method set go-plugin dispatches
// incoming calls to inside the subprocess.
type sandboxRPCServer struct {
	impl SandboxRPC
}

func (s *sandboxRPCServer) Run(req RunRequest, resp *RunResponse) error {
	r, err := s.impl.Run(req)
	*resp = r
	return err
}

// sandboxRPCClient is the parent-side stub a Pool slot calls through.
type sandboxRPCClient struct {
	client *rpc.Client
}

func (c *sandboxRPCClient) Run(req RunRequest) (RunResponse, error) {
	var resp RunResponse
	err := c.client.Call("Plugin.Run", req, &resp)
	return resp, err
}
