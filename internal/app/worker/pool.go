package worker

import (
	"context"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-plugin"

	"github.com/parascope/calcengine/internal/app/codegen"
	"github.com/parascope/calcengine/internal/config"
)

// workerFactory spawns one hosted worker and returns the client stub the
// pool dispatches through plus its process handle. Production pools spawn
// a real cmd/sandboxworker subprocess; tests substitute an in-process
// double so unit tests never fork a real child.
type workerFactory func() (SandboxRPC, io.Closer, error)

// pluginClientCloser adapts a *plugin.Client's Kill() to io.Closer so a
// slot can treat a real subprocess and a test double identically.
type pluginClientCloser struct{ client *plugin.Client }

func (c pluginClientCloser) Close() error {
	c.client.Kill()
	return nil
}

// slot is one Worker Pool position: a lazily-spawned client plus the
// mutex that serializes every call dispatched to it, giving per-slot FIFO
// ordering with no cross-slot ordering guarantee — spec.md §4.3/§5/§8.
type slot struct {
	mu     sync.Mutex
	client SandboxRPC
	closer io.Closer
	alive  bool
}

// Pool supervises WorkerCount hosted worker processes. Dispatch is
// round-robin across slots (pool-wide mutex), then FIFO within a slot (the
// slot's own mutex) — the same two-level locking the teacher's DAGExecutor
// uses for wave/semaphore concurrency, narrowed here to a fixed slot count
// instead of a per-wave goroutine fan-out.
type Pool struct {
	cfg     config.WorkerPoolConfig
	factory workerFactory

	mu    sync.Mutex
	slots []*slot
	next  int
}

// WorkerCount reports the number of slots the pool dispatches across, so
// callers that fan work out ahead of Execute (sweepsvc's scenario runner)
// can bound their own concurrency to match instead of guessing.
func (p *Pool) WorkerCount() int {
	return len(p.slots)
}

// NewPool builds a pool of cfg.WorkerCount slots (default 5 when unset),
// each spawning a real cmd/sandboxworker subprocess on first use.
func NewPool(cfg config.WorkerPoolConfig) (*Pool, error) {
	return newPoolWithFactory(cfg, defaultFactory(cfg))
}

func newPoolWithFactory(cfg config.WorkerPoolConfig, factory workerFactory) (*Pool, error) {
	count := cfg.WorkerCount
	if count <= 0 {
		count = 5
	}
	slots := make([]*slot, count)
	for i := range slots {
		slots[i] = &slot{}
	}
	return &Pool{cfg: cfg, factory: factory, slots: slots}, nil
}

func defaultFactory(cfg config.WorkerPoolConfig) workerFactory {
	return func() (SandboxRPC, io.Closer, error) {
		client := plugin.NewClient(&plugin.ClientConfig{
			HandshakeConfig:  Handshake,
			Plugins:          PluginMap,
			Cmd:              exec.Command(cfg.WorkerBinPath),
			AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
		})

		rpcClient, err := client.Client()
		if err != nil {
			client.Kill()
			return nil, nil, err
		}
		raw, err := rpcClient.Dispense("sandbox")
		if err != nil {
			client.Kill()
			return nil, nil, err
		}
		sandboxClient, ok := raw.(SandboxRPC)
		if !ok {
			client.Kill()
			return nil, nil, ErrUnexpectedDispense
		}
		return sandboxClient, pluginClientCloser{client: client}, nil
	}
}

// Execute dispatches doc (with rootOverrides applied to the root sheet's
// input/constant nodes) to the next slot in round-robin order, waiting up
// to timeout for a reply. A timeout or ctx cancellation kills the slot's
// worker; the next Execute call against that slot respawns it lazily.
func (p *Pool) Execute(ctx context.Context, doc *codegen.ScriptDocument, rootOverrides map[uuid.UUID]interface{}, timeout time.Duration, extraImports ...string) (*RunResponse, error) {
	script, err := EncodeScript(doc)
	if err != nil {
		return nil, err
	}

	s := p.nextSlot()
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive {
		if err := p.spawn(s); err != nil {
			return nil, err
		}
	}

	req := RunRequest{
		Script:        script,
		RootOverrides: encodeOverrides(rootOverrides),
		ExtraImports:  extraImports,
	}

	type callResult struct {
		resp RunResponse
		err  error
	}
	ch := make(chan callResult, 1)
	client := s.client
	go func() {
		resp, err := client.Run(req)
		ch <- callResult{resp: resp, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			p.kill(s)
			return nil, res.err
		}
		return &res.resp, nil
	case <-time.After(timeout):
		p.kill(s)
		return &RunResponse{Success: false, Error: "Execution timed out"}, nil
	case <-ctx.Done():
		p.kill(s)
		return nil, ctx.Err()
	}
}

func (p *Pool) nextSlot() *slot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.slots[p.next]
	p.next = (p.next + 1) % len(p.slots)
	return s
}

func (p *Pool) spawn(s *slot) error {
	client, closer, err := p.factory()
	if err != nil {
		return err
	}
	s.client = client
	s.closer = closer
	s.alive = true
	return nil
}

func (p *Pool) kill(s *slot) {
	if s.closer != nil {
		_ = s.closer.Close()
	}
	s.client = nil
	s.closer = nil
	s.alive = false
}

// Close kills every live worker. Replacing the spec's "nil sentinel on
// inbound channel" shutdown with go-plugin's own idiomatic Kill() path.
func (p *Pool) Close() {
	for _, s := range p.slots {
		s.mu.Lock()
		if s.alive {
			p.kill(s)
		}
		s.mu.Unlock()
	}
}
