package worker

import (
	"encoding/json"
	"fmt"

	"github.com/parascope/calcengine/internal/app/sandbox"
)

// SandboxImpl is the SandboxRPC implementation actually hosted inside the
// cmd/sandboxworker subprocess: decode the wire script, run it against the
// Sandbox Runtime, re-encode the result tree. It builds no state of its
// own across calls — the exprenv.Environment it runs against is rebuilt
// fresh inside sandbox.Run per spec.md §4.2's "preload once" note applying
// to the fixed builtin table, not to per-request state.
type SandboxImpl struct{}

func (SandboxImpl) Run(req RunRequest) (RunResponse, error) {
	doc, err := DecodeScript(req.Script)
	if err != nil {
		return RunResponse{Success: false, Error: fmt.Sprintf("malformed script: %v", err)}, nil
	}

	outputs, tree, err := sandbox.Run(doc, decodeOverrides(req.RootOverrides), req.ExtraImports...)
	if err != nil {
		return RunResponse{Success: false, Error: err.Error()}, nil
	}

	resultsJSON, err := json.Marshal(tree)
	if err != nil {
		return RunResponse{Success: false, Error: fmt.Sprintf("result encoding failed: %v", err)}, nil
	}

	return RunResponse{Success: true, Outputs: outputs, Results: resultsJSON}, nil
}
