// Package worker hosts the Sandbox Runtime behind a go-plugin net/rpc
// contract, and supervises a pool of such hosted processes: spec.md §4.2's
// "long-lived worker process" and §4.3's "Worker Pool," made concrete with
// github.com/hashicorp/go-plugin subprocess handshake/kill/respawn.
package worker

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/parascope/calcengine/internal/app/codegen"
)

// ErrUnexpectedDispense is raised when a spawned plugin's "sandbox"
// dispense does not satisfy SandboxRPC — a mismatched subprocess binary.
var ErrUnexpectedDispense = errors.New("worker: dispensed plugin does not implement SandboxRPC")

// RunRequest is the wire payload a pool slot sends to its subprocess.
// Script carries the generated ScriptDocument JSON-encoded (spec.md §6's
// "script string" made concrete as a serialized explicit registry, not
// source text); RootOverrides is keyed by node id string since net/rpc's
// gob framing cannot carry uuid.UUID map keys without a custom codec.
type RunRequest struct {
	Script        []byte
	RootOverrides map[string]interface{}
	ExtraImports  []string
}

// RunResponse is the wire payload a subprocess returns. Outputs mirrors
// sheetInstance.PublicOutputs(); Results is the JSON-encoded recursive
// result tree (map[uuid.UUID]*model.NodeResult doesn't gob-encode its key
// type cleanly either, so it travels the same way as the script itself).
type RunResponse struct {
	Success bool
	Error   string
	Outputs map[string]interface{}
	Results []byte
}

// EncodeScript JSON-marshals a ScriptDocument for the wire.
func EncodeScript(doc *codegen.ScriptDocument) ([]byte, error) {
	return json.Marshal(doc)
}

// DecodeScript reverses EncodeScript.
func DecodeScript(data []byte) (*codegen.ScriptDocument, error) {
	var doc codegen.ScriptDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// encodeOverrides converts a node-id-keyed override map to the wire's
// string-keyed form.
func encodeOverrides(overrides map[uuid.UUID]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(overrides))
	for id, v := range overrides {
		out[id.String()] = v
	}
	return out
}

// decodeOverrides reverses encodeOverrides, skipping any key that fails to
// parse as a uuid (defensive against a malformed wire payload).
func decodeOverrides(overrides map[string]interface{}) map[uuid.UUID]interface{} {
	out := make(map[uuid.UUID]interface{}, len(overrides))
	for k, v := range overrides {
		id, err := uuid.Parse(k)
		if err != nil {
			continue
		}
		out[id] = v
	}
	return out
}
