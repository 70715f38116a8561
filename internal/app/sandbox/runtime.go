// Package sandbox is the in-worker library the generated ScriptDocument
// runs against: node discovery, topological ordering, per-node dispatch
// with soft/hard error classification, public-outputs collection and
// recursive result-tree extraction. It is the Go-native replacement for
// the original's reflection-driven discovery — the Code Generator already
// emits an explicit registry, so discovery is a lookup in that table.
package sandbox

import (
	"github.com/google/uuid"

	"github.com/parascope/calcengine/internal/app/codegen"
	"github.com/parascope/calcengine/internal/app/exprenv"
	"github.com/parascope/calcengine/internal/domain/model"
)

// Run executes doc's root sheet against rootOverrides (node id -> caller
// value) and returns the root instance's public outputs and the
// recursive result tree. extraAllowedImports mirrors the deployment's
// SandboxConfig.ExtraAllowedImports, passed straight through to the
// restricted expression environment.
func Run(doc *codegen.ScriptDocument, rootOverrides map[uuid.UUID]interface{}, extraAllowedImports ...string) (map[string]interface{}, map[uuid.UUID]*model.NodeResult, error) {
	env := exprenv.New(extraAllowedImports...)

	root, err := newInstance(doc, doc.Root, rootOverrides, env)
	if err != nil {
		return nil, nil, err
	}
	root.Run()

	return root.PublicOutputs(), ExtractResultTree(root), nil
}

// ExtractResultTree walks root's registered nested instances depth-first
// and returns a result map with each sheet-node result annotated with a
// "nodes" sub-map mirroring the nested instance's own results — the
// recursive state extraction spec.md §4.1 describes for the outer entry
// point.
func ExtractResultTree(root *sheetInstance) map[uuid.UUID]*model.NodeResult {
	tree := make(map[uuid.UUID]*model.NodeResult, len(root.results))
	for nodeID, res := range root.results {
		tree[nodeID] = res
		if child, ok := root.nested[nodeID]; ok {
			res.Nodes = ExtractResultTree(child)
		}
	}
	return tree
}
