package sandbox

import (
	"github.com/google/uuid"
	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"

	"github.com/parascope/calcengine/internal/app/codegen"
	"github.com/parascope/calcengine/internal/domain/model"
)

// buildOrder builds a directed graph over prog's node ids — one edge
// sourceNodeID→thisNodeID per declared input — and computes a
// topological order. A cycle aborts the sheet instance per spec.md
// §4.1's "a cycle is a hard GraphStructureError" contract.
func buildOrder(sheetKey codegen.SheetKey, prog *codegen.SheetProgram) ([]uuid.UUID, error) {
	g := core.NewGraph(core.WithDirected(true))

	for _, n := range prog.Nodes {
		if err := g.AddVertex(n.NodeID.String()); err != nil {
			return nil, &model.GraphStructureError{SheetID: string(sheetKey), Err: err}
		}
	}

	seen := make(map[[2]uuid.UUID]bool)
	for _, n := range prog.Nodes {
		for _, ref := range n.Inputs {
			edge := [2]uuid.UUID{ref.SourceNodeID, n.NodeID}
			if seen[edge] {
				continue
			}
			seen[edge] = true
			if _, err := g.AddEdge(ref.SourceNodeID.String(), n.NodeID.String(), 0); err != nil {
				return nil, &model.GraphStructureError{SheetID: string(sheetKey), Err: err}
			}
		}
	}

	order, err := dfs.TopologicalSort(g)
	if err != nil {
		return nil, &model.GraphStructureError{SheetID: string(sheetKey), Err: err}
	}

	ids := make([]uuid.UUID, 0, len(order))
	for _, idStr := range order {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, &model.GraphStructureError{SheetID: string(sheetKey), Err: err}
		}
		ids = append(ids, id)
	}
	return ids, nil
}
