package calcsvc

import (
	"context"

	"github.com/google/uuid"

	"github.com/parascope/calcengine/internal/domain/model"
)

// nodeOutputs reconstructs a node's {port -> value} output map from its
// registered result: a zero-port node exposes its scalar under "value"
// (matching the sandbox's own constant/input/output convention); when the
// result's Value is a port-keyed map (function/sheet/lut producers) each
// declared port is read from it, and otherwise every declared port is
// backed by the scalar itself.
func nodeOutputs(n *model.Node, res *model.NodeResult) map[string]interface{} {
	if len(n.Outputs) == 0 {
		return map[string]interface{}{"value": res.Value}
	}
	if m, ok := res.Value.(map[string]interface{}); ok {
		out := make(map[string]interface{}, len(n.Outputs))
		for _, p := range n.Outputs {
			out[p.Key] = m[p.Key]
		}
		return out
	}
	out := make(map[string]interface{}, len(n.Outputs))
	for _, p := range n.Outputs {
		out[p.Key] = res.Value
	}
	return out
}

// nodeInputs reconstructs a node's {port -> value} input map by following
// each incoming connection and reading the source node's already-recorded
// output for the connected port — pure graph-shape bookkeeping over the
// result tree, independent of the execution that produced it (spec.md
// §4.5 step 4).
func nodeInputs(sheet *model.Sheet, results map[uuid.UUID]*model.NodeResult, n *model.Node) map[string]interface{} {
	out := make(map[string]interface{}, len(n.Inputs))
	for _, p := range n.Inputs {
		out[p.Key] = nil
		for _, c := range sheet.Connections {
			if c.TargetNodeID != n.ID || c.TargetPort != p.Key {
				continue
			}
			srcRes, ok := results[c.SourceNodeID]
			if !ok {
				break
			}
			srcNode, err := sheet.GetNode(c.SourceNodeID)
			if err != nil {
				break
			}
			out[p.Key] = nodeOutputs(srcNode, srcRes)[c.SourcePort]
			break
		}
	}
	return out
}

// enrichSheet builds the response record map for one sheet's nodes
// against its registered result tree, recursing into sheet-variant nodes
// by fetching the nested sheet definition through the repository and
// enriching against that result's own Nodes sub-tree.
func (s *Service) enrichSheet(ctx context.Context, sheet *model.Sheet, results map[uuid.UUID]*model.NodeResult) (map[string]*NodeRecord, error) {
	out := make(map[string]*NodeRecord, len(sheet.Nodes))
	for _, n := range sheet.Nodes {
		res, ok := results[n.ID]
		if !ok {
			continue
		}
		rec := &NodeRecord{
			Variant:      n.Variant,
			Label:        n.Label,
			IsComputable: res.IsComputable,
			Error:        res.Error,
			Inputs:       serializeMap(nodeInputs(sheet, results, n)),
			Outputs:      serializeMap(nodeOutputs(n, res)),
		}

		if n.Variant == model.VariantSheet && res.Nodes != nil {
			childSheet, err := s.fetchSheetRef(ctx, n)
			if err != nil {
				return nil, err
			}
			childRecords, err := s.enrichSheet(ctx, childSheet, res.Nodes)
			if err != nil {
				return nil, err
			}
			rec.Nodes = childRecords
		}

		out[n.ID.String()] = rec
	}
	return out, nil
}

func (s *Service) fetchSheetRef(ctx context.Context, n *model.Node) (*model.Sheet, error) {
	ref, err := n.SheetRef()
	if err != nil {
		return nil, err
	}
	if ref.VersionID != nil {
		return s.repo.FetchVersion(ctx, *ref.VersionID)
	}
	return s.repo.FetchSheet(ctx, ref.SheetID)
}
