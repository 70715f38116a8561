package sandbox

import (
	"github.com/google/uuid"

	"github.com/parascope/calcengine/internal/app/codegen"
	"github.com/parascope/calcengine/internal/app/exprenv"
	"github.com/parascope/calcengine/internal/domain/model"
)

// sheetInstance is one running instantiation of a SheetProgram: the
// generated code's "class instance" made concrete. The root instance (and
// every nested sheet-node instance it recursively creates) carries its
// own result set and order, matching spec.md §4.1's per-instance dispatch
// contract.
type sheetInstance struct {
	doc       *codegen.ScriptDocument
	key       codegen.SheetKey
	prog      *codegen.SheetProgram
	overrides map[uuid.UUID]interface{} // node id -> caller/parent-supplied value
	env       exprenv.Environment

	order   []uuid.UUID
	results map[uuid.UUID]*model.NodeResult
	nested  map[uuid.UUID]*sheetInstance // sheet-node id -> child instance

	labelIndex map[string]uuid.UUID // input node label -> node id, built lazily
}

func newInstance(doc *codegen.ScriptDocument, key codegen.SheetKey, overrides map[uuid.UUID]interface{}, baseEnv exprenv.Environment) (*sheetInstance, error) {
	prog, ok := doc.Sheets[key]
	if !ok {
		return nil, &model.GraphStructureError{SheetID: string(key), Err: model.ErrSheetNotFound}
	}
	order, err := buildOrder(key, prog)
	if err != nil {
		return nil, err
	}
	return &sheetInstance{
		doc:       doc,
		key:       key,
		prog:      prog,
		overrides: overrides,
		env:       baseEnv,
		order:     order,
		results:   make(map[uuid.UUID]*model.NodeResult, len(prog.Nodes)),
		nested:    make(map[uuid.UUID]*sheetInstance),
	}, nil
}

// inputLabelToNodeID lazily indexes this sheet's Input-variant nodes by
// label. runSheet does not call it: it builds the child's label index
// with childLabelIndex instead.
func (si *sheetInstance) inputLabelToNodeID() map[string]uuid.UUID {
	if si.labelIndex != nil {
		return si.labelIndex
	}
	idx := make(map[string]uuid.UUID)
	for _, n := range si.prog.Nodes {
		if n.Variant == model.VariantInput {
			idx[n.Label] = n.NodeID
		}
	}
	si.labelIndex = idx
	return idx
}

// PublicOutputs collects {label → value} from every output and constant
// node, colliding labels keeping the last one registered in node order —
// the observed-and-preserved behavior spec.md §9 flags as an open
// question.
func (si *sheetInstance) PublicOutputs() map[string]interface{} {
	out := make(map[string]interface{})
	for _, n := range si.prog.Nodes {
		if n.Variant != model.VariantOutput && n.Variant != model.VariantConstant {
			continue
		}
		res, ok := si.results[n.NodeID]
		if !ok {
			continue
		}
		out[n.Label] = res.Value
	}
	return out
}

// hasFailingOutput reports whether any output-variant node in this
// instance hard-failed, the trigger for the parent's sheet node to
// hard-fail with that output's cause shown directly.
func (si *sheetInstance) hasFailingOutput() (uuid.UUID, string, bool) {
	for _, n := range si.prog.Nodes {
		if n.Variant != model.VariantOutput {
			continue
		}
		res, ok := si.results[n.NodeID]
		if ok && !res.IsComputable {
			cause := res.InternalError
			if cause == "" {
				cause = res.Error
			}
			return n.NodeID, cause, true
		}
	}
	return uuid.Nil, "", false
}
