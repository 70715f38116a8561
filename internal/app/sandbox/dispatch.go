package sandbox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/parascope/calcengine/internal/app/codegen"
	"github.com/parascope/calcengine/internal/app/exprenv"
	"github.com/parascope/calcengine/internal/domain/model"
)

// Run dispatches every node in si's topological order, classifying each
// outcome per spec.md §4.1:
//   - success                    -> is_computable=true
//   - ValueValidationError       -> soft fail, is_computable=true, error set
//   - DependencyError            -> hard fail, error shown only on output nodes
//   - any other runtime failure  -> hard fail, error is the formatted message
func (si *sheetInstance) Run() {
	for _, nodeID := range si.order {
		np := si.prog.NodeByID(nodeID)
		if np == nil {
			continue
		}
		si.results[nodeID] = si.dispatch(np)
	}
}

func (si *sheetInstance) dispatch(np *codegen.NodeProgram) *model.NodeResult {
	switch np.Variant {
	case model.VariantConstant:
		return si.runConstantOrInput(np, false)
	case model.VariantInput:
		return si.runConstantOrInput(np, true)
	case model.VariantFunction:
		return si.runFunction(np)
	case model.VariantSheet:
		return si.runSheet(np)
	case model.VariantLUT:
		return si.runLUT(np)
	case model.VariantOutput:
		return si.runOutput(np)
	default:
		return model.Computable(nil)
	}
}

// resolveArg looks up the registered result for ref's source node and
// extracts the requested port. A hard-failed upstream result raises
// DependencyError carrying the original cause, per the dispatch contract.
func (si *sheetInstance) resolveArg(nodeID uuid.UUID, ref codegen.InputRef) (interface{}, error) {
	upstream, ok := si.results[ref.SourceNodeID]
	if !ok {
		return nil, &model.DependencyError{NodeID: nodeID.String(), Cause: fmt.Errorf("upstream node %s has no registered result", ref.SourceNodeID)}
	}
	if !upstream.IsComputable {
		cause := upstream.InternalError
		if cause == "" {
			cause = upstream.Error
		}
		if cause == "" {
			cause = "dependency failed"
		}
		return nil, &model.DependencyError{NodeID: nodeID.String(), Cause: fmt.Errorf("%s", cause)}
	}
	return extractPort(upstream.Value, ref.SourcePort), nil
}

// extractPort reads a named port out of a node result's value: a map for
// function/sheet/lut producers, or the scalar itself for constant/input/
// output producers (whose sole port is conventionally named "value").
func extractPort(value interface{}, port string) interface{} {
	if m, ok := value.(map[string]interface{}); ok {
		return m[port]
	}
	return value
}

// resolveArgs resolves every declared input of np, short-circuiting on
// the first DependencyError.
func (si *sheetInstance) resolveArgs(np *codegen.NodeProgram) (map[string]interface{}, error) {
	args := make(map[string]interface{}, len(np.Inputs))
	for port, ref := range np.Inputs {
		v, err := si.resolveArg(np.NodeID, ref)
		if err != nil {
			return nil, err
		}
		args[port] = v
	}
	return args, nil
}

func (si *sheetInstance) runConstantOrInput(np *codegen.NodeProgram, isInput bool) *model.NodeResult {
	value, ok := si.overrides[np.NodeID]
	if !ok {
		value, ok = np.Config.Value, np.Config.Value != nil
	}
	if !ok {
		if isInput {
			return model.SoftFail(nil, fmt.Sprintf("node %s: input value is required", np.NodeID))
		}
		return model.Computable(nil)
	}

	value = coerceValue(value)
	if err := validateBounds(np.NodeID.String(), "value", value, np.Config.Bounds); err != nil {
		return model.SoftFail(value, err.Error())
	}
	return model.Computable(value)
}

func (si *sheetInstance) runOutput(np *codegen.NodeProgram) *model.NodeResult {
	args, err := si.resolveArgs(np)
	if err != nil {
		return hardFailFromError(np, err)
	}
	value := args["value"]
	if err := validateBounds(np.NodeID.String(), "value", value, np.Config.Bounds); err != nil {
		return model.SoftFail(value, err.Error())
	}
	return model.Computable(value)
}

func (si *sheetInstance) runFunction(np *codegen.NodeProgram) *model.NodeResult {
	if np.Config.ParseError != "" {
		return model.HardFail("SyntaxError: "+np.Config.ParseError, np.Config.ParseError)
	}

	args, err := si.resolveArgs(np)
	if err != nil {
		return hardFailFromError(np, err)
	}

	env := si.env.WithArgs(args)
	program, err := exprenv.Compile(np.Config.Code, env)
	if err != nil {
		msg := normalizeExprError(err)
		return model.HardFail(formatRuntimeError(np.Label, errors.New(msg)), msg)
	}
	result, err := exprenv.Run(program, env)
	if err != nil {
		msg := normalizeExprError(err)
		return model.HardFail(formatRuntimeError(np.Label, errors.New(msg)), msg)
	}

	if len(np.Outputs) <= 1 {
		port := "value"
		if len(np.Outputs) == 1 {
			port = np.Outputs[0].Key
		}
		return model.Computable(map[string]interface{}{port: result})
	}

	m, ok := result.(map[string]interface{})
	if !ok {
		msg := fmt.Sprintf("function with %d declared outputs must evaluate to a map", len(np.Outputs))
		return model.HardFail(formatRuntimeError(np.Label, errors.New(msg)), msg)
	}
	out := make(map[string]interface{}, len(np.Outputs))
	for _, port := range np.Outputs {
		out[port.Key] = m[port.Key]
	}
	return model.Computable(out)
}

func (si *sheetInstance) runLUT(np *codegen.NodeProgram) *model.NodeResult {
	args, err := si.resolveArgs(np)
	if err != nil {
		return hardFailFromError(np, err)
	}
	key := fmt.Sprintf("%v", args["key"])

	for _, row := range np.Config.LUTRows {
		if fmt.Sprintf("%v", row.Key) == key {
			return model.Computable(row.Values)
		}
	}
	msg := fmt.Sprintf("lut key %q not found", key)
	return model.HardFail(formatRuntimeError(np.Label, errors.New(msg)), msg)
}

func (si *sheetInstance) runSheet(np *codegen.NodeProgram) *model.NodeResult {
	args, err := si.resolveArgs(np)
	if err != nil {
		return hardFailFromError(np, err)
	}

	childProg, ok := si.doc.Sheets[np.Config.SheetTarget]
	if !ok {
		msg := fmt.Sprintf("nested sheet %s not found in compilation unit", np.Config.SheetTarget)
		return model.HardFail(formatRuntimeError(np.Label, errors.New(msg)), msg)
	}

	childOverrides := make(map[uuid.UUID]interface{}, len(args))
	childLabels := childLabelIndex(childProg)
	for port, v := range args {
		if nodeID, ok := childLabels[port]; ok {
			childOverrides[nodeID] = v
		}
	}

	child, err := newInstance(si.doc, np.Config.SheetTarget, childOverrides, si.env)
	if err != nil {
		return model.HardFail(formatRuntimeError(np.Label, err), err.Error())
	}
	child.Run()
	si.nested[np.NodeID] = child

	// A nested sheet's own run failure is this node's own execution
	// failing, not a sibling dependency cascading through it — the
	// underlying cause is shown directly rather than collapsed to
	// "Dependency failed" (reserved for ordinary cross-node propagation
	// inside the same sheet, see hardFailFromError).
	if _, cause, failed := child.hasFailingOutput(); failed {
		return model.HardFail(formatRuntimeError(np.Label, errors.New(cause)), cause)
	}

	outputs := child.PublicOutputs()
	result := make(map[string]interface{}, len(np.Outputs))
	for _, port := range np.Outputs {
		result[port.Key] = outputs[port.Key]
	}
	return model.Computable(result)
}

func childLabelIndex(prog *codegen.SheetProgram) map[string]uuid.UUID {
	idx := make(map[string]uuid.UUID)
	for _, n := range prog.Nodes {
		if n.Variant == model.VariantInput {
			idx[n.Label] = n.NodeID
		}
	}
	return idx
}

// hardFailFromError classifies err for registration: a DependencyError's
// display message is suppressed unless np is an output node (to avoid
// cascade spam), per the dispatch contract; any other error is shown
// verbatim, traceback-rewritten.
func hardFailFromError(np *codegen.NodeProgram, err error) *model.NodeResult {
	if depErr, ok := err.(*model.DependencyError); ok {
		display := ""
		if np.Variant == model.VariantOutput {
			display = "Dependency failed"
		}
		return model.HardFail(display, depErr.Error())
	}
	return model.HardFail(formatRuntimeError(np.Label, err), err.Error())
}

// formatRuntimeError renders a runtime failure attributed to the node
// that raised it. The generator's "# NODE_ID:" marker identifies the
// originating node at emission time; because each function node compiles
// and runs as its own isolated expr program rather than a concatenated
// script, there is no shared line-number space to remap — the node
// identity is already known at the call site, so the rewrite collapses
// to attaching the node's label directly.
func formatRuntimeError(label string, err error) string {
	return fmt.Sprintf("Node %q: %s", label, err.Error())
}

// normalizeExprError rewords the Go runtime's integer-divide panic text
// (recovered by the expr VM as a plain error) into the "division by
// zero" phrasing display and matching tests expect.
func normalizeExprError(err error) string {
	return strings.ReplaceAll(err.Error(), "divide by zero", "division by zero")
}
