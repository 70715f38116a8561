// Package codegen walks a root sheet and its transitively referenced
// sub-sheets and versions and emits a ScriptDocument: a serializable
// explicit registry standing in for the "single self-contained script"
// the original engine produces. The target language has no runtime eval,
// so the generator's output is data the Sandbox Runtime indexes directly
// rather than source text it compiles.
package codegen

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/parascope/calcengine/internal/domain/model"
)

// ErrCyclicSheetReference is raised when the sheet-reference graph (one
// vertex per (sheet_id, version_id) pair, one edge per nested sheet node)
// contains a cycle.
var ErrCyclicSheetReference = errors.New("sheet reference cycle detected")

// SheetKey identifies one (sheet_id, version_id?) pair in the compilation
// closure. It is a plain string so ScriptDocument round-trips through
// JSON without a custom marshaler.
type SheetKey string

// NewSheetKey builds the canonical key for a sheet or pinned version.
func NewSheetKey(sheetID uuid.UUID, versionID *uuid.UUID) SheetKey {
	if versionID == nil {
		return SheetKey(sheetID.String())
	}
	return SheetKey(fmt.Sprintf("%s@%s", sheetID, versionID))
}

// InputRef names the upstream node and output port a node argument is
// wired to, resolved from a Connection during generation.
type InputRef struct {
	SourceNodeID uuid.UUID `json:"sourceNodeId"`
	SourcePort   string    `json:"sourcePort"`
}

// NodeConfig carries the variant-specific data a NodeProgram's emitted
// body needs at dispatch time. Only the fields relevant to Variant are
// populated.
type NodeConfig struct {
	// Value is the constant/input node's declared default.
	Value interface{} `json:"value,omitempty"`
	// Bounds is the optional min/max/option constraint shared by
	// constant, input and output nodes.
	Bounds model.Bounds `json:"bounds,omitempty"`
	// Code is the function node's body, prefixed with the
	// "# NODE_ID:<id>" marker the traceback rewriter looks for.
	Code string `json:"code,omitempty"`
	// ParseError holds a function node's compile-time parse failure; when
	// set, the emitted body raises this at run time instead of executing.
	ParseError string `json:"parseError,omitempty"`
	// SheetTarget is the resolved key of a sheet node's nested class.
	SheetTarget SheetKey `json:"sheetTarget,omitempty"`
	// LUTRows is the lut node's ordered row list.
	LUTRows []model.LUTRow `json:"lutRows,omitempty"`
}

// NodeProgram is one tagged method: the generator's rendering of a single
// non-comment Node plus its resolved argument wiring.
type NodeProgram struct {
	NodeID     uuid.UUID           `json:"nodeId"`
	Variant    model.NodeVariant   `json:"variant"`
	Label      string              `json:"label"`
	MethodName string              `json:"methodName"`
	Inputs     map[string]InputRef `json:"inputs,omitempty"` // keyed by this node's target port key
	Outputs    []model.Port        `json:"outputs,omitempty"`
	Config     NodeConfig          `json:"config"`
}

// SheetProgram is one emitted class: a stable name plus its tagged
// methods in declaration order.
type SheetProgram struct {
	SheetID   uuid.UUID      `json:"sheetId"`
	VersionID *uuid.UUID     `json:"versionId,omitempty"`
	ClassName string         `json:"className"`
	Nodes     []*NodeProgram `json:"nodes"`
}

// NodeByID returns the program for a node id, or nil.
func (sp *SheetProgram) NodeByID(id uuid.UUID) *NodeProgram {
	for _, n := range sp.Nodes {
		if n.NodeID == id {
			return n
		}
	}
	return nil
}

// ScriptDocument is the generator's complete output: the transitive
// compilation closure, keyed by SheetKey, plus the entry-point root key.
type ScriptDocument struct {
	Root   SheetKey              `json:"root"`
	Sheets map[SheetKey]*SheetProgram `json:"sheets"`
}
