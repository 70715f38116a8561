// Package calcsvc implements the Calculate operation: resolve caller
// overrides against a sheet's declared inputs, generate its ScriptDocument,
// submit it to the Worker Pool, and enrich the raw result tree into a
// transport-ready response with every numeric value string-serialized.
package calcsvc

import (
	"github.com/google/uuid"

	"github.com/parascope/calcengine/internal/domain/model"
)

// OverrideValue wraps one caller-supplied input value, matching the wire
// envelope `{value: any}` spec.md §6 describes.
type OverrideValue struct {
	Value interface{} `json:"value"`
}

// CalculateRequest is the Calculate operation's input: the sheet to run
// and a caller-override map keyed by either a node id string or an input
// node's label (spec.md §4.5's "label first, id takes precedence" rule).
type CalculateRequest struct {
	SheetID uuid.UUID                `validate:"required"`
	Inputs  map[string]OverrideValue `validate:"omitempty"`
}

// NodeRecord is one node's enriched response record (spec.md §4.5 step 4 /
// §6's NodeResult envelope).
type NodeRecord struct {
	Variant      model.NodeVariant      `json:"type"`
	Label        string                 `json:"label"`
	IsComputable bool                   `json:"is_computable"`
	Error        string                 `json:"error,omitempty"`
	Inputs       map[string]interface{} `json:"inputs"`
	Outputs      map[string]interface{} `json:"outputs"`
	Nodes        map[string]*NodeRecord `json:"nodes,omitempty"`
}

// CalculateResponse is the Calculate operation's output.
type CalculateResponse struct {
	Results map[string]*NodeRecord `json:"results,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
