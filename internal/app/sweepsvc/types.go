// Package sweepsvc implements the Sweep operation (spec.md §4.6): it runs
// a sheet repeatedly across a range or list of values for one or two
// input nodes, fanning the scenarios out across the worker pool and
// collecting the swept output node values into a table.
package sweepsvc

import (
	"github.com/google/uuid"

	"github.com/parascope/calcengine/internal/app/calcsvc"
)

// maxSteps1D and maxSteps2D cap the number of scenarios a single sweep
// may run, per spec.md §4.6.
const (
	maxSteps1D = 1000
	maxSteps2D = 2000
)

// AxisSpec describes one swept input: either an explicit list of values
// or a numeric start/end/increment triple. A non-empty ManualValues list
// is used as-is and any triple alongside it is ignored.
type AxisSpec struct {
	InputNodeID  uuid.UUID     `json:"inputNodeId" validate:"required"`
	ManualValues []interface{} `json:"manualValues,omitempty"`
	Start        *float64      `json:"start,omitempty"`
	End          *float64      `json:"end,omitempty"`
	Increment    *float64      `json:"increment,omitempty"`
}

// SweepRequest is the Sweep operation's input. Secondary is optional; when
// present, the sweep runs the Cartesian product of Primary and Secondary
// (secondary varies outer, primary inner).
type SweepRequest struct {
	SheetID         uuid.UUID                          `json:"sheetId" validate:"required"`
	Primary         AxisSpec                            `json:"primary" validate:"required"`
	Secondary       *AxisSpec                           `json:"secondary,omitempty"`
	OutputNodeIDs   []uuid.UUID                         `json:"outputNodeIds" validate:"required,min=1"`
	StaticOverrides map[string]calcsvc.OverrideValue     `json:"staticOverrides,omitempty"`
}

// ColumnHeader describes one column of a SweepResponse's table: an axis
// column (Kind "input") or a swept output column (Kind "output").
type ColumnHeader struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

// RowMetadata carries the swept input values and any per-scenario failure
// alongside the output values in Rows, so a caller can tell a zero result
// apart from a scenario that failed to compute.
type RowMetadata struct {
	PrimaryValue   interface{} `json:"primaryValue"`
	SecondaryValue interface{} `json:"secondaryValue,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// SweepResponse is the Sweep operation's output: Headers names each
// column of Rows in order, Rows holds one row per scenario (in
// deterministic secondary-outer/primary-inner order), and Metadata
// mirrors Rows one-to-one.
type SweepResponse struct {
	Headers  []ColumnHeader           `json:"headers"`
	Rows     [][]interface{}          `json:"rows"`
	Metadata []RowMetadata            `json:"metadata"`
	Error    string                   `json:"error,omitempty"`
}
