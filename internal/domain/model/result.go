package model

import "github.com/google/uuid"

// NodeResult is produced by executing a single node. Value is
// variant-dependent: a scalar for input/constant/output/lut-row values,
// or a port→value mapping for function/sheet/lut. Nodes is populated only
// on a sheet-variant node's result, recursively mirroring the nested
// instance's own result tree.
type NodeResult struct {
	Value         interface{}                `json:"value"`
	IsComputable  bool                        `json:"isComputable"`
	Error         string                      `json:"error,omitempty"`
	InternalError string                      `json:"internalError,omitempty"`
	Nodes         map[uuid.UUID]*NodeResult   `json:"nodes,omitempty"`
}

// Computable builds the success case: a registered value with no error.
func Computable(value interface{}) *NodeResult {
	return &NodeResult{Value: value, IsComputable: true}
}

// SoftFail builds the ValueValidationError case: the offending value is
// still registered and propagates downstream, with a warning attached.
func SoftFail(value interface{}, msg string) *NodeResult {
	return &NodeResult{Value: value, IsComputable: true, Error: msg}
}

// HardFail builds the non-computable case shared by DependencyError and
// any other runtime failure. displayError is shown on the node (empty for
// non-output nodes receiving a DependencyError, per the dispatch
// contract); internalError always propagates to descendants.
func HardFail(displayError, internalError string) *NodeResult {
	return &NodeResult{IsComputable: false, Error: displayError, InternalError: internalError}
}
