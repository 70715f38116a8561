package model

import "errors"

// Sentinel errors for domain-level lookups and structural failures.
var (
	ErrSheetNotFound      = errors.New("sheet not found")
	ErrSheetVersionNotFound = errors.New("sheet version not found")
	ErrNodeNotFound       = errors.New("node not found")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrPortNotFound       = errors.New("port not found")
	ErrCyclicConnections  = errors.New("cyclic connections detected")
	ErrDuplicateNodeID    = errors.New("duplicate node ID")
	ErrDuplicateConnection = errors.New("duplicate connection for target port")
)

// ValidationError reports a structural problem with a Sheet, Node or
// Connection. It never reports acyclicity — that is a compile-time concern
// owned by the code generator and sandbox runtime, not Validate().
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects more than one ValidationError, e.g. from
// Sheet.Validate() walking every node and connection before returning.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Error()
}

// GraphStructureError wraps a cycle (or other topology failure) detected
// while the sandbox runtime builds a sheet instance. It aborts the sheet
// instance per the sandbox runtime's dispatch contract. Sheet-reference
// cycles found by the code generator are reported as CompilationError.
type GraphStructureError struct {
	SheetID string
	Err     error
}

func (e *GraphStructureError) Error() string {
	if e.SheetID != "" {
		return "sheet " + e.SheetID + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *GraphStructureError) Unwrap() error { return e.Err }

// DependencyError propagates a non-computable upstream result down through
// a node that consumed it. Cause is the original failure; it is suppressed
// on the rendered NodeResult.Error field unless the carrying node is an
// output node (see sandbox dispatch contract).
type DependencyError struct {
	NodeID string
	Cause  error
}

func (e *DependencyError) Error() string {
	return "dependency failure at node " + e.NodeID + ": " + e.Cause.Error()
}

func (e *DependencyError) Unwrap() error { return e.Cause }

// ValueValidationError is a soft failure: a constant/input/output value
// violated a declared range or option constraint. The offending value is
// still registered and propagated downstream; only a warning is attached.
type ValueValidationError struct {
	NodeID  string
	Port    string
	Message string
}

func (e *ValueValidationError) Error() string {
	return "node " + e.NodeID + " port " + e.Port + ": " + e.Message
}

// CompilationError is a hard failure raised by the code generator: a
// malformed data bag, an unresolvable sheet reference, or a
// sheet-reference cycle. It aborts generation of the whole compilation
// unit. An unparsable function body is not one: it is recorded on that
// node and fails only the node at run time.
type CompilationError struct {
	SheetID string
	NodeID  string
	Err     error
}

func (e *CompilationError) Error() string {
	msg := "compilation failed for sheet " + e.SheetID
	if e.NodeID != "" {
		msg += " node " + e.NodeID
	}
	msg += ": " + e.Err.Error()
	return msg
}

func (e *CompilationError) Unwrap() error { return e.Err }
