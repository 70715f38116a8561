package sandbox

import (
	"fmt"
	"math"
	"strconv"

	"github.com/parascope/calcengine/internal/domain/model"
)

// coerceValue applies the constant/input/output contract's loose typing
// rule: "true"/"false" strings become bool, numeric strings become int
// (preferred) or float; a float value with no fractional part (as every
// JSON-decoded number arrives, int or not) is narrowed to int64 so an
// integral constant stays on the int path through arithmetic and
// serialization instead of being forced to a decimal. Anything else
// passes through unchanged.
func coerceValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		switch val {
		case "true":
			return true
		case "false":
			return false
		}
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		return v
	case float64:
		return narrowToInt(val)
	case float32:
		return narrowToInt(float64(val))
	default:
		return v
	}
}

// narrowToInt returns f as an int64 when it is a whole number representable
// without loss, otherwise f unchanged.
func narrowToInt(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return f
	}
	if f < math.MinInt64 || f > math.MaxInt64 {
		return f
	}
	return int64(f)
}

// toNumeric returns v as a float64 if it is numeric, for range checks;
// non-numeric values always skip range validation per spec.md §4.1.
func toNumeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// validateBounds applies option validation (string-compare against the
// declared choice set) or range validation (numeric-only) to a resolved
// value, returning a ValueValidationError on violation — a soft fail per
// spec.md §4.1/§7.
func validateBounds(nodeID, port string, value interface{}, b model.Bounds) error {
	if b.Option {
		s := fmt.Sprintf("%v", value)
		for _, opt := range b.Options {
			if opt == s {
				return nil
			}
		}
		return &model.ValueValidationError{NodeID: nodeID, Port: port, Message: fmt.Sprintf("value %q is not in allowed options %v", s, b.Options)}
	}

	n, ok := toNumeric(value)
	if !ok {
		return nil
	}
	if b.Min != nil && n < *b.Min {
		return &model.ValueValidationError{NodeID: nodeID, Port: port, Message: fmt.Sprintf("value %v is below minimum %v", value, *b.Min)}
	}
	if b.Max != nil && n > *b.Max {
		return &model.ValueValidationError{NodeID: nodeID, Port: port, Message: fmt.Sprintf("value %v is above maximum %v", value, *b.Max)}
	}
	return nil
}
