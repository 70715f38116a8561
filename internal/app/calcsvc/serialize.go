package calcsvc

import (
	"math"
	"strconv"
	"strings"
)

// serializeValue renders every numeric value to its string form for
// transport (spec.md §4.5 step 5), leaving booleans, strings and nil
// untouched. Floats always carry an explicit decimal point (E1's "98.0");
// int/int64 render without one (E2's "10"), the two paths kept distinct
// because an integral constant is narrowed to int64 upstream in
// sandbox.coerceValue and expr-lang's own int*int arithmetic preserves
// that typing through to the result here.
func serializeValue(v interface{}) interface{} {
	switch n := v.(type) {
	case float64:
		return formatFloat(n)
	case float32:
		return formatFloat(float64(n))
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	default:
		return v
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// serializeMap applies serializeValue to every entry of a port->value map.
func serializeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = serializeValue(v)
	}
	return out
}
