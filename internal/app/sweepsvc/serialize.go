package sweepsvc

import (
	"math"
	"strconv"
	"strings"
)

// serializeScalar renders a scenario's swept input value or output result
// to its string form for transport, mirroring calcsvc's own
// serializeValue so a sweep's table and a plain Calculate's result tree
// agree on numeric formatting.
func serializeScalar(v interface{}) interface{} {
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
