package sweepsvc

import (
	"errors"
	"math"
)

// ErrAxisUnderspecified is returned when an AxisSpec carries neither a
// manual value list nor a complete start/end/increment triple.
var ErrAxisUnderspecified = errors.New("sweepsvc: axis requires manual_values or start, end and increment")

// ErrZeroIncrement is returned when an axis's increment is zero.
var ErrZeroIncrement = errors.New("sweepsvc: increment must not be zero")

// generateValues expands an AxisSpec into its concrete value sequence. A
// manual list is returned as-is. A numeric triple is oriented so the
// increment always points from start toward end, then stepped out with
// steps = floor((end-start)/increment + epsilon) + 1 to absorb
// floating-point rounding at the boundary, mirroring the original's
// linspace-style construction. When start, end and increment are all
// integer-valued, every generated value is rounded to the nearest integer
// so a sweep over whole numbers never surfaces stray "10.0000000001"
// noise.
func generateValues(axis AxisSpec) ([]interface{}, error) {
	if len(axis.ManualValues) > 0 {
		return axis.ManualValues, nil
	}
	if axis.Start == nil || axis.End == nil || axis.Increment == nil {
		return nil, ErrAxisUnderspecified
	}
	start, end, incr := *axis.Start, *axis.End, *axis.Increment
	if incr == 0 {
		return nil, ErrZeroIncrement
	}
	if (end >= start && incr < 0) || (end < start && incr > 0) {
		incr = -incr
	}

	const epsilon = 1e-10
	steps := int(math.Floor((end-start)/incr+epsilon)) + 1
	if steps < 1 {
		steps = 1
	}

	allInt := isIntegral(start) && isIntegral(end) && isIntegral(incr)
	values := make([]interface{}, steps)
	for i := 0; i < steps; i++ {
		v := start + float64(i)*incr
		if allInt {
			v = math.Round(v)
		}
		values[i] = v
	}
	return values, nil
}

func isIntegral(f float64) bool {
	return f == math.Trunc(f)
}
