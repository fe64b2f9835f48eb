// Package util contains misc internal utilities.
package util

import (
	"fmt"
	"math"
)

// Limiter is a pair of software limits on an axis.  A zero Limiter
// (Min == Max == 0) imposes no limit.
type Limiter struct {
	Min float64 `json:"min" yaml:"Min" koanf:"Min"`
	Max float64 `json:"max" yaml:"Max" koanf:"Max"`
}

// Check returns true if x is within the limits, inclusive
func (l Limiter) Check(x float64) bool {
	if l.Min == 0 && l.Max == 0 {
		return true
	}
	return x >= l.Min && x <= l.Max
}

func (l Limiter) String() string {
	return fmt.Sprintf("[%g, %g]", l.Min, l.Max)
}

// Round rounds a float to the nearest "unit" (0.1 for tenth, 0.01 for
// hundredth, and so on).  Halves round away from zero.
func Round(x, unit float64) float64 {
	return math.Round(x/unit) * unit
}
