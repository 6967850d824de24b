// Package utils contains angle and floating point helpers shared by every solver.
package utils

import (
	"math"
)

// floatEpsilon is the default tolerance used by Float64AlmostEqual.
const floatEpsilon = 1e-9

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// DegsToRads converts each element of the slice from degrees to radians into a new slice.
func DegsToRads(degrees []float64) []float64 {
	out := make([]float64, len(degrees))
	for i, d := range degrees {
		out[i] = DegToRad(d)
	}
	return out
}

// RadsToDegs converts each element of the slice from radians to degrees into a new slice.
func RadsToDegs(radians []float64) []float64 {
	out := make([]float64, len(radians))
	for i, r := range radians {
		out[i] = RadToDeg(r)
	}
	return out
}

// NormalizeDeg maps any angle in degrees into (-180, 180].
// -180 and 180 describe the same orientation; 180 is the representative returned for both.
func NormalizeDeg(angle float64) float64 {
	return normalizeHalfOpen(angle, 360)
}

// NormalizeRad maps any angle in radians into (-π, π]. π is returned for -π.
func NormalizeRad(angle float64) float64 {
	return normalizeHalfOpen(angle, 2*math.Pi)
}

// normalizeHalfOpen reduces angle modulo period into [0, period), then folds the upper half-plane
// down so the result lies in (-period/2, period/2].
func normalizeHalfOpen(angle, period float64) float64 {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return math.NaN()
	}
	half := period / 2
	if angle > -half && angle <= half {
		return angle
	}
	a := math.Mod(angle, period)
	if a < 0 {
		a += period
	}
	// math.Mod of a tiny negative number plus the period can round up to exactly period.
	if a >= period {
		a -= period
	}
	if a > half {
		a -= period
	}
	return a
}

// ToPositiveDeg projects an angle onto the half-turn: negative angles are shifted by +180,
// non-negative angles are returned unchanged. Used where only a link's orientation modulo 180
// matters, not its direction.
func ToPositiveDeg(angle float64) float64 {
	if angle < 0 {
		return angle + 180
	}
	return angle
}

// PhaseShiftDeg rotates a half-turn orientation by a quarter turn, returning a value in [0, 180).
func PhaseShiftDeg(angle float64) float64 {
	shifted := math.Mod(angle+90, 180)
	if shifted < 0 {
		shifted += 180
	}
	return shifted
}

// AngleDiffDeg returns the closest difference from the two given
// angles. The arguments are commutative.
func AngleDiffDeg(a1, a2 float64) float64 {
	return math.Abs(NormalizeDeg(a1 - a2))
}

// AngleDiffRad is AngleDiffDeg for radians.
func AngleDiffRad(a1, a2 float64) float64 {
	return math.Abs(NormalizeRad(a1 - a2))
}

// Clamp limits v to the closed interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Square returns n*n.
func Square(n float64) float64 {
	return n * n
}

// Float64AlmostEqual reports whether a and b differ by no more than epsilon.
// A non-positive epsilon uses the package default of 1e-9.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	if epsilon <= 0 {
		epsilon = floatEpsilon
	}
	return math.Abs(a-b) <= epsilon
}

// IsFinite reports whether every value is neither NaN nor infinite.
func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
