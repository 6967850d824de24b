// Package kinematics implements forward and inverse kinematics for planar chains of rotational
// joints. Angles are radians unless a name says otherwise; each angle is relative to the
// orientation of the link before it.
package kinematics

import (
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ValidateLengths checks that a chain has at least one link and that every length is positive and finite.
func ValidateLengths(lengths []float64) error {
	if len(lengths) == 0 {
		return NewInvalidConfigurationError("chain needs at least one link")
	}
	for i, l := range lengths {
		if !(l > 0) || math.IsInf(l, 0) {
			return NewInvalidConfigurationError("link %d has length %v, must be positive", i, l)
		}
	}
	return nil
}

// ForwardKinematics returns the position of the end of every link, the last being the
// end-effector. The returned slice is freshly allocated on every call.
func ForwardKinematics(lengths, angles []float64, origin r2.Point) ([]r2.Point, error) {
	if len(angles) != len(lengths) {
		return nil, NewIncorrectDoFError(len(angles), len(lengths))
	}
	return forward(lengths, angles, origin), nil
}

// forward assumes len(angles) == len(lengths).
func forward(lengths, angles []float64, origin r2.Point) []r2.Point {
	positions := make([]r2.Point, len(lengths))
	phi := 0.
	prev := origin
	for i, l := range lengths {
		phi += angles[i]
		prev = prev.Add(r2.Point{X: l * math.Cos(phi), Y: l * math.Sin(phi)})
		positions[i] = prev
	}
	return positions
}

// EndEffector returns only the last joint position, relative to an origin at (0, 0).
func EndEffector(lengths, angles []float64) (r2.Point, error) {
	positions, err := ForwardKinematics(lengths, angles, r2.Point{})
	if err != nil {
		return r2.Point{}, err
	}
	return positions[len(positions)-1], nil
}

// endEffector is EndEffector without the length check, for solver inner loops.
func endEffector(lengths, angles []float64) r2.Point {
	var p r2.Point
	phi := 0.
	for i, l := range lengths {
		phi += angles[i]
		p.X += l * math.Cos(phi)
		p.Y += l * math.Sin(phi)
	}
	return p
}

// Jacobian returns the 2×n matrix of partial derivatives of the end-effector position with
// respect to each joint angle.
func Jacobian(lengths, angles []float64) (*mat.Dense, error) {
	if len(angles) != len(lengths) {
		return nil, NewIncorrectDoFError(len(angles), len(lengths))
	}
	n := len(lengths)
	jac := mat.NewDense(2, n, nil)
	// Joint k moves every link distal to it, so its column sums those links' contributions.
	phis := make([]float64, n)
	phi := 0.
	for i := range lengths {
		phi += angles[i]
		phis[i] = phi
	}
	for k := 0; k < n; k++ {
		dx, dy := 0., 0.
		for i := k; i < n; i++ {
			dx -= lengths[i] * math.Sin(phis[i])
			dy += lengths[i] * math.Cos(phis[i])
		}
		jac.Set(0, k, dx)
		jac.Set(1, k, dy)
	}
	return jac, nil
}

// Reach returns the radii of the annulus that the end-effector of the chain can reach.
// The outer radius is the sum of all lengths; the inner radius is how far the longest link
// sticks out past everything else folded back over it, or zero if the rest can cover it.
func Reach(lengths []float64) (minReach, maxReach float64) {
	if len(lengths) == 0 {
		return 0, 0
	}
	maxReach = floats.Sum(lengths)
	longest := floats.Max(lengths)
	minReach = math.Max(0, longest-(maxReach-longest))
	return minReach, maxReach
}
