package kinematics

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// A RedundancyPolicy decides which configuration the iterative solver settles on when the chain
// has more joints than the two position equations constrain. Chains with one or two links have
// no redundancy and ignore the policy.
type RedundancyPolicy interface {
	fmt.Stringer

	validate(dof int) error
	search(p *problem, seed []float64, budget int) (localResult, error)
}

// problem is one inverse kinematics query.
type problem struct {
	lengths   []float64
	target    r2.Point
	initial   []float64
	tolerance float64
}

// residual writes the end-effector error into dst[0] and dst[1]. Any further entries are
// padding rows and are always zero.
func (p *problem) residual(dst, x []float64) {
	ee := endEffector(p.lengths, x)
	dst[0] = ee.X - p.target.X
	dst[1] = ee.Y - p.target.Y
	for i := 2; i < len(dst); i++ {
		dst[i] = 0
	}
}

// squareRows is the number of residual rows needed to make a system in n unknowns square.
func squareRows(n int) int {
	if n < 2 {
		return 2
	}
	return n
}

// PlaceholderPolicy pads the system with 0 = 0 equations until it is square. The solution then
// depends only on the seed, so consecutive targets usually produce continuous motion.
type PlaceholderPolicy struct{}

func (PlaceholderPolicy) String() string { return "placeholder" }

func (PlaceholderPolicy) validate(int) error { return nil }

func (PlaceholderPolicy) search(p *problem, seed []float64, budget int) (localResult, error) {
	m := squareRows(len(seed))
	return newSearcher(p.residual, m, len(seed), p.tolerance).levenbergMarquardt(seed, budget)
}

// FixedJointPolicy holds one joint at a fixed angle, in radians, and solves for the rest.
type FixedJointPolicy struct {
	Joint int
	Angle float64
}

func (fj FixedJointPolicy) String() string {
	return fmt.Sprintf("fixed_joint(%d=%.4f)", fj.Joint, fj.Angle)
}

func (fj FixedJointPolicy) validate(dof int) error {
	if fj.Joint < 0 || fj.Joint >= dof {
		return NewInvalidConfigurationError("fixed joint %d out of range for %d joints", fj.Joint, dof)
	}
	if math.IsNaN(fj.Angle) || math.IsInf(fj.Angle, 0) {
		return NewInvalidConfigurationError("fixed joint angle %v is not finite", fj.Angle)
	}
	return nil
}

// expand writes the free angles into full with the fixed joint inserted, and returns full.
func (fj FixedJointPolicy) expand(full, free []float64) []float64 {
	j := 0
	for i := range full {
		if i == fj.Joint {
			full[i] = fj.Angle
			continue
		}
		full[i] = free[j]
		j++
	}
	return full
}

func (fj FixedJointPolicy) search(p *problem, seed []float64, budget int) (localResult, error) {
	free := make([]float64, 0, len(seed)-1)
	for i, a := range seed {
		if i != fj.Joint {
			free = append(free, a)
		}
	}
	full := make([]float64, len(seed))
	f := func(dst, x []float64) {
		p.residual(dst, fj.expand(full, x))
	}
	res, err := newSearcher(f, squareRows(len(free)), len(free), p.tolerance).levenbergMarquardt(free, budget)
	res.x = fj.expand(make([]float64, len(seed)), res.x)
	return res, err
}

// MinimumNormPolicy takes minimum-norm Gauss-Newton steps through the pseudo-inverse of the
// Jacobian, which keeps each solution close to its seed without any padding equations.
type MinimumNormPolicy struct{}

func (MinimumNormPolicy) String() string { return "minimum_norm" }

func (MinimumNormPolicy) validate(int) error { return nil }

func (MinimumNormPolicy) search(p *problem, seed []float64, budget int) (localResult, error) {
	return newSearcher(p.residual, 2, len(seed), p.tolerance).pseudoInverseNewton(seed, budget)
}

// MinimumTravelPolicy minimizes the squared joint distance from the initial guess subject to the
// end-effector reaching the target. It needs the nlopt library and is unavailable in builds
// without cgo.
type MinimumTravelPolicy struct{}

func (MinimumTravelPolicy) String() string { return "minimum_travel" }

func (MinimumTravelPolicy) validate(int) error {
	if !minimumTravelAvailable {
		return NewInvalidConfigurationError("minimum travel redundancy policy requires a cgo build")
	}
	return nil
}

// ValidateRedundancyPolicy checks that policy can be used with a chain of dof joints.
func ValidateRedundancyPolicy(policy RedundancyPolicy, dof int) error {
	if policy == nil || dof <= 2 {
		return nil
	}
	return policy.validate(dof)
}
