package kinematics

import (
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/planarik/utils"
)

// reachEpsilon widens the reachable annulus so that targets exactly on its boundary, computed in
// floating point, are not rejected.
const reachEpsilon = 1e-9

// ElbowPolicy selects one of the two branches returned by the geometric solver.
type ElbowPolicy int

const (
	// ElbowUp always picks the elbow-up branch.
	ElbowUp ElbowPolicy = iota
	// ElbowDown always picks the elbow-down branch.
	ElbowDown
	// ElbowClosest picks whichever branch needs the least joint travel from the current angles.
	ElbowClosest
)

func (p ElbowPolicy) String() string {
	switch p {
	case ElbowUp:
		return "up"
	case ElbowDown:
		return "down"
	case ElbowClosest:
		return "closest"
	}
	return "unknown"
}

// ParseElbowPolicy parses "up", "down" or "closest". The empty string means ElbowUp.
func ParseElbowPolicy(s string) (ElbowPolicy, error) {
	switch s {
	case "", "up":
		return ElbowUp, nil
	case "down":
		return ElbowDown, nil
	case "closest":
		return ElbowClosest, nil
	}
	return ElbowUp, NewInvalidConfigurationError("unknown elbow policy %q", s)
}

// TwoLinkSolutions holds both branches of a two-link inverse kinematics solution. Each pair is
// (θ1, θ2) in degrees, normalized to (-180, 180].
type TwoLinkSolutions struct {
	ElbowUp   [2]float64
	ElbowDown [2]float64
}

// Select returns the branch chosen by policy, in degrees. currentDeg is only consulted by ElbowClosest.
func (s TwoLinkSolutions) Select(policy ElbowPolicy, currentDeg []float64) [2]float64 {
	switch policy {
	case ElbowDown:
		return s.ElbowDown
	case ElbowClosest:
		return s.Closest(currentDeg)
	default:
		return s.ElbowUp
	}
}

// Closest returns the branch with the smallest summed wrapped joint travel from currentDeg.
// Ties, and a currentDeg without two entries, go to elbow-up.
func (s TwoLinkSolutions) Closest(currentDeg []float64) [2]float64 {
	if len(currentDeg) != 2 {
		return s.ElbowUp
	}
	travel := func(sol [2]float64) float64 {
		return utils.AngleDiffDeg(sol[0], currentDeg[0]) + utils.AngleDiffDeg(sol[1], currentDeg[1])
	}
	if travel(s.ElbowDown) < travel(s.ElbowUp) {
		return s.ElbowDown
	}
	return s.ElbowUp
}

// SolveTwoLinkGeometric computes the closed-form inverse kinematics of a two-link chain with
// lengths l1, l2 for a target relative to the base. Both elbow branches are returned. At the
// outer or inner boundary of the workspace the two branches coincide.
func SolveTwoLinkGeometric(l1, l2 float64, target r2.Point) (TwoLinkSolutions, error) {
	if err := ValidateLengths([]float64{l1, l2}); err != nil {
		return TwoLinkSolutions{}, err
	}
	if !utils.IsFinite(target.X, target.Y) {
		return TwoLinkSolutions{}, NewInvalidConfigurationError("target (%v, %v) is not finite", target.X, target.Y)
	}
	r2Sq := target.X*target.X + target.Y*target.Y
	r := math.Sqrt(r2Sq)
	minReach, maxReach := math.Abs(l1-l2), l1+l2
	eps := reachEpsilon * maxReach
	if r > maxReach+eps || r < minReach-eps {
		return TwoLinkSolutions{}, NewUnreachableError(target, minReach, maxReach)
	}

	// Law of cosines for the interior angle at the elbow; the relative joint angle is its
	// supplement, taken on either side. Clamp absorbs floating point overshoot at the boundary.
	cosElbow := utils.Clamp((l1*l1+l2*l2-r2Sq)/(2*l1*l2), -1, 1)
	alpha := math.Acos(cosElbow)
	beta := math.Atan2(target.Y, target.X)

	branch := func(theta2 float64) [2]float64 {
		gamma := math.Atan2(l2*math.Sin(theta2), l1+l2*math.Cos(theta2))
		theta1 := beta - gamma
		return [2]float64{
			utils.NormalizeDeg(utils.RadToDeg(theta1)),
			utils.NormalizeDeg(utils.RadToDeg(theta2)),
		}
	}
	return TwoLinkSolutions{
		ElbowUp:   branch(math.Pi - alpha),
		ElbowDown: branch(math.Pi + alpha),
	}, nil
}
