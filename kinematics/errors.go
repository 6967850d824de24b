package kinematics

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfiguration is returned for a malformed chain definition: no links, a
	// non-positive link length, or a mismatch between the number of angles and links.
	ErrInvalidConfiguration = errors.New("invalid chain configuration")
	// ErrUnreachable is returned when a target lies outside the workspace of the chain.
	ErrUnreachable = errors.New("target is outside the reachable workspace")
	// ErrNoConvergence is returned when the iterative solver ran out of iterations or took a
	// numerically singular step.
	ErrNoConvergence = errors.New("kinematics could not solve for position")
	// ErrImpreciseSolution is returned alongside angles whose end-effector misses the target by
	// more than the workspace tolerance. Callers may accept or reject them.
	ErrImpreciseSolution = errors.New("solution does not reproduce the target within tolerance")
)

// NewInvalidConfigurationError returns an error wrapping ErrInvalidConfiguration.
func NewInvalidConfigurationError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfiguration, format, args...)
}

// NewIncorrectDoFError is returned when the number of joint angles does not match the number of links.
func NewIncorrectDoFError(actual, expected int) error {
	return NewInvalidConfigurationError("number of angles does not match links, have %d want %d", actual, expected)
}

// NewUnreachableError reports a target whose distance from the base lies outside [minReach, maxReach].
func NewUnreachableError(target r2.Point, minReach, maxReach float64) error {
	return errors.Wrapf(ErrUnreachable, "target (%.3f, %.3f) at distance %.3f is outside [%.3f, %.3f]",
		target.X, target.Y, target.Norm(), minReach, maxReach)
}

// NewNoConvergenceError reports a failed root find after the given number of iterations.
func NewNoConvergenceError(iterations int, residual float64, cause string) error {
	return errors.Wrapf(ErrNoConvergence, "%s after %d iterations (residual %g)", cause, iterations, residual)
}

// NewImpreciseSolutionError reports a solution whose end-effector misses the target by miss.
func NewImpreciseSolutionError(target r2.Point, miss, tolerance float64) error {
	return errors.Wrapf(ErrImpreciseSolution, "end-effector misses (%.3f, %.3f) by %.3f (tolerance %.3f)",
		target.X, target.Y, miss, tolerance)
}
