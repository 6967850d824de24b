//go:build !windows && !no_cgo

package kinematics

import (
	"github.com/go-nlopt/nlopt"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

const (
	minimumTravelAvailable = true
	nloptXtolRel           = 1e-10
)

func (MinimumTravelPolicy) search(p *problem, seed []float64, budget int) (localResult, error) {
	n := len(seed)
	opt, err := nlopt.NewNLopt(nlopt.LD_SLSQP, uint(n))
	if err != nil {
		return localResult{}, errors.Wrap(err, "nlopt creation error")
	}
	defer opt.Destroy()

	evals := 0
	// x is the joint angles. gradient is backed by nlopt and must be written in place.
	travel := func(x, gradient []float64) float64 {
		evals++
		dist := 0.
		for i := range x {
			d := x[i] - p.initial[i]
			dist += d * d
			if len(gradient) > 0 {
				gradient[i] = 2 * d
			}
		}
		return dist
	}
	// Equality constraint on one coordinate of the end-effector: 0 for X, 1 for Y.
	reach := func(row int) func(x, gradient []float64) float64 {
		return func(x, gradient []float64) float64 {
			ee := endEffector(p.lengths, x)
			if len(gradient) > 0 {
				jac, err := Jacobian(p.lengths, x)
				if err == nil {
					mat.Row(gradient, row, jac)
				}
			}
			if row == 0 {
				return ee.X - p.target.X
			}
			return ee.Y - p.target.Y
		}
	}

	err = multierr.Combine(
		opt.SetMinObjective(travel),
		opt.AddEqualityConstraint(reach(0), p.tolerance/4),
		opt.AddEqualityConstraint(reach(1), p.tolerance/4),
		opt.SetXtolRel(nloptXtolRel),
		opt.SetMaxEval(budget),
	)
	if err != nil {
		return localResult{}, errors.Wrap(err, "nlopt configuration error")
	}

	x, _, nloptErr := opt.Optimize(append([]float64(nil), seed...))
	if nloptErr != nil || len(x) != n {
		// SLSQP gives up on some seeds, e.g. with a roundoff-limited result. Report a stall at the
		// seed and let the caller restart elsewhere.
		x = append([]float64(nil), seed...)
	}
	r := make([]float64, 2)
	s := newSearcher(p.residual, 2, n, p.tolerance)
	res := localResult{x: x, residual: s.eval(r, x), iterations: evals}
	switch {
	case res.residual < p.tolerance:
		res.outcome = localConverged
	case evals >= budget:
		res.outcome = localExhausted
	default:
		res.outcome = localStalled
	}
	return res, nil
}
