package kinematics

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// A local search stalls once its update is this small relative to the current angles.
	stepTolerance = 1e-8
	// or once an accepted update shrinks the residual by less than this fraction.
	reductionTolerance = 1e-9

	// Levenberg-Marquardt damping, relative to the largest diagonal entry of JᵀJ.
	dampingInit    = 1e-3
	dampingFloor   = 1e-10
	dampingCeiling = 1e16

	// Singular values below this fraction of the largest are treated as zero by the pseudo-inverse.
	pseudoInverseCondition = 1e-10
	maxLineSearchHalvings  = 30
)

type localOutcome int

const (
	localConverged localOutcome = iota
	localStalled
	localExhausted
)

func (o localOutcome) String() string {
	switch o {
	case localConverged:
		return "converged"
	case localStalled:
		return "stalled"
	case localExhausted:
		return "exhausted"
	}
	return "unknown"
}

// localResult is the outcome of a single search from one seed.
type localResult struct {
	x          []float64
	residual   float64
	iterations int
	outcome    localOutcome
}

// residualFunc writes the residual at x into dst. It has the signature gonum's fd.Jacobian expects.
type residualFunc func(dst, x []float64)

type searcher struct {
	f         residualFunc
	m         int
	tolerance float64

	jac      *mat.Dense
	settings *fd.JacobianSettings
}

func newSearcher(f residualFunc, m, n int, tolerance float64) *searcher {
	return &searcher{
		f:         f,
		m:         m,
		tolerance: tolerance,
		jac:       mat.NewDense(m, n, nil),
		settings:  &fd.JacobianSettings{Formula: fd.Central},
	}
}

func (s *searcher) eval(dst, x []float64) float64 {
	s.f(dst, x)
	return floats.Norm(dst, 2)
}

// jacobian estimates the Jacobian of f at x with central differences.
func (s *searcher) jacobian(x []float64) *mat.Dense {
	fd.Jacobian(s.jac, s.f, x, s.settings)
	return s.jac
}

func (s *searcher) stepTooSmall(step mat.Vector, x []float64) bool {
	return mat.Norm(step, 2) <= stepTolerance*(floats.Norm(x, 2)+stepTolerance)
}

// levenbergMarquardt looks for a root of f from x0 with damped Gauss-Newton steps. Each
// iteration solves (JᵀJ + λI)s = Jᵀr and moves to x - s when that lowers the residual norm.
// A zero gradient at a non-root, such as a straight chain aimed along its own axis, stalls
// immediately; the caller decides whether to restart from a different seed.
func (s *searcher) levenbergMarquardt(x0 []float64, budget int) (localResult, error) {
	n := len(x0)
	x := append([]float64(nil), x0...)
	r := make([]float64, s.m)
	res := localResult{x: x, residual: s.eval(r, x)}
	if math.IsNaN(res.residual) || math.IsInf(res.residual, 0) {
		return res, NewNoConvergenceError(0, res.residual, "residual is not finite")
	}

	jtj := mat.NewDense(n, n, nil)
	damped := mat.NewDense(n, n, nil)
	grad := mat.NewVecDense(n, nil)
	step := mat.NewVecDense(n, nil)
	trial := make([]float64, n)
	trialR := make([]float64, s.m)
	var lambda, scale float64

	for res.iterations < budget {
		if res.residual < s.tolerance {
			res.outcome = localConverged
			return res, nil
		}
		res.iterations++

		jac := s.jacobian(x)
		jtj.Mul(jac.T(), jac)
		grad.MulVec(jac.T(), mat.NewVecDense(s.m, r))
		if scale == 0 {
			for i := 0; i < n; i++ {
				scale = math.Max(scale, jtj.At(i, i))
			}
			if scale == 0 {
				res.outcome = localStalled
				return res, nil
			}
			lambda = dampingInit * scale
		}

		for {
			damped.Copy(jtj)
			for i := 0; i < n; i++ {
				damped.Set(i, i, damped.At(i, i)+lambda)
			}
			if err := step.SolveVec(damped, grad); err != nil {
				return res, NewNoConvergenceError(res.iterations, res.residual, "singular linear step")
			}
			if s.stepTooSmall(step, x) {
				res.outcome = localStalled
				return res, nil
			}
			for i := range trial {
				trial[i] = x[i] - step.AtVec(i)
			}
			trialResidual := s.eval(trialR, trial)
			if trialResidual < res.residual {
				small := res.residual-trialResidual <= reductionTolerance*res.residual
				copy(x, trial)
				copy(r, trialR)
				res.residual = trialResidual
				lambda = math.Max(lambda/3, dampingFloor*scale)
				if small && res.residual >= s.tolerance {
					res.outcome = localStalled
					return res, nil
				}
				break
			}
			lambda *= 2
			if lambda > dampingCeiling*scale {
				res.outcome = localStalled
				return res, nil
			}
		}
	}
	if res.residual < s.tolerance {
		res.outcome = localConverged
		return res, nil
	}
	res.outcome = localExhausted
	return res, nil
}

// pseudoInverseNewton looks for a root of f from x0 with Gauss-Newton steps through the
// Moore-Penrose pseudo-inverse of the Jacobian. For an underdetermined system every step is the
// smallest change of x that zeroes the linearised residual, so the search stays near its seed.
func (s *searcher) pseudoInverseNewton(x0 []float64, budget int) (localResult, error) {
	n := len(x0)
	x := append([]float64(nil), x0...)
	r := make([]float64, s.m)
	res := localResult{x: x, residual: s.eval(r, x)}
	if math.IsNaN(res.residual) || math.IsInf(res.residual, 0) {
		return res, NewNoConvergenceError(0, res.residual, "residual is not finite")
	}

	step := mat.NewVecDense(n, nil)
	trial := make([]float64, n)
	trialR := make([]float64, s.m)
	var svd mat.SVD

	for res.iterations < budget {
		if res.residual < s.tolerance {
			res.outcome = localConverged
			return res, nil
		}
		res.iterations++

		if ok := svd.Factorize(s.jacobian(x), mat.SVDThin); !ok {
			return res, NewNoConvergenceError(res.iterations, res.residual, "singular value decomposition failed")
		}
		rank := svd.Rank(pseudoInverseCondition)
		if rank == 0 {
			res.outcome = localStalled
			return res, nil
		}
		svd.SolveVecTo(step, mat.NewVecDense(s.m, r), rank)
		if s.stepTooSmall(step, x) {
			res.outcome = localStalled
			return res, nil
		}

		accepted := false
		frac := 1.
		for h := 0; h < maxLineSearchHalvings; h++ {
			for i := range trial {
				trial[i] = x[i] - frac*step.AtVec(i)
			}
			trialResidual := s.eval(trialR, trial)
			if trialResidual < res.residual {
				small := res.residual-trialResidual <= reductionTolerance*res.residual
				copy(x, trial)
				copy(r, trialR)
				res.residual = trialResidual
				accepted = !small || res.residual < s.tolerance
				break
			}
			frac /= 2
		}
		if !accepted {
			res.outcome = localStalled
			return res, nil
		}
	}
	if res.residual < s.tolerance {
		res.outcome = localConverged
		return res, nil
	}
	res.outcome = localExhausted
	return res, nil
}
