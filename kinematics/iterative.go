package kinematics

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r2"

	"go.viam.com/planarik/logging"
	"go.viam.com/planarik/utils"
)

const (
	defaultTolerance          = 1e-6
	defaultMaxIterations      = 1000
	defaultWorkspaceTolerance = 1.
	defaultRandomSeed         = 1

	// How much to mutate a joint of the seed when a search gets stuck.
	jointMutation = 0.05
	// Random seeds tried after every joint has been mutated both ways.
	randomRestarts = 4
)

type iterativeOptions struct {
	tolerance          float64
	maxIterations      int
	workspaceTolerance float64
	policy             RedundancyPolicy
	logger             logging.Logger
	randomSeed         int64
}

// IterativeOption configures SolveIterative.
type IterativeOption func(*iterativeOptions)

// WithTolerance sets the residual norm below which a search has converged.
func WithTolerance(tolerance float64) IterativeOption {
	return func(o *iterativeOptions) { o.tolerance = tolerance }
}

// WithMaxIterations bounds the total iterations spent across all seeds.
func WithMaxIterations(n int) IterativeOption {
	return func(o *iterativeOptions) { o.maxIterations = n }
}

// WithWorkspaceTolerance sets how far, in workspace units, the end-effector of a returned
// solution may be from the target before the solution is flagged imprecise.
func WithWorkspaceTolerance(tolerance float64) IterativeOption {
	return func(o *iterativeOptions) { o.workspaceTolerance = tolerance }
}

// WithPolicy sets how redundant chains are resolved. The default is PlaceholderPolicy.
func WithPolicy(policy RedundancyPolicy) IterativeOption {
	return func(o *iterativeOptions) { o.policy = policy }
}

// WithLogger sets the logger that restarts and imprecise solutions are reported to.
func WithLogger(logger logging.Logger) IterativeOption {
	return func(o *iterativeOptions) { o.logger = logger }
}

// WithRandomSeed seeds the generator used for random restarts.
func WithRandomSeed(seed int64) IterativeOption {
	return func(o *iterativeOptions) { o.randomSeed = seed }
}

// IterativeResult is a solution of SolveIterative.
type IterativeResult struct {
	// Angles are radians, normalized to (-π, π].
	Angles []float64
	// Residual is the distance between the end-effector at Angles and the target.
	Residual   float64
	Iterations int
	// Imprecise is set when Residual exceeds the workspace tolerance.
	Imprecise bool
}

// AnglesDeg returns the solution in degrees, normalized to (-180, 180].
func (r *IterativeResult) AnglesDeg() []float64 {
	degs := utils.RadsToDegs(r.Angles)
	for i, d := range degs {
		degs[i] = utils.NormalizeDeg(d)
	}
	return degs
}

// SolveIterative numerically finds joint angles, in radians, that put the end-effector of the
// chain on target, starting from initialGuess (all zeros when nil). Targets are relative to
// the base of the chain.
//
// When a search stalls away from a root, it restarts from the initial guess with one joint
// mutated, cycling through every joint in both directions, and then from random seeds. If every
// seed stalls, the closest configuration found is returned together with an error wrapping
// ErrImpreciseSolution, unless it is within the workspace tolerance. Running out of iterations
// or a numerically singular step fails with ErrNoConvergence.
func SolveIterative(lengths []float64, target r2.Point, initialGuess []float64, opts ...IterativeOption) (*IterativeResult, error) {
	o := iterativeOptions{
		tolerance:          defaultTolerance,
		maxIterations:      defaultMaxIterations,
		workspaceTolerance: defaultWorkspaceTolerance,
		policy:             PlaceholderPolicy{},
		randomSeed:         defaultRandomSeed,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewBlankLogger("kinematics")
	}

	if err := ValidateLengths(lengths); err != nil {
		return nil, err
	}
	if !(o.tolerance > 0) || o.maxIterations < 1 || !(o.workspaceTolerance >= 0) {
		return nil, NewInvalidConfigurationError("bad solver settings: tolerance %v, max iterations %d, workspace tolerance %v",
			o.tolerance, o.maxIterations, o.workspaceTolerance)
	}
	if !utils.IsFinite(target.X, target.Y) {
		return nil, NewInvalidConfigurationError("target (%v, %v) is not finite", target.X, target.Y)
	}
	n := len(lengths)
	seed := make([]float64, n)
	if initialGuess != nil {
		if len(initialGuess) != n {
			return nil, NewIncorrectDoFError(len(initialGuess), n)
		}
		if !utils.IsFinite(initialGuess...) {
			return nil, NewInvalidConfigurationError("initial guess %v is not finite", initialGuess)
		}
		copy(seed, initialGuess)
	}

	policy := o.policy
	if policy == nil || n <= 2 {
		policy = PlaceholderPolicy{}
	}
	if err := policy.validate(n); err != nil {
		return nil, err
	}

	p := &problem{lengths: lengths, target: target, initial: seed, tolerance: o.tolerance}
	rng := rand.New(rand.NewSource(o.randomSeed))
	var best *localResult
	used := 0
	for attempt := 0; used < o.maxIterations; attempt++ {
		start, ok := restartSeed(seed, attempt, rng)
		if !ok {
			break
		}
		res, err := policy.search(p, start, o.maxIterations-used)
		used += res.iterations
		if err != nil {
			return nil, err
		}
		switch res.outcome {
		case localConverged:
			return finishIterative(p, res, used, o)
		case localExhausted:
			return nil, NewNoConvergenceError(used, res.residual, "iteration budget exhausted")
		}
		o.logger.Debugw("search stalled, restarting", "attempt", attempt, "residual", res.residual, "policy", policy.String())
		if best == nil || res.residual < best.residual {
			best = &res
		}
	}
	if best == nil {
		return nil, NewNoConvergenceError(used, math.Inf(1), "iteration budget exhausted")
	}
	return finishIterative(p, *best, used, o)
}

// restartSeed returns the seed for the given attempt: the initial guess, then the initial guess
// with each joint mutated by ±jointMutation, then random configurations.
func restartSeed(initial []float64, attempt int, rng *rand.Rand) ([]float64, bool) {
	n := len(initial)
	seed := append([]float64(nil), initial...)
	switch {
	case attempt == 0:
		return seed, true
	case attempt <= 2*n:
		joint := (attempt - 1) / 2
		if attempt%2 == 1 {
			seed[joint] += jointMutation
		} else {
			seed[joint] -= jointMutation
		}
		return seed, true
	case attempt <= 2*n+randomRestarts:
		for i := range seed {
			seed[i] = (2*rng.Float64() - 1) * math.Pi
		}
		return seed, true
	}
	return nil, false
}

// finishIterative normalizes the angles of a search result and verifies them with forward kinematics.
func finishIterative(p *problem, res localResult, used int, o iterativeOptions) (*IterativeResult, error) {
	angles := make([]float64, len(res.x))
	for i, a := range res.x {
		angles[i] = utils.NormalizeRad(a)
	}
	miss := endEffector(p.lengths, angles).Sub(p.target).Norm()
	out := &IterativeResult{
		Angles:     angles,
		Residual:   miss,
		Iterations: used,
		Imprecise:  miss > o.workspaceTolerance,
	}
	if out.Imprecise {
		o.logger.Warnw("imprecise inverse kinematics solution",
			"target", p.target, "miss", miss, "iterations", used, "outcome", res.outcome.String())
		return out, NewImpreciseSolutionError(p.target, miss, o.workspaceTolerance)
	}
	return out, nil
}
