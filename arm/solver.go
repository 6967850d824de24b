package arm

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/planarik/kinematics"
	"go.viam.com/planarik/logging"
	"go.viam.com/planarik/utils"
)

// SolverKind names the inverse kinematics method a chain uses.
type SolverKind int

// The known solver kinds.
const (
	OneLink SolverKind = iota
	TwoLinkGeometric
	TwoLinkIterative
	ThreeLinkIterative
)

var solverKindNames = map[SolverKind]string{
	OneLink:            "one_link",
	TwoLinkGeometric:   "two_link_geometric",
	TwoLinkIterative:   "two_link_iterative",
	ThreeLinkIterative: "three_link_iterative",
}

func (k SolverKind) String() string {
	if name, ok := solverKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Links is the number of links a chain solved by k must have.
func (k SolverKind) Links() int {
	switch k {
	case OneLink:
		return 1
	case TwoLinkGeometric, TwoLinkIterative:
		return 2
	case ThreeLinkIterative:
		return 3
	}
	return 0
}

// ParseSolverKind returns the kind with the given name.
func ParseSolverKind(name string) (SolverKind, error) {
	for kind, n := range solverKindNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, kinematics.NewInvalidConfigurationError("unknown solver kind %q", name)
}

// DefaultSolverKind picks a solver for a chain with n links: the closed form solution for two
// links, and the iterative one for three.
func DefaultSolverKind(n int) (SolverKind, error) {
	switch n {
	case 1:
		return OneLink, nil
	case 2:
		return TwoLinkGeometric, nil
	case 3:
		return ThreeLinkIterative, nil
	}
	return 0, kinematics.NewInvalidConfigurationError("no solver for a chain of %d links", n)
}

// Solver computes joint angles, in radians, that put the end-effector of a chain on a target
// given relative to the chain base. current is the pose the chain is in now.
type Solver interface {
	Kind() SolverKind
	Solve(target r2.Point, current []float64) ([]float64, error)
}

// NewSolver returns the solver of the given kind for a chain with the given lengths.
func NewSolver(kind SolverKind, lengths []float64, logger logging.Logger, opts ...Option) (Solver, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newSolver(kind, lengths, logger, o)
}

func newSolver(kind SolverKind, lengths []float64, logger logging.Logger, o options) (Solver, error) {
	if err := kinematics.ValidateLengths(lengths); err != nil {
		return nil, err
	}
	if want := kind.Links(); want == 0 || want != len(lengths) {
		return nil, kinematics.NewInvalidConfigurationError("solver %s needs %d links, chain has %d", kind, want, len(lengths))
	}
	switch kind {
	case OneLink:
		return &oneLinkSolver{length: lengths[0], logger: logger}, nil
	case TwoLinkGeometric:
		return &geometricSolver{l1: lengths[0], l2: lengths[1], elbow: o.elbow}, nil
	case TwoLinkIterative, ThreeLinkIterative:
		if err := kinematics.ValidateRedundancyPolicy(o.redundancy, len(lengths)); err != nil {
			return nil, err
		}
		iterOpts := append([]kinematics.IterativeOption{
			kinematics.WithWorkspaceTolerance(o.workspaceTolerance),
			kinematics.WithLogger(logger),
		}, o.iterative...)
		if o.redundancy != nil {
			iterOpts = append(iterOpts, kinematics.WithPolicy(o.redundancy))
		}
		return &iterativeSolver{
			kind:            kind,
			lengths:         append([]float64(nil), lengths...),
			opts:            iterOpts,
			acceptImprecise: o.acceptImprecise,
			logger:          logger,
		}, nil
	}
	return nil, kinematics.NewInvalidConfigurationError("unknown solver kind %d", int(kind))
}

// oneLinkSolver points the single link at the target. Targets off the circle the link sweeps
// cannot be reached, only pointed at.
type oneLinkSolver struct {
	length float64
	logger logging.Logger
}

func (s *oneLinkSolver) Kind() SolverKind { return OneLink }

func (s *oneLinkSolver) Solve(target r2.Point, current []float64) ([]float64, error) {
	if target.Norm() == 0 {
		return append([]float64(nil), current...), nil
	}
	if math.Abs(target.Norm()-s.length) > s.length*1e-9 {
		s.logger.Debugw("target is off the reach of a one-link chain, pointing at it", "target", target, "length", s.length)
	}
	return []float64{math.Atan2(target.Y, target.X)}, nil
}

type geometricSolver struct {
	l1, l2 float64
	elbow  kinematics.ElbowPolicy
}

func (s *geometricSolver) Kind() SolverKind { return TwoLinkGeometric }

func (s *geometricSolver) Solve(target r2.Point, current []float64) ([]float64, error) {
	sols, err := kinematics.SolveTwoLinkGeometric(s.l1, s.l2, target)
	if err != nil {
		return nil, err
	}
	chosen := sols.Select(s.elbow, utils.RadsToDegs(current))
	return utils.DegsToRads(chosen[:]), nil
}

type iterativeSolver struct {
	kind            SolverKind
	lengths         []float64
	opts            []kinematics.IterativeOption
	acceptImprecise bool
	logger          logging.Logger
}

func (s *iterativeSolver) Kind() SolverKind { return s.kind }

// Solve seeds the search with the current pose so that consecutive targets give continuous motion.
func (s *iterativeSolver) Solve(target r2.Point, current []float64) ([]float64, error) {
	res, err := kinematics.SolveIterative(s.lengths, target, current, s.opts...)
	if err != nil {
		if s.acceptImprecise && res != nil && errors.Is(err, kinematics.ErrImpreciseSolution) {
			return res.Angles, nil
		}
		return nil, err
	}
	return res.Angles, nil
}
