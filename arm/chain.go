// Package arm holds the state of a planar chain and moves it toward a target one waypoint per tick.
package arm

import (
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/planarik/kinematics"
	"go.viam.com/planarik/logging"
	"go.viam.com/planarik/motionplan"
	"go.viam.com/planarik/utils"
)

// State is where a chain is in following its path.
type State int

const (
	// Idle means there is no path left to follow.
	Idle State = iota
	// Animating means waypoints remain to be consumed.
	Animating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Animating:
		return "animating"
	}
	return "unknown"
}

// TickResult is the pose of a chain after a tick. Err is the failure of this tick, if any; the
// pose is then unchanged.
type TickResult struct {
	Positions []r2.Point
	Angles    []float64
	Err       error
	State     State
}

// A Chain is a planar serial chain of links with a current pose and target. A Chain is not safe
// for concurrent use.
type Chain struct {
	lengths   []float64
	angles    []float64
	positions []r2.Point
	target    r2.Point
	path      *motionplan.Path
	state     State
	lastErr   error

	solver Solver
	opts   options
	logger logging.Logger
}

// NewChain returns an idle chain with the given link lengths, posed at the initial angles (zero
// unless set). The target starts at the base.
func NewChain(lengths []float64, logger logging.Logger, opts ...Option) (*Chain, error) {
	if err := kinematics.ValidateLengths(lengths); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = logging.NewBlankLogger("chain")
	}

	n := len(lengths)
	var kind SolverKind
	if o.kind != nil {
		kind = *o.kind
	} else {
		var err error
		if kind, err = DefaultSolverKind(n); err != nil {
			return nil, err
		}
	}
	if !utils.IsFinite(o.origin.X, o.origin.Y) {
		return nil, kinematics.NewInvalidConfigurationError("origin (%v, %v) is not finite", o.origin.X, o.origin.Y)
	}
	if !(o.hysteresis >= 0) || !(o.workspaceTolerance >= 0) || math.IsNaN(o.stepSize) {
		return nil, kinematics.NewInvalidConfigurationError("bad chain settings: hysteresis %v, workspace tolerance %v, step %v",
			o.hysteresis, o.workspaceTolerance, o.stepSize)
	}
	angles := make([]float64, n)
	if o.initialAngles != nil {
		if len(o.initialAngles) != n {
			return nil, kinematics.NewIncorrectDoFError(len(o.initialAngles), n)
		}
		if !utils.IsFinite(o.initialAngles...) {
			return nil, kinematics.NewInvalidConfigurationError("initial angles %v are not finite", o.initialAngles)
		}
		copy(angles, o.initialAngles)
	}

	lengths = append([]float64(nil), lengths...)
	solver, err := newSolver(kind, lengths, logger, o)
	if err != nil {
		return nil, err
	}
	positions, err := kinematics.ForwardKinematics(lengths, angles, o.origin)
	if err != nil {
		return nil, err
	}
	return &Chain{
		lengths:   lengths,
		angles:    angles,
		positions: positions,
		target:    o.origin,
		path:      motionplan.NewPath(nil),
		state:     Idle,
		solver:    solver,
		opts:      o,
		logger:    logger,
	}, nil
}

// SetTarget moves the target to p. A target within the hysteresis of the current one is
// ignored. Otherwise any waypoints left are discarded and a new path is planned from the
// current end-effector.
func (c *Chain) SetTarget(p r2.Point) error {
	if !utils.IsFinite(p.X, p.Y) {
		return kinematics.NewInvalidConfigurationError("target (%v, %v) is not finite", p.X, p.Y)
	}
	if p.Sub(c.target).Norm() <= c.opts.hysteresis {
		return nil
	}
	if !c.path.Empty() {
		c.logger.Debugw("target moved, replacing path", "discarded", c.path.Len(), "target", p)
	}
	c.target = p
	c.path = motionplan.NewPath(motionplan.PlanPath(c.EndEffector(), p, c.opts.stepSize))
	if c.path.Empty() {
		c.setState(Idle)
	} else {
		c.setState(Animating)
	}
	return nil
}

// Tick consumes the next waypoint and moves the chain onto it. A waypoint that cannot be
// solved, or whose solution does not verify, abandons the rest of the path and leaves the
// chain where it was.
func (c *Chain) Tick() TickResult {
	waypoint, ok := c.path.Pop()
	if !ok {
		c.lastErr = nil
		c.setState(Idle)
		return c.result(nil)
	}
	if err := c.moveTo(waypoint); err != nil {
		c.logger.Warnw("abandoning path", "waypoint", waypoint, "remaining", c.path.Len(), "error", err)
		c.path.Clear()
		c.setState(Idle)
		return c.result(err)
	}
	if c.path.Empty() {
		c.setState(Idle)
	}
	return c.result(nil)
}

// Follow solves for p directly, without a path, as a mouse-follow display does each frame. Any
// planned path is dropped. Failures leave the chain where it was.
func (c *Chain) Follow(p r2.Point) TickResult {
	if !utils.IsFinite(p.X, p.Y) {
		c.lastErr = kinematics.NewInvalidConfigurationError("target (%v, %v) is not finite", p.X, p.Y)
		return c.result(c.lastErr)
	}
	c.target = p
	c.path.Clear()
	c.setState(Idle)
	return c.result(c.moveTo(p))
}

// moveTo solves for a workspace point and applies the solution if it verifies.
func (c *Chain) moveTo(p r2.Point) error {
	rel := p.Sub(c.opts.origin)
	angles, err := c.solver.Solve(rel, c.angles)
	if err == nil {
		err = c.verify(angles, rel)
	}
	c.lastErr = err
	if err != nil {
		return err
	}
	positions, err := kinematics.ForwardKinematics(c.lengths, angles, c.opts.origin)
	if err != nil {
		c.lastErr = err
		return err
	}
	c.angles = angles
	c.positions = positions
	return nil
}

// verify checks with forward kinematics that angles put the end-effector where the solver was
// asked to.
func (c *Chain) verify(angles []float64, rel r2.Point) error {
	if !utils.IsFinite(angles...) {
		return kinematics.NewNoConvergenceError(0, math.NaN(), "solver returned non-finite angles")
	}
	ee, err := kinematics.EndEffector(c.lengths, angles)
	if err != nil {
		return err
	}
	want := rel
	if c.solver.Kind() == OneLink {
		if rel.Norm() == 0 {
			return nil
		}
		want = rel.Normalize().Mul(c.lengths[0])
	}
	miss := ee.Sub(want).Norm()
	if miss <= c.opts.workspaceTolerance {
		return nil
	}
	if c.opts.acceptImprecise {
		c.logger.Warnw("applying imprecise solution", "target", rel, "miss", miss)
		return nil
	}
	return kinematics.NewImpreciseSolutionError(rel, miss, c.opts.workspaceTolerance)
}

func (c *Chain) setState(s State) {
	if s != c.state {
		c.logger.Debugw("chain state", "from", c.state.String(), "to", s.String())
	}
	c.state = s
}

func (c *Chain) result(err error) TickResult {
	return TickResult{
		Positions: c.Positions(),
		Angles:    c.Angles(),
		Err:       err,
		State:     c.state,
	}
}

// State reports whether the chain has waypoints left.
func (c *Chain) State() State { return c.state }

// Angles returns a copy of the joint angles in radians.
func (c *Chain) Angles() []float64 {
	return append([]float64(nil), c.angles...)
}

// AnglesDeg returns the joint angles in degrees, normalized to (-180, 180].
func (c *Chain) AnglesDeg() []float64 {
	degs := utils.RadsToDegs(c.angles)
	for i, d := range degs {
		degs[i] = utils.NormalizeDeg(d)
	}
	return degs
}

// Positions returns a copy of the workspace position of every joint, end-effector last.
func (c *Chain) Positions() []r2.Point {
	return append([]r2.Point(nil), c.positions...)
}

// EndEffector is the workspace position of the tip of the last link.
func (c *Chain) EndEffector() r2.Point {
	return c.positions[len(c.positions)-1]
}

// Origin is the workspace position of the chain base.
func (c *Chain) Origin() r2.Point { return c.opts.origin }

// Target is the most recent accepted target.
func (c *Chain) Target() r2.Point { return c.target }

// Lengths returns a copy of the link lengths.
func (c *Chain) Lengths() []float64 {
	return append([]float64(nil), c.lengths...)
}

// SolverKind is the solver the chain uses.
func (c *Chain) SolverKind() SolverKind { return c.solver.Kind() }

// Reach returns the inner and outer radius of the annulus the end-effector can reach.
func (c *Chain) Reach() (minReach, maxReach float64) {
	return kinematics.Reach(c.lengths)
}

// PendingWaypoints returns a copy of the waypoints not yet consumed.
func (c *Chain) PendingWaypoints() []r2.Point { return c.path.Remaining() }

// LastError is the error of the most recent tick or follow, nil if it succeeded or had no
// waypoint to solve.
func (c *Chain) LastError() error { return c.lastErr }
