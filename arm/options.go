package arm

import (
	"github.com/golang/geo/r2"

	"go.viam.com/planarik/kinematics"
	"go.viam.com/planarik/motionplan"
)

const (
	// DefaultHysteresis is how far, in workspace units, a new target must be from the current one
	// before the chain re-plans.
	DefaultHysteresis = 5.
	// DefaultWorkspaceTolerance is how far a solution's end-effector may land from its waypoint.
	DefaultWorkspaceTolerance = 1.
)

type options struct {
	kind               *SolverKind
	initialAngles      []float64
	origin             r2.Point
	stepSize           float64
	hysteresis         float64
	workspaceTolerance float64
	elbow              kinematics.ElbowPolicy
	redundancy         kinematics.RedundancyPolicy
	acceptImprecise    bool
	iterative          []kinematics.IterativeOption
}

func defaultOptions() options {
	return options{
		stepSize:           motionplan.DefaultStepSize,
		hysteresis:         DefaultHysteresis,
		workspaceTolerance: DefaultWorkspaceTolerance,
		elbow:              kinematics.ElbowUp,
	}
}

// Option configures a Chain.
type Option func(*options)

// WithSolverKind overrides the solver picked by DefaultSolverKind.
func WithSolverKind(kind SolverKind) Option {
	return func(o *options) { o.kind = &kind }
}

// WithInitialAngles sets the starting pose, in radians.
func WithInitialAngles(angles []float64) Option {
	return func(o *options) { o.initialAngles = append([]float64(nil), angles...) }
}

// WithOrigin places the base of the chain in the workspace.
func WithOrigin(origin r2.Point) Option {
	return func(o *options) { o.origin = origin }
}

// WithStepSize sets the spacing of planned waypoints.
func WithStepSize(step float64) Option {
	return func(o *options) { o.stepSize = step }
}

// WithHysteresis sets how far a new target must move before the chain re-plans.
func WithHysteresis(h float64) Option {
	return func(o *options) { o.hysteresis = h }
}

// WithWorkspaceTolerance sets how far a verified end-effector may be from its waypoint.
func WithWorkspaceTolerance(tolerance float64) Option {
	return func(o *options) { o.workspaceTolerance = tolerance }
}

// WithElbowPolicy selects the branch of the closed form two-link solution.
func WithElbowPolicy(policy kinematics.ElbowPolicy) Option {
	return func(o *options) { o.elbow = policy }
}

// WithRedundancyPolicy selects how a three-link chain resolves its extra joint.
func WithRedundancyPolicy(policy kinematics.RedundancyPolicy) Option {
	return func(o *options) { o.redundancy = policy }
}

// WithAcceptImprecise makes the chain apply solutions that miss their waypoint by more than the
// workspace tolerance instead of abandoning the path.
func WithAcceptImprecise(accept bool) Option {
	return func(o *options) { o.acceptImprecise = accept }
}

// WithIterativeOptions passes options through to the iterative solver.
func WithIterativeOptions(opts ...kinematics.IterativeOption) Option {
	return func(o *options) { o.iterative = append(o.iterative, opts...) }
}
