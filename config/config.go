// Package config describes a simulation of a planar chain as a JSON file.
package config

import (
	"fmt"
	"math"

	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/planarik/arm"
	"go.viam.com/planarik/kinematics"
	rutils "go.viam.com/planarik/utils"
)

// Canvas defaults, matching the window of the interactive program.
const (
	DefaultCanvasWidth  = 800
	DefaultCanvasHeight = 600
	DefaultFPS          = 60
	DefaultFrames       = 180
)

// ArmType describes one of the canned simulations.
type ArmType struct {
	Kind     arm.SolverKind
	Links    []float64
	Animated bool
}

// ArmTypes are the simulations that can be named by arm_type. Animated types walk a planned path
// to each clicked target; the others follow the pointer directly every frame.
var ArmTypes = map[string]ArmType{
	"animated_3link":        {Kind: arm.ThreeLinkIterative, Links: []float64{100, 70, 50}, Animated: true},
	"mouse_1link":           {Kind: arm.OneLink, Links: []float64{150}},
	"mouse_2link_fsolve":    {Kind: arm.TwoLinkIterative, Links: []float64{100, 100}},
	"mouse_2link_geometric": {Kind: arm.TwoLinkGeometric, Links: []float64{100, 100}},
	"mouse_3link":           {Kind: arm.ThreeLinkIterative, Links: []float64{100, 70, 50}},
}

// Config is a complete simulation: the chain, how it is solved, what is drawn, and the scripted
// input that drives it.
type Config struct {
	ConfigFilePath string `json:"-"`

	ArmType          string    `json:"arm_type"`
	Links            []float64 `json:"links,omitempty"`
	InitialAnglesDeg []float64 `json:"initial_angles_deg,omitempty"`
	Origin           *Point    `json:"origin,omitempty"`
	StepSize         float64   `json:"step_size,omitempty"`
	Hysteresis       *float64  `json:"hysteresis,omitempty"`
	Elbow            string    `json:"elbow,omitempty"`
	AcceptImprecise  bool      `json:"accept_imprecise,omitempty"`

	Solver  SolverConfig `json:"solver"`
	Canvas  CanvasConfig `json:"canvas"`
	Targets []Target     `json:"targets,omitempty"`
}

// Point is a workspace point in canvas pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// R2 converts p to an r2.Point.
func (p Point) R2() r2.Point { return r2.Point{X: p.X, Y: p.Y} }

// SolverConfig tunes the iterative solver. Zero values mean the solver defaults, except for an
// explicit workspace_tolerance, where 0 demands an exact end-effector.
type SolverConfig struct {
	Tolerance          float64          `json:"tolerance,omitempty"`
	MaxIterations      int              `json:"max_iterations,omitempty"`
	WorkspaceTolerance *float64         `json:"workspace_tolerance,omitempty"`
	RandomSeed         *int64           `json:"random_seed,omitempty"`
	Redundancy         RedundancyConfig `json:"redundancy"`
}

// RedundancyConfig names a redundancy policy and its attributes.
type RedundancyConfig struct {
	Type       string                 `json:"type,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// FixedJointAttributes are the attributes of the fixed_joint policy.
type FixedJointAttributes struct {
	Joint    int     `json:"joint"`
	AngleDeg float64 `json:"angle_deg"`
}

// CanvasConfig sizes and paces the rendered output.
type CanvasConfig struct {
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	FPS       int    `json:"fps,omitempty"`
	Frames    int    `json:"frames,omitempty"`
	OutputDir string `json:"output_dir,omitempty"`
}

// Target is a scripted pointer event: a move for following arms, a click for animated ones.
type Target struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Frame int     `json:"frame"`
}

// ApplyDefaults fills in everything left unset: the links of the arm type, an 800x600 canvas at
// 60 fps, and a base at the center of the canvas.
func (c *Config) ApplyDefaults() {
	if at, ok := ArmTypes[c.ArmType]; ok && len(c.Links) == 0 {
		c.Links = append([]float64(nil), at.Links...)
	}
	if c.Canvas.Width == 0 {
		c.Canvas.Width = DefaultCanvasWidth
	}
	if c.Canvas.Height == 0 {
		c.Canvas.Height = DefaultCanvasHeight
	}
	if c.Canvas.FPS == 0 {
		c.Canvas.FPS = DefaultFPS
	}
	if c.Canvas.Frames == 0 {
		c.Canvas.Frames = DefaultFrames
	}
	if c.Origin == nil {
		c.Origin = &Point{X: float64(c.Canvas.Width) / 2, Y: float64(c.Canvas.Height) / 2}
	}
}

// Validate returns every problem with the config at once.
func (c *Config) Validate(path string) error {
	at, ok := ArmTypes[c.ArmType]
	if c.ArmType == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "arm_type")
	}
	if !ok {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown arm_type %q", c.ArmType))
	}

	var errs error
	if len(c.Links) == 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path, "links"))
	} else if len(c.Links) != at.Kind.Links() {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("arm_type %s needs %d links, got %d", c.ArmType, at.Kind.Links(), len(c.Links))))
	}
	for i, l := range c.Links {
		if !(l > 0) || math.IsInf(l, 0) {
			errs = multierr.Append(errs, utils.NewConfigValidationError(fmt.Sprintf("%slinks.%d", join(path), i),
				errors.Errorf("link length must be positive, got %v", l)))
		}
	}
	if c.InitialAnglesDeg != nil && len(c.InitialAnglesDeg) != len(c.Links) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("initial_angles_deg has %d angles for %d links", len(c.InitialAnglesDeg), len(c.Links))))
	}
	if !rutils.IsFinite(c.InitialAnglesDeg...) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("initial_angles_deg must be finite")))
	}
	if c.Origin != nil && !rutils.IsFinite(c.Origin.X, c.Origin.Y) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("origin must be finite")))
	}
	if c.StepSize < 0 || math.IsNaN(c.StepSize) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.Errorf("step_size must not be negative, got %v", c.StepSize)))
	}
	if c.Hysteresis != nil && !(*c.Hysteresis >= 0) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.Errorf("hysteresis must not be negative, got %v", *c.Hysteresis)))
	}
	if _, err := kinematics.ParseElbowPolicy(c.Elbow); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, err))
	}
	errs = multierr.Append(errs, c.Solver.Validate(join(path)+"solver", len(c.Links)))
	errs = multierr.Append(errs, c.Canvas.Validate(join(path)+"canvas"))
	for i, t := range c.Targets {
		if !rutils.IsFinite(t.X, t.Y) || t.Frame < 0 {
			errs = multierr.Append(errs, utils.NewConfigValidationError(fmt.Sprintf("%stargets.%d", join(path), i),
				errors.Errorf("target (%v, %v) at frame %d is invalid", t.X, t.Y, t.Frame)))
		}
	}
	return errs
}

// join turns a validation path into a prefix for a nested field.
func join(path string) string {
	if path == "" {
		return ""
	}
	return path + "."
}

// Validate checks the solver settings for a chain of dof joints.
func (sc *SolverConfig) Validate(path string, dof int) error {
	var errs error
	if sc.Tolerance < 0 || math.IsNaN(sc.Tolerance) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.Errorf("tolerance must not be negative, got %v", sc.Tolerance)))
	}
	if sc.MaxIterations < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.Errorf("max_iterations must not be negative, got %d", sc.MaxIterations)))
	}
	if sc.WorkspaceTolerance != nil && !(*sc.WorkspaceTolerance >= 0) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("workspace_tolerance must not be negative, got %v", *sc.WorkspaceTolerance)))
	}
	policy, err := sc.Redundancy.Policy()
	if err != nil {
		return multierr.Append(errs, utils.NewConfigValidationError(join(path)+"redundancy", err))
	}
	if err := kinematics.ValidateRedundancyPolicy(policy, dof); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(join(path)+"redundancy", err))
	}
	return errs
}

// Validate checks the canvas after defaults have been applied.
func (cc *CanvasConfig) Validate(path string) error {
	if cc.Width < 0 || cc.Height < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("canvas size %dx%d must not be negative", cc.Width, cc.Height))
	}
	if cc.FPS < 0 || cc.Frames < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("fps %d and frames %d must not be negative", cc.FPS, cc.Frames))
	}
	return nil
}

// Policy builds the redundancy policy named by the config. An empty type means the iterative
// solver default.
func (rc *RedundancyConfig) Policy() (kinematics.RedundancyPolicy, error) {
	switch rc.Type {
	case "":
		return nil, nil
	case "placeholder":
		return kinematics.PlaceholderPolicy{}, nil
	case "minimum_norm":
		return kinematics.MinimumNormPolicy{}, nil
	case "minimum_travel":
		return kinematics.MinimumTravelPolicy{}, nil
	case "fixed_joint":
		var attrs FixedJointAttributes
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:     "json",
			Result:      &attrs,
			ErrorUnused: true,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(rc.Attributes); err != nil {
			return nil, errors.Wrap(err, "decoding fixed_joint attributes")
		}
		return kinematics.FixedJointPolicy{Joint: attrs.Joint, Angle: rutils.DegToRad(attrs.AngleDeg)}, nil
	}
	return nil, errors.Errorf("unknown redundancy type %q", rc.Type)
}

// ChainOptions turns the config into options for arm.NewChain. The config must be valid.
func (c *Config) ChainOptions() ([]arm.Option, error) {
	at, ok := ArmTypes[c.ArmType]
	if !ok {
		return nil, errors.Errorf("unknown arm_type %q", c.ArmType)
	}
	elbow, err := kinematics.ParseElbowPolicy(c.Elbow)
	if err != nil {
		return nil, err
	}
	policy, err := c.Solver.Redundancy.Policy()
	if err != nil {
		return nil, err
	}

	opts := []arm.Option{
		arm.WithSolverKind(at.Kind),
		arm.WithElbowPolicy(elbow),
		arm.WithAcceptImprecise(c.AcceptImprecise),
	}
	if c.Origin != nil {
		opts = append(opts, arm.WithOrigin(c.Origin.R2()))
	}
	if c.InitialAnglesDeg != nil {
		opts = append(opts, arm.WithInitialAngles(rutils.DegsToRads(c.InitialAnglesDeg)))
	}
	if c.StepSize > 0 {
		opts = append(opts, arm.WithStepSize(c.StepSize))
	}
	if c.Hysteresis != nil {
		opts = append(opts, arm.WithHysteresis(*c.Hysteresis))
	}
	if c.Solver.WorkspaceTolerance != nil {
		opts = append(opts, arm.WithWorkspaceTolerance(*c.Solver.WorkspaceTolerance))
	}
	if policy != nil {
		opts = append(opts, arm.WithRedundancyPolicy(policy))
	}

	var iterOpts []kinematics.IterativeOption
	if c.Solver.Tolerance > 0 {
		iterOpts = append(iterOpts, kinematics.WithTolerance(c.Solver.Tolerance))
	}
	if c.Solver.MaxIterations > 0 {
		iterOpts = append(iterOpts, kinematics.WithMaxIterations(c.Solver.MaxIterations))
	}
	if c.Solver.RandomSeed != nil {
		iterOpts = append(iterOpts, kinematics.WithRandomSeed(*c.Solver.RandomSeed))
	}
	if len(iterOpts) > 0 {
		opts = append(opts, arm.WithIterativeOptions(iterOpts...))
	}
	return opts, nil
}
