package cli

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/planarik/arm"
	"go.viam.com/planarik/config"
	"go.viam.com/planarik/kinematics"
	"go.viam.com/planarik/logging"
	"go.viam.com/planarik/sim"
	"go.viam.com/planarik/utils"
)

// SimulateAction is the corresponding Action for 'simulate'.
func SimulateAction(c *cli.Context) error {
	logger := newLogger(c)
	cfg, err := simulationConfig(c, logger)
	if err != nil {
		return err
	}
	runner, err := sim.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}

	var stats sim.Stats
	if c.Bool(realtimeFlag) {
		stats, err = runner.Run(c.Context)
	} else {
		stats, err = runner.RunUnpaced(c.Context)
	}
	if err != nil {
		return errors.Wrap(err, "simulation failed")
	}
	if stats.Failures > 0 {
		warningf(c.App.ErrWriter, "%d of %d frames kept the previous pose, last error: %v",
			stats.Failures, stats.Frames, stats.LastError)
	}
	if path := c.String(plotFlag); path != "" {
		if err := sim.SaveAnglePlot(stats.AnglesDeg, runner.FPS(), path); err != nil {
			return errors.Wrap(err, "could not plot joint angles")
		}
		printf(c.App.Writer, "joint angles plotted to %s", path)
	}

	chain := runner.Chain()
	printf(c.App.Writer, "%s: %d frames, %s solver", cfg.ArmType, stats.Frames, chain.SolverKind())
	printf(c.App.Writer, "%s", poseTable(chain.AnglesDeg(), chain.Origin(), chain.Positions()))
	summaries, err := sim.SummarizeJoints(stats.AnglesDeg)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", travelTable(summaries))
	return nil
}

func travelTable(summaries []sim.JointSummary) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Joint", "Min (deg)", "Max (deg)", "Mean (deg)", "Travel (deg)"})
	for _, s := range summaries {
		t.AppendRow(table.Row{
			s.Joint,
			fmt.Sprintf("%.2f", s.Min),
			fmt.Sprintf("%.2f", s.Max),
			fmt.Sprintf("%.2f", s.Mean),
			fmt.Sprintf("%.2f", s.Travel),
		})
	}
	return t.Render()
}

// simulationConfig assembles a simulation from the config file, the arm type argument and the
// flags, in increasing order of precedence.
func simulationConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String(configFlag); path != "" {
		read, err := config.Read(path, logger)
		if err != nil {
			return nil, err
		}
		cfg = read
	}
	if armType := c.Args().First(); armType != "" && armType != cfg.ArmType {
		if cfg.ArmType != "" {
			// The links of the file belong to another arm type.
			cfg.Links = nil
		}
		cfg.ArmType = armType
	}
	if cfg.ArmType == "" {
		return nil, errors.Errorf("missing arm type, want one of: %s", armTypeNames())
	}
	if c.IsSet(linksFlag) {
		links, err := parseFloats(c.String(linksFlag))
		if err != nil {
			return nil, errors.Wrap(err, "bad links")
		}
		cfg.Links = links
	}
	if c.IsSet(framesFlag) {
		cfg.Canvas.Frames = c.Int(framesFlag)
	}
	if c.IsSet(outFlag) {
		cfg.Canvas.OutputDir = c.String(outFlag)
	}
	cfg.ApplyDefaults()
	if specs := c.StringSlice(targetFlag); len(specs) > 0 {
		targets, err := parseTargets(specs, cfg.Canvas.FPS)
		if err != nil {
			return nil, err
		}
		cfg.Targets = targets
	}
	if err := cfg.Validate(""); err != nil {
		return nil, errors.Wrap(err, "invalid simulation")
	}
	return cfg, nil
}

// SolveAction is the corresponding Action for 'solve'.
func SolveAction(c *cli.Context) error {
	logger := newLogger(c)
	lengths, err := linksFrom(c)
	if err != nil {
		return err
	}
	target, err := parsePoint(c.String(targetFlag))
	if err != nil {
		return errors.Wrap(err, "bad target")
	}

	var kind arm.SolverKind
	if name := c.String(solverFlag); name != "" {
		kind, err = arm.ParseSolverKind(name)
	} else {
		kind, err = arm.DefaultSolverKind(len(lengths))
	}
	if err != nil {
		return err
	}
	elbow, err := kinematics.ParseElbowPolicy(c.String(elbowFlag))
	if err != nil {
		return err
	}
	opts := []arm.Option{
		arm.WithElbowPolicy(elbow),
		arm.WithAcceptImprecise(c.Bool(imprecisionFlag)),
	}
	if name := c.String(policyFlag); name != "" {
		rc := config.RedundancyConfig{Type: name}
		if name == "fixed_joint" {
			rc.Attributes = map[string]interface{}{
				"joint":     c.Int(fixedJointFlag),
				"angle_deg": c.Float64(fixedAngleFlag),
			}
		}
		policy, err := rc.Policy()
		if err != nil {
			return err
		}
		opts = append(opts, arm.WithRedundancyPolicy(policy))
	}
	if c.IsSet(toleranceFlag) {
		opts = append(opts, arm.WithIterativeOptions(kinematics.WithTolerance(c.Float64(toleranceFlag))))
	}
	if c.IsSet(iterationsFlag) {
		opts = append(opts, arm.WithIterativeOptions(kinematics.WithMaxIterations(c.Int(iterationsFlag))))
	}

	solver, err := arm.NewSolver(kind, lengths, logger, opts...)
	if err != nil {
		return err
	}
	current := make([]float64, len(lengths))
	if c.IsSet(seedFlag) {
		seed, err := parseFloats(c.String(seedFlag))
		if err != nil {
			return errors.Wrap(err, "bad seed")
		}
		if len(seed) != len(lengths) {
			return kinematics.NewIncorrectDoFError(len(seed), len(lengths))
		}
		current = utils.DegsToRads(seed)
	}

	angles, err := solver.Solve(target, current)
	if err != nil {
		return errors.Wrapf(err, "could not solve for (%g, %g)", target.X, target.Y)
	}
	positions, err := kinematics.ForwardKinematics(lengths, angles, r2.Point{})
	if err != nil {
		return err
	}
	degs := utils.RadsToDegs(angles)
	for i, d := range degs {
		degs[i] = utils.NormalizeDeg(d)
	}
	miss := positions[len(positions)-1].Sub(target).Norm()
	printf(c.App.Writer, "%s solution for (%g, %g), miss %.6f", solver.Kind(), target.X, target.Y, miss)
	printf(c.App.Writer, "%s", poseTable(degs, r2.Point{}, positions))
	return nil
}

// ForwardKinematicsAction is the corresponding Action for 'fk'.
func ForwardKinematicsAction(c *cli.Context) error {
	lengths, err := linksFrom(c)
	if err != nil {
		return err
	}
	degs, err := parseFloats(c.String(anglesFlag))
	if err != nil {
		return errors.Wrap(err, "bad angles")
	}
	origin, err := parsePoint(c.String(originFlag))
	if err != nil {
		return errors.Wrap(err, "bad origin")
	}
	positions, err := kinematics.ForwardKinematics(lengths, utils.DegsToRads(degs), origin)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", poseTable(degs, origin, positions))
	return nil
}

// WorkspaceAction is the corresponding Action for 'workspace'.
func WorkspaceAction(c *cli.Context) error {
	lengths, err := linksFrom(c)
	if err != nil {
		return err
	}
	minReach, maxReach := kinematics.Reach(lengths)
	solver := "none"
	if kind, err := arm.DefaultSolverKind(len(lengths)); err == nil {
		solver = kind.String()
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Links", "Min reach", "Max reach", "Default solver"})
	t.AppendRow(table.Row{len(lengths), fmt.Sprintf("%.4f", minReach), fmt.Sprintf("%.4f", maxReach), solver})
	printf(c.App.Writer, "%s", t.Render())
	return nil
}

func linksFrom(c *cli.Context) ([]float64, error) {
	if !c.IsSet(linksFlag) {
		return nil, errors.Errorf("--%s is required", linksFlag)
	}
	lengths, err := parseFloats(c.String(linksFlag))
	if err != nil {
		return nil, errors.Wrap(err, "bad links")
	}
	if err := kinematics.ValidateLengths(lengths); err != nil {
		return nil, err
	}
	return lengths, nil
}

// poseTable renders every joint with its angle and position, and the end-effector last.
// positions are the link ends as returned by forward kinematics; joint 1 sits at origin.
func poseTable(degs []float64, origin r2.Point, positions []r2.Point) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Joint", "Angle (deg)", "X", "Y"})
	pts := append([]r2.Point{origin}, positions...)
	for i, p := range pts {
		name, angle := "end-effector", ""
		if i < len(pts)-1 && i < len(degs) {
			name, angle = fmt.Sprintf("joint %d", i+1), fmt.Sprintf("%.4f", degs[i])
		}
		t.AppendRow(table.Row{i, name, angle, fmt.Sprintf("%.4f", p.X), fmt.Sprintf("%.4f", p.Y)})
	}
	return t.Render()
}
