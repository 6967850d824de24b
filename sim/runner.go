package sim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/planarik/arm"
	"go.viam.com/planarik/config"
	"go.viam.com/planarik/logging"
)

// Stats summarizes a run.
type Stats struct {
	Frames    int
	Failures  int
	LastError error
	// AnglesDeg holds the joint angles after every frame.
	AnglesDeg [][]float64
}

// A Runner is the frame loop of a simulation: it feeds scripted input to a driver, advances it,
// and draws every frame at a fixed rate.
type Runner struct {
	chain     *arm.Chain
	driver    Driver
	script    *Script
	canvas    *ImageCanvas
	clock     clock.Clock
	fps       int
	frames    int
	outputDir string
	logger    logging.Logger

	stats Stats
}

type runnerOptions struct {
	clock         clock.Clock
	fps           int
	frames        int
	width, height int
	outputDir     string
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerOptions)

// WithClock paces the runner with clk instead of the wall clock.
func WithClock(clk clock.Clock) RunnerOption {
	return func(o *runnerOptions) { o.clock = clk }
}

// WithFPS sets the frame rate.
func WithFPS(fps int) RunnerOption {
	return func(o *runnerOptions) { o.fps = fps }
}

// WithFrames sets how many frames Run draws.
func WithFrames(frames int) RunnerOption {
	return func(o *runnerOptions) { o.frames = frames }
}

// WithCanvasSize sets the size of the rendered frames.
func WithCanvasSize(width, height int) RunnerOption {
	return func(o *runnerOptions) { o.width, o.height = width, height }
}

// WithOutputDir makes the runner write every frame to dir as a PNG.
func WithOutputDir(dir string) RunnerOption {
	return func(o *runnerOptions) { o.outputDir = dir }
}

// NewRunner returns a runner that drives chain through driver with the inputs of script.
func NewRunner(chain *arm.Chain, driver Driver, script *Script, logger logging.Logger, opts ...RunnerOption) (*Runner, error) {
	o := runnerOptions{
		clock:  clock.New(),
		fps:    config.DefaultFPS,
		frames: config.DefaultFrames,
		width:  config.DefaultCanvasWidth,
		height: config.DefaultCanvasHeight,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if chain == nil || driver == nil {
		return nil, errors.New("runner needs a chain and a driver")
	}
	if o.fps <= 0 || o.frames < 0 || o.width <= 0 || o.height <= 0 {
		return nil, errors.Errorf("bad runner settings: %d fps, %d frames, %dx%d canvas", o.fps, o.frames, o.width, o.height)
	}
	if script == nil {
		script = NewScript(nil)
	}
	if logger == nil {
		logger = logging.NewBlankLogger("runner")
	}
	return &Runner{
		chain:     chain,
		driver:    driver,
		script:    script,
		canvas:    NewImageCanvas(o.width, o.height),
		clock:     o.clock,
		fps:       o.fps,
		frames:    o.frames,
		outputDir: o.outputDir,
		logger:    logger,
	}, nil
}

// NewFromConfig builds the chain, driver, script and runner described by cfg. cfg must have had
// defaults applied and been validated. opts override the settings taken from cfg.
func NewFromConfig(cfg *config.Config, logger logging.Logger, opts ...RunnerOption) (*Runner, error) {
	if logger == nil {
		logger = logging.NewBlankLogger("sim")
	}
	chainOpts, err := cfg.ChainOptions()
	if err != nil {
		return nil, err
	}
	chain, err := arm.NewChain(cfg.Links, logger.Sublogger("chain"), chainOpts...)
	if err != nil {
		return nil, err
	}
	animated := config.ArmTypes[cfg.ArmType].Animated
	mode := Follow
	if animated {
		mode = Animated
	}
	driver, err := NewDriver(chain, mode, logger.Sublogger("driver"))
	if err != nil {
		return nil, err
	}
	runnerOpts := append([]RunnerOption{
		WithFPS(cfg.Canvas.FPS),
		WithFrames(cfg.Canvas.Frames),
		WithCanvasSize(cfg.Canvas.Width, cfg.Canvas.Height),
		WithOutputDir(cfg.Canvas.OutputDir),
	}, opts...)
	return NewRunner(chain, driver, ScriptFromTargets(cfg.Targets, animated), logger, runnerOpts...)
}

// Step runs one frame: scripted input, one kinematics update, and a redraw. A failed update is
// counted and logged, and the chain keeps its pose; only drawing and saving errors are returned.
func (r *Runner) Step(frame int) error {
	for _, in := range r.script.At(frame) {
		r.driver.HandleInput(in)
	}
	if err := r.driver.UpdateKinematics(); err != nil {
		r.stats.Failures++
		r.stats.LastError = err
		r.logger.Debugw("frame kept previous pose", "frame", frame, "error", err)
	}
	r.stats.Frames++
	r.stats.AnglesDeg = append(r.stats.AnglesDeg, r.chain.AnglesDeg())

	if err := r.driver.Draw(r.canvas); err != nil {
		return errors.Wrapf(err, "drawing frame %d", frame)
	}
	if r.outputDir == "" {
		return nil
	}
	path := filepath.Join(r.outputDir, fmt.Sprintf("frame_%05d.png", frame))
	return errors.Wrapf(r.canvas.SavePNG(path), "saving frame %d", frame)
}

// Run draws the configured number of frames, one per tick of the clock. It stops early when ctx
// is done.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	ticker := r.clock.Ticker(time.Second / time.Duration(r.fps))
	defer ticker.Stop()
	return r.loop(ctx, ticker.C)
}

// RunUnpaced is Run without waiting on the clock between frames.
func (r *Runner) RunUnpaced(ctx context.Context) (Stats, error) {
	return r.loop(ctx, nil)
}

func (r *Runner) loop(ctx context.Context, tick <-chan time.Time) (Stats, error) {
	if r.outputDir != "" {
		if err := os.MkdirAll(r.outputDir, 0o750); err != nil {
			return r.Stats(), err
		}
	}
	r.logger.Infow("starting simulation", "frames", r.frames, "fps", r.fps, "solver", r.chain.SolverKind().String())

	for frame := 0; frame < r.frames; frame++ {
		if tick == nil {
			if err := ctx.Err(); err != nil {
				return r.Stats(), err
			}
		} else {
			select {
			case <-ctx.Done():
				return r.Stats(), ctx.Err()
			case <-tick:
			}
		}
		if err := r.Step(frame); err != nil {
			return r.Stats(), err
		}
	}
	stats := r.Stats()
	r.logger.Infow("simulation done", "frames", stats.Frames, "failures", stats.Failures)
	return stats, nil
}

// Stats returns a copy of the statistics so far.
func (r *Runner) Stats() Stats {
	s := r.stats
	s.AnglesDeg = append([][]float64(nil), r.stats.AnglesDeg...)
	return s
}

// Chain is the chain being simulated.
func (r *Runner) Chain() *arm.Chain { return r.chain }

// Canvas is the canvas holding the last drawn frame.
func (r *Runner) Canvas() *ImageCanvas { return r.canvas }

// FPS is the frame rate of the runner.
func (r *Runner) FPS() int { return r.fps }
