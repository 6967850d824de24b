package sim

import (
	"context"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/planarik/arm"
	"go.viam.com/planarik/config"
	"go.viam.com/planarik/kinematics"
	"go.viam.com/planarik/logging"
)

var center = r2.Point{X: 400, Y: 300}

type recordingCanvas struct {
	clears  int
	lines   [][2]r2.Point
	circles []r2.Point
	radii   []float64
	texts   []string
}

func (rc *recordingCanvas) Clear(color.Color) { rc.clears++ }

func (rc *recordingCanvas) Line(a, b r2.Point, _ float64, _ color.Color) {
	rc.lines = append(rc.lines, [2]r2.Point{a, b})
}

func (rc *recordingCanvas) Circle(p r2.Point, radius float64, _ color.Color, _ bool) {
	rc.circles = append(rc.circles, p)
	rc.radii = append(rc.radii, radius)
}

func (rc *recordingCanvas) Text(s string, _ r2.Point, _ color.Color) { rc.texts = append(rc.texts, s) }

func newChain(t *testing.T, lengths []float64, opts ...arm.Option) *arm.Chain {
	t.Helper()
	c, err := arm.NewChain(lengths, logging.NewTestLogger(t), append([]arm.Option{arm.WithOrigin(center)}, opts...)...)
	test.That(t, err, test.ShouldBeNil)
	return c
}

func TestScript(t *testing.T) {
	move := func(x float64) Input { return Input{Kind: PointerMove, Point: r2.Point{X: x}} }
	s := NewScript([]Event{
		{Frame: 5, Input: move(1)},
		{Frame: 2, Input: move(2)},
		{Frame: 5, Input: move(3)},
	})
	test.That(t, s.LastFrame(), test.ShouldEqual, 5)
	test.That(t, s.At(0), test.ShouldBeEmpty)
	test.That(t, s.At(2), test.ShouldResemble, []Input{move(2)})
	test.That(t, s.At(5), test.ShouldResemble, []Input{move(1), move(3)})
	test.That(t, NewScript(nil).LastFrame(), test.ShouldEqual, -1)

	targets := []config.Target{{X: 1, Y: 2, Frame: 3}}
	test.That(t, ScriptFromTargets(targets, true).At(3), test.ShouldResemble,
		[]Input{{Kind: PointerClick, Point: r2.Point{X: 1, Y: 2}}})
	test.That(t, ScriptFromTargets(targets, false).At(3)[0].Kind, test.ShouldEqual, PointerMove)
	test.That(t, PointerClick.String(), test.ShouldEqual, "click")
}

func TestFollowDriver(t *testing.T) {
	chain := newChain(t, []float64{100, 100})
	d, err := NewDriver(chain, Follow, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	// Nothing to follow yet.
	test.That(t, d.UpdateKinematics(), test.ShouldBeNil)
	test.That(t, chain.Angles(), test.ShouldResemble, []float64{0, 0})

	d.HandleInput(Input{Kind: PointerMove, Point: r2.Point{X: 550, Y: 300}})
	test.That(t, d.UpdateKinematics(), test.ShouldBeNil)
	test.That(t, chain.EndEffector().Sub(r2.Point{X: 550, Y: 300}).Norm(), test.ShouldBeLessThan, 1e-9)
	test.That(t, chain.AnglesDeg()[1], test.ShouldAlmostEqual, 82.819, 1e-3)
	test.That(t, chain.State(), test.ShouldEqual, arm.Idle)

	before := chain.Angles()
	d.HandleInput(Input{Kind: PointerMove, Point: r2.Point{X: 900, Y: 300}})
	err = d.UpdateKinematics()
	test.That(t, errors.Is(err, kinematics.ErrUnreachable), test.ShouldBeTrue)
	test.That(t, chain.Angles(), test.ShouldResemble, before)

	// The failed target is not retried until the pointer moves again.
	test.That(t, d.UpdateKinematics(), test.ShouldBeNil)
}

func TestAnimatedDriver(t *testing.T) {
	chain := newChain(t, []float64{100, 100})
	d, err := NewDriver(chain, Animated, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	// Moves are only drawn; clicks set the target.
	d.HandleInput(Input{Kind: PointerMove, Point: r2.Point{X: 550, Y: 300}})
	test.That(t, chain.State(), test.ShouldEqual, arm.Idle)
	test.That(t, d.UpdateKinematics(), test.ShouldBeNil)
	test.That(t, chain.Angles(), test.ShouldResemble, []float64{0, 0})

	d.HandleInput(Input{Kind: PointerClick, Point: r2.Point{X: 550, Y: 300}})
	test.That(t, chain.State(), test.ShouldEqual, arm.Animating)
	frames := 0
	for chain.State() == arm.Animating {
		test.That(t, frames, test.ShouldBeLessThan, 100)
		test.That(t, d.UpdateKinematics(), test.ShouldBeNil)
		frames++
	}
	test.That(t, frames, test.ShouldEqual, 51)
	test.That(t, chain.EndEffector().Sub(r2.Point{X: 550, Y: 300}).Norm(), test.ShouldBeLessThan, 1e-9)

	// Idle chains do not move.
	test.That(t, d.UpdateKinematics(), test.ShouldBeNil)
}

func TestNewDriver(t *testing.T) {
	_, err := NewDriver(nil, Follow, nil)
	test.That(t, err, test.ShouldNotBeNil)

	for _, tc := range []struct {
		lengths []float64
		kind    arm.SolverKind
	}{
		{[]float64{150}, arm.OneLink},
		{[]float64{100, 100}, arm.TwoLinkGeometric},
		{[]float64{100, 100}, arm.TwoLinkIterative},
		{[]float64{100, 70, 50}, arm.ThreeLinkIterative},
	} {
		d, err := NewDriver(newChain(t, tc.lengths, arm.WithSolverKind(tc.kind)), Follow, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, d, test.ShouldNotBeNil)
	}
}

func TestDriverDraw(t *testing.T) {
	t.Run("one link", func(t *testing.T) {
		d, err := NewDriver(newChain(t, []float64{150}), Follow, nil)
		test.That(t, err, test.ShouldBeNil)
		var rc recordingCanvas
		test.That(t, d.Draw(&rc), test.ShouldBeNil)
		test.That(t, rc.clears, test.ShouldEqual, 1)
		test.That(t, len(rc.lines), test.ShouldEqual, 1)
		// The link starts at the base, pointing along +x.
		test.That(t, rc.lines[0][0], test.ShouldResemble, center)
		test.That(t, rc.lines[0][1].X, test.ShouldAlmostEqual, 550)
		test.That(t, rc.radii, test.ShouldContain, 150.)
		test.That(t, rc.texts[0], test.ShouldStartWith, "one_link")
	})

	t.Run("two link geometric", func(t *testing.T) {
		chain := newChain(t, []float64{100, 100})
		d, err := NewDriver(chain, Follow, nil)
		test.That(t, err, test.ShouldBeNil)
		d.HandleInput(Input{Kind: PointerMove, Point: r2.Point{X: 550, Y: 300}})
		test.That(t, d.UpdateKinematics(), test.ShouldBeNil)

		var rc recordingCanvas
		test.That(t, d.Draw(&rc), test.ShouldBeNil)
		// Two links and the two links of the other elbow branch, which ends on the same point.
		test.That(t, len(rc.lines), test.ShouldEqual, 4)
		test.That(t, rc.lines[0][0], test.ShouldResemble, center)
		test.That(t, rc.lines[2][0], test.ShouldResemble, center)
		ghostElbow, ghostTip := rc.lines[3][0], rc.lines[3][1]
		test.That(t, ghostTip.Sub(r2.Point{X: 550, Y: 300}).Norm(), test.ShouldBeLessThan, 1e-6)
		positions := chain.Positions()
		test.That(t, rc.lines[0][1], test.ShouldResemble, positions[0])
		test.That(t, ghostElbow.X, test.ShouldAlmostEqual, positions[0].X, 1e-6)
		test.That(t, ghostElbow.Y, test.ShouldAlmostEqual, 2*300-positions[0].Y, 1e-6)
		// Pointer marker.
		test.That(t, rc.circles, test.ShouldContain, r2.Point{X: 550, Y: 300})
	})

	t.Run("two link iterative", func(t *testing.T) {
		d, err := NewDriver(newChain(t, []float64{100, 100}, arm.WithSolverKind(arm.TwoLinkIterative)), Follow, nil)
		test.That(t, err, test.ShouldBeNil)
		d.HandleInput(Input{Kind: PointerMove, Point: r2.Point{X: 900, Y: 300}})
		test.That(t, d.UpdateKinematics(), test.ShouldNotBeNil)
		var rc recordingCanvas
		test.That(t, d.Draw(&rc), test.ShouldBeNil)
		test.That(t, len(rc.lines), test.ShouldEqual, 2)
		test.That(t, rc.texts[0], test.ShouldContainSubstring, "no solution")
	})

	t.Run("three link", func(t *testing.T) {
		d, err := NewDriver(newChain(t, []float64{100, 70, 50}), Animated, nil)
		test.That(t, err, test.ShouldBeNil)
		d.HandleInput(Input{Kind: PointerClick, Point: r2.Point{X: 550, Y: 300}})
		var rc recordingCanvas
		test.That(t, d.Draw(&rc), test.ShouldBeNil)
		// Three links from the base plus the 70 segments of the path from (620, 300).
		test.That(t, len(rc.lines), test.ShouldEqual, 73)
		test.That(t, rc.lines[0][0], test.ShouldResemble, center)
		test.That(t, rc.lines[2][1].X, test.ShouldAlmostEqual, 620)
		test.That(t, rc.texts[0], test.ShouldContainSubstring, "animating")
	})
}

func geometricConfig(t *testing.T, targets ...config.Target) *config.Config {
	t.Helper()
	cfg := &config.Config{ArmType: "mouse_2link_geometric", Targets: targets}
	cfg.ApplyDefaults()
	test.That(t, cfg.Validate(""), test.ShouldBeNil)
	return cfg
}

func TestRunnerStep(t *testing.T) {
	cfg := geometricConfig(t,
		config.Target{X: 550, Y: 300, Frame: 2},
		config.Target{X: 900, Y: 300, Frame: 3},
	)
	r, err := NewFromConfig(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.FPS(), test.ShouldEqual, config.DefaultFPS)

	for frame := 0; frame < 5; frame++ {
		test.That(t, r.Step(frame), test.ShouldBeNil)
	}
	stats := r.Stats()
	test.That(t, stats.Frames, test.ShouldEqual, 5)
	test.That(t, stats.Failures, test.ShouldEqual, 1)
	test.That(t, errors.Is(stats.LastError, kinematics.ErrUnreachable), test.ShouldBeTrue)
	test.That(t, len(stats.AnglesDeg), test.ShouldEqual, 5)
	test.That(t, stats.AnglesDeg[1], test.ShouldResemble, []float64{0, 0})
	test.That(t, stats.AnglesDeg[2][1], test.ShouldAlmostEqual, 82.819, 1e-3)
	// The unreachable target on frame 3 keeps the pose of frame 2.
	test.That(t, stats.AnglesDeg[3], test.ShouldResemble, stats.AnglesDeg[2])
	test.That(t, stats.AnglesDeg[4], test.ShouldResemble, stats.AnglesDeg[2])

	test.That(t, r.Canvas().Image().Bounds().Dx(), test.ShouldEqual, config.DefaultCanvasWidth)
}

func TestNewRunnerValidation(t *testing.T) {
	chain := newChain(t, []float64{100, 100})
	d, err := NewDriver(chain, Follow, nil)
	test.That(t, err, test.ShouldBeNil)

	_, err = NewRunner(nil, d, nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewRunner(chain, d, nil, nil, WithFPS(0))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewRunner(chain, d, nil, nil, WithCanvasSize(0, 10))
	test.That(t, err, test.ShouldNotBeNil)
	r, err := NewRunner(chain, d, nil, nil, WithFrames(0))
	test.That(t, err, test.ShouldBeNil)
	stats, err := r.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stats.Frames, test.ShouldEqual, 0)
}

func runWithMock(t *testing.T, r *Runner, mock *clock.Mock, step time.Duration) (Stats, error) {
	t.Helper()
	var stats Stats
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		stats, runErr = r.Run(context.Background())
	}()
	for {
		select {
		case <-done:
			return stats, runErr
		default:
			mock.Add(step)
		}
	}
}

func TestRunnerRun(t *testing.T) {
	mock := clock.NewMock()
	dir := filepath.Join(t.TempDir(), "frames")
	cfg := &config.Config{
		ArmType: "animated_3link",
		Canvas:  config.CanvasConfig{Width: 200, Height: 150, FPS: 10, Frames: 6, OutputDir: dir},
		Targets: []config.Target{{X: 150, Y: 75, Frame: 0}},
	}
	cfg.ApplyDefaults()
	test.That(t, cfg.Validate(""), test.ShouldBeNil)

	logger, logs := logging.NewObservedTestLogger(t)
	r, err := NewFromConfig(cfg, logger, WithClock(mock))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Chain().SolverKind(), test.ShouldEqual, arm.ThreeLinkIterative)

	stats, err := runWithMock(t, r, mock, 100*time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stats.Frames, test.ShouldEqual, 6)
	test.That(t, logs.FilterMessage("simulation done").Len(), test.ShouldEqual, 1)

	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(entries), test.ShouldEqual, 6)
	test.That(t, entries[0].Name(), test.ShouldEqual, "frame_00000.png")
}

func TestRunnerRunCanceled(t *testing.T) {
	chain := newChain(t, []float64{100, 100})
	d, err := NewDriver(chain, Follow, nil)
	test.That(t, err, test.ShouldBeNil)
	r, err := NewRunner(chain, d, nil, logging.NewTestLogger(t), WithClock(clock.NewMock()))
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := r.Run(ctx)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, stats.Frames, test.ShouldEqual, 0)
}

func TestImageCanvas(t *testing.T) {
	ic := NewImageCanvas(50, 50)
	ic.Clear(color.White)
	ic.Line(r2.Point{X: 0, Y: 25}, r2.Point{X: 50, Y: 25}, 4, color.Black)
	ic.Circle(r2.Point{X: 10, Y: 10}, 3, color.Black, false)
	ic.Text("θ", r2.Point{X: 30, Y: 30}, color.Black)

	r, _, _, _ := ic.Image().At(25, 25).RGBA()
	test.That(t, r, test.ShouldBeLessThan, 0x8000)
	r, _, _, _ = ic.Image().At(45, 5).RGBA()
	test.That(t, r, test.ShouldEqual, 0xffff)

	path := filepath.Join(t.TempDir(), "frame.png")
	test.That(t, ic.SavePNG(path), test.ShouldBeNil)
	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}

func TestPalette(t *testing.T) {
	ra, ga, ba, _ := defaultPalette.link(0, 3).RGBA()
	rb, gb, bb, _ := defaultPalette.link(2, 3).RGBA()
	test.That(t, [3]uint32{ra, ga, ba}, test.ShouldNotResemble, [3]uint32{rb, gb, bb})
	test.That(t, defaultPalette.link(0, 1), test.ShouldResemble, color.Color(defaultPalette.linkFrom))
}

func TestAnglePlot(t *testing.T) {
	history := make([][]float64, 30)
	for i := range history {
		history[i] = []float64{float64(i), 90 * math.Sin(float64(i)/5)}
	}
	p, err := AnglePlot(history, 10)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Title.Text, test.ShouldEqual, "Joint angles")

	path := filepath.Join(t.TempDir(), "angles.png")
	test.That(t, SaveAnglePlot(history, 10, path), test.ShouldBeNil)
	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)

	_, err = AnglePlot(nil, 10)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = AnglePlot(history, 0)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = AnglePlot([][]float64{{1, 2}, {1}}, 10)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, strings.Contains(err.Error(), "frame 1"), test.ShouldBeTrue)
}

func TestRunnerRunUnpaced(t *testing.T) {
	cfg := geometricConfig(t, config.Target{X: 550, Y: 300, Frame: 1})
	cfg.Canvas.Frames = 3
	// The mock clock never ticks, so a paced run would block.
	r, err := NewFromConfig(cfg, logging.NewTestLogger(t), WithClock(clock.NewMock()))
	test.That(t, err, test.ShouldBeNil)
	stats, err := r.RunUnpaced(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stats.Frames, test.ShouldEqual, 3)
	test.That(t, r.Chain().EndEffector().Sub(r2.Point{X: 550, Y: 300}).Norm(), test.ShouldBeLessThan, 1e-9)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.RunUnpaced(ctx)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestSummarizeJoints(t *testing.T) {
	summaries, err := SummarizeJoints([][]float64{{170, 0}, {-170, 10}, {-160, 10}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(summaries), test.ShouldEqual, 2)

	// Crossing ±180 counts as the short way round.
	first := summaries[0]
	test.That(t, first.Joint, test.ShouldEqual, 1)
	test.That(t, first.Min, test.ShouldEqual, -170)
	test.That(t, first.Max, test.ShouldEqual, 170)
	test.That(t, first.Mean, test.ShouldAlmostEqual, -160./3)
	test.That(t, first.Travel, test.ShouldAlmostEqual, 30)
	test.That(t, summaries[1].Travel, test.ShouldAlmostEqual, 10)

	single, err := SummarizeJoints([][]float64{{45}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, single[0].Travel, test.ShouldEqual, 0)
	test.That(t, single[0].Mean, test.ShouldEqual, 45)

	_, err = SummarizeJoints(nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = SummarizeJoints([][]float64{{1, 2}, {1}})
	test.That(t, err, test.ShouldNotBeNil)
}
