// Package sim runs a chain headlessly: scripted pointer input drives it, frames are drawn onto an
// image canvas, and a clock paces the loop.
package sim

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/planarik/arm"
	"go.viam.com/planarik/kinematics"
	"go.viam.com/planarik/logging"
	"go.viam.com/planarik/utils"
)

// Mode is how a driver turns pointer input into targets.
type Mode int

const (
	// Follow solves for the pointer directly every frame it moves.
	Follow Mode = iota
	// Animated plans a path to each click and walks it one waypoint per frame.
	Animated
)

func (m Mode) String() string {
	if m == Animated {
		return "animated"
	}
	return "follow"
}

// A Driver adapts a chain to a frame loop: it takes the input of a frame, advances the chain, and
// draws it.
type Driver interface {
	HandleInput(in Input)
	UpdateKinematics() error
	Draw(c Canvas) error
}

// NewDriver returns the driver for the topology of chain.
func NewDriver(chain *arm.Chain, mode Mode, logger logging.Logger) (Driver, error) {
	if chain == nil {
		return nil, errors.New("driver needs a chain")
	}
	if logger == nil {
		logger = logging.NewBlankLogger("driver")
	}
	base := baseDriver{chain: chain, mode: mode, colors: defaultPalette, logger: logger}
	switch chain.SolverKind() {
	case arm.OneLink:
		return &oneLinkDriver{base}, nil
	case arm.TwoLinkGeometric:
		return &twoLinkGeometricDriver{base}, nil
	case arm.TwoLinkIterative:
		return &twoLinkIterativeDriver{base}, nil
	case arm.ThreeLinkIterative:
		return &threeLinkDriver{base}, nil
	}
	return nil, kinematics.NewInvalidConfigurationError("no driver for solver %s", chain.SolverKind())
}

type baseDriver struct {
	chain   *arm.Chain
	mode    Mode
	pointer *r2.Point
	moved   bool
	colors  palette
	logger  logging.Logger
}

func (d *baseDriver) HandleInput(in Input) {
	p := in.Point
	d.pointer = &p
	switch {
	case d.mode == Follow:
		d.moved = true
	case in.Kind == PointerClick:
		if err := d.chain.SetTarget(p); err != nil {
			d.logger.Warnw("ignoring click", "point", p, "error", err)
		}
	}
}

// UpdateKinematics advances the chain by one frame. An error means the chain kept its pose.
func (d *baseDriver) UpdateKinematics() error {
	if d.mode == Follow {
		if !d.moved || d.pointer == nil {
			return nil
		}
		d.moved = false
		return d.chain.Follow(*d.pointer).Err
	}
	if d.chain.State() != arm.Animating {
		return nil
	}
	return d.chain.Tick().Err
}

// drawChain draws the links, the joints, and the target marker shared by every topology.
func (d *baseDriver) drawChain(c Canvas) {
	c.Clear(d.colors.background)
	// Positions are link ends; the base comes first.
	pts := append([]r2.Point{d.chain.Origin()}, d.chain.Positions()...)
	n := len(pts) - 1
	for i := 0; i < n; i++ {
		c.Line(pts[i], pts[i+1], 6, d.colors.link(i, n))
	}
	for _, p := range pts[:n] {
		c.Circle(p, 5, d.colors.joint, true)
	}
	c.Circle(pts[n], 3, d.colors.joint, true)
	if d.pointer != nil {
		c.Circle(*d.pointer, 6, d.colors.target, false)
	}
}

func (d *baseDriver) drawLabel(c Canvas, extra string) {
	degs := d.chain.AnglesDeg()
	parts := make([]string, len(degs))
	for i, a := range degs {
		parts[i] = fmt.Sprintf("θ%d=%.1f°", i+1, a)
	}
	label := fmt.Sprintf("%s  %s", d.chain.SolverKind(), strings.Join(parts, " "))
	if extra != "" {
		label += "  " + extra
	}
	c.Text(label, r2.Point{X: 10, Y: 10}, d.colors.text)
}

// oneLinkDriver also draws the circle the link sweeps.
type oneLinkDriver struct {
	baseDriver
}

func (d *oneLinkDriver) Draw(c Canvas) error {
	d.drawChain(c)
	_, maxReach := d.chain.Reach()
	c.Circle(d.chain.Origin(), maxReach, d.colors.reach, false)
	d.drawLabel(c, "")
	return nil
}

// twoLinkGeometricDriver also draws the other elbow branch for the current end-effector.
type twoLinkGeometricDriver struct {
	baseDriver
}

func (d *twoLinkGeometricDriver) Draw(c Canvas) error {
	d.drawChain(c)
	lengths := d.chain.Lengths()
	origin := d.chain.Origin()
	// Rounding can put a fully stretched end-effector just outside the workspace; no ghost then.
	if sols, err := kinematics.SolveTwoLinkGeometric(lengths[0], lengths[1], d.chain.EndEffector().Sub(origin)); err == nil {
		other := sols.ElbowDown
		if sols.Closest(d.chain.AnglesDeg()) == sols.ElbowDown {
			other = sols.ElbowUp
		}
		ghost, err := kinematics.ForwardKinematics(lengths, utils.DegsToRads(other[:]), origin)
		if err != nil {
			return err
		}
		c.Line(origin, ghost[0], 2, d.colors.ghost)
		c.Line(ghost[0], ghost[1], 2, d.colors.ghost)
	}
	d.drawLabel(c, "")
	return nil
}

// twoLinkIterativeDriver also reports the last solver failure.
type twoLinkIterativeDriver struct {
	baseDriver
}

func (d *twoLinkIterativeDriver) Draw(c Canvas) error {
	d.drawChain(c)
	extra := ""
	if err := d.chain.LastError(); err != nil {
		extra = "no solution"
	}
	d.drawLabel(c, extra)
	return nil
}

// threeLinkDriver also draws the waypoints left on the path.
type threeLinkDriver struct {
	baseDriver
}

func (d *threeLinkDriver) Draw(c Canvas) error {
	d.drawChain(c)
	waypoints := d.chain.PendingWaypoints()
	for i := 1; i < len(waypoints); i++ {
		c.Line(waypoints[i-1], waypoints[i], 1, d.colors.path)
	}
	extra := d.chain.State().String()
	if d.chain.LastError() != nil {
		extra += ", no solution"
	}
	d.drawLabel(c, extra)
	return nil
}
