// Package motionplan turns a move between two workspace points into evenly spaced waypoints
// that a chain can follow one per tick.
package motionplan

import (
	"math"

	"github.com/golang/geo/r2"
)

// DefaultStepSize is the waypoint spacing, in workspace units, used when none is given.
const DefaultStepSize = 1.

// PlanPath returns waypoints from source to destination spaced about step apart. The first
// waypoint is source and the last is destination exactly. A step that is not positive means
// DefaultStepSize. Coincident endpoints produce no waypoints.
func PlanPath(source, destination r2.Point, step float64) []r2.Point {
	if !(step > 0) || math.IsInf(step, 0) {
		step = DefaultStepSize
	}
	delta := destination.Sub(source)
	distance := delta.Norm()
	if distance == 0 || math.IsNaN(distance) {
		return nil
	}
	steps := int(math.Max(1, math.Floor(distance/step)))

	points := make([]r2.Point, 0, steps+1)
	points = append(points, source)
	for i := 1; i < steps; i++ {
		points = append(points, source.Add(delta.Mul(float64(i)/float64(steps))))
	}
	// Appended rather than interpolated so the path ends on destination bit for bit.
	return append(points, destination)
}

// Path is a queue of waypoints consumed from the front.
type Path struct {
	points []r2.Point
}

// NewPath returns a path over a copy of points.
func NewPath(points []r2.Point) *Path {
	return &Path{points: append([]r2.Point(nil), points...)}
}

// Pop removes and returns the next waypoint. ok is false when the path is empty.
func (p *Path) Pop() (r2.Point, bool) {
	if len(p.points) == 0 {
		return r2.Point{}, false
	}
	next := p.points[0]
	p.points = p.points[1:]
	return next, true
}

// Len is the number of waypoints left.
func (p *Path) Len() int {
	return len(p.points)
}

// Empty reports whether every waypoint has been consumed.
func (p *Path) Empty() bool {
	return len(p.points) == 0
}

// Clear drops the waypoints that are left.
func (p *Path) Clear() {
	p.points = nil
}

// Remaining returns a copy of the waypoints that are left.
func (p *Path) Remaining() []r2.Point {
	return append([]r2.Point(nil), p.points...)
}
