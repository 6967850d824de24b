package sim

import (
	"sort"

	"github.com/golang/geo/r2"
	"github.com/samber/lo"

	"go.viam.com/planarik/config"
)

// InputKind is the kind of a pointer event.
type InputKind int

const (
	// PointerMove moves the pointer without pressing.
	PointerMove InputKind = iota
	// PointerClick presses at a point.
	PointerClick
)

func (k InputKind) String() string {
	switch k {
	case PointerMove:
		return "move"
	case PointerClick:
		return "click"
	}
	return "unknown"
}

// Input is one pointer event, in canvas coordinates.
type Input struct {
	Kind  InputKind
	Point r2.Point
}

// Event schedules an input for a frame.
type Event struct {
	Frame int
	Input Input
}

// Script replays scheduled inputs frame by frame in place of a pointer device.
type Script struct {
	byFrame map[int][]Input
	last    int
}

// NewScript returns a script of the given events. Events on the same frame are delivered in the
// order given.
func NewScript(events []Event) *Script {
	sorted := append([]Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Frame < sorted[j].Frame })

	s := &Script{byFrame: map[int][]Input{}, last: -1}
	for frame, group := range lo.GroupBy(sorted, func(e Event) int { return e.Frame }) {
		s.byFrame[frame] = lo.Map(group, func(e Event, _ int) Input { return e.Input })
		if frame > s.last {
			s.last = frame
		}
	}
	return s
}

// ScriptFromTargets turns configured targets into clicks for animated simulations and pointer
// moves for following ones.
func ScriptFromTargets(targets []config.Target, animated bool) *Script {
	kind := PointerMove
	if animated {
		kind = PointerClick
	}
	return NewScript(lo.Map(targets, func(t config.Target, _ int) Event {
		return Event{Frame: t.Frame, Input: Input{Kind: kind, Point: r2.Point{X: t.X, Y: t.Y}}}
	}))
}

// At returns the inputs scheduled for frame.
func (s *Script) At(frame int) []Input {
	return s.byFrame[frame]
}

// LastFrame is the frame of the last scheduled input, or -1 for an empty script.
func (s *Script) LastFrame() int {
	return s.last
}
