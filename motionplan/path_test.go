package motionplan

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.viam.com/test"
)

func TestPlanPathEndpoints(t *testing.T) {
	cases := []struct {
		src, dst r2.Point
		step     float64
		want     int
	}{
		{r2.Point{X: 0, Y: 0}, r2.Point{X: 10, Y: 0}, 1, 11},
		{r2.Point{X: 400, Y: 300}, r2.Point{X: 433.3, Y: 271.9}, 1, 44},
		{r2.Point{X: 0, Y: 0}, r2.Point{X: 10, Y: 0}, 3, 4},
		{r2.Point{X: 1, Y: 1}, r2.Point{X: 1.5, Y: 1}, 1, 2},
		{r2.Point{X: 0, Y: 0}, r2.Point{X: 0, Y: -7}, 0, 8},
		{r2.Point{X: 0, Y: 0}, r2.Point{X: 0, Y: -7}, -2, 8},
	}
	for _, tc := range cases {
		points := PlanPath(tc.src, tc.dst, tc.step)
		test.That(t, points, test.ShouldHaveLength, tc.want)
		test.That(t, points[0], test.ShouldResemble, tc.src)
		test.That(t, points[len(points)-1], test.ShouldResemble, tc.dst)
	}
}

func TestPlanPathSpacing(t *testing.T) {
	points := PlanPath(r2.Point{}, r2.Point{X: 3, Y: 4}, 1)
	want := []r2.Point{{X: 0, Y: 0}, {X: 0.6, Y: 0.8}, {X: 1.2, Y: 1.6}, {X: 1.8, Y: 2.4}, {X: 2.4, Y: 3.2}, {X: 3, Y: 4}}
	if diff := cmp.Diff(want, points, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("unexpected waypoints (-want +got):\n%s", diff)
	}

	// Interior points lie on the segment, in order.
	points = PlanPath(r2.Point{X: -5, Y: 2}, r2.Point{X: 95, Y: -48}, 2.5)
	for i := 1; i < len(points); i++ {
		test.That(t, points[i].Sub(points[i-1]).Norm(), test.ShouldAlmostEqual, points[1].Sub(points[0]).Norm(), 1e-9)
	}
}

func TestPlanPathDegenerate(t *testing.T) {
	test.That(t, PlanPath(r2.Point{X: 2, Y: 2}, r2.Point{X: 2, Y: 2}, 1), test.ShouldBeEmpty)
	test.That(t, PlanPath(r2.Point{}, r2.Point{X: math.NaN()}, 1), test.ShouldBeEmpty)
}

func TestPathQueue(t *testing.T) {
	src := []r2.Point{{X: 1}, {X: 2}, {X: 3}}
	path := NewPath(src)
	src[0] = r2.Point{X: 100}

	test.That(t, path.Len(), test.ShouldEqual, 3)
	test.That(t, path.Empty(), test.ShouldBeFalse)

	next, ok := path.Pop()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, next, test.ShouldResemble, r2.Point{X: 1})

	remaining := path.Remaining()
	if diff := cmp.Diff([]r2.Point{{X: 2}, {X: 3}}, remaining); diff != "" {
		t.Errorf("unexpected remaining waypoints (-want +got):\n%s", diff)
	}
	remaining[0] = r2.Point{X: -1}
	test.That(t, path.Len(), test.ShouldEqual, 2)

	path.Clear()
	test.That(t, path.Empty(), test.ShouldBeTrue)
	_, ok = path.Pop()
	test.That(t, ok, test.ShouldBeFalse)
}
