package kinematics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/planarik/logging"
	"go.viam.com/planarik/utils"
)

func missOf(t *testing.T, lengths, angles []float64, target r2.Point) float64 {
	t.Helper()
	ee, err := EndEffector(lengths, angles)
	test.That(t, err, test.ShouldBeNil)
	return ee.Sub(target).Norm()
}

func TestSolveIterativeTwoLink(t *testing.T) {
	lengths := []float64{100, 100}
	target := r2.Point{X: 150, Y: 0}
	// The all-zero seed has no gradient toward targets on the x axis; the solver has to mutate it.
	res, err := SolveIterative(lengths, target, nil, WithLogger(logging.NewTestLogger(t)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Imprecise, test.ShouldBeFalse)
	test.That(t, res.Residual, test.ShouldBeLessThan, 1e-6)
	test.That(t, res.Iterations, test.ShouldBeGreaterThan, 0)
	test.That(t, missOf(t, lengths, res.Angles, target), test.ShouldBeLessThan, 1e-6)

	// Same elbow bend as the closed form solution, on one side or the other.
	degs := res.AnglesDeg()
	test.That(t, math.Abs(degs[1]), test.ShouldAlmostEqual, 82.819, 1e-3)
	for _, a := range res.Angles {
		test.That(t, a, test.ShouldBeGreaterThan, -math.Pi)
		test.That(t, a, test.ShouldBeLessThanOrEqualTo, math.Pi)
	}
}

func TestSolveIterativeThreeLinkOrigin(t *testing.T) {
	lengths := []float64{100, 70, 50}
	target := r2.Point{}
	res, err := SolveIterative(lengths, target, []float64{0, 0, 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Residual, test.ShouldBeLessThan, 1)
	test.That(t, missOf(t, lengths, res.Angles, target), test.ShouldBeLessThan, 1)
}

func TestSolveIterativeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, lengths := range [][]float64{{100, 100}, {100, 50}, {100, 70, 50}} {
		for i := 0; i < 10; i++ {
			angles := make([]float64, len(lengths))
			for j := range angles {
				angles[j] = (2*rng.Float64() - 1) * math.Pi
			}
			target, err := EndEffector(lengths, angles)
			test.That(t, err, test.ShouldBeNil)

			res, err := SolveIterative(lengths, target, nil)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, missOf(t, lengths, res.Angles, target), test.ShouldBeLessThan, 1e-6)
		}
	}
}

func TestSolveIterativeUnreachable(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	lengths := []float64{100, 50}
	target := r2.Point{X: 500, Y: 500}
	res, err := SolveIterative(lengths, target, nil, WithLogger(logger))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrImpreciseSolution), test.ShouldBeTrue)
	test.That(t, res, test.ShouldNotBeNil)
	test.That(t, res.Imprecise, test.ShouldBeTrue)

	// Best effort is the chain stretched straight toward the target.
	degs := res.AnglesDeg()
	test.That(t, degs[0], test.ShouldAlmostEqual, 45, 0.1)
	test.That(t, degs[1], test.ShouldAlmostEqual, 0, 0.1)
	test.That(t, res.Residual, test.ShouldAlmostEqual, math.Hypot(500, 500)-150, 1e-3)
	test.That(t, logs.FilterMessage("imprecise inverse kinematics solution").Len(), test.ShouldEqual, 1)
}

func TestSolveIterativeBudget(t *testing.T) {
	_, err := SolveIterative([]float64{100, 100}, r2.Point{X: 0, Y: 150}, nil, WithMaxIterations(1))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrNoConvergence), test.ShouldBeTrue)
}

func TestSolveIterativeValidation(t *testing.T) {
	lengths := []float64{100, 70, 50}
	target := r2.Point{X: 100, Y: 0}

	_, err := SolveIterative(nil, target, nil)
	test.That(t, errors.Is(err, ErrInvalidConfiguration), test.ShouldBeTrue)

	_, err = SolveIterative(lengths, target, []float64{0, 0})
	test.That(t, errors.Is(err, ErrInvalidConfiguration), test.ShouldBeTrue)

	_, err = SolveIterative(lengths, target, []float64{0, math.NaN(), 0})
	test.That(t, errors.Is(err, ErrInvalidConfiguration), test.ShouldBeTrue)

	_, err = SolveIterative(lengths, r2.Point{X: math.Inf(1)}, nil)
	test.That(t, errors.Is(err, ErrInvalidConfiguration), test.ShouldBeTrue)

	_, err = SolveIterative(lengths, target, nil, WithTolerance(0))
	test.That(t, errors.Is(err, ErrInvalidConfiguration), test.ShouldBeTrue)

	_, err = SolveIterative(lengths, target, nil, WithPolicy(FixedJointPolicy{Joint: 3}))
	test.That(t, errors.Is(err, ErrInvalidConfiguration), test.ShouldBeTrue)
}

func TestRedundancyPolicies(t *testing.T) {
	lengths := []float64{100, 70, 50}
	target := r2.Point{X: 120, Y: 80}
	seed := []float64{0.3, 0.3, 0.3}

	policies := []RedundancyPolicy{
		PlaceholderPolicy{},
		FixedJointPolicy{Joint: 2, Angle: 0.5},
		MinimumNormPolicy{},
	}
	for _, policy := range policies {
		t.Run(policy.String(), func(t *testing.T) {
			res, err := SolveIterative(lengths, target, seed, WithPolicy(policy))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, missOf(t, lengths, res.Angles, target), test.ShouldBeLessThan, 1e-6)
		})
	}

	res, err := SolveIterative(lengths, target, seed, WithPolicy(FixedJointPolicy{Joint: 2, Angle: 0.5}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Angles[2], test.ShouldAlmostEqual, 0.5)
}

func TestSolveIterativeDeterministic(t *testing.T) {
	lengths := []float64{100, 70, 50}
	target := r2.Point{X: -150, Y: -30}
	a, err := SolveIterative(lengths, target, nil, WithRandomSeed(3))
	test.That(t, err, test.ShouldBeNil)
	b, err := SolveIterative(lengths, target, nil, WithRandomSeed(3))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Angles, test.ShouldResemble, b.Angles)
	test.That(t, a.Iterations, test.ShouldEqual, b.Iterations)
}

func TestRestartSeed(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	initial := []float64{0.1, 0.2}

	seed, ok := restartSeed(initial, 0, rng)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, seed, test.ShouldResemble, initial)

	a, b := initial[0], initial[1]
	want := [][]float64{
		{a + jointMutation, b},
		{a - jointMutation, b},
		{a, b + jointMutation},
		{a, b - jointMutation},
	}
	for i, w := range want {
		seed, ok = restartSeed(initial, i+1, rng)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, seed, test.ShouldResemble, w)
	}

	for attempt := 5; attempt < 5+randomRestarts; attempt++ {
		seed, ok = restartSeed(initial, attempt, rng)
		test.That(t, ok, test.ShouldBeTrue)
		for _, a := range seed {
			test.That(t, math.Abs(a), test.ShouldBeLessThanOrEqualTo, math.Pi)
		}
	}
	_, ok = restartSeed(initial, 5+randomRestarts, rng)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, initial, test.ShouldResemble, []float64{0.1, 0.2})
}

func TestAnglesDeg(t *testing.T) {
	res := &IterativeResult{Angles: []float64{math.Pi, -math.Pi / 2}}
	degs := res.AnglesDeg()
	test.That(t, degs[0], test.ShouldAlmostEqual, 180)
	test.That(t, degs[1], test.ShouldAlmostEqual, -90)
	test.That(t, utils.NormalizeDeg(degs[0]), test.ShouldEqual, degs[0])
}
