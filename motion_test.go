package ctrvekf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"
)

var testMotion = MotionModel{DT: 0.02, YawRateThreshold: 1e-4, YawRateEpsilon: 1e-7}

func TestPredictStraight(t *testing.T) {
	for _, ω := range []float64{0, 5e-5, -9.9e-5} {
		s := State{X: 1, Y: -2, Psi: 0.7, V: 3, PsiDot: ω}
		next, regime := testMotion.Predict(s)
		if regime != Straight {
			t.Fatalf("yaw rate %g: regime %s", ω, regime)
		}
		assert.Equal(t, s.X+s.V*testMotion.DT*math.Cos(s.Psi), next.X)
		assert.Equal(t, s.Y+s.V*testMotion.DT*math.Sin(s.Psi), next.Y)
		assert.Equal(t, s.Psi, next.Psi)
		assert.Equal(t, s.V, next.V)
		assert.Equal(t, testMotion.YawRateEpsilon, next.PsiDot)
	}
}

func TestPredictTurningMatchesIntegration(t *testing.T) {
	m := MotionModel{DT: 0.5, YawRateThreshold: 1e-4, YawRateEpsilon: 1e-7}
	for _, s := range []State{
		{X: 0, Y: 0, Psi: 0, V: 5, PsiDot: 0.5},
		{X: 10, Y: -3, Psi: 2.9, V: 12, PsiDot: -0.8},
		{X: -4, Y: 7, Psi: -1.2, V: 0.5, PsiDot: 2e-4},
	} {
		next, regime := m.Predict(s)
		if regime != Turning {
			t.Fatalf("%s: regime %s", s, regime)
		}
		// Position is the integral of the velocity along the constant turn.
		x := s.X + quad.Fixed(func(τ float64) float64 {
			return s.V * math.Cos(s.Psi+s.PsiDot*τ)
		}, 0, m.DT, 20, nil, 0)
		y := s.Y + quad.Fixed(func(τ float64) float64 {
			return s.V * math.Sin(s.Psi+s.PsiDot*τ)
		}, 0, m.DT, 20, nil, 0)
		assert.InDelta(t, x, next.X, 1e-6, "x of %s", s)
		assert.InDelta(t, y, next.Y, 1e-6, "y of %s", s)
		assert.InDelta(t, WrapAngle(s.Psi+s.PsiDot*m.DT), next.Psi, 1e-12)
		assert.Equal(t, s.V, next.V)
		assert.Equal(t, s.PsiDot, next.PsiDot)
	}
}

func TestPredictHeadingRange(t *testing.T) {
	s := State{V: 5, Psi: 3.1, PsiDot: 2}
	m := MotionModel{DT: 0.1, YawRateThreshold: 1e-4, YawRateEpsilon: 1e-7}
	for k := 0; k < 500; k++ {
		s, _ = m.Predict(s)
		if s.Psi <= -math.Pi || s.Psi > math.Pi {
			t.Fatalf("heading %f out of range at step %d", s.Psi, k)
		}
	}
}

func TestMotionJacobian(t *testing.T) {
	m := MotionModel{DT: 0.5, YawRateThreshold: 1e-4, YawRateEpsilon: 1e-7}
	g := func(y, x []float64) {
		next := m.turn(NewStateFromVector(mat.NewVecDense(StateSize, x)))
		copy(y, next.Slice())
	}
	for _, s := range []State{
		{X: 1, Y: 2, Psi: 0.3, V: 5, PsiDot: 0.4},
		{X: -5, Y: 0, Psi: -2.0, V: 15, PsiDot: -1.1},
	} {
		numerical := mat.NewDense(StateSize, StateSize, nil)
		fd.Jacobian(numerical, g, s.Slice(), &fd.JacobianSettings{Formula: fd.Central})
		analytical := m.Jacobian(s)
		if !mat.EqualApprox(numerical, analytical, 1e-6) {
			t.Fatalf("Jacobian at %s differs:\nnumerical=%v\nanalytical=%v", s, mat.Formatted(numerical, mat.Prefix("  ")), mat.Formatted(analytical, mat.Prefix("  ")))
		}
	}
}

func TestRegimeString(t *testing.T) {
	assert.Equal(t, "straight", Straight.String())
	assert.Equal(t, "turning", Turning.String())
}
