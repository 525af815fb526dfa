package ctrvekf

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Regime is the branch of the motion model used for a prediction.
type Regime uint8

const (
	// Straight is used when the yaw rate is below the threshold.
	Straight Regime = iota
	// Turning is the closed-form CTRV integration.
	Turning
)

func (r Regime) String() string {
	if r == Straight {
		return "straight"
	}
	return "turning"
}

// MotionModel is the constant turn rate and velocity model g over a fixed time step.
type MotionModel struct {
	DT               float64 // Prediction interval (s)
	YawRateThreshold float64 // Yaw rates below this magnitude are driven straight
	YawRateEpsilon   float64 // Yaw rate used after a straight prediction
}

// Predict returns the state after DT and the regime used to compute it.
func (m MotionModel) Predict(s State) (State, Regime) {
	next := s
	if math.Abs(s.PsiDot) < m.YawRateThreshold {
		next.X = s.X + s.V*m.DT*math.Cos(s.Psi)
		next.Y = s.Y + s.V*m.DT*math.Sin(s.Psi)
		next.Psi = WrapAngle(s.Psi)
		// Never exactly zero, the Jacobian divides by it.
		next.PsiDot = m.YawRateEpsilon
		return next, Straight
	}
	return m.turn(s), Turning
}

// turn is the closed-form CTRV integration over DT, valid for a non-zero yaw rate.
func (m MotionModel) turn(s State) State {
	next := s
	ψNext := s.PsiDot*m.DT + s.Psi
	r := s.V / s.PsiDot
	next.X = s.X + r*(math.Sin(ψNext)-math.Sin(s.Psi))
	next.Y = s.Y + r*(-math.Cos(ψNext)+math.Cos(s.Psi))
	next.Psi = WrapAngle(ψNext)
	return next
}

// Jacobian returns the partial derivatives of the turning branch of g with
// respect to (x, y, ψ, v, ψ̇), evaluated at s. The filter evaluates it at the
// predicted state, whose yaw rate is never zero.
func (m MotionModel) Jacobian(s State) *mat.Dense {
	ψ, v, ω, Δt := s.Psi, s.V, s.PsiDot, m.DT
	sinΔ := math.Sin(ω*Δt+ψ) - math.Sin(ψ)
	cosΔ := -math.Cos(ω*Δt+ψ) + math.Cos(ψ)

	J := mat.NewDense(StateSize, StateSize, nil)
	for i := 0; i < StateSize; i++ {
		J.Set(i, i, 1)
	}
	J.Set(IdxX, IdxPsi, (v/ω)*(math.Cos(ω*Δt+ψ)-math.Cos(ψ)))
	J.Set(IdxX, IdxV, sinΔ/ω)
	J.Set(IdxX, IdxPsiDot, (Δt*v/ω)*math.Cos(ω*Δt+ψ)-(v/(ω*ω))*sinΔ)
	J.Set(IdxY, IdxPsi, (v/ω)*sinΔ)
	J.Set(IdxY, IdxV, cosΔ/ω)
	J.Set(IdxY, IdxPsiDot, (Δt*v/ω)*math.Sin(ω*Δt+ψ)-(v/(ω*ω))*cosΔ)
	J.Set(IdxPsi, IdxPsiDot, Δt)
	return J
}
