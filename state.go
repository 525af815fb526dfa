package ctrvekf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Indices of the CTRV state vector.
const (
	IdxX = iota
	IdxY
	IdxPsi
	IdxV
	IdxPsiDot
	// StateSize is the number of components of the CTRV state.
	StateSize
)

// State is the CTRV state of the vehicle in a local planar frame.
type State struct {
	X, Y   float64 // Position (m)
	Psi    float64 // Heading (rad), in (-π, π] after each prediction
	V      float64 // Forward speed (m/s)
	PsiDot float64 // Yaw rate (rad/s)
}

// NewStateFromVector returns the State stored in the provided vector.
func NewStateFromVector(v mat.Vector) State {
	if v.Len() != StateSize {
		panic(fmt.Errorf("state vector must have %d components, got %d", StateSize, v.Len()))
	}
	return State{v.AtVec(IdxX), v.AtVec(IdxY), v.AtVec(IdxPsi), v.AtVec(IdxV), v.AtVec(IdxPsiDot)}
}

// Vector returns the state as a vector ordered as (x, y, ψ, v, ψ̇).
func (s State) Vector() *mat.VecDense {
	return mat.NewVecDense(StateSize, s.Slice())
}

// Slice returns the state as a slice ordered as (x, y, ψ, v, ψ̇).
func (s State) Slice() []float64 {
	return []float64{s.X, s.Y, s.Psi, s.V, s.PsiDot}
}

// IsFinite returns whether no component is NaN or Inf.
func (s State) IsFinite() bool {
	return allFinite(s.Slice()...)
}

func (s State) String() string {
	return fmt.Sprintf("{x=%f y=%f ψ=%f v=%f ψ̇=%f}", s.X, s.Y, s.Psi, s.V, s.PsiDot)
}

// WrapAngle returns the provided angle within (-π, π].
func WrapAngle(θ float64) float64 {
	if θ > -math.Pi && θ <= math.Pi {
		return θ
	}
	wrapped := math.Mod(θ+math.Pi, 2*math.Pi)
	if wrapped < 0 {
		wrapped += 2 * math.Pi
	}
	wrapped -= math.Pi
	if wrapped <= -math.Pi {
		wrapped += 2 * math.Pi
	}
	return wrapped
}
