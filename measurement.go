package ctrvekf

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Indices of the measurement vector.
const (
	MeasX = iota
	MeasY
	MeasV
	MeasPsiDot
	// MeasurementSize is the number of components of a measurement.
	MeasurementSize
)

// Sample is one time-ordered sensor record. The position is only meaningful
// when HasPositionFix is set, velocity and yaw rate are read at every step.
type Sample struct {
	PositionX, PositionY float64
	Velocity             float64
	YawRate              float64
	HasPositionFix       bool
}

// validate returns ErrInvalidSample if any of the values read for this sample is not finite.
func (s Sample) validate() error {
	if !allFinite(s.Velocity, s.YawRate) {
		return ErrInvalidSample
	}
	if s.HasPositionFix && !allFinite(s.PositionX, s.PositionY) {
		return ErrInvalidSample
	}
	return nil
}

// MeasurementModel is the linear projection h from the state to (x, y, v, ψ̇).
type MeasurementModel struct {
	YawRateThreshold float64
	YawRateEpsilon   float64
}

// Observe returns h(s) with the position rows zeroed when there is no position fix.
func (m MeasurementModel) Observe(s State, hasFix bool) *mat.VecDense {
	hx := mat.NewVecDense(MeasurementSize, []float64{s.X, s.Y, s.V, s.PsiDot})
	if !hasFix {
		hx.SetVec(MeasX, 0)
		hx.SetVec(MeasY, 0)
	}
	return hx
}

// Measurement returns the measurement vector z of the provided sample, with the
// same masking as Observe. A measured yaw rate below the threshold is read as
// the epsilon, like the state after a straight prediction.
func (m MeasurementModel) Measurement(smpl Sample) *mat.VecDense {
	yawRate := smpl.YawRate
	if math.Abs(yawRate) < m.YawRateThreshold {
		yawRate = m.YawRateEpsilon
	}
	z := mat.NewVecDense(MeasurementSize, []float64{smpl.PositionX, smpl.PositionY, smpl.Velocity, yawRate})
	if !smpl.HasPositionFix {
		z.SetVec(MeasX, 0)
		z.SetVec(MeasY, 0)
	}
	return z
}

// Jacobian returns Jh: the selection of (x, y, v, ψ̇) with the x and y rows
// zeroed without a position fix. Its dimensions never change.
func (m MeasurementModel) Jacobian(hasFix bool) *mat.Dense {
	H := mat.NewDense(MeasurementSize, StateSize, nil)
	if hasFix {
		H.Set(MeasX, IdxX, 1)
		H.Set(MeasY, IdxY, 1)
	}
	H.Set(MeasV, IdxV, 1)
	H.Set(MeasPsiDot, IdxPsiDot, 1)
	return H
}
