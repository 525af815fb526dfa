package ctrvekf

import "gonum.org/v1/gonum/mat"

// Filter defines a CTRV Kalman filter fed one sample per time step.
type Filter interface {
	Update(Sample) (*EKFEstimate, error)
	GetNoise() Noise
	Step() int
	Reset()
	String() string
}

// Estimate is returned from Update() and from the ground truth comparisons.
type Estimate interface {
	IsWithinNσ(N float64) bool     // IsWithinNσ returns whether the estimation is within the N*σ bounds.
	State() *mat.VecDense          // Returns \hat{x}_{k+1}^{+}
	Measurement() *mat.VecDense    // Returns the measurement z_{k+1} used in the correction
	Innovation() *mat.VecDense     // Returns z_{k+1} - h(\hat{x}_{k+1}^{-})
	Covariance() mat.Symmetric     // Return P_{k+1}^{+}
	PredCovariance() mat.Symmetric // Return P_{k+1}^{-}
	String() string                // Must implement the stringer interface.
}
