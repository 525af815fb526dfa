package ctrvekf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// BatchGroundTruth computes the error of a given estimate from a known batch of states and measurements.
type BatchGroundTruth struct {
	states       []State
	measurements []*mat.VecDense
}

// NewBatchGroundTruth initializes a new batch ground truth.
func NewBatchGroundTruth(states []State, measurements []*mat.VecDense) *BatchGroundTruth {
	return &BatchGroundTruth{states, measurements}
}

// Len returns the number of steps of this ground truth.
func (t *BatchGroundTruth) Len() int {
	return len(t.states)
}

// State returns the true state at index k.
func (t *BatchGroundTruth) State(k int) State {
	return t.states[k]
}

// Error returns an ErrorEstimate after comparing the provided state and measurements with the ground truths at index k.
// The heading error is wrapped within (-π, π].
func (t *BatchGroundTruth) Error(k int, est Estimate) ErrorEstimate {
	estState := est.State()
	if estState.Len() != StateSize {
		panic(fmt.Errorf("estimated state has %d components instead of %d (k=%d)", estState.Len(), StateSize, k))
	}
	dx := make([]float64, StateSize)
	floats.SubTo(dx, estState.RawVector().Data, t.states[k].Slice())
	dx[IdxPsi] = WrapAngle(dx[IdxPsi])

	estMeas := est.Measurement()
	dz := mat.NewVecDense(estMeas.Len(), nil)
	if t.measurements != nil {
		trueMeas := t.measurements[k]
		if estMeas.Len() != trueMeas.Len() {
			panic(fmt.Errorf("ground truth measurement size different from estimated measurement size (k=%d)", k))
		}
		dz.SubVec(estMeas, trueMeas)
	}
	return ErrorEstimate{
		state:      mat.NewVecDense(StateSize, dx),
		meas:       dz,
		innovation: est.Innovation(),
		covar:      est.Covariance(),
		predCovar:  est.PredCovariance(),
	}
}

// ErrorEstimate implements the Estimate interface and is used to show the error of an estimate.
type ErrorEstimate struct {
	state, meas, innovation *mat.VecDense
	covar, predCovar        mat.Symmetric
}

// IsWithinNσ returns whether the state error is within the N*σ bounds of the covariance.
func (e ErrorEstimate) IsWithinNσ(N float64) bool {
	for i := 0; i < e.state.Len(); i++ {
		nσ := N * math.Sqrt(e.covar.At(i, i))
		if e.state.AtVec(i) > nσ || e.state.AtVec(i) < -nσ {
			return false
		}
	}
	return true
}

// State returns the state error.
func (e ErrorEstimate) State() *mat.VecDense {
	return e.state
}

// Measurement returns the measurement error.
func (e ErrorEstimate) Measurement() *mat.VecDense {
	return e.meas
}

// Innovation implements the Estimate interface.
func (e ErrorEstimate) Innovation() *mat.VecDense {
	return e.innovation
}

// Covariance implements the Estimate interface.
func (e ErrorEstimate) Covariance() mat.Symmetric {
	return e.covar
}

// PredCovariance implements the Estimate interface.
func (e ErrorEstimate) PredCovariance() mat.Symmetric {
	return e.predCovar
}

// PositionError returns the Euclidean distance between the estimated and true positions.
func (e ErrorEstimate) PositionError() float64 {
	return floats.Norm(e.state.RawVector().Data[IdxX:IdxPsi], 2)
}

func (e ErrorEstimate) String() string {
	state := mat.Formatted(e.State(), mat.Prefix("  "))
	meas := mat.Formatted(e.Measurement(), mat.Prefix("  "))
	covar := mat.Formatted(e.Covariance(), mat.Prefix("  "))
	return fmt.Sprintf("{\ndx=%v\ndz=%v\nP=%v\n}", state, meas, covar)
}
