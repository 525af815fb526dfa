package ctrvekf

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Noise allows to handle the noise for a KF.
type Noise interface {
	Process(k int) *mat.VecDense      // Returns the process noise w at step k
	Measurement(k int) *mat.VecDense  // Returns the measurement noise v at step k
	ProcessMatrix() mat.Symmetric     // Returns the process noise matrix Q
	MeasurementMatrix() mat.Symmetric // Returns the measurement noise matrix R
	String() string                   // Stringer interface implementation
}

// ProcessBounds are the physical bounds of the vehicle from which Q is derived.
type ProcessBounds struct {
	MaxAcceleration    float64 `yaml:"max_acceleration"`     // m/s²
	MaxTurnRate        float64 `yaml:"max_turn_rate"`        // rad/s
	MaxYawAcceleration float64 `yaml:"max_yaw_acceleration"` // rad/s²
}

// SensorSigmas are the standard deviations of the sensors from which R is derived.
type SensorSigmas struct {
	GPS     float64 `yaml:"gps"`      // m
	Speed   float64 `yaml:"speed"`    // m/s
	YawRate float64 `yaml:"yaw_rate"` // rad/s
}

// NewProcessNoise returns the diagonal Q for the provided bounds and time step.
func NewProcessNoise(b ProcessBounds, dt float64) *mat.SymDense {
	σxy := 0.5 * b.MaxAcceleration * dt * dt
	σψ := b.MaxTurnRate * dt
	σv := b.MaxAcceleration * dt
	σω := b.MaxYawAcceleration * dt
	return Diagonal(σxy*σxy, σxy*σxy, σψ*σψ, σv*σv, σω*σω)
}

// NewMeasurementNoise returns the diagonal R for the provided sensor deviations.
func NewMeasurementNoise(σ SensorSigmas) *mat.SymDense {
	return Diagonal(σ.GPS*σ.GPS, σ.GPS*σ.GPS, σ.Speed*σ.Speed, σ.YawRate*σ.YawRate)
}

// Noiseless is noiseless and implements the Noise interface.
type Noiseless struct {
	Q, R                         mat.Symmetric
	processSize, measurementSize int
}

// NewNoiseless creates new noiseless Noise from the provided Q and R.
func NewNoiseless(Q, R mat.Symmetric) *Noiseless {
	if Q == nil || R == nil {
		panic("Q and R must be specified")
	}
	rQ, _ := Q.Dims()
	rR, _ := R.Dims()
	return &Noiseless{Q, R, rQ, rR}
}

// Process returns a vector of the correct size.
func (n Noiseless) Process(k int) *mat.VecDense {
	return mat.NewVecDense(n.processSize, nil)
}

// Measurement returns a vector of the correct size.
func (n Noiseless) Measurement(k int) *mat.VecDense {
	return mat.NewVecDense(n.measurementSize, nil)
}

// ProcessMatrix implements the Noise interface.
func (n Noiseless) ProcessMatrix() mat.Symmetric {
	return n.Q
}

// MeasurementMatrix implements the Noise interface.
func (n Noiseless) MeasurementMatrix() mat.Symmetric {
	return n.R
}

// String implements the Stringer interface.
func (n Noiseless) String() string {
	return fmt.Sprintf("Noiseless{\nQ=%v\nR=%v}\n", mat.Formatted(n.Q, mat.Prefix("  ")), mat.Formatted(n.R, mat.Prefix("  ")))
}

// AWGN implements the Noise interface and generates an Additive white Gaussian noise.
type AWGN struct {
	Q, R        mat.Symmetric
	process     *distmv.Normal
	measurement *distmv.Normal
}

// NewAWGN creates new AWGN noise from the provided Q and R. Both must be positive definite.
// The same seed always generates the same sequence of noise.
func NewAWGN(Q, R mat.Symmetric, seed uint64) (*AWGN, error) {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	sizeQ, _ := Q.Dims()
	process, ok := distmv.NewNormal(make([]float64, sizeQ), Q, src)
	if !ok {
		return nil, configErrorf("process noise covariance is not positive definite")
	}
	sizeR, _ := R.Dims()
	meas, ok := distmv.NewNormal(make([]float64, sizeR), R, src)
	if !ok {
		return nil, configErrorf("measurement noise covariance is not positive definite")
	}
	return &AWGN{Q, R, process, meas}, nil
}

// ProcessMatrix implements the Noise interface.
func (n AWGN) ProcessMatrix() mat.Symmetric {
	return n.Q
}

// MeasurementMatrix implements the Noise interface.
func (n AWGN) MeasurementMatrix() mat.Symmetric {
	return n.R
}

// Process implements the Noise interface.
func (n AWGN) Process(k int) *mat.VecDense {
	r := n.process.Rand(nil)
	return mat.NewVecDense(len(r), r)
}

// Measurement implements the Noise interface.
func (n AWGN) Measurement(k int) *mat.VecDense {
	r := n.measurement.Rand(nil)
	return mat.NewVecDense(len(r), r)
}

// String implements the Stringer interface.
func (n AWGN) String() string {
	return fmt.Sprintf("AWGN{\nQ=%v\nR=%v}\n", mat.Formatted(n.Q, mat.Prefix("  ")), mat.Formatted(n.R, mat.Prefix("  ")))
}
