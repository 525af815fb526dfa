package ctrvekf

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// psdTolerance is the most negative eigenvalue accepted for the initial covariance.
const psdTolerance = 1e-9

// Option configures an EKF at construction.
type Option func(*EKF)

// WithLogger sets the logger of the filter. Nothing is logged by default.
func WithLogger(l *slog.Logger) Option {
	return func(kf *EKF) {
		if l != nil {
			kf.logger = l
		}
	}
}

// NewEKF returns a new CTRV Extended KF and its initial estimate.
// Parameters:
// - x0: initial state
// - P0: initial covariance matrix, must be positive semidefinite
// - motion: CTRV motion model (time step, yaw rate threshold and epsilon)
// - noise: Noise, of which Q must be positive definite and R diagonal with a positive diagonal
// Any invalid parameter returns an error matching ErrConfig and no filter.
func NewEKF(x0 State, P0 mat.Symmetric, motion MotionModel, noise Noise, opts ...Option) (*EKF, *EKFEstimate, error) {
	if err := checkMotionModel(motion); err != nil {
		return nil, nil, err
	}
	if !x0.IsFinite() {
		return nil, nil, configErrorf("initial state %s is not finite", x0)
	}
	if P0 == nil {
		return nil, nil, configErrorf("initial covariance must be specified")
	}
	if noise == nil {
		return nil, nil, configErrorf("noise must be specified")
	}
	meas := MeasurementModel{YawRateThreshold: motion.YawRateThreshold, YawRateEpsilon: motion.YawRateEpsilon}

	// Let's check the dimensions of everything here to fail ASAP.
	Q := noise.ProcessMatrix()
	R := noise.MeasurementMatrix()
	if Q == nil || R == nil {
		return nil, nil, configErrorf("Q and R must be specified")
	}
	if err := checkMatDims(P0, x0.Vector(), "P0", "x0", rows2rows); err != nil {
		return nil, nil, err
	}
	if err := checkMatDims(Q, P0, "Q", "P0", rowsAndcols); err != nil {
		return nil, nil, err
	}
	if err := checkMatDims(R, meas.Jacobian(true), "R", "Jh", rows2rows); err != nil {
		return nil, nil, err
	}

	if !isFiniteMatrix(P0) || !isPositiveSemidefinite(P0, psdTolerance) {
		return nil, nil, configErrorf("P0 is not positive semidefinite")
	}
	if !isFiniteMatrix(Q) || !isPositiveDefinite(Q) {
		return nil, nil, configErrorf("Q is not positive definite")
	}
	if !isDiagonal(R) {
		return nil, nil, configErrorf("R must be diagonal")
	}
	for i := 0; i < MeasurementSize; i++ {
		if r := R.At(i, i); !(r > 0) || math.IsInf(r, 0) {
			return nil, nil, configErrorf("R(%d,%d)=%g must be positive and finite", i, i, r)
		}
	}

	P := mat.NewSymDense(StateSize, nil)
	P.CopySym(P0)
	regime := Turning
	if math.Abs(x0.PsiDot) < motion.YawRateThreshold {
		regime = Straight
	}
	est0 := EKFEstimate{
		state:      x0,
		predState:  x0,
		meas:       mat.NewVecDense(MeasurementSize, nil),
		innovation: mat.NewVecDense(MeasurementSize, nil),
		covar:      P,
		predCovar:  mat.NewSymDense(StateSize, nil),
		innovCovar: mat.NewSymDense(MeasurementSize, nil),
		gain:       mat.NewDense(StateSize, MeasurementSize, nil),
		regime:     regime,
	}

	kf := &EKF{
		motion:  motion,
		meas:    meas,
		Noise:   noise,
		prevEst: est0,
		initEst: est0,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(kf)
	}
	kf.logger.Debug("ekf initialized", "x0", x0.String(), "dt", motion.DT, "regime", regime.String())
	return kf, &est0, nil
}

// checkMotionModel returns an error matching ErrConfig if the time step,
// threshold or epsilon cannot be used.
func checkMotionModel(m MotionModel) error {
	if !allFinite(m.DT, m.YawRateThreshold, m.YawRateEpsilon) {
		return configErrorf("time step, yaw rate threshold and epsilon must be finite")
	}
	if m.DT <= 0 {
		return configErrorf("time step must be positive, got %g", m.DT)
	}
	if m.YawRateThreshold <= 0 {
		return configErrorf("yaw rate threshold must be positive, got %g", m.YawRateThreshold)
	}
	if m.YawRateEpsilon <= 0 || m.YawRateEpsilon >= m.YawRateThreshold {
		return configErrorf("yaw rate epsilon must be within (0, %g), got %g", m.YawRateThreshold, m.YawRateEpsilon)
	}
	return nil
}

// EKF defines the CTRV Extended Kalman filter. Use NewEKF to initialize.
// An EKF is not safe for concurrent use.
type EKF struct {
	motion           MotionModel
	meas             MeasurementModel
	Noise            Noise
	prevEst, initEst EKFEstimate
	step             int
	logger           *slog.Logger
}

func (kf *EKF) String() string {
	return fmt.Sprintf("dt=%g threshold=%g epsilon=%g step=%d\n%s", kf.motion.DT, kf.motion.YawRateThreshold, kf.motion.YawRateEpsilon, kf.step, kf.Noise)
}

// GetNoise returns the Noise.
func (kf *EKF) GetNoise() Noise {
	return kf.Noise
}

// MotionModel returns the motion model of this filter.
func (kf *EKF) MotionModel() MotionModel {
	return kf.motion
}

// MeasurementModel returns the measurement model of this filter.
func (kf *EKF) MeasurementModel() MeasurementModel {
	return kf.meas
}

// Step returns the number of successful updates since the initial estimate.
func (kf *EKF) Step() int {
	return kf.step
}

// Estimate returns the latest estimate.
func (kf *EKF) Estimate() *EKFEstimate {
	est := kf.prevEst
	return &est
}

// Reset reinitializes the KF with its initial estimate.
func (kf *EKF) Reset() {
	kf.prevEst = kf.initEst
	kf.step = 0
}

// Update advances the filter by one time step with the provided sample.
// On error, the filter keeps its last estimate.
func (kf *EKF) Update(smpl Sample) (*EKFEstimate, error) {
	if err := smpl.validate(); err != nil {
		return nil, errors.Wrapf(err, "step %d", kf.step+1)
	}

	// Prediction
	xMinus, regime := kf.motion.Predict(kf.prevEst.state)
	if regime != kf.prevEst.regime {
		kf.logger.Debug("regime switch", "step", kf.step+1, "from", kf.prevEst.regime.String(), "to", regime.String())
	}
	Jg := kf.motion.Jacobian(xMinus)
	Pminus := quadForm(Jg, kf.prevEst.covar)
	addSym(Pminus, kf.Noise.ProcessMatrix())

	// Kalman gain
	Jh := kf.meas.Jacobian(smpl.HasPositionFix)
	S := quadForm(Jh, Pminus)
	addSym(S, kf.Noise.MeasurementMatrix())
	var chol mat.Cholesky
	if ok := chol.Factorize(S); !ok {
		kf.logger.Error("singular innovation covariance", "step", kf.step+1)
		return nil, errors.Wrapf(ErrSingularInnovation, "step %d", kf.step+1)
	}
	var PJht, SinvJhP mat.Dense
	PJht.Mul(Pminus, Jh.T())
	if err := chol.SolveTo(&SinvJhP, PJht.T()); err != nil {
		kf.logger.Error("ill-conditioned innovation covariance", "step", kf.step+1, "err", err)
		return nil, errors.Wrapf(ErrSingularInnovation, "step %d: %s", kf.step+1, err)
	}
	K := mat.DenseCopyOf(SinvJhP.T())

	// Measurement update
	z := kf.meas.Measurement(smpl)
	var innov, dx mat.VecDense
	innov.SubVec(z, kf.meas.Observe(xMinus, smpl.HasPositionFix))
	dx.MulVec(K, &innov)
	var xPlusVec mat.VecDense
	xPlusVec.AddVec(xMinus.Vector(), &dx)
	xPlus := NewStateFromVector(&xPlusVec)
	xPlus.Psi = WrapAngle(xPlus.Psi)

	// P+ = P- - (P- Jh')(S^-1 Jh P-), only the upper triangle is computed.
	Pplus := mat.NewSymDense(StateSize, nil)
	for i := 0; i < StateSize; i++ {
		for j := i; j < StateSize; j++ {
			v := Pminus.At(i, j)
			for l := 0; l < MeasurementSize; l++ {
				v -= PJht.At(i, l) * SinvJhP.At(l, j)
			}
			Pplus.SetSym(i, j, v)
		}
	}

	kf.step++
	est := EKFEstimate{
		state:      xPlus,
		predState:  xMinus,
		sample:     smpl,
		meas:       z,
		innovation: &innov,
		covar:      Pplus,
		predCovar:  Pminus,
		innovCovar: S,
		gain:       K,
		regime:     regime,
		step:       kf.step,
	}
	kf.prevEst = est
	return &est, nil
}

// addSym adds the upper triangle of b to a in place.
func addSym(a *mat.SymDense, b mat.Symmetric) {
	n := a.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			a.SetSym(i, j, a.At(i, j)+b.At(i, j))
		}
	}
}

// EKFEstimate is the output of each update state of the EKF.
// It implements the Estimate interface.
type EKFEstimate struct {
	state, predState             State
	sample                       Sample
	meas, innovation             *mat.VecDense
	covar, predCovar, innovCovar *mat.SymDense
	gain                         *mat.Dense
	regime                       Regime
	step                         int
}

// IsWithinNσ returns whether each innovation is within N standard deviations
// of the innovation covariance.
func (e EKFEstimate) IsWithinNσ(N float64) bool {
	for i := 0; i < e.innovation.Len(); i++ {
		nσ := N * math.Sqrt(e.innovCovar.At(i, i))
		if e.innovation.AtVec(i) > nσ || e.innovation.AtVec(i) < -nσ {
			return false
		}
	}
	return true
}

// IsWithin2σ returns whether the innovation is within the 2σ bounds.
func (e EKFEstimate) IsWithin2σ() bool {
	return e.IsWithinNσ(2)
}

// State implements the Estimate interface.
func (e EKFEstimate) State() *mat.VecDense {
	return e.state.Vector()
}

// CTRVState returns the corrected state.
func (e EKFEstimate) CTRVState() State {
	return e.state
}

// PredictedState returns the state after the prediction and before the correction.
func (e EKFEstimate) PredictedState() State {
	return e.predState
}

// Sample returns the sample used for this step.
func (e EKFEstimate) Sample() Sample {
	return e.sample
}

// Measurement implements the Estimate interface.
func (e EKFEstimate) Measurement() *mat.VecDense {
	return e.meas
}

// Innovation implements the Estimate interface.
func (e EKFEstimate) Innovation() *mat.VecDense {
	return e.innovation
}

// InnovationCovariance returns S = Jh*P_minus*Jh' + R.
func (e EKFEstimate) InnovationCovariance() mat.Symmetric {
	return e.innovCovar
}

// Covariance implements the Estimate interface.
func (e EKFEstimate) Covariance() mat.Symmetric {
	return e.covar
}

// PredCovariance implements the Estimate interface.
func (e EKFEstimate) PredCovariance() mat.Symmetric {
	return e.predCovar
}

// Gain returns the Kalman gain.
func (e EKFEstimate) Gain() mat.Matrix {
	return e.gain
}

// Regime returns the branch of the motion model used for the prediction.
func (e EKFEstimate) Regime() Regime {
	return e.regime
}

// HasPositionFix returns whether the position was used in the correction.
func (e EKFEstimate) HasPositionFix() bool {
	return e.sample.HasPositionFix
}

// Step returns the step index of this estimate, zero for the initial estimate.
func (e EKFEstimate) Step() int {
	return e.step
}

func (e EKFEstimate) String() string {
	state := mat.Formatted(e.State(), mat.Prefix("  "))
	meas := mat.Formatted(e.Measurement(), mat.Prefix("  "))
	covar := mat.Formatted(e.Covariance(), mat.Prefix("  "))
	gain := mat.Formatted(e.Gain(), mat.Prefix("  "))
	innov := mat.Formatted(e.Innovation(), mat.Prefix("  "))
	predp := mat.Formatted(e.PredCovariance(), mat.Prefix("   "))
	return fmt.Sprintf("{\nk=%d (%s)\ns=%v\nz=%v\nP=%v\nK=%v\nP-=%v\ni=%v\n}", e.step, e.regime, state, meas, covar, gain, predp, innov)
}
