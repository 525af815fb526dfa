package ctrvekf

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Simulator generates CTRV trajectories and the noisy samples read along them.
type Simulator struct {
	Motion      MotionModel
	Measurement MeasurementModel
	Noise       Noise
	GPSEvery    int // a position fix is available every GPSEvery steps, starting with the first one
}

// NewSimulator returns a simulator whose process and measurement noises are
// drawn from the Q and R of the configuration. The same seed always
// generates the same trajectories.
func NewSimulator(cfg Config, seed uint64) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	noise, err := NewAWGN(cfg.ProcessMatrix(), cfg.MeasurementMatrix(), seed)
	if err != nil {
		return nil, err
	}
	motion := cfg.MotionModel()
	return &Simulator{
		Motion:      motion,
		Measurement: MeasurementModel{YawRateThreshold: motion.YawRateThreshold, YawRateEpsilon: motion.YawRateEpsilon},
		Noise:       noise,
		GPSEvery:    cfg.GPSEvery,
	}, nil
}

// Trajectory is a simulated run: States[k] is the true state after the
// sample Samples[k] was read.
type Trajectory struct {
	States  []State
	Samples []Sample
}

// Run propagates x0 over the provided number of steps.
func (s *Simulator) Run(x0 State, steps int) Trajectory {
	traj := Trajectory{States: make([]State, steps), Samples: make([]Sample, steps)}
	x := x0
	for k := 0; k < steps; k++ {
		x, _ = s.Motion.Predict(x)
		xs := x.Slice()
		floats.Add(xs, s.Noise.Process(k).RawVector().Data)
		x = NewStateFromVector(mat.NewVecDense(StateSize, xs))
		x.Psi = WrapAngle(x.Psi)

		z := []float64{x.X, x.Y, x.V, x.PsiDot}
		floats.Add(z, s.Noise.Measurement(k).RawVector().Data)
		traj.States[k] = x
		traj.Samples[k] = Sample{
			PositionX:      z[MeasX],
			PositionY:      z[MeasY],
			Velocity:       z[MeasV],
			YawRate:        z[MeasPsiDot],
			HasPositionFix: s.GPSEvery > 0 && k%s.GPSEvery == 0,
		}
	}
	return traj
}

// GroundTruth returns the ground truth of this trajectory: the true states and
// the noise-free measurements masked like the filter's.
func (t Trajectory) GroundTruth(m MeasurementModel) *BatchGroundTruth {
	meas := make([]*mat.VecDense, len(t.States))
	for k, x := range t.States {
		meas[k] = m.Observe(x, t.Samples[k].HasPositionFix)
	}
	return NewBatchGroundTruth(t.States, meas)
}
