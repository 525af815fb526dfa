package ctrvekf

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// MonteCarloRuns stores MC runs.
type MonteCarloRuns struct {
	runs, steps int
	Runs        []MonteCarloRun
}

// MonteCarloRun stores the results of an MC run: the simulated trajectory and
// the estimate of the filter at each of its steps.
type MonteCarloRun struct {
	Truth     Trajectory
	Estimates []*EKFEstimate
}

// Errors returns the error of each estimate of this run from its truth.
func (r MonteCarloRun) Errors(m MeasurementModel) []ErrorEstimate {
	truth := r.Truth.GroundTruth(m)
	errs := make([]ErrorEstimate, len(r.Estimates))
	for k, est := range r.Estimates {
		errs[k] = truth.Error(k, est)
	}
	return errs
}

// NewMonteCarloRuns simulates the provided number of independent runs from x0
// and filters each of them with a new filter built from the configuration.
// Run r uses the seed seed+r, so the same seed always yields the same runs.
func NewMonteCarloRuns(runs, steps int, x0 State, cfg Config, seed uint64, opts ...Option) (MonteCarloRuns, error) {
	if runs < 1 || steps < 1 {
		return MonteCarloRuns{}, configErrorf("Monte Carlo requires at least one run and one step, got %d runs of %d steps", runs, steps)
	}
	mc := MonteCarloRuns{runs, steps, make([]MonteCarloRun, runs)}
	for r := 0; r < runs; r++ {
		sim, err := NewSimulator(cfg, seed+uint64(r))
		if err != nil {
			return MonteCarloRuns{}, err
		}
		kf, _, err := NewEKFFromConfig(x0, cfg, opts...)
		if err != nil {
			return MonteCarloRuns{}, err
		}
		run := MonteCarloRun{Truth: sim.Run(x0, steps), Estimates: make([]*EKFEstimate, steps)}
		for k, smpl := range run.Truth.Samples {
			est, err := kf.Update(smpl)
			if err != nil {
				return MonteCarloRuns{}, errors.Wrapf(err, "run %d", r)
			}
			run.Estimates[k] = est
		}
		mc.Runs[r] = run
	}
	return mc, nil
}

// Len returns the number of runs and the number of steps per run.
func (mc MonteCarloRuns) Len() (runs, steps int) {
	return mc.runs, mc.steps
}

// samples returns the value of each state component at the given step, one slice per component.
func (mc MonteCarloRuns) samples(step int) [][]float64 {
	states := make([][]float64, StateSize)
	for i := range states {
		states[i] = make([]float64, len(mc.Runs))
	}
	for r, run := range mc.Runs {
		state := run.Estimates[step].State()
		for i := 0; i < StateSize; i++ {
			states[i][r] = state.AtVec(i)
		}
	}
	return states
}

// Mean returns the mean of all the samples for the given time step.
func (mc MonteCarloRuns) Mean(step int) []float64 {
	means := make([]float64, StateSize)
	for i, s := range mc.samples(step) {
		means[i] = stat.Mean(s, nil)
	}
	return means
}

// StdDev returns the standard deviation of all the samples for the given time step.
func (mc MonteCarloRuns) StdDev(step int) []float64 {
	devs := make([]float64, StateSize)
	for i, s := range mc.samples(step) {
		devs[i] = stat.StdDev(s, nil)
	}
	return devs
}

// AsCSV is used as a CSV serializer, one document per state component.
// Each document has a header and one line per step.
func (mc MonteCarloRuns) AsCSV(headers []string) []string {
	rtn := make([]string, StateSize)
	means := make([][]float64, mc.steps)
	devs := make([][]float64, mc.steps)
	for k := 0; k < mc.steps; k++ {
		means[k] = mc.Mean(k)
		devs[k] = mc.StdDev(k)
	}

	for i := 0; i < StateSize; i++ {
		header := headers[i]
		lines := make([]string, mc.steps+1) // One line per step, plus header.
		for rNo := 0; rNo < mc.runs; rNo++ {
			lines[0] += fmt.Sprintf("%s-%d,", header, rNo)
		}
		lines[0] += header + "-mean," + header + "-stddev"

		for k := 0; k < mc.steps; k++ {
			for _, run := range mc.Runs {
				lines[k+1] += fmt.Sprintf("%f,", run.Estimates[k].State().AtVec(i))
			}
			lines[k+1] += fmt.Sprintf("%f,%f", means[k][i], devs[k][i])
		}
		rtn[i] = strings.Join(lines, "\n")
	}
	return rtn
}
