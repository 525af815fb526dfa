package ctrvekf

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// normalizedSquare returns v'*S^-1*v.
func normalizedSquare(v mat.Vector, S mat.Symmetric) (float64, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(S); !ok {
		return 0, errors.New("covariance is not positive definite")
	}
	var Sinvv mat.VecDense
	if err := chol.SolveVecTo(&Sinvv, v); err != nil {
		return 0, err
	}
	return mat.Dot(v, &Sinvv), nil
}

// NEES returns the normalized estimation error squared of the provided state error.
func NEES(e ErrorEstimate) (float64, error) {
	return normalizedSquare(e.State(), e.Covariance())
}

// NIS returns the normalized innovation squared of the estimate. Only the
// rows used in the correction are accounted for, i.e. the position rows are
// skipped without a position fix.
func NIS(est *EKFEstimate) (float64, error) {
	rows := []int{MeasV, MeasPsiDot}
	if est.HasPositionFix() {
		rows = []int{MeasX, MeasY, MeasV, MeasPsiDot}
	}
	innov := mat.NewVecDense(len(rows), nil)
	S := mat.NewSymDense(len(rows), nil)
	for i, ri := range rows {
		innov.SetVec(i, est.innovation.AtVec(ri))
		for j := i; j < len(rows); j++ {
			S.SetSym(i, j, est.innovCovar.At(ri, rows[j]))
		}
	}
	return normalizedSquare(innov, S)
}

// NISDegreesOfFreedom returns the number of measurement rows used in a correction.
func NISDegreesOfFreedom(hasFix bool) int {
	if hasFix {
		return MeasurementSize
	}
	return MeasurementSize - 2
}

// ChiSquareBounds returns the two-sided acceptance interval, at the alpha
// significance level, of the mean over runs of a χ² variable with dof
// degrees of freedom.
func ChiSquareBounds(dof, runs int, alpha float64) (lo, hi float64) {
	χ2 := distuv.ChiSquared{K: float64(dof * runs)}
	N := float64(runs)
	return χ2.Quantile(alpha/2) / N, χ2.Quantile(1-alpha/2) / N
}

// NewChiSquare runs the Chi square tests from the MonteCarlo runs against
// their simulated truth.
// Returns NEESmeans, NISmeans (one value per step) and an error if applicable.
func NewChiSquare(runs MonteCarloRuns, withNEES, withNIS bool) ([]float64, []float64, error) {
	if !withNEES && !withNIS {
		return nil, nil, errors.New("Chi Square requires either NEES or NIS or both")
	}
	if len(runs.Runs) == 0 {
		return nil, nil, errors.New("Chi Square requires at least one Monte Carlo run")
	}

	numRuns := len(runs.Runs)
	numSteps := len(runs.Runs[0].Estimates)
	NEESsamples := make([][]float64, numSteps)
	NISsamples := make([][]float64, numSteps)
	for k := 0; k < numSteps; k++ {
		NEESsamples[k] = make([]float64, numRuns)
		NISsamples[k] = make([]float64, numRuns)
	}

	for rNo, run := range runs.Runs {
		var truth *BatchGroundTruth
		if withNEES {
			truth = run.Truth.GroundTruth(MeasurementModel{})
		}
		for k, est := range run.Estimates {
			if withNEES {
				nees, err := NEES(truth.Error(k, est))
				if err != nil {
					return nil, nil, errors.Wrapf(err, "NEES of run %d at step %d", rNo, k)
				}
				NEESsamples[k][rNo] = nees
			}
			if withNIS {
				nis, err := NIS(est)
				if err != nil {
					return nil, nil, errors.Wrapf(err, "NIS of run %d at step %d", rNo, k)
				}
				NISsamples[k][rNo] = nis
			}
		}
	}

	// Let's compute the means for each step.
	var NEESmeans, NISmeans []float64
	if withNEES {
		NEESmeans = make([]float64, numSteps)
	}
	if withNIS {
		NISmeans = make([]float64, numSteps)
	}
	for k := 0; k < numSteps; k++ {
		if withNEES {
			NEESmeans[k] = stat.Mean(NEESsamples[k], nil)
		}
		if withNIS {
			NISmeans[k] = stat.Mean(NISsamples[k], nil)
		}
	}
	return NEESmeans, NISmeans, nil
}
