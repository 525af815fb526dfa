package ctrvekf

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonteCarlo(t *testing.T) {
	x0 := State{V: 10, PsiDot: 0.1}
	runs, steps := 10, 50
	mc, err := NewMonteCarloRuns(runs, steps, x0, DefaultConfig(), 5)
	require.NoError(t, err)

	r, s := mc.Len()
	assert.Equal(t, runs, r)
	assert.Equal(t, steps, s)
	require.Len(t, mc.Runs, runs)
	for _, run := range mc.Runs {
		require.Len(t, run.Estimates, steps)
		require.Len(t, run.Truth.States, steps)
	}
	// Independent seeds yield independent runs.
	assert.NotEqual(t, mc.Runs[0].Truth.Samples[1], mc.Runs[1].Truth.Samples[1])

	for k := 0; k < steps; k++ {
		mean := mc.Mean(k)
		dev := mc.StdDev(k)
		require.Len(t, mean, StateSize)
		require.Len(t, dev, StateSize)
		for i := 0; i < StateSize; i++ {
			assert.GreaterOrEqual(t, dev[i], 0.0)
		}
	}
	// One second at 10 m/s.
	assert.InDelta(t, 10, mc.Mean(steps-1)[IdxV], 2)

	csvs := mc.AsCSV([]string{"x", "y", "psi", "v", "psidot"})
	require.Len(t, csvs, StateSize)
	lines := strings.Split(csvs[IdxV], "\n")
	require.Len(t, lines, steps+1)
	assert.True(t, strings.HasPrefix(lines[0], "v-0,v-1,"))
	assert.True(t, strings.HasSuffix(lines[0], "v-mean,v-stddev"))
	assert.Len(t, strings.Split(lines[1], ","), runs+2)

	errs := mc.Runs[0].Errors(testMeasurement)
	require.Len(t, errs, steps)
	assert.Equal(t, mc.Runs[0].Estimates[3].CTRVState().X-mc.Runs[0].Truth.States[3].X, errs[3].State().AtVec(IdxX))
}

func TestMonteCarloErrors(t *testing.T) {
	_, err := NewMonteCarloRuns(0, 10, State{}, DefaultConfig(), 1)
	assert.True(t, errors.Is(err, ErrConfig), "got %v", err)

	cfg := DefaultConfig()
	cfg.DT = -1
	_, err = NewMonteCarloRuns(2, 10, State{}, cfg, 1)
	assert.True(t, errors.Is(err, ErrConfig), "got %v", err)
}
