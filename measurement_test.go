package ctrvekf

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

var testMeasurement = MeasurementModel{YawRateThreshold: 1e-4, YawRateEpsilon: 1e-7}

func TestMeasurementJacobian(t *testing.T) {
	full := testMeasurement.Jacobian(true)
	exp := mat.NewDense(MeasurementSize, StateSize, []float64{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 0, 1, 0,
		0, 0, 0, 0, 1,
	})
	if !mat.Equal(full, exp) {
		t.Fatalf("Jh with fix:\n%v", mat.Formatted(full))
	}

	masked := testMeasurement.Jacobian(false)
	exp.SetRow(MeasX, make([]float64, StateSize))
	exp.SetRow(MeasY, make([]float64, StateSize))
	if !mat.Equal(masked, exp) {
		t.Fatalf("Jh without fix:\n%v", mat.Formatted(masked))
	}
}

func TestMeasurementMask(t *testing.T) {
	s := State{X: 3, Y: 4, Psi: 1, V: 5, PsiDot: 0.2}
	smpl := Sample{PositionX: 3.5, PositionY: 4.5, Velocity: 5.1, YawRate: 0.25}

	assert.Equal(t, []float64{3, 4, 5, 0.2}, testMeasurement.Observe(s, true).RawVector().Data)
	assert.Equal(t, []float64{0, 0, 5, 0.2}, testMeasurement.Observe(s, false).RawVector().Data)
	assert.Equal(t, []float64{0, 0, 5.1, 0.25}, testMeasurement.Measurement(smpl).RawVector().Data)

	smpl.HasPositionFix = true
	assert.Equal(t, []float64{3.5, 4.5, 5.1, 0.25}, testMeasurement.Measurement(smpl).RawVector().Data)

	smpl.YawRate = -2e-5
	assert.Equal(t, 1e-7, testMeasurement.Measurement(smpl).AtVec(MeasPsiDot))
}

func TestSampleValidation(t *testing.T) {
	for _, tc := range []struct {
		name  string
		smpl  Sample
		valid bool
	}{
		{"nominal", Sample{Velocity: 1, YawRate: 0.1}, true},
		{"stale position without fix", Sample{PositionX: math.NaN(), Velocity: 1}, true},
		{"NaN velocity", Sample{Velocity: math.NaN()}, false},
		{"Inf yaw rate", Sample{YawRate: math.Inf(-1)}, false},
		{"NaN position with fix", Sample{PositionY: math.NaN(), HasPositionFix: true}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.smpl.validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidSample), "got %v", err)
			}
		})
	}
}
