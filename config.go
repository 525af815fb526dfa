package ctrvekf

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// Config holds the fixed parameters of a filter run.
type Config struct {
	DT                float64       `yaml:"dt"`                 // s
	YawRateThreshold  float64       `yaml:"yaw_rate_threshold"` // rad/s
	YawRateEpsilon    float64       `yaml:"yaw_rate_epsilon"`   // rad/s
	Process           ProcessBounds `yaml:"process"`
	Sensors           SensorSigmas  `yaml:"sensors"`
	InitialCovariance []float64     `yaml:"initial_covariance"` // diagonal of P0
	GPSEvery          int           `yaml:"gps_every"`          // steps between two position fixes
}

// DefaultConfig returns a vehicle sampled at 50 Hz with a GPS fix at 10 Hz.
func DefaultConfig() Config {
	return Config{
		DT:               1.0 / 50.0,
		YawRateThreshold: 1e-4,
		YawRateEpsilon:   1e-7,
		Process: ProcessBounds{
			MaxAcceleration:    8.8,
			MaxTurnRate:        0.1,
			MaxYawAcceleration: 1.0,
		},
		Sensors: SensorSigmas{
			GPS:     5.0,
			Speed:   2.0,
			YawRate: 0.01,
		},
		InitialCovariance: []float64{1000, 1000, 1000, 1000, 1000},
		GPSEvery:          5,
	}
}

// LoadConfig reads the YAML configuration at path. Missing keys keep their
// DefaultConfig value, unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, configErrorf("parse %s: %s", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return &cfg, nil
}

// Validate returns an error matching ErrConfig if a filter cannot be built from this configuration.
func (c Config) Validate() error {
	if err := checkMotionModel(c.MotionModel()); err != nil {
		return err
	}
	p := c.Process
	if !allFinite(p.MaxAcceleration, p.MaxTurnRate, p.MaxYawAcceleration) ||
		p.MaxAcceleration <= 0 || p.MaxTurnRate <= 0 || p.MaxYawAcceleration <= 0 {
		return configErrorf("process bounds must be positive and finite: %+v", p)
	}
	s := c.Sensors
	if !allFinite(s.GPS, s.Speed, s.YawRate) || s.GPS <= 0 || s.Speed <= 0 || s.YawRate <= 0 {
		return configErrorf("sensor standard deviations must be positive and finite: %+v", s)
	}
	if len(c.InitialCovariance) != StateSize {
		return configErrorf("initial covariance needs %d values, got %d", StateSize, len(c.InitialCovariance))
	}
	for i, v := range c.InitialCovariance {
		if !allFinite(v) || v < 0 {
			return configErrorf("initial covariance[%d]=%g must be non-negative and finite", i, v)
		}
	}
	if c.GPSEvery < 1 {
		return configErrorf("gps_every must be at least 1, got %d", c.GPSEvery)
	}
	return nil
}

// MotionModel returns the CTRV motion model of this configuration.
func (c Config) MotionModel() MotionModel {
	return MotionModel{DT: c.DT, YawRateThreshold: c.YawRateThreshold, YawRateEpsilon: c.YawRateEpsilon}
}

// ProcessMatrix returns Q.
func (c Config) ProcessMatrix() *mat.SymDense {
	return NewProcessNoise(c.Process, c.DT)
}

// MeasurementMatrix returns R.
func (c Config) MeasurementMatrix() *mat.SymDense {
	return NewMeasurementNoise(c.Sensors)
}

// InitialCovarianceMatrix returns P0.
func (c Config) InitialCovarianceMatrix() *mat.SymDense {
	return Diagonal(c.InitialCovariance...)
}

// NewEKFFromConfig validates the configuration and returns the filter built from it.
func NewEKFFromConfig(x0 State, cfg Config, opts ...Option) (*EKF, *EKFEstimate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	noise := NewNoiseless(cfg.ProcessMatrix(), cfg.MeasurementMatrix())
	return NewEKF(x0, cfg.InitialCovarianceMatrix(), cfg.MotionModel(), noise, opts...)
}
