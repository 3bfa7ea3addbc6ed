package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable of the diagnostic engine. The thresholds and
// deduction weights default to the values the surrounding tooling was
// calibrated against; override via DRIVE_HEALTH_* environment variables.
type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Detection thresholds.
	SlowSpinUpSeconds      float64 `envconfig:"SLOW_SPINUP_SECONDS" default:"5"`
	InstabilityPercent     float64 `envconfig:"INSTABILITY_PERCENT" default:"20"`
	MinSustainedMBps       float64 `envconfig:"MIN_SUSTAINED_MBPS" default:"50"`
	LoadDegradationPercent float64 `envconfig:"LOAD_DEGRADATION_PERCENT" default:"15"`
	MaxPlausibleTempC      float64 `envconfig:"MAX_PLAUSIBLE_TEMP_C" default:"100"`
	HighTempWarnC          float64 `envconfig:"HIGH_TEMP_WARN_C" default:"45"`

	// Per-issue deduction weights (points off a 100-point score).
	DeductSlowSpinUp      int `envconfig:"DEDUCT_SLOW_SPINUP" default:"15"`
	DeductStictionRepeat  int `envconfig:"DEDUCT_STICTION_REPEAT" default:"5"`
	DeductInstability     int `envconfig:"DEDUCT_INSTABILITY" default:"10"`
	DeductSurfaceFailure  int `envconfig:"DEDUCT_SURFACE_FAILURE" default:"15"`
	DeductRandomFailure   int `envconfig:"DEDUCT_RANDOM_FAILURE" default:"10"`
	RandomFailureCap      int `envconfig:"RANDOM_FAILURE_CAP" default:"40"`
	DeductPoorThroughput  int `envconfig:"DEDUCT_POOR_THROUGHPUT" default:"10"`
	DeductLoadDegradation int `envconfig:"DEDUCT_LOAD_DEGRADATION" default:"10"`
	DeductSmartFailed     int `envconfig:"DEDUCT_SMART_FAILED" default:"20"`
	DeductReallocated     int `envconfig:"DEDUCT_REALLOCATED" default:"10"`
	DeductPending         int `envconfig:"DEDUCT_PENDING" default:"10"`
	DeductUncorrectable   int `envconfig:"DEDUCT_UNCORRECTABLE" default:"15"`

	// Battery shape.
	StabilitySamples       int           `envconfig:"STABILITY_SAMPLES" default:"5"`
	StictionCycles         int           `envconfig:"STICTION_CYCLES" default:"3"`
	StictionCyclesExtended int           `envconfig:"STICTION_CYCLES_EXTENDED" default:"5"`
	RandomReadPoints       int           `envconfig:"RANDOM_READ_POINTS" default:"10"`
	SurfaceRandomPoints    int           `envconfig:"SURFACE_RANDOM_POINTS" default:"20"`
	SustainedReadMiB       int           `envconfig:"SUSTAINED_READ_MIB" default:"1000"`
	SurfaceSampleMiB       int           `envconfig:"SURFACE_SAMPLE_MIB" default:"10"`
	SpinDownSettle         time.Duration `envconfig:"SPINDOWN_SETTLE" default:"3s"`
	SampleSettle           time.Duration `envconfig:"SAMPLE_SETTLE" default:"1s"`
	LoadSettle             time.Duration `envconfig:"LOAD_SETTLE" default:"5s"`
	ProbeTimeout           time.Duration `envconfig:"PROBE_TIMEOUT" default:"5m"`
	RunTimeout             time.Duration `envconfig:"RUN_TIMEOUT" default:"30m"`
}

// New loads configuration from the environment, falling back to defaults.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("DRIVE_HEALTH", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration, ignoring the environment.
// Used by tests that must not depend on ambient DRIVE_HEALTH_* variables.
func Default() *Config {
	return &Config{
		LogLevel:               "info",
		SlowSpinUpSeconds:      5,
		InstabilityPercent:     20,
		MinSustainedMBps:       50,
		LoadDegradationPercent: 15,
		MaxPlausibleTempC:      100,
		HighTempWarnC:          45,
		DeductSlowSpinUp:       15,
		DeductStictionRepeat:   5,
		DeductInstability:      10,
		DeductSurfaceFailure:   15,
		DeductRandomFailure:    10,
		RandomFailureCap:       40,
		DeductPoorThroughput:   10,
		DeductLoadDegradation:  10,
		DeductSmartFailed:      20,
		DeductReallocated:      10,
		DeductPending:          10,
		DeductUncorrectable:    15,
		StabilitySamples:       5,
		StictionCycles:         3,
		StictionCyclesExtended: 5,
		RandomReadPoints:       10,
		SurfaceRandomPoints:    20,
		SustainedReadMiB:       1000,
		SurfaceSampleMiB:       10,
		SpinDownSettle:         3 * time.Second,
		SampleSettle:           time.Second,
		LoadSettle:             5 * time.Second,
		ProbeTimeout:           5 * time.Minute,
		RunTimeout:             30 * time.Minute,
	}
}
