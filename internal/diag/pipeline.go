// Package diag runs the full diagnostic pipeline against one device:
// probe the target, collect SMART telemetry, run the mechanical test
// battery, normalize the raw signals into issues, score, and assemble
// the report. The pipeline is strictly linear and single-goroutine; the
// only fatal error is a target that cannot be resolved to a device.
package diag

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"drive-health-check/internal/config"
	"drive-health-check/internal/device"
	"drive-health-check/internal/normalize"
	"drive-health-check/internal/probe"
	"drive-health-check/internal/score"
	"drive-health-check/internal/smart"
	"drive-health-check/internal/utils"
	"drive-health-check/pkg/types"
)

// Pipeline wires the diagnostic stages together.
type Pipeline struct {
	cfg    *config.Config
	runner utils.Runner
	log    zerolog.Logger
}

// New creates a pipeline. The runner abstracts the external tools so tests
// can substitute canned output.
func New(cfg *config.Config, runner utils.Runner, log zerolog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, runner: runner, log: log}
}

// Run executes every stage against the target and returns the report.
// Degraded tooling (no smartctl, no hdparm, even no dd) still yields a
// report; only an unresolvable target returns an error.
func (p *Pipeline) Run(ctx context.Context, target string, checkType probe.CheckType) (*types.DiagnosticReport, error) {
	report := &types.DiagnosticReport{
		SchemaVersion: types.SchemaVersion,
		CheckType:     string(checkType),
		Timestamp:     time.Now().UTC(),
	}

	prober := device.NewProber(p.runner)
	handle, warnings, err := prober.Probe(ctx, target)
	if err != nil {
		return nil, err
	}
	report.Device = handle
	report.Warnings = warnings
	p.log.Info().
		Str("device", handle.Path).
		Int64("size_bytes", handle.SizeBytes).
		Str("model", handle.ModelName).
		Msg("device resolved")

	collector := smart.NewCollector(p.runner)
	snap, smartWarnings := collector.Collect(ctx, handle.Path)
	report.Smart = snap
	report.Warnings = append(report.Warnings, smartWarnings...)
	if snap.Available {
		p.log.Info().
			Str("method", snap.Method).
			Str("health", string(snap.OverallHealth)).
			Int("attributes", len(snap.Attributes)).
			Msg("SMART telemetry collected")
	} else {
		p.log.Warn().Msg("SMART telemetry unavailable")
	}

	battery := probe.NewBattery(p.cfg, p.runner, handle)
	results := battery.Run(ctx, checkType)
	report.Measurements = results.Measurements
	report.Warnings = append(report.Warnings, results.Warnings...)
	report.Incomplete = results.Incomplete
	p.log.Info().
		Int("measurements", len(results.Measurements)).
		Int("incomplete", len(results.Incomplete)).
		Msg("mechanical battery finished")

	p.recordTemperature(report)

	// Persisted reports always carry both lists, empty rather than null.
	if report.Measurements == nil {
		report.Measurements = []types.TestMeasurement{}
	}
	report.Issues = normalize.Issues(p.cfg, report.Smart, report.Measurements)
	if report.Issues == nil {
		report.Issues = []types.Issue{}
	}
	report.Score = score.Compute(report.Issues)
	report.Tier = score.TierFor(report.Score)
	report.Recommendation = score.RecommendationFor(report.Tier)

	if report.Score == 100 && !hasEvidence(report) {
		report.Warnings = append(report.Warnings,
			"no diagnostic evidence was gathered; score reflects absence of negative findings, not proven health")
	}

	for _, warning := range report.Warnings {
		p.log.Warn().Msg(warning)
	}
	p.log.Info().
		Int("score", report.Score).
		Str("tier", string(report.Tier)).
		Int("issues", len(report.Issues)).
		Msg("diagnosis complete")

	return report, nil
}

// recordTemperature promotes the SMART temperature reading into the
// measurement list when it is physically plausible; readings outside
// (0, MaxPlausibleTempC) are sensor noise and are discarded with a warning.
func (p *Pipeline) recordTemperature(report *types.DiagnosticReport) {
	if !report.Smart.Available {
		return
	}
	temp, ok := smart.Temperature(report.Smart)
	if !ok {
		return
	}
	if temp <= 0 || temp >= p.cfg.MaxPlausibleTempC {
		report.Warnings = append(report.Warnings,
			"implausible SMART temperature reading discarded")
		return
	}
	report.Measurements = append(report.Measurements,
		types.Measure(types.MeasureSmartTemperature, temp, "C"))
	if temp > p.cfg.HighTempWarnC {
		report.Warnings = append(report.Warnings,
			"drive temperature is high; verify enclosure ventilation before extended use")
	}
}

// hasEvidence reports whether any probe produced a number or SMART was
// readable. A run with zero evidence still scores 100 but must say so.
func hasEvidence(report *types.DiagnosticReport) bool {
	if report.Smart.Available {
		return true
	}
	for _, m := range report.Measurements {
		if m.Value != nil {
			return true
		}
	}
	return false
}
