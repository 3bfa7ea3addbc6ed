// Package metrics exposes a finished diagnostic report as Prometheus gauges
// and writes them in text exposition format for a node_exporter textfile
// collector. The registry is private and written once per run; there is no
// scrape endpoint.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"drive-health-check/internal/smart"
	"drive-health-check/pkg/types"
)

// Metrics holds all Prometheus metrics derived from a report.
type Metrics struct {
	registry *prometheus.Registry

	HealthScore      *prometheus.GaugeVec
	HealthTier       *prometheus.GaugeVec
	ProbeMeasurement *prometheus.GaugeVec
	IssueDeduction   *prometheus.GaugeVec
	SmartAvailable   *prometheus.GaugeVec
	SmartAttribute   *prometheus.GaugeVec
}

// New creates all metrics on a fresh private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HealthScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "drive_health_score",
				Help: "Overall drive health score (0-100, higher is healthier)",
			},
			[]string{"device", "model", "check_type"},
		),
		HealthTier: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "drive_health_tier",
				Help: "Drive health tier (0=critical, 1=poor, 2=fair, 3=good, 4=excellent)",
			},
			[]string{"device", "model"},
		),
		ProbeMeasurement: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "drive_health_probe_value",
				Help: "Raw value of one mechanical probe measurement",
			},
			[]string{"device", "test", "unit"},
		),
		IssueDeduction: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "drive_health_issue_deduction_points",
				Help: "Score points deducted per issue category",
			},
			[]string{"device", "category"},
		),
		SmartAvailable: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "drive_health_smart_available",
				Help: "Whether SMART telemetry was readable (1) or not (0)",
			},
			[]string{"device", "method"},
		),
		SmartAttribute: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "drive_health_smart_attribute_raw",
				Help: "Raw value of a SMART attribute of diagnostic interest",
			},
			[]string{"device", "attribute"},
		),
	}

	m.registry.MustRegister(
		m.HealthScore,
		m.HealthTier,
		m.ProbeMeasurement,
		m.IssueDeduction,
		m.SmartAvailable,
		m.SmartAttribute,
	)

	return m
}

// Record populates the gauges from a finished report.
func (m *Metrics) Record(r *types.DiagnosticReport) {
	device := r.Device.Path
	model := r.Device.ModelName

	m.HealthScore.WithLabelValues(device, model, r.CheckType).Set(float64(r.Score))
	m.HealthTier.WithLabelValues(device, model).Set(float64(tierCode(r.Tier)))

	for _, meas := range r.Measurements {
		if meas.Value == nil {
			continue
		}
		m.ProbeMeasurement.WithLabelValues(device, meas.TestName, meas.Unit).Set(*meas.Value)
	}

	// One gauge per category, summed: repeated findings (stiction cycles,
	// surface offsets) collapse into their total deduction.
	perCategory := make(map[types.IssueCategory]int)
	for _, issue := range r.Issues {
		perCategory[issue.Category] += issue.SeverityDeduction
	}
	for category, points := range perCategory {
		m.IssueDeduction.WithLabelValues(device, string(category)).Set(float64(points))
	}

	if r.Smart.Available {
		m.SmartAvailable.WithLabelValues(device, r.Smart.Method).Set(1)
		for _, name := range []string{
			smart.AttrReallocatedSectors,
			smart.AttrPendingSectors,
			smart.AttrUncorrectable,
			smart.AttrPowerOnHours,
			smart.AttrTemperature,
		} {
			if attr, ok := r.Smart.Attribute(name); ok {
				m.SmartAttribute.WithLabelValues(device, name).Set(float64(attr.RawValue))
			}
		}
	} else {
		m.SmartAvailable.WithLabelValues(device, "").Set(0)
	}
}

// WriteTextfile renders the registry in Prometheus text exposition format and
// atomically replaces the file at path, following the node_exporter textfile
// collector convention (write temp, rename).
func (m *Metrics) WriteTextfile(path string) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp metrics file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := expfmt.NewEncoder(tmp, expfmt.FmtText)
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			tmp.Close()
			return fmt.Errorf("encoding metrics: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
