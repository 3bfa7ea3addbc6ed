package types

import "time"

// SchemaVersion identifies the report format for downstream consumers that
// persist reports as opaque versioned records.
const SchemaVersion = 1

// DeviceHandle identifies the drive under test. Created once at run start
// and never modified afterwards.
type DeviceHandle struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	ModelName string `json:"model_name,omitempty"`
}

// OverallHealth is the drive's SMART self-assessment.
type OverallHealth string

const (
	HealthPass    OverallHealth = "PASS"
	HealthFail    OverallHealth = "FAIL"
	HealthUnknown OverallHealth = "UNKNOWN"
)

// SmartAttribute is one row of the vendor attribute table.
type SmartAttribute struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Value     int    `json:"value"`
	Worst     int    `json:"worst"`
	Threshold int    `json:"threshold"`
	RawValue  int64  `json:"raw_value"`
}

// SmartSnapshot holds everything recovered from the drive's SMART telemetry.
// Available=false means no passthrough strategy produced usable output;
// absence of telemetry is not evidence of failure.
type SmartSnapshot struct {
	Available     bool             `json:"available"`
	Method        string           `json:"method,omitempty"` // passthrough strategy that succeeded
	OverallHealth OverallHealth    `json:"overall_health"`
	Attributes    []SmartAttribute `json:"attributes,omitempty"`
}

// Attribute returns the named attribute, looked up by name rather than by
// table position since row order and count vary by vendor.
func (s *SmartSnapshot) Attribute(name string) (SmartAttribute, bool) {
	for _, attr := range s.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return SmartAttribute{}, false
}

// TestMeasurement is the raw result of one mechanical sub-test. Value is nil
// when the probe ran but produced no parseable number; downstream treats a
// nil value as "no evidence", never as a detected or absent issue.
type TestMeasurement struct {
	TestName string   `json:"test_name"`
	Value    *float64 `json:"value,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// Measure builds a measurement carrying a numeric value.
func Measure(name string, value float64, unit string) TestMeasurement {
	return TestMeasurement{TestName: name, Value: &value, Unit: unit}
}

// MeasureAbsent builds a measurement with no numeric value and a note
// explaining why (tool missing, timeout, unparseable output).
func MeasureAbsent(name, unit, notes string) TestMeasurement {
	return TestMeasurement{TestName: name, Unit: unit, Notes: notes}
}

// IssueCategory classifies a detected finding.
type IssueCategory string

const (
	IssueSlowSpinUp               IssueCategory = "SlowSpinUp"
	IssueRotationalInstability    IssueCategory = "RotationalInstability"
	IssueSurfaceReadFailure       IssueCategory = "SurfaceReadFailure"
	IssueRandomReadFailure        IssueCategory = "RandomReadFailure"
	IssueRepeatedStictionSpinups  IssueCategory = "RepeatedStictionSpinups"
	IssuePoorSustainedThroughput  IssueCategory = "PoorSustainedThroughput"
	IssueLoadInducedDegradation   IssueCategory = "LoadInducedDegradation"
	IssueSmartHealthFailed        IssueCategory = "SmartHealthFailed"
	IssueSmartReallocatedSectors  IssueCategory = "SmartReallocatedSectors"
	IssueSmartPendingSectors      IssueCategory = "SmartPendingSectors"
	IssueSmartUncorrectableErrors IssueCategory = "SmartUncorrectableErrors"
)

// Issue is one normalized finding with its scoring weight.
type Issue struct {
	Category          IssueCategory `json:"category"`
	SeverityDeduction int           `json:"severity_deduction"`
	Detail            string        `json:"detail"`
}

// Tier is the discrete health classification derived from the score.
type Tier string

const (
	TierExcellent Tier = "Excellent"
	TierGood      Tier = "Good"
	TierFair      Tier = "Fair"
	TierPoor      Tier = "Poor"
	TierCritical  Tier = "Critical"
)

// DiagnosticReport is the complete outcome of one run against one device.
// It is immutable once handed to the emitter; the cataloging system persists
// it verbatim, keyed by device identity and timestamp.
type DiagnosticReport struct {
	SchemaVersion  int               `json:"schema_version"`
	Device         DeviceHandle      `json:"device"`
	CheckType      string            `json:"check_type"`
	Smart          SmartSnapshot     `json:"smart"`
	Measurements   []TestMeasurement `json:"measurements"`
	Issues         []Issue           `json:"issues"`
	Score          int               `json:"score"`
	Tier           Tier              `json:"tier"`
	Recommendation string            `json:"recommendation"`
	Warnings       []string          `json:"warnings,omitempty"`
	Incomplete     []string          `json:"incomplete_probes,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
}

// Measurement returns the named measurement from the report, if recorded.
func (r *DiagnosticReport) Measurement(name string) (TestMeasurement, bool) {
	for _, m := range r.Measurements {
		if m.TestName == name {
			return m, true
		}
	}
	return TestMeasurement{}, false
}
