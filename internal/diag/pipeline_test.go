package diag

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"drive-health-check/internal/config"
	"drive-health-check/internal/device"
	"drive-health-check/internal/probe"
	"drive-health-check/internal/utils"
	"drive-health-check/pkg/types"
)

const ddHealthy = "1048576000 bytes (1.0 GB, 1000 MiB) copied, 4.19 s, 250 MB/s\n"

const smartctlHealthy = `smartctl 7.4 2023-08-01 r5530 [x86_64-linux-6.8.0] (local build)

=== START OF INFORMATION SECTION ===
Device Model:     WDC WD40EFRX-68N32N0

=== START OF READ SMART DATA SECTION ===
SMART overall-health self-assessment test result: PASSED

SMART Attributes Data Structure revision number: 16
Vendor Specific SMART Attributes with Thresholds:
ID# ATTRIBUTE_NAME          FLAG     VALUE WORST THRESH TYPE      UPDATED  WHEN_FAILED RAW_VALUE
  5 Reallocated_Sector_Ct   0x0033   200   200   140    Pre-fail  Always       -       0
194 Temperature_Celsius     0x0022   112   103   000    Old_age   Always       -       34
197 Current_Pending_Sector  0x0032   200   200   000    Old_age   Always       -       0
198 Offline_Uncorrectable   0x0030   100   253   000    Old_age   Offline      -       0

SMART Error Log Version: 1
`

const smartctlFailing = `smartctl 7.4 2023-08-01 r5530 [x86_64-linux-6.8.0] (local build)

=== START OF READ SMART DATA SECTION ===
SMART overall-health self-assessment test result: FAILED!

Vendor Specific SMART Attributes with Thresholds:
ID# ATTRIBUTE_NAME          FLAG     VALUE WORST THRESH TYPE      UPDATED  WHEN_FAILED RAW_VALUE
  5 Reallocated_Sector_Ct   0x0033   100   100   140    Pre-fail  Always   FAILING_NOW 12
194 Temperature_Celsius     0x0022   112   103   000    Old_age   Always       -       34
197 Current_Pending_Sector  0x0032   200   200   000    Old_age   Always       -       3
198 Offline_Uncorrectable   0x0030   100   253   000    Old_age   Offline      -       0

SMART Error Log Version: 1
`

// diskImage creates a sparse 1000 MiB file standing in for the device.
func diskImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drive.img")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(1000 * 1024 * 1024); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func fastConfig() *config.Config {
	cfg := config.Default()
	cfg.SpinDownSettle = 0
	cfg.SampleSettle = 0
	cfg.LoadSettle = 0
	return cfg
}

// toolRunner fakes smartctl, hdparm and dd with canned output.
func toolRunner(smartctlOut string) utils.Runner {
	return utils.RunnerFunc(func(ctx context.Context, name string, args ...string) utils.Result {
		switch name {
		case "smartctl":
			if smartctlOut == "" {
				return utils.Result{ExitCode: 1, Stdout: "Smartctl open device failed: Operation not supported\n"}
			}
			return utils.Result{Stdout: smartctlOut}
		case "hdparm":
			return utils.Result{}
		case "dd":
			return utils.Result{Stderr: ddHealthy}
		}
		return utils.Result{ExitCode: 1}
	})
}

func newTestPipeline(runner utils.Runner) *Pipeline {
	return New(fastConfig(), runner, zerolog.Nop())
}

func TestRunHealthyDriveFullCheck(t *testing.T) {
	p := newTestPipeline(toolRunner(smartctlHealthy))

	report, err := p.Run(context.Background(), diskImage(t), probe.CheckFull)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.Score != 100 {
		t.Errorf("Expected score 100 for healthy drive, got %d (issues: %+v)", report.Score, report.Issues)
	}
	if report.Tier != types.TierExcellent {
		t.Errorf("Expected Excellent tier, got %s", report.Tier)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Expected no issues, got %+v", report.Issues)
	}
	if !report.Smart.Available || report.Smart.OverallHealth != types.HealthPass {
		t.Errorf("Expected SMART PASS, got %+v", report.Smart)
	}
	if len(report.Incomplete) != 0 {
		t.Errorf("Expected no incomplete probes, got %v", report.Incomplete)
	}

	temp, ok := report.Measurement(types.MeasureSmartTemperature)
	if !ok || temp.Value == nil || *temp.Value != 34 {
		t.Error("Expected plausible SMART temperature to be recorded as a measurement")
	}

	if _, ok := report.Measurement(types.MeasureSustainedThroughput); !ok {
		t.Error("Expected sustained throughput measurement in full check")
	}
	if report.CheckType != "full" {
		t.Errorf("Expected check_type full, got %s", report.CheckType)
	}
	if report.SchemaVersion != types.SchemaVersion {
		t.Errorf("Expected schema version %d, got %d", types.SchemaVersion, report.SchemaVersion)
	}
}

func TestRunSmartUnavailableStillScores(t *testing.T) {
	p := newTestPipeline(toolRunner(""))

	report, err := p.Run(context.Background(), diskImage(t), probe.CheckFull)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.Smart.Available {
		t.Error("Expected SMART to be unavailable")
	}
	if report.Score != 100 {
		t.Errorf("Expected mechanically healthy drive to score 100 without SMART, got %d (issues: %+v)", report.Score, report.Issues)
	}
	if !hasWarningContaining(report, "SMART unavailable") {
		t.Errorf("Expected SMART-unavailable warning, got %v", report.Warnings)
	}
	if _, ok := report.Measurement(types.MeasureSmartTemperature); ok {
		t.Error("No temperature measurement expected without SMART")
	}
}

func TestRunSmartFindingsReduceScore(t *testing.T) {
	p := newTestPipeline(toolRunner(smartctlFailing))

	report, err := p.Run(context.Background(), diskImage(t), probe.CheckQuick)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// FAILED overall (-20), 12 reallocated (-10), 3 pending (-10); the zero
	// uncorrectable count contributes nothing.
	if report.Score != 60 {
		t.Errorf("Expected score 60, got %d (issues: %+v)", report.Score, report.Issues)
	}
	if report.Tier != types.TierFair {
		t.Errorf("Expected Fair tier, got %s", report.Tier)
	}

	categories := make(map[types.IssueCategory]bool)
	for _, issue := range report.Issues {
		categories[issue.Category] = true
	}
	for _, want := range []types.IssueCategory{
		types.IssueSmartHealthFailed,
		types.IssueSmartReallocatedSectors,
		types.IssueSmartPendingSectors,
	} {
		if !categories[want] {
			t.Errorf("Expected issue category %s, got %+v", want, report.Issues)
		}
	}
	if categories[types.IssueSmartUncorrectableErrors] {
		t.Error("Zero uncorrectable count must not produce an issue")
	}
}

func TestRunTargetNotFound(t *testing.T) {
	p := newTestPipeline(toolRunner(smartctlHealthy))

	_, err := p.Run(context.Background(), "/dev/definitely-not-a-disk", probe.CheckFull)
	if !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestRunWithNoToolingProducesReport(t *testing.T) {
	runner := utils.RunnerFunc(func(ctx context.Context, name string, args ...string) utils.Result {
		return utils.Result{ExitCode: -1, Err: errors.New("exec: executable file not found in $PATH")}
	})
	p := newTestPipeline(runner)

	report, err := p.Run(context.Background(), diskImage(t), probe.CheckFull)
	if err != nil {
		t.Fatalf("Expected a report despite missing tools, got error: %v", err)
	}

	for _, m := range report.Measurements {
		if m.Value != nil {
			t.Errorf("Expected all measurements absent, got %s=%v", m.TestName, *m.Value)
		}
	}
	if report.Score != 100 {
		t.Errorf("Absent evidence must not deduct; got score %d", report.Score)
	}
	if !hasWarningContaining(report, "no diagnostic evidence") {
		t.Errorf("Expected zero-evidence warning, got %v", report.Warnings)
	}
}

func TestRunHighTemperatureWarns(t *testing.T) {
	hot := strings.Replace(smartctlHealthy,
		"112   103   000    Old_age   Always       -       34",
		"095   080   000    Old_age   Always       -       55", 1)
	p := newTestPipeline(toolRunner(hot))

	report, err := p.Run(context.Background(), diskImage(t), probe.CheckQuick)
	if err != nil {
		t.Fatal(err)
	}

	temp, ok := report.Measurement(types.MeasureSmartTemperature)
	if !ok || temp.Value == nil || *temp.Value != 55 {
		t.Fatal("Expected 55C temperature measurement")
	}
	if !hasWarningContaining(report, "temperature is high") {
		t.Errorf("Expected high-temperature warning, got %v", report.Warnings)
	}
	// High temperature warns but never deducts.
	if report.Score != 100 {
		t.Errorf("Expected score 100, got %d", report.Score)
	}
}

func TestRunImplausibleTemperatureDiscarded(t *testing.T) {
	bogus := strings.Replace(smartctlHealthy,
		"112   103   000    Old_age   Always       -       34",
		"001   001   000    Old_age   Always       -       255", 1)
	p := newTestPipeline(toolRunner(bogus))

	report, err := p.Run(context.Background(), diskImage(t), probe.CheckQuick)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := report.Measurement(types.MeasureSmartTemperature); ok {
		t.Error("Implausible temperature must not be recorded")
	}
	if !hasWarningContaining(report, "implausible SMART temperature") {
		t.Errorf("Expected discard warning, got %v", report.Warnings)
	}
}

func TestRunExpiredDeadlineEmitsEmptyLists(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(toolRunner(""))
	report, err := p.Run(ctx, diskImage(t), probe.CheckFull)
	if err != nil {
		t.Fatalf("Expected a report from an expired run, got error: %v", err)
	}

	if report.Measurements == nil {
		t.Error("Expected empty measurement list, not nil")
	}
	if report.Issues == nil {
		t.Error("Expected empty issue list, not nil")
	}
	if len(report.Incomplete) == 0 {
		t.Error("Expected incomplete probes to be flagged")
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatal(err)
	}
	for _, fragment := range []string{`"measurements":[]`, `"issues":[]`} {
		if !strings.Contains(string(data), fragment) {
			t.Errorf("Expected persisted report to contain %s, got %s", fragment, data)
		}
	}
}

func hasWarningContaining(report *types.DiagnosticReport, fragment string) bool {
	for _, w := range report.Warnings {
		if strings.Contains(w, fragment) {
			return true
		}
	}
	return false
}
