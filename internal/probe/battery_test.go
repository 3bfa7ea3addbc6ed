package probe

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"drive-health-check/internal/config"
	"drive-health-check/internal/utils"
	"drive-health-check/pkg/types"
)

const ddHealthy = "1048576000 bytes (1.0 GB, 1000 MiB) copied, 4.19 s, 250 MB/s\n"

func testDevice() types.DeviceHandle {
	return types.DeviceHandle{Path: "/dev/sdz", SizeBytes: 1000 * mib}
}

// healthyRunner answers every hdparm and dd call successfully.
func healthyRunner() utils.Runner {
	return utils.RunnerFunc(func(ctx context.Context, name string, args ...string) utils.Result {
		switch name {
		case "hdparm":
			return utils.Result{}
		case "dd":
			return utils.Result{Stderr: ddHealthy}
		}
		return utils.Result{ExitCode: 1}
	})
}

func newTestBattery(runner utils.Runner) *Battery {
	b := NewBattery(config.Default(), runner, testDevice())
	b.sleep = func(time.Duration) {}
	return b
}

func measurementNames(r Results) map[string]bool {
	names := make(map[string]bool)
	for _, m := range r.Measurements {
		names[m.TestName] = true
	}
	return names
}

func TestRunFullRecordsEveryMeasurement(t *testing.T) {
	b := newTestBattery(healthyRunner())
	r := b.Run(context.Background(), CheckFull)

	names := measurementNames(r)
	expected := []string{
		types.MeasureSpinUpSeconds,
		types.StabilitySampleName(1),
		types.StabilitySampleName(5),
		types.SurfaceAreaName("start"),
		types.SurfaceAreaName("middle"),
		types.SurfaceAreaName("end"),
		types.MeasureRandomReadTotal,
		types.MeasureRandomReadFailures,
		types.MeasureSustainedThroughput,
		types.MeasureLoadFirst,
		types.MeasureLoadSecond,
		types.StictionCycleName(1),
		types.StictionCycleName(3),
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("Expected measurement %s in full battery results", name)
		}
	}

	if len(r.Incomplete) != 0 {
		t.Errorf("Expected no incomplete probes, got %v", r.Incomplete)
	}
	if len(r.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", r.Warnings)
	}
}

func TestRunQuickSubset(t *testing.T) {
	b := newTestBattery(healthyRunner())
	r := b.Run(context.Background(), CheckQuick)

	names := measurementNames(r)
	if !names[types.MeasureSpinUpSeconds] || !names[types.MeasureSustainedThroughput] {
		t.Error("Expected quick check to include spin-up and sustained throughput")
	}
	if names[types.StabilitySampleName(1)] || names[types.StictionCycleName(1)] {
		t.Error("Quick check should not run stability or stiction probes")
	}
}

func TestRunStictionExtendedCycles(t *testing.T) {
	b := newTestBattery(healthyRunner())
	r := b.Run(context.Background(), CheckStiction)

	names := measurementNames(r)
	if !names[types.StictionCycleName(5)] {
		t.Error("Expected 5 stiction cycles in the focused stiction check")
	}
}

func TestRunSurfaceExtendedAreas(t *testing.T) {
	b := newTestBattery(healthyRunner())
	r := b.Run(context.Background(), CheckSurface)

	names := measurementNames(r)
	for _, area := range []string{"start", "quarter", "middle", "three_quarters", "end"} {
		if !names[types.SurfaceAreaName(area)] {
			t.Errorf("Expected surface area %s in extended surface check", area)
		}
	}
}

func TestHdparmMissingDegradesSpinUpOnly(t *testing.T) {
	runner := utils.RunnerFunc(func(ctx context.Context, name string, args ...string) utils.Result {
		if name == "hdparm" {
			return utils.Result{ExitCode: -1, Err: errors.New("exec: \"hdparm\": executable file not found in $PATH")}
		}
		return utils.Result{Stderr: ddHealthy}
	})

	b := newTestBattery(runner)
	r := b.Run(context.Background(), CheckFull)

	m, ok := findMeasurement(r, types.MeasureSpinUpSeconds)
	if !ok {
		t.Fatal("Expected spin-up measurement to be recorded even without hdparm")
	}
	if m.Value != nil {
		t.Error("Expected absent spin-up value when hdparm is missing")
	}
	if !strings.Contains(m.Notes, "hdparm unavailable") {
		t.Errorf("Expected hdparm-unavailable note, got %q", m.Notes)
	}

	// The rest of the battery still produced numbers.
	sustained, ok := findMeasurement(r, types.MeasureSustainedThroughput)
	if !ok || sustained.Value == nil {
		t.Error("Expected sustained throughput despite missing hdparm")
	}
}

func TestSurfaceFailureRecordedPerOffset(t *testing.T) {
	runner := utils.RunnerFunc(func(ctx context.Context, name string, args ...string) utils.Result {
		if name == "hdparm" {
			return utils.Result{}
		}
		// Reads beyond the first half of the device fail.
		for _, a := range args {
			if strings.HasPrefix(a, "skip=") {
				if skip, err := strconv.ParseInt(a[len("skip="):], 10, 64); err == nil && skip >= 500 {
					return utils.Result{ExitCode: 1, Stderr: "dd: error reading '/dev/sdz': Input/output error\n"}
				}
			}
		}
		return utils.Result{Stderr: ddHealthy}
	})

	b := newTestBattery(runner)
	var r Results
	b.surface(context.Background(), &r, standardSurfaceAreas)

	start, _ := findMeasurement(r, types.SurfaceAreaName("start"))
	if start.Value == nil || *start.Value != 1 {
		t.Error("Expected start area to pass")
	}
	middle, _ := findMeasurement(r, types.SurfaceAreaName("middle"))
	if middle.Value == nil || *middle.Value != 0 {
		t.Error("Expected middle area to fail")
	}
	end, _ := findMeasurement(r, types.SurfaceAreaName("end"))
	if end.Value == nil || *end.Value != 0 {
		t.Error("Expected end area to fail")
	}
}

func TestRandomReadsCountFailures(t *testing.T) {
	runner := utils.RunnerFunc(func(ctx context.Context, name string, args ...string) utils.Result {
		return utils.Result{ExitCode: 1, Stderr: "dd: error reading '/dev/sdz': Input/output error\n"}
	})

	b := newTestBattery(runner)
	var r Results
	b.randomReads(context.Background(), &r, 10)

	failures, ok := findMeasurement(r, types.MeasureRandomReadFailures)
	if !ok || failures.Value == nil {
		t.Fatal("Expected random read failure count")
	}
	if *failures.Value != 10 {
		t.Errorf("Expected 10 failures, got %v", *failures.Value)
	}
	total, _ := findMeasurement(r, types.MeasureRandomReadTotal)
	if total.Value == nil || *total.Value != 10 {
		t.Error("Expected 10 attempted random reads")
	}
}

func TestUnknownSizeSkipsExtentProbes(t *testing.T) {
	b := NewBattery(config.Default(), healthyRunner(), types.DeviceHandle{Path: "/dev/sdz"})
	b.sleep = func(time.Duration) {}

	var r Results
	b.surface(context.Background(), &r, standardSurfaceAreas)
	b.randomReads(context.Background(), &r, 10)

	for _, m := range r.Measurements {
		if m.Value != nil {
			t.Errorf("Expected all measurements absent without device size, got %s=%v", m.TestName, *m.Value)
		}
	}
	if len(r.Warnings) == 0 {
		t.Error("Expected warnings when extent probes are skipped")
	}
}

func TestRunDeadlineMidProbeMarksCurrentIncomplete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The run deadline expires while the stability probe's first read is
	// in flight; the stability probe itself must be flagged incomplete,
	// not only the probes that never started.
	runner := utils.RunnerFunc(func(c context.Context, name string, args ...string) utils.Result {
		if name == "hdparm" {
			return utils.Result{}
		}
		for _, a := range args {
			if a == "bs=64M" {
				cancel()
				return utils.Result{ExitCode: -1, Err: context.Canceled}
			}
		}
		return utils.Result{Stderr: ddHealthy}
	})

	b := newTestBattery(runner)
	r := b.Run(ctx, CheckFull)

	incomplete := make(map[string]bool)
	for _, name := range r.Incomplete {
		incomplete[name] = true
	}
	if !incomplete["rotational_stability"] {
		t.Errorf("Expected the interrupted probe in Incomplete, got %v", r.Incomplete)
	}
	for _, name := range []string{"surface_sampling", "random_reads", "sustained_throughput", "load_degradation", "stiction_cycles"} {
		if !incomplete[name] {
			t.Errorf("Expected skipped probe %s in Incomplete, got %v", name, r.Incomplete)
		}
	}
	if incomplete["spin_up"] {
		t.Errorf("Completed spin-up probe must not be flagged incomplete, got %v", r.Incomplete)
	}
}

func TestRunDeadlineMarksIncomplete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := newTestBattery(healthyRunner())
	r := b.Run(ctx, CheckFull)

	if len(r.Incomplete) != len(b.steps(CheckFull)) {
		t.Errorf("Expected all %d probes incomplete, got %v", len(b.steps(CheckFull)), r.Incomplete)
	}
}

func TestValidCheckType(t *testing.T) {
	for _, ct := range []CheckType{CheckQuick, CheckFull, CheckStiction, CheckSurface, CheckPerformance} {
		if !ValidCheckType(ct) {
			t.Errorf("Expected %s to be valid", ct)
		}
	}
	if ValidCheckType("bogus") {
		t.Error("Expected 'bogus' to be invalid")
	}
}

func findMeasurement(r Results, name string) (types.TestMeasurement, bool) {
	for _, m := range r.Measurements {
		if m.TestName == name {
			return m, true
		}
	}
	return types.TestMeasurement{}, false
}
