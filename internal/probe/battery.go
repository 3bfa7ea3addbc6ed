// Package probe implements the mechanical test battery: a fixed, ordered
// sequence of timed read-only I/O probes, each exercising a different
// physical failure mode of a drive that has been sitting in storage.
package probe

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"drive-health-check/internal/config"
	"drive-health-check/internal/utils"
	"drive-health-check/pkg/types"
)

const mib = 1024 * 1024

// CheckType selects which probes run.
type CheckType string

const (
	CheckQuick       CheckType = "quick"
	CheckFull        CheckType = "full"
	CheckStiction    CheckType = "stiction"
	CheckSurface     CheckType = "surface"
	CheckPerformance CheckType = "performance"
)

// ValidCheckType reports whether t names a known check type.
func ValidCheckType(t CheckType) bool {
	switch t {
	case CheckQuick, CheckFull, CheckStiction, CheckSurface, CheckPerformance:
		return true
	}
	return false
}

// Results accumulates everything the battery produced. Measurements are
// recorded even when a probe could not compute a number; a missing value is
// "no evidence", never an inferred issue.
type Results struct {
	Measurements []types.TestMeasurement
	Warnings     []string
	Incomplete   []string
}

func (r *Results) record(m types.TestMeasurement) {
	r.Measurements = append(r.Measurements, m)
}

func (r *Results) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Battery runs the probe sequence against one device. All probes are
// read-only or power-state-only; nothing is ever written to the target.
type Battery struct {
	cfg    *config.Config
	runner utils.Runner
	device types.DeviceHandle

	sleep func(time.Duration)
	rng   *rand.Rand
}

// NewBattery creates a battery for the given device.
func NewBattery(cfg *config.Config, runner utils.Runner, device types.DeviceHandle) *Battery {
	return &Battery{
		cfg:    cfg,
		runner: runner,
		device: device,
		sleep:  time.Sleep,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type step struct {
	name string
	fn   func(ctx context.Context, r *Results)
}

func (b *Battery) steps(checkType CheckType) []step {
	spinUp := step{"spin_up", b.spinUp}
	stability := step{"rotational_stability", b.stability}
	surface := step{"surface_sampling", func(ctx context.Context, r *Results) {
		b.surface(ctx, r, standardSurfaceAreas)
	}}
	surfaceExtended := step{"surface_sampling", func(ctx context.Context, r *Results) {
		b.surface(ctx, r, extendedSurfaceAreas)
	}}
	random := step{"random_reads", func(ctx context.Context, r *Results) {
		b.randomReads(ctx, r, b.cfg.RandomReadPoints)
	}}
	randomExtended := step{"random_reads", func(ctx context.Context, r *Results) {
		b.randomReads(ctx, r, b.cfg.SurfaceRandomPoints)
	}}
	sustained := step{"sustained_throughput", b.sustained}
	load := step{"load_degradation", b.load}
	stiction := step{"stiction_cycles", func(ctx context.Context, r *Results) {
		b.stiction(ctx, r, b.cfg.StictionCycles)
	}}
	stictionExtended := step{"stiction_cycles", func(ctx context.Context, r *Results) {
		b.stiction(ctx, r, b.cfg.StictionCyclesExtended)
	}}

	switch checkType {
	case CheckQuick:
		return []step{spinUp, sustained}
	case CheckStiction:
		return []step{spinUp, stictionExtended}
	case CheckSurface:
		return []step{surfaceExtended, randomExtended}
	case CheckPerformance:
		return []step{sustained, load}
	default: // CheckFull
		return []step{spinUp, stability, surface, random, sustained, load, stiction}
	}
}

// Run executes the probe sequence for the given check type. Each probe is
// bounded by its own timeout; a probe that times out or fails degrades only
// its own measurements and the battery moves on.
func (b *Battery) Run(ctx context.Context, checkType CheckType) Results {
	var r Results

	steps := b.steps(checkType)
	for i, s := range steps {
		if ctx.Err() != nil {
			for _, rest := range steps[i:] {
				r.Incomplete = append(r.Incomplete, rest.name)
			}
			r.warn("run deadline reached; remaining probes skipped")
			break
		}

		log.Debug().Str("probe", s.name).Str("device", b.device.Path).Msg("running probe")
		pctx, cancel := context.WithTimeout(ctx, b.cfg.ProbeTimeout)
		s.fn(pctx, &r)
		interrupted := pctx.Err() != nil
		cancel()

		// The interrupted probe itself is incomplete, whether its own
		// timeout fired or the run deadline expired mid-flight.
		if interrupted {
			r.Incomplete = append(r.Incomplete, s.name)
			if ctx.Err() == nil {
				r.warn("probe %s exceeded its %s timeout", s.name, b.cfg.ProbeTimeout)
			}
		}
	}

	return r
}

// spinUp forces the drive to standby, waits for it to settle, then times the
// first block read. Elevated latency indicates motor or stiction trouble
// after long storage.
func (b *Battery) spinUp(ctx context.Context, r *Results) {
	seconds, err := b.spinCycle(ctx, "1M")
	if err != nil {
		r.record(types.MeasureAbsent(types.MeasureSpinUpSeconds, "s", err.Error()))
		r.warn("spin-up probe: %v", err)
		return
	}
	r.record(types.Measure(types.MeasureSpinUpSeconds, seconds, "s"))
}

// stiction repeats the spin-down/spin-up cycle to distinguish a one-off slow
// start from a systematic stiction problem.
func (b *Battery) stiction(ctx context.Context, r *Results, cycles int) {
	for i := 1; i <= cycles; i++ {
		if ctx.Err() != nil {
			r.record(types.MeasureAbsent(types.StictionCycleName(i), "s", "probe timed out"))
			continue
		}
		seconds, err := b.spinCycle(ctx, "512k")
		if err != nil {
			r.record(types.MeasureAbsent(types.StictionCycleName(i), "s", err.Error()))
			r.warn("stiction cycle %d: %v", i, err)
			continue
		}
		r.record(types.Measure(types.StictionCycleName(i), seconds, "s"))
	}
}

// spinCycle spins the drive down, waits, and times the first read after the
// command returns. The read is timed by wall clock, not dd's own summary,
// since the latency of interest includes command issue and platter spin-up.
func (b *Battery) spinCycle(ctx context.Context, bs string) (float64, error) {
	res := b.runner.Run(ctx, "hdparm", "-y", b.device.Path)
	if res.Err != nil {
		return 0, fmt.Errorf("hdparm unavailable: %v", res.Err)
	}
	if res.ExitCode != 0 {
		return 0, fmt.Errorf("hdparm -y failed: %s", firstLine(res.Stderr))
	}
	b.sleep(b.cfg.SpinDownSettle)

	start := time.Now()
	res = b.readChunk(ctx, bs, 1, 0, false)
	elapsed := time.Since(start).Seconds()
	if res.Failed() {
		return 0, fmt.Errorf("timed read failed: %s", readFailure(res))
	}
	return elapsed, nil
}

// stability performs several large sequential reads and records throughput
// per iteration; the normalizer compares consecutive samples.
func (b *Battery) stability(ctx context.Context, r *Results) {
	for i := 1; i <= b.cfg.StabilitySamples; i++ {
		name := types.StabilitySampleName(i)
		if ctx.Err() != nil {
			r.record(types.MeasureAbsent(name, "MB/s", "probe timed out"))
			continue
		}

		res := b.readChunk(ctx, "64M", 8, 0, true)
		if res.Failed() {
			r.record(types.MeasureAbsent(name, "MB/s", readFailure(res)))
			r.warn("stability sample %d failed: %s", i, readFailure(res))
		} else if mbps, ok := throughputMBps(res.Stderr, 8*64*mib); ok {
			r.record(types.Measure(name, mbps, "MB/s"))
		} else {
			r.record(types.MeasureAbsent(name, "MB/s", "no parseable throughput in dd output"))
		}

		if i < b.cfg.StabilitySamples {
			b.sleep(b.cfg.SampleSettle)
		}
	}
}

type surfaceArea struct {
	name     string
	fraction float64 // offset as a fraction of device size
}

var standardSurfaceAreas = []surfaceArea{
	{"start", 0},
	{"middle", 0.5},
	{"end", 1}, // clamped to size minus one sample below
}

var extendedSurfaceAreas = []surfaceArea{
	{"start", 0},
	{"quarter", 0.25},
	{"middle", 0.5},
	{"three_quarters", 0.75},
	{"end", 0.95},
}

// surface reads small fixed-size blocks at representative offsets. Each
// offset is evaluated independently; one bad area must not mask another.
func (b *Battery) surface(ctx context.Context, r *Results, areas []surfaceArea) {
	sizeMiB := b.device.SizeBytes / mib
	if sizeMiB <= int64(b.cfg.SurfaceSampleMiB) {
		for _, area := range areas {
			r.record(types.MeasureAbsent(types.SurfaceAreaName(area.name), "passed", "device size unknown or too small"))
		}
		r.warn("surface probe skipped: device size unknown or too small")
		return
	}

	sample := int64(b.cfg.SurfaceSampleMiB)
	for _, area := range areas {
		skip := int64(float64(sizeMiB) * area.fraction)
		if skip > sizeMiB-sample {
			skip = sizeMiB - sample
		}

		name := types.SurfaceAreaName(area.name)
		if ctx.Err() != nil {
			r.record(types.MeasureAbsent(name, "passed", "probe timed out"))
			continue
		}

		res := b.readChunk(ctx, "1M", sample, skip, false)
		if res.Err != nil {
			r.record(types.MeasureAbsent(name, "passed", readFailure(res)))
			r.warn("surface %s sample: %s", area.name, readFailure(res))
			continue
		}
		passed := 0.0
		notes := ""
		if res.ExitCode == 0 {
			passed = 1.0
		} else {
			notes = fmt.Sprintf("read error at %d MiB: %s", skip, firstLine(res.Stderr))
		}
		m := types.Measure(name, passed, "passed")
		m.Notes = notes
		r.record(m)
	}
}

// randomReads samples pseudo-random offsets across the full extent and
// counts read failures. More failures imply broader surface damage.
func (b *Battery) randomReads(ctx context.Context, r *Results, points int) {
	sizeMiB := b.device.SizeBytes / mib
	margin := int64(10) // room for the 5 MiB read at the chosen offset
	if sizeMiB <= margin {
		r.record(types.MeasureAbsent(types.MeasureRandomReadFailures, "count", "device size unknown or too small"))
		r.warn("random read probe skipped: device size unknown or too small")
		return
	}

	failures := 0
	attempted := 0
	var failedOffsets []int64
	for i := 0; i < points; i++ {
		if ctx.Err() != nil {
			break
		}
		attempted++

		skip := b.rng.Int63n(sizeMiB - margin)
		res := b.readChunk(ctx, "1M", 5, skip, false)
		if res.Err != nil {
			// tool-level failure, not a surface failure
			r.record(types.MeasureAbsent(types.MeasureRandomReadFailures, "count", readFailure(res)))
			r.warn("random read probe: %s", readFailure(res))
			return
		}
		if res.ExitCode != 0 {
			failures++
			failedOffsets = append(failedOffsets, skip)
		}
	}

	total := types.Measure(types.MeasureRandomReadTotal, float64(attempted), "count")
	r.record(total)

	m := types.Measure(types.MeasureRandomReadFailures, float64(failures), "count")
	if failures > 0 {
		m.Notes = fmt.Sprintf("failed offsets (MiB): %v", failedOffsets)
	}
	r.record(m)
}

// sustained reads a large contiguous extent and records average throughput.
func (b *Battery) sustained(ctx context.Context, r *Results) {
	res := b.readChunk(ctx, "1M", int64(b.cfg.SustainedReadMiB), 0, false)
	if res.Failed() {
		r.record(types.MeasureAbsent(types.MeasureSustainedThroughput, "MB/s", readFailure(res)))
		r.warn("sustained throughput probe: %s", readFailure(res))
		return
	}
	if mbps, ok := throughputMBps(res.Stderr, int64(b.cfg.SustainedReadMiB)*mib); ok {
		r.record(types.Measure(types.MeasureSustainedThroughput, mbps, "MB/s"))
	} else {
		r.record(types.MeasureAbsent(types.MeasureSustainedThroughput, "MB/s", "no parseable throughput in dd output"))
	}
}

// load measures throughput before and after a settle period under intensive
// reading. A material decrease is a thermal/bearing proxy when SMART
// temperature data is missing; an increase is benign warm-up.
func (b *Battery) load(ctx context.Context, r *Results) {
	first := b.loadSample(ctx, r, types.MeasureLoadFirst)
	if first {
		b.sleep(b.cfg.LoadSettle)
	}
	b.loadSample(ctx, r, types.MeasureLoadSecond)
}

func (b *Battery) loadSample(ctx context.Context, r *Results, name string) bool {
	if ctx.Err() != nil {
		r.record(types.MeasureAbsent(name, "MB/s", "probe timed out"))
		return false
	}
	res := b.readChunk(ctx, "1M", int64(b.cfg.SustainedReadMiB), 0, true)
	if res.Failed() {
		r.record(types.MeasureAbsent(name, "MB/s", readFailure(res)))
		r.warn("load probe sample %s: %s", name, readFailure(res))
		return false
	}
	if mbps, ok := throughputMBps(res.Stderr, int64(b.cfg.SustainedReadMiB)*mib); ok {
		r.record(types.Measure(name, mbps, "MB/s"))
		return true
	}
	r.record(types.MeasureAbsent(name, "MB/s", "no parseable throughput in dd output"))
	return true
}

// readChunk runs one dd read against the device. skip is in bs-sized blocks
// and is only meaningful with bs=1M, where it counts MiB.
func (b *Battery) readChunk(ctx context.Context, bs string, count, skip int64, direct bool) utils.Result {
	args := []string{
		"if=" + b.device.Path,
		"of=/dev/null",
		"bs=" + bs,
		fmt.Sprintf("count=%d", count),
	}
	if skip > 0 {
		args = append(args, fmt.Sprintf("skip=%d", skip))
	}
	if direct {
		args = append(args, "iflag=direct")
	}
	return b.runner.Run(ctx, "dd", args...)
}

func readFailure(res utils.Result) string {
	if res.TimedOut() {
		return "timed out"
	}
	if res.Err != nil {
		return res.Err.Error()
	}
	return fmt.Sprintf("exit %d: %s", res.ExitCode, firstLine(res.Stderr))
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
