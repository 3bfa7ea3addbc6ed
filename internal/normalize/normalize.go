// Package normalize converts raw test measurements and SMART telemetry into
// typed issue findings. All domain rules live here, including the asymmetric
// warm-up exemptions that keep USB-docked drives from being falsely flagged.
package normalize

import (
	"fmt"
	"math"
	"strings"

	"drive-health-check/internal/config"
	"drive-health-check/internal/smart"
	"drive-health-check/pkg/types"
)

// Issues applies the fixed domain rules to the collected evidence. A
// measurement with no value is no evidence: it can never produce an issue.
// An unavailable SMART snapshot likewise contributes nothing.
func Issues(cfg *config.Config, snap types.SmartSnapshot, measurements []types.TestMeasurement) []types.Issue {
	n := normalizer{cfg: cfg, byName: make(map[string]types.TestMeasurement, len(measurements))}
	for _, m := range measurements {
		n.byName[m.TestName] = m
	}

	var issues []types.Issue
	issues = append(issues, n.spinUp()...)
	issues = append(issues, n.stiction()...)
	issues = append(issues, n.stability()...)
	issues = append(issues, n.surface(measurements)...)
	issues = append(issues, n.randomReads()...)
	issues = append(issues, n.sustained()...)
	issues = append(issues, n.load()...)
	issues = append(issues, n.smartFindings(snap)...)
	return issues
}

type normalizer struct {
	cfg    *config.Config
	byName map[string]types.TestMeasurement
}

func (n *normalizer) value(name string) (float64, bool) {
	m, ok := n.byName[name]
	if !ok || m.Value == nil {
		return 0, false
	}
	return *m.Value, true
}

func (n *normalizer) spinUp() []types.Issue {
	seconds, ok := n.value(types.MeasureSpinUpSeconds)
	if !ok || seconds <= n.cfg.SlowSpinUpSeconds {
		return nil
	}
	return []types.Issue{{
		Category:          types.IssueSlowSpinUp,
		SeverityDeduction: n.cfg.DeductSlowSpinUp,
		Detail:            fmt.Sprintf("spin-up took %.1fs (threshold %.0fs)", seconds, n.cfg.SlowSpinUpSeconds),
	}}
}

// stiction flags each slow repetition separately: a one-off fluke costs one
// increment, a systematic motor problem costs one per cycle.
func (n *normalizer) stiction() []types.Issue {
	var issues []types.Issue
	for i := 1; ; i++ {
		m, ok := n.byName[types.StictionCycleName(i)]
		if !ok {
			break
		}
		if m.Value != nil && *m.Value > n.cfg.SlowSpinUpSeconds {
			issues = append(issues, types.Issue{
				Category:          types.IssueRepeatedStictionSpinups,
				SeverityDeduction: n.cfg.DeductStictionRepeat,
				Detail:            fmt.Sprintf("spin-up cycle %d took %.1fs (threshold %.0fs)", i, *m.Value, n.cfg.SlowSpinUpSeconds),
			})
		}
	}
	return issues
}

// stability compares consecutive throughput samples. A swing beyond the
// threshold is instability, except an increase from the first sample to the
// second: USB bridges routinely read slow on the first transfer after
// connection, and penalizing that warm-up would flag every docked drive.
func (n *normalizer) stability() []types.Issue {
	var samples []*float64
	for i := 1; ; i++ {
		m, ok := n.byName[types.StabilitySampleName(i)]
		if !ok {
			break
		}
		samples = append(samples, m.Value)
	}

	worst := 0.0
	worstPair := 0
	for i := 1; i < len(samples); i++ {
		prev, cur := samples[i-1], samples[i]
		if prev == nil || cur == nil || *prev == 0 {
			continue
		}
		change := (*cur - *prev) / *prev * 100
		if math.Abs(change) <= n.cfg.InstabilityPercent {
			continue
		}
		if i == 1 && change > 0 {
			continue // first-to-second increase is warm-up, not instability
		}
		if math.Abs(change) > math.Abs(worst) {
			worst = change
			worstPair = i
		}
	}

	if worstPair == 0 {
		return nil
	}
	return []types.Issue{{
		Category:          types.IssueRotationalInstability,
		SeverityDeduction: n.cfg.DeductInstability,
		Detail: fmt.Sprintf("throughput swung %.1f%% between samples %d and %d (threshold %.0f%%)",
			worst, worstPair, worstPair+1, n.cfg.InstabilityPercent),
	}}
}

// surface evaluates each sampled offset independently; failures are not
// averaged away.
func (n *normalizer) surface(measurements []types.TestMeasurement) []types.Issue {
	var issues []types.Issue
	for _, m := range measurements {
		if !strings.HasPrefix(m.TestName, "surface_") || m.Value == nil || *m.Value != 0 {
			continue
		}
		area := strings.TrimPrefix(m.TestName, "surface_")
		detail := fmt.Sprintf("surface read failed in %s area", area)
		if m.Notes != "" {
			detail += ": " + m.Notes
		}
		issues = append(issues, types.Issue{
			Category:          types.IssueSurfaceReadFailure,
			SeverityDeduction: n.cfg.DeductSurfaceFailure,
			Detail:            detail,
		})
	}
	return issues
}

// randomReads deducts per failure, capped: many failures imply broad surface
// damage but must not single-handedly zero the score.
func (n *normalizer) randomReads() []types.Issue {
	failures, ok := n.value(types.MeasureRandomReadFailures)
	if !ok || failures <= 0 {
		return nil
	}

	deduction := int(failures) * n.cfg.DeductRandomFailure
	if deduction > n.cfg.RandomFailureCap {
		deduction = n.cfg.RandomFailureCap
	}

	detail := fmt.Sprintf("%d random reads failed", int(failures))
	if total, ok := n.value(types.MeasureRandomReadTotal); ok {
		detail = fmt.Sprintf("%d of %d random reads failed", int(failures), int(total))
	}

	return []types.Issue{{
		Category:          types.IssueRandomReadFailure,
		SeverityDeduction: deduction,
		Detail:            detail,
	}}
}

func (n *normalizer) sustained() []types.Issue {
	mbps, ok := n.value(types.MeasureSustainedThroughput)
	if !ok || mbps >= n.cfg.MinSustainedMBps {
		return nil
	}
	return []types.Issue{{
		Category:          types.IssuePoorSustainedThroughput,
		SeverityDeduction: n.cfg.DeductPoorThroughput,
		Detail:            fmt.Sprintf("sustained read %.1f MB/s is below the %.0f MB/s floor", mbps, n.cfg.MinSustainedMBps),
	}}
}

// load mirrors the stability probe's asymmetry: only a material decrease
// between the two intensive reads counts, an increase is benign warm-up.
func (n *normalizer) load() []types.Issue {
	first, okFirst := n.value(types.MeasureLoadFirst)
	second, okSecond := n.value(types.MeasureLoadSecond)
	if !okFirst || !okSecond || first == 0 {
		return nil
	}

	change := (second - first) / first * 100
	if change >= -n.cfg.LoadDegradationPercent {
		return nil
	}
	return []types.Issue{{
		Category:          types.IssueLoadInducedDegradation,
		SeverityDeduction: n.cfg.DeductLoadDegradation,
		Detail: fmt.Sprintf("throughput dropped %.1f%% under load (%.1f -> %.1f MB/s)",
			-change, first, second),
	}}
}

// smartFindings derives issues from SMART telemetry. Unavailable telemetry
// never deducts: absence of evidence is not evidence of failure.
func (n *normalizer) smartFindings(snap types.SmartSnapshot) []types.Issue {
	if !snap.Available {
		return nil
	}

	var issues []types.Issue

	if snap.OverallHealth == types.HealthFail {
		issues = append(issues, types.Issue{
			Category:          types.IssueSmartHealthFailed,
			SeverityDeduction: n.cfg.DeductSmartFailed,
			Detail:            "SMART overall health self-assessment: FAILED",
		})
	}

	realloc, ok := snap.Attribute(smart.AttrReallocatedSectors)
	if !ok {
		realloc, ok = snap.Attribute(smart.AttrReallocatedEvents)
	}
	if ok && realloc.RawValue > 0 {
		issues = append(issues, types.Issue{
			Category:          types.IssueSmartReallocatedSectors,
			SeverityDeduction: n.cfg.DeductReallocated,
			Detail:            fmt.Sprintf("%d reallocated sectors", realloc.RawValue),
		})
	}

	if pending, ok := snap.Attribute(smart.AttrPendingSectors); ok && pending.RawValue > 0 {
		issues = append(issues, types.Issue{
			Category:          types.IssueSmartPendingSectors,
			SeverityDeduction: n.cfg.DeductPending,
			Detail:            fmt.Sprintf("%d pending sectors", pending.RawValue),
		})
	}

	if uncorr, ok := snap.Attribute(smart.AttrUncorrectable); ok && uncorr.RawValue > 0 {
		issues = append(issues, types.Issue{
			Category:          types.IssueSmartUncorrectableErrors,
			SeverityDeduction: n.cfg.DeductUncorrectable,
			Detail:            fmt.Sprintf("%d uncorrectable sectors", uncorr.RawValue),
		})
	}

	return issues
}
