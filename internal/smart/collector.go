package smart

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"drive-health-check/internal/utils"
	"drive-health-check/pkg/types"
)

// Strategy is one passthrough protocol variant tried against the device.
// USB-to-SATA/NVMe bridges vary in which protocol they tunnel correctly, so
// strategies are tried cheaply in a fixed priority order instead of
// attempting bridge-chip detection.
type Strategy struct {
	Name string
	Args []string
}

// DefaultStrategies returns the passthrough priority order: generic SAT
// first, then smartctl's own auto-detection, then the common USB bridge
// chipset drivers.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "sat", Args: []string{"-d", "sat"}},
		{Name: "auto"},
		{Name: "usbjmicron", Args: []string{"-d", "usbjmicron"}},
		{Name: "usbsunplus", Args: []string{"-d", "usbsunplus"}},
		{Name: "usbcypress", Args: []string{"-d", "usbcypress"}},
	}
}

// Collector retrieves SMART telemetry. It never fails the pipeline: when
// every strategy comes up empty the snapshot is marked unavailable and the
// run continues, since absent telemetry is not evidence of failure.
type Collector struct {
	runner     utils.Runner
	strategies []Strategy
}

// NewCollector creates a collector with the default strategy order.
func NewCollector(runner utils.Runner) *Collector {
	return &Collector{runner: runner, strategies: DefaultStrategies()}
}

// NewCollectorWithStrategies creates a collector with a custom strategy list.
func NewCollectorWithStrategies(runner utils.Runner, strategies []Strategy) *Collector {
	return &Collector{runner: runner, strategies: strategies}
}

// Collect tries each strategy in order and stops at the first one whose
// output parses. smartctl frequently exits non-zero (its exit status is a
// bitmask) while still printing usable telemetry, so the exit code is
// ignored and only the output decides.
func (c *Collector) Collect(ctx context.Context, devicePath string) (types.SmartSnapshot, []string) {
	var warnings []string

	for _, st := range c.strategies {
		args := append([]string{"-a"}, st.Args...)
		args = append(args, devicePath)

		res := c.runner.Run(ctx, "smartctl", args...)
		if res.Err != nil {
			if res.TimedOut() {
				warnings = append(warnings, "smartctl timed out; SMART telemetry unavailable")
			} else {
				warnings = append(warnings, fmt.Sprintf("smartctl unavailable: %v", res.Err))
			}
			break
		}

		snap, ok := ParseOutput(res.Stdout)
		if !ok {
			log.Debug().Str("strategy", st.Name).Str("device", devicePath).
				Msg("SMART passthrough strategy produced no usable output")
			continue
		}

		snap.Available = true
		snap.Method = st.Name
		log.Debug().Str("strategy", st.Name).Str("device", devicePath).
			Int("attributes", len(snap.Attributes)).Msg("SMART telemetry collected")
		return snap, warnings
	}

	warnings = append(warnings, "SMART unavailable: no passthrough strategy produced usable telemetry")
	return types.SmartSnapshot{Available: false, OverallHealth: types.HealthUnknown}, warnings
}
