package types

import "fmt"

// Canonical measurement names shared by the test battery (producer) and the
// signal normalizer (consumer).
const (
	MeasureSpinUpSeconds       = "spin_up_seconds"
	MeasureRandomReadFailures  = "random_read_failures"
	MeasureRandomReadTotal     = "random_read_total"
	MeasureSustainedThroughput = "sustained_throughput_mbps"
	MeasureLoadFirst           = "load_first_mbps"
	MeasureLoadSecond          = "load_second_mbps"
	MeasureSmartTemperature    = "smart_temperature_celsius"
)

// StabilitySampleName names the i-th rotational stability sample (1-based).
func StabilitySampleName(i int) string {
	return fmt.Sprintf("stability_sample_%d", i)
}

// StictionCycleName names the i-th repeated spin-up cycle (1-based).
func StictionCycleName(i int) string {
	return fmt.Sprintf("stiction_cycle_%d", i)
}

// SurfaceAreaName names a surface sampling measurement for a drive area.
func SurfaceAreaName(area string) string {
	return "surface_" + area
}
