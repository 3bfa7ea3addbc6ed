package smart

import (
	"regexp"
	"strconv"
	"strings"

	"drive-health-check/pkg/types"
)

// Names of the attributes the normalizer cares about. Lookup is by name, not
// table position, since row order and count vary by vendor.
const (
	AttrReallocatedSectors = "Reallocated_Sector_Ct"
	AttrReallocatedEvents  = "Reallocated_Event_Count"
	AttrPendingSectors     = "Current_Pending_Sector"
	AttrUncorrectable      = "Offline_Uncorrectable"
	AttrPowerOnHours       = "Power_On_Hours"
	AttrTemperature        = "Temperature_Celsius"
	AttrAirflowTemperature = "Airflow_Temperature_Cel"
)

var (
	ataHealthRe  = regexp.MustCompile(`SMART overall-health self-assessment test result:\s*(\S+)`)
	scsiHealthRe = regexp.MustCompile(`SMART Health Status:\s*(.+)`)
	leadingIntRe = regexp.MustCompile(`^\d+`)
)

// ParseOutput parses smartctl text output into a snapshot. The second return
// value reports whether the output carried any usable telemetry at all (an
// overall health line or at least one attribute row); strategies whose output
// carries neither are treated as failed.
func ParseOutput(output string) (types.SmartSnapshot, bool) {
	snap := types.SmartSnapshot{OverallHealth: types.HealthUnknown}
	usable := false

	if m := ataHealthRe.FindStringSubmatch(output); m != nil {
		snap.OverallHealth = healthFromWord(m[1])
		usable = true
	} else if m := scsiHealthRe.FindStringSubmatch(output); m != nil {
		snap.OverallHealth = healthFromWord(strings.TrimSpace(m[1]))
		usable = true
	}

	snap.Attributes = parseAttributeTable(output)
	if len(snap.Attributes) > 0 {
		usable = true
	}

	return snap, usable
}

func healthFromWord(word string) types.OverallHealth {
	switch strings.ToUpper(strings.TrimSpace(word)) {
	case "PASSED", "PASS", "OK":
		return types.HealthPass
	case "FAILED", "FAIL", "FAILED!":
		return types.HealthFail
	default:
		return types.HealthUnknown
	}
}

// parseAttributeTable extracts the vendor attribute rows. Standard layout:
//
//	ID# ATTRIBUTE_NAME  FLAG  VALUE WORST THRESH TYPE  UPDATED WHEN_FAILED RAW_VALUE
//	  5 Reallocated_Sector_Ct 0x0033 100  100   010   Pre-fail Always     -       0
//
// Rows with missing or extra columns are tolerated where possible; rows that
// cannot be tokenized into the core sextuple are skipped, never fatal.
func parseAttributeTable(output string) []types.SmartAttribute {
	var attrs []types.SmartAttribute

	inTable := false
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)

		if !inTable {
			if strings.HasPrefix(trimmed, "ID#") && strings.Contains(trimmed, "ATTRIBUTE_NAME") {
				inTable = true
			}
			continue
		}
		if trimmed == "" {
			break
		}

		if attr, ok := parseAttributeRow(trimmed); ok {
			attrs = append(attrs, attr)
		}
	}

	return attrs
}

func parseAttributeRow(line string) (types.SmartAttribute, bool) {
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return types.SmartAttribute{}, false
	}

	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return types.SmartAttribute{}, false
	}

	value, errV := strconv.Atoi(fields[3])
	worst, errW := strconv.Atoi(fields[4])
	thresh, errT := strconv.Atoi(fields[5])
	if errV != nil || errW != nil || errT != nil {
		return types.SmartAttribute{}, false
	}

	// The raw value is the tenth column in the standard layout; vendors that
	// append commentary ("34 (Min/Max 21/45)") still lead with the integer.
	rawField := fields[len(fields)-1]
	if len(fields) >= 10 {
		rawField = fields[9]
	}
	var raw int64
	if m := leadingIntRe.FindString(rawField); m != "" {
		raw, _ = strconv.ParseInt(m, 10, 64)
	}

	return types.SmartAttribute{
		ID:        id,
		Name:      fields[1],
		Value:     value,
		Worst:     worst,
		Threshold: thresh,
		RawValue:  raw,
	}, true
}

// Temperature returns the drive temperature from the attribute table, trying
// the dedicated sensor attribute before the airflow variant.
func Temperature(snap types.SmartSnapshot) (float64, bool) {
	for _, name := range []string{AttrTemperature, AttrAirflowTemperature} {
		if attr, ok := snap.Attribute(name); ok {
			return float64(attr.RawValue), true
		}
	}
	return 0, false
}
