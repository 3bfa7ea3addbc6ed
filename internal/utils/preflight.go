package utils

// ToolStatus describes one external tool the probes shell out to and whether
// it is present on this host. Every tool is optional: a missing one degrades
// only the probes that depend on it.
type ToolStatus struct {
	Name      string
	Purpose   string
	Available bool
	Version   string
}

type toolSpec struct {
	name        string
	purpose     string
	versionFlag string
}

var probeTools = []toolSpec{
	{name: "smartctl", purpose: "SMART telemetry collection", versionFlag: "--version"},
	{name: "hdparm", purpose: "spin-down for spin-up and stiction timing", versionFlag: "-V"},
	{name: "dd", purpose: "all read probes", versionFlag: "--version"},
	{name: "blockdev", purpose: "device size query", versionFlag: "--version"},
	{name: "lsblk", purpose: "device size fallback and model lookup", versionFlag: "--version"},
}

// Preflight reports the availability of every external tool the diagnostic
// battery may invoke, with the tool's version where it can be read.
func Preflight() []ToolStatus {
	statuses := make([]ToolStatus, 0, len(probeTools))
	for _, spec := range probeTools {
		st := ToolStatus{Name: spec.name, Purpose: spec.purpose}
		if CommandExists(spec.name) {
			st.Available = true
			if v, err := GetToolVersion(spec.name, spec.versionFlag); err == nil {
				st.Version = v
			}
		}
		statuses = append(statuses, st)
	}
	return statuses
}
