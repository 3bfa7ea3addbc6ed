// Package report serializes a diagnostic report for the cataloging system
// (JSON) and for humans (text). Emission is the pipeline's final stage and
// has no side effects beyond writing to the given writer.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"drive-health-check/pkg/types"
)

// EmitJSON writes the report as indented JSON.
func EmitJSON(w io.Writer, r *types.DiagnosticReport) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// EmitText writes a human-readable rendering of the report.
func EmitText(w io.Writer, r *types.DiagnosticReport) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Drive Health Report (%s check)\n", r.CheckType)
	fmt.Fprintf(&b, "Device:   %s\n", r.Device.Path)
	if r.Device.ModelName != "" {
		fmt.Fprintf(&b, "Model:    %s\n", r.Device.ModelName)
	}
	if r.Device.SizeBytes > 0 {
		fmt.Fprintf(&b, "Size:     %s\n", humanSize(r.Device.SizeBytes))
	}
	fmt.Fprintf(&b, "Time:     %s\n", r.Timestamp.Format(time.RFC3339))

	fmt.Fprintf(&b, "\nSMART: ")
	if r.Smart.Available {
		fmt.Fprintf(&b, "%s (via %s, %d attributes)\n", r.Smart.OverallHealth, r.Smart.Method, len(r.Smart.Attributes))
	} else {
		fmt.Fprintf(&b, "unavailable\n")
	}

	if len(r.Measurements) > 0 {
		fmt.Fprintf(&b, "\nMeasurements:\n")
		for _, m := range r.Measurements {
			if m.Value != nil {
				fmt.Fprintf(&b, "  %-28s %10.2f %s\n", m.TestName, *m.Value, m.Unit)
			} else {
				fmt.Fprintf(&b, "  %-28s %10s    (%s)\n", m.TestName, "-", m.Notes)
			}
		}
	}

	if len(r.Issues) > 0 {
		fmt.Fprintf(&b, "\nIssues:\n")
		for _, issue := range r.Issues {
			fmt.Fprintf(&b, "  [-%d] %s: %s\n", issue.SeverityDeduction, issue.Category, issue.Detail)
		}
	} else {
		fmt.Fprintf(&b, "\nIssues: none detected\n")
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings:\n")
		for _, warning := range r.Warnings {
			fmt.Fprintf(&b, "  ! %s\n", warning)
		}
	}
	if len(r.Incomplete) > 0 {
		fmt.Fprintf(&b, "\nIncomplete probes: %s\n", strings.Join(r.Incomplete, ", "))
	}

	fmt.Fprintf(&b, "\nScore: %d/100  Tier: %s\n", r.Score, r.Tier)
	fmt.Fprintf(&b, "Recommendation: %s\n", r.Recommendation)

	_, err := io.WriteString(w, b.String())
	return err
}

func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
