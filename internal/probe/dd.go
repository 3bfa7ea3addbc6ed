package probe

import (
	"regexp"
	"strconv"
	"strings"
)

// dd prints its transfer summary on stderr, e.g.
// "1073741824 bytes (1.1 GB, 1.0 GiB) copied, 4.29944 s, 250 MB/s".
var (
	ddSpeedRe   = regexp.MustCompile(`([\d.]+)\s+([kMG]?B)/s`)
	ddElapsedRe = regexp.MustCompile(`copied,\s*([\d.]+)\s*s`)
)

// parseThroughputMBps extracts the transfer rate from dd output, normalized
// to (decimal) MB/s. The last match wins since status lines may repeat.
func parseThroughputMBps(output string) (float64, bool) {
	matches := ddSpeedRe.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return 0, false
	}
	m := matches[len(matches)-1]

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	switch strings.ToUpper(m[2]) {
	case "B":
		return value / 1e6, true
	case "KB":
		return value / 1e3, true
	case "MB":
		return value, true
	case "GB":
		return value * 1e3, true
	}
	return 0, false
}

// parseElapsedSeconds extracts the transfer duration from dd output.
func parseElapsedSeconds(output string) (float64, bool) {
	matches := ddElapsedRe.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return 0, false
	}
	value, err := strconv.ParseFloat(matches[len(matches)-1][1], 64)
	return value, err == nil
}

// throughputMBps extracts the transfer rate, computing it from the elapsed
// time and the known byte count when dd prints no rate field of its own.
func throughputMBps(output string, bytes int64) (float64, bool) {
	if mbps, ok := parseThroughputMBps(output); ok {
		return mbps, true
	}
	if secs, ok := parseElapsedSeconds(output); ok && secs > 0 && bytes > 0 {
		return float64(bytes) / 1e6 / secs, true
	}
	return 0, false
}
