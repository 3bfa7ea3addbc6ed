package utils

import (
	"strconv"
	"strings"
)

// ParseSizeToBytes converts human-readable size strings (as printed by
// lsblk, e.g. "465.8G") to bytes. Returns 0 for unparseable input.
func ParseSizeToBytes(sizeStr string) int64 {
	if sizeStr == "" {
		return 0
	}

	sizeStr = strings.ToUpper(strings.ReplaceAll(sizeStr, " ", ""))

	var numStr strings.Builder
	var unit string

	for i, r := range sizeStr {
		if r >= '0' && r <= '9' || r == '.' || r == ',' {
			if r == ',' {
				numStr.WriteRune('.')
				continue
			}
			numStr.WriteRune(r)
		} else {
			unit = sizeStr[i:]
			break
		}
	}

	value, err := strconv.ParseFloat(numStr.String(), 64)
	if err != nil {
		return 0
	}

	switch unit {
	case "B", "":
		return int64(value)
	case "KB", "K", "KIB":
		return int64(value * 1024)
	case "MB", "M", "MIB":
		return int64(value * 1024 * 1024)
	case "GB", "G", "GIB":
		return int64(value * 1024 * 1024 * 1024)
	case "TB", "T", "TIB":
		return int64(value * 1024 * 1024 * 1024 * 1024)
	case "PB", "P", "PIB":
		return int64(value * 1024 * 1024 * 1024 * 1024 * 1024)
	default:
		return int64(value)
	}
}
