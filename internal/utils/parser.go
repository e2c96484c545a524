package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var memoryRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)([KMGTkmgt])?$`)

// ParseMemoryToMB converts Grid Engine memory values like "2.0G", "500M", "4g"
// into megabytes. Upper-case units are powers of 1024, lower-case units powers
// of 1000, and a bare number is bytes.
func ParseMemoryToMB(mem string) (float64, error) {
	s := strings.TrimSpace(mem)

	matches := memoryRe.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid memory format: %s (expected '2.0G', '500M', etc.)", mem)
	}

	val, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", matches[1])
	}

	const mib = 1024 * 1024
	switch matches[2] {
	case "K":
		return val * 1024 / mib, nil
	case "M":
		return val, nil
	case "G":
		return val * 1024, nil
	case "T":
		return val * 1024 * 1024, nil
	case "k":
		return val * 1e3 / mib, nil
	case "m":
		return val * 1e6 / mib, nil
	case "g":
		return val * 1e9 / mib, nil
	case "t":
		return val * 1e12 / mib, nil
	default:
		return val / mib, nil
	}
}
