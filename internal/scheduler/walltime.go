package scheduler

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

var walltimeRe = regexp.MustCompile(`^(\d+):([0-5]\d):([0-5]\d)$`)

// maxWalltimeHours keeps HH:MM:SS within time.Duration.
const maxWalltimeHours = math.MaxInt64 / int64(time.Hour)

// ParseWalltime parses a Grid Engine h_rt value in strict HH:MM:SS form.
// Hours may exceed 24 ("72:00:00").
func ParseWalltime(s string) (time.Duration, error) {
	m := walltimeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q (expected HH:MM:SS)", ErrInvalidTimeFormat, s)
	}
	hours, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || hours >= maxWalltimeHours {
		return 0, fmt.Errorf("%w: %q (hours out of range)", ErrInvalidTimeFormat, s)
	}
	minutes, _ := strconv.ParseInt(m[2], 10, 64)
	seconds, _ := strconv.ParseInt(m[3], 10, 64)

	total := hours*3600 + minutes*60 + seconds
	return time.Duration(total) * time.Second, nil
}

// FormatWalltime formats d as HH:MM:SS, dropping fractional seconds.
func FormatWalltime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
