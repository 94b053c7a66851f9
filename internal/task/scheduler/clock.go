package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
)

var reClock = regexp.MustCompile(`^(\d{2}):(\d{2})(?::(\d{2}))?$`)

// ParseClock validates a 24-hour "HH:MM" or "HH:MM:SS" string.
func ParseClock(s string) (hour, minute, second int, err error) {
	m := reClock.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("invalid time %q, expected HH:MM or HH:MM:SS", s)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}
	if hour > 23 || minute > 59 || second > 59 {
		return 0, 0, 0, fmt.Errorf("invalid time %q, out of range", s)
	}
	return hour, minute, second, nil
}

// DailySpec converts a clock into a 6-field cron spec with seconds.
func DailySpec(clock string) (string, error) {
	h, m, sec, err := ParseClock(clock)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d %d * * *", sec, m, h), nil
}
