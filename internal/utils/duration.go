package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// HumanizeMinutes renders a leg duration as "2h 30m", "45m" or "2h".
// Zero or negative input renders as "0m" (a degraded leg, not an empty one).
func HumanizeMinutes(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}
	h := minutes / 60
	m := minutes % 60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

// ParseDurationText reverses HumanizeMinutes. An empty string (the day's last stop)
// parses as 0.
func ParseDurationText(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	total := 0
	for _, part := range strings.Fields(s) {
		switch {
		case strings.HasSuffix(part, "h"):
			if v, err := strconv.Atoi(strings.TrimSuffix(part, "h")); err == nil {
				total += v * 60
			}
		case strings.HasSuffix(part, "m"):
			if v, err := strconv.Atoi(strings.TrimSuffix(part, "m")); err == nil {
				total += v
			}
		}
	}
	return total
}
