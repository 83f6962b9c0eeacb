package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DurationOrDefault parses a timeout and falls back to defaultValue when empty.
// Bare numbers ("60", "2.5") are seconds; anything else is a Go duration ("1m30s").
func DurationOrDefault(value string, defaultValue string) (time.Duration, error) {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		candidate = strings.TrimSpace(defaultValue)
	}
	if candidate == "" {
		return 0, fmt.Errorf("duration value is empty")
	}

	if secs, err := strconv.ParseFloat(candidate, 64); err == nil {
		if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, fmt.Errorf("duration %q is not a positive number of seconds", candidate)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}

	d, err := time.ParseDuration(candidate)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", candidate, err)
	}
	return d, nil
}
