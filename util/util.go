// Package util contains misc internal utilities shared across the mount
// control packages: value clamping and duration conversion.
package util

import (
	"fmt"
	"strings"
	"time"
)

// Clamp limits min <= input <= max
func Clamp(input, min, max float64) float64 {
	if input < min {
		return min
	}
	if input > max {
		return max
	}
	return input
}

// Limiter represents a basic set of min,max limits
type Limiter struct {
	// Min is the minimum value
	Min float64 `json:"min"`

	// Max is the maximum value
	Max float64 `json:"max"`
}

// Clamp limits min <= input <= max
func (l *Limiter) Clamp(input float64) float64 {
	return Clamp(input, l.Min, l.Max)
}

// Check verifies if min <= input <= max, returns true if this is the case
func (l *Limiter) Check(input float64) bool {
	if input < l.Min {
		return false
	}
	if input > l.Max {
		return false
	}
	return true
}

// MergeErrors converts many errors to a single one, newline separated
func MergeErrors(errs []error) error {
	var strs []string
	for idx := 0; idx < len(errs); idx++ {
		err := errs[idx]
		if err != nil {
			strs = append(strs, err.Error())
		}
	}
	err := fmt.Errorf(strings.Join(strs, "\n"))
	if err.Error() == "" {
		return nil
	}
	return err
}

// SecsToDuration converts floating point seconds to a time.Duration
func SecsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
