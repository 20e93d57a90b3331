// Package timeutil provides time formatting helpers for user-facing output.
package timeutil

import (
	"fmt"
	"time"
)

// FormatDuration renders a duration as "Xm Ys" (or "Ys" under a minute),
// rounded to the nearest second. Used to show rate limit waits.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	minutes := d / time.Minute
	seconds := (d % time.Minute) / time.Second

	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// FormatRetryAfter renders a rate limit hint in seconds for display.
func FormatRetryAfter(seconds int) string {
	return FormatDuration(time.Duration(seconds) * time.Second)
}
