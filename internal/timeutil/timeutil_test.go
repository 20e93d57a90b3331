package timeutil_test

import (
	"testing"
	"time"

	"github.com/codelayer/gitbridge/internal/timeutil"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"seconds only", 45 * time.Second, "45s"},
		{"zero", 0, "0s"},
		{"minutes and seconds", 90 * time.Second, "1m 30s"},
		{"whole minutes", 2 * time.Minute, "2m 0s"},
		{"rounds subsecond", 1500 * time.Millisecond, "2s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := timeutil.FormatDuration(tt.d); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestFormatRetryAfter(t *testing.T) {
	if got := timeutil.FormatRetryAfter(30); got != "30s" {
		t.Errorf("FormatRetryAfter(30) = %q, want 30s", got)
	}
	if got := timeutil.FormatRetryAfter(90); got != "1m 30s" {
		t.Errorf("FormatRetryAfter(90) = %q, want 1m 30s", got)
	}
}
