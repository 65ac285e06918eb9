package audio

import (
	"fmt"
	"time"
)

// FormatDuration renders d as minutes and zero-padded seconds, e.g. 1:05.
// Fractions of a second are dropped and negative durations render as 0:00.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
