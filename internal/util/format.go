// Package util holds stateless presentation helpers.
package util

import (
	"fmt"
	"time"
)

const unitStep = 1024.0

var byteUnits = []string{"KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count the way the volume views show it:
// whole bytes below 1 KB, otherwise one decimal in KB, MB, GB or TB.
// Units stop at TB. Negative counts render as "0 Bytes".
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	if bytes < unitStep {
		return fmt.Sprintf("%d Bytes", bytes)
	}

	v := float64(bytes) / unitStep
	unit := 0
	for v >= unitStep && unit < len(byteUnits)-1 {
		v /= unitStep
		unit++
	}
	return fmt.Sprintf("%.1f %s", v, byteUnits[unit])
}

// FormatBytesU is FormatBytes for unsigned capacities.
func FormatBytesU(bytes uint64) string {
	const maxInt64 = 1<<63 - 1
	if bytes > maxInt64 {
		bytes = maxInt64
	}
	return FormatBytes(int64(bytes))
}

// FormatDuration renders d as total minutes and seconds, "m:ss".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// Percent returns part as a percentage of total.
func Percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// TruncateString truncates s to maxLen runes, ending in "..." when cut.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
