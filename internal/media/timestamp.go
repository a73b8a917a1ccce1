package media

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatSRTTimestamp renders seconds as HH:MM:SS,mmm (comma millisecond
// separator, per the SRT format).
func FormatSRTTimestamp(seconds float64) string {
	h, m, s, ms := splitClock(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// FormatVTTTimestamp renders seconds as HH:MM:SS.mmm (dot millisecond
// separator, per WebVTT).
func FormatVTTTimestamp(seconds float64) string {
	h, m, s, ms := splitClock(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// FormatASSTimestamp renders seconds as H:MM:SS.cc (centiseconds, per
// Advanced SubStation Alpha).
func FormatASSTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(math.Round(seconds * 100))
	cs := total % 100
	secs := (total / 100) % 60
	mins := (total / 6000) % 60
	hours := total / 360000
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, mins, secs, cs)
}

func splitClock(seconds float64) (h, m, s, ms int64) {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	ms = total % 1000
	s = (total / 1000) % 60
	m = (total / 60000) % 60
	h = total / 3600000
	return h, m, s, ms
}

// ParseClockTimestamp parses HH:MM:SS,mmm or HH:MM:SS.mmm into seconds.
// Both separators are accepted so the same parser serves SRT and WebVTT.
func ParseClockTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	normalized := strings.ReplaceAll(value, ".", ",")
	parts := strings.Split(normalized, ",")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(parts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}
