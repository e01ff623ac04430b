package frames

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Timestamp represents a video position in HH:MM:SS(.fff) format
type Timestamp struct {
	Hours   int
	Minutes int
	Seconds float64
}

// timestampRegex matches HH:MM:SS with optional fractional seconds
var timestampRegex = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2}(?:\.\d+)?)$`)

// ParseTimestamp parses a timestamp string in HH:MM:SS(.fff) format
func ParseTimestamp(s string) (Timestamp, error) {
	matches := timestampRegex.FindStringSubmatch(s)
	if matches == nil {
		return Timestamp{}, fmt.Errorf("%w %q: expected HH:MM:SS", ErrInvalidCaptureTime, s)
	}

	hours, _ := strconv.Atoi(matches[1])
	minutes, _ := strconv.Atoi(matches[2])
	seconds, _ := strconv.ParseFloat(matches[3], 64)

	if minutes > 59 {
		return Timestamp{}, fmt.Errorf("%w %q: minutes must be 0-59", ErrInvalidCaptureTime, s)
	}
	if seconds >= 60 {
		return Timestamp{}, fmt.Errorf("%w %q: seconds must be 0-59", ErrInvalidCaptureTime, s)
	}

	return Timestamp{
		Hours:   hours,
		Minutes: minutes,
		Seconds: seconds,
	}, nil
}

// String returns the timestamp in HH:MM:SS format, keeping any fraction
func (t Timestamp) String() string {
	sec := strconv.FormatFloat(t.Seconds, 'f', -1, 64)
	if t.Seconds < 10 {
		sec = "0" + sec
	}
	return fmt.Sprintf("%02d:%02d:%s", t.Hours, t.Minutes, sec)
}

// TotalSeconds returns the timestamp as seconds from the start of the video
func (t Timestamp) TotalSeconds() float64 {
	return float64(t.Hours*3600+t.Minutes*60) + t.Seconds
}

// ParseCaptureTime accepts either plain seconds ("12", "12.5") or HH:MM:SS(.fff)
func ParseCaptureTime(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		ts, err := ParseTimestamp(s)
		if err != nil {
			return 0, err
		}
		return ts.TotalSeconds(), nil
	}

	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q: expected seconds or HH:MM:SS", ErrInvalidCaptureTime, s)
	}
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("%w %q: must be a non-negative number", ErrInvalidCaptureTime, s)
	}
	return seconds, nil
}
