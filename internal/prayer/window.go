package prayer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type WindowType string

const (
	WindowNone       WindowType = ""
	WindowExact      WindowType = "exact"
	WindowPreWarning WindowType = "preWarning"
)

// Window bounds in minutes relative to the prayer time. Both windows are
// half-open and 10 minutes wide; they are 25 minutes apart and never overlap.
const (
	exactStart      = 0
	exactEnd        = 10
	preWarningStart = -45
	preWarningEnd   = -35
)

// Classify reports which reminder window nowMinute falls in for a prayer at
// eventMinute. Both values are minutes since local midnight; windows do not
// wrap across midnight.
func Classify(eventMinute, nowMinute int) WindowType {
	d := nowMinute - eventMinute
	switch {
	case d >= exactStart && d < exactEnd:
		return WindowExact
	case d >= preWarningStart && d < preWarningEnd:
		return WindowPreWarning
	default:
		return WindowNone
	}
}

// MinuteOfDay converts t to minutes since midnight in loc.
func MinuteOfDay(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}

// ParseClock parses an "HH:MM" time of day into minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}
