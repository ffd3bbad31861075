package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultDurationMinutes = 60
	SlotsPerDay            = 16 // 07:00-22:00, one slot per hour
	LocalLayout            = "2006-01-02T15:04:05"
	DateLayout             = "2006-01-02"
)

type DurationUnit string

const (
	UnitMinutes DurationUnit = "minutes"
	UnitHours   DurationUnit = "hours"
)

var (
	datePrefix    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	plainDecimal  = regexp.MustCompile(`^\d+(\.\d+)?$`)
	dateTimeForms = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"}
)

// DateOnly normalises a date or datetime string to YYYY-MM-DD. A leading date
// is taken verbatim; full timestamps are converted into loc first.
func DateOnly(v string, loc *time.Location) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	if m := datePrefix.FindString(v); m != "" {
		return m, true
	}
	for _, layout := range dateTimeForms {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t.In(loc).Format(DateLayout), true
		}
	}
	return "", false
}

// ParseTimeOfDay splits "HH:mm[:ss]". Missing or non-numeric parts are zero.
func ParseTimeOfDay(v string) (hours, minutes, seconds int) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	vals := [3]int{}
	for i := 0; i < len(parts) && i < 3; i++ {
		if f, ok := NumberOrNil(parts[i]); ok {
			vals[i] = int(f)
		}
	}
	return vals[0], vals[1], vals[2]
}

// WallClock builds the local datetime of a booking. ok is false when the date
// cannot be read.
func WallClock(date, timeOfDay string, loc *time.Location) (time.Time, bool) {
	d, ok := DateOnly(date, loc)
	if !ok {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(DateLayout, d, loc)
	if err != nil {
		return time.Time{}, false
	}
	h, m, s := ParseTimeOfDay(timeOfDay)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, loc), true
}

// ParseDurationMinutes interprets a stored duration. JSON numbers and plain
// decimal strings are in unit; "H:MM[:SS]" strings are always clock notation.
// Any other string is unreadable.
func ParseDurationMinutes(raw RawDuration, unit DurationUnit) (float64, bool) {
	v := strings.TrimSpace(raw.Text)
	if v == "" {
		return 0, false
	}
	if raw.Numeric || plainDecimal.MatchString(v) {
		n, ok := NumberOrNil(v)
		if !ok {
			return 0, false
		}
		if unit == UnitHours {
			return n * 60, true
		}
		return n, true
	}
	if strings.Contains(v, ":") {
		h, m, s := clockParts(v)
		return h*60 + m + s/60, true
	}
	return 0, false
}

func clockParts(v string) (h, m, s float64) {
	parts := strings.Split(v, ":")
	vals := [3]float64{}
	for i := 0; i < len(parts) && i < 3; i++ {
		if f, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			vals[i] = f
		}
	}
	return vals[0], vals[1], vals[2]
}

func DurationOrDefault(raw RawDuration, unit DurationUnit) float64 {
	if m, ok := ParseDurationMinutes(raw, unit); ok {
		return m
	}
	return DefaultDurationMinutes
}

func ToStorageDuration(minutes float64, unit DurationUnit) float64 {
	if unit == UnitHours {
		return minutes / 60
	}
	return minutes
}

func Minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}

func FormatLocal(t time.Time) string {
	return t.Format(LocalLayout)
}

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps is strict: an interval ending exactly when another starts does not overlap it.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// Candidate is a booking about to be written.
type Candidate struct {
	ID        string // set when rescheduling an existing booking
	Date      string
	StartTime string
	Minutes   float64
	Mode      Mode
}

// FindConflicts returns the existing bookings the candidate would overlap.
// Open sessions never conflict and cancelled bookings never block a slot.
func FindConflicts(c Candidate, existing []Booking, unit DurationUnit, loc *time.Location) []Booking {
	if c.Mode == ModeOpen {
		return nil
	}
	start, ok := WallClock(c.Date, c.StartTime, loc)
	if !ok {
		return nil
	}
	candidate := Interval{Start: start, End: start.Add(Minutes(c.Minutes))}

	var conflicts []Booking
	for _, b := range existing {
		if c.ID != "" && b.ID == c.ID {
			continue
		}
		if strings.EqualFold(b.Status, StatusCancel) {
			continue
		}
		date := b.Date
		if date == "" {
			date = c.Date
		}
		bStart, ok := WallClock(date, b.StartTime, loc)
		if !ok {
			continue
		}
		other := Interval{Start: bStart, End: bStart.Add(Minutes(DurationOrDefault(b.Duration, unit)))}
		if candidate.Overlaps(other) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts
}
