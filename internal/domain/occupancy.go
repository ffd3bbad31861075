package domain

import (
	"math"
	"time"
)

type Level string

const (
	LevelNone   Level = "none"
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
	LevelFull   Level = "full"
)

func OccupancyLevel(ratio float64) Level {
	switch {
	case ratio <= 0:
		return LevelNone
	case ratio <= 0.2:
		return LevelLow
	case ratio <= 0.5:
		return LevelMedium
	case ratio <= 0.8:
		return LevelHigh
	default:
		return LevelFull
	}
}

type DayOccupancy struct {
	Date      string  `json:"date"`
	UsedSlots int     `json:"usedSlots"`
	Capacity  int     `json:"capacity"`
	Ratio     float64 `json:"ratio"`
	Level     Level   `json:"level"`
}

// SlotUnits is the number of hourly slots an event occupies, at least one.
func SlotUnits(e Event) int {
	minutes := DefaultDurationMinutes
	if !e.StartAt.IsZero() && !e.EndAt.IsZero() {
		minutes = max(1, int(math.Round(e.EndAt.Sub(e.StartAt).Minutes())))
	}
	return max(1, int(math.Ceil(float64(minutes)/60)))
}

// MonthOccupancy reports every day of month (any time within it) with the
// share of the arenas' hourly slots taken by events.
func MonthOccupancy(events []Event, month time.Time, arenas int) []DayOccupancy {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	days := first.AddDate(0, 1, -1).Day()
	capacity := max(arenas, 0) * SlotsPerDay

	used := make([]int, days+1)
	for _, e := range events {
		if e.StartAt.IsZero() {
			continue
		}
		if e.StartAt.Year() != first.Year() || e.StartAt.Month() != first.Month() {
			continue
		}
		used[e.StartAt.Day()] += SlotUnits(e)
	}

	out := make([]DayOccupancy, 0, days)
	for d := 1; d <= days; d++ {
		ratio := 0.0
		if capacity > 0 {
			ratio = math.Min(1, float64(used[d])/float64(capacity))
		}
		out = append(out, DayOccupancy{
			Date:      first.AddDate(0, 0, d-1).Format(DateLayout),
			UsedSlots: used[d],
			Capacity:  capacity,
			Ratio:     ratio,
			Level:     OccupancyLevel(ratio),
		})
	}
	return out
}
