package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var almaty = time.FixedZone("ALMT", 5*60*60)

func TestDateOnly(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-03-14", "2025-03-14", true},
		{"2025-03-14T23:30:00", "2025-03-14", true},
		{"2025-03-14 anything", "2025-03-14", true},
		{"2025-03-14T22:00:00Z", "2025-03-14", true},
		{"", "", false},
		{"tomorrow", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := DateOnly(tt.in, almaty)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeOfDay(t *testing.T) {
	h, m, s := ParseTimeOfDay("18:30")
	assert.Equal(t, [3]int{18, 30, 0}, [3]int{h, m, s})

	h, m, s = ParseTimeOfDay("09:05:07")
	assert.Equal(t, [3]int{9, 5, 7}, [3]int{h, m, s})

	h, m, s = ParseTimeOfDay("xx:15")
	assert.Equal(t, [3]int{0, 15, 0}, [3]int{h, m, s})

	h, m, s = ParseTimeOfDay("")
	assert.Equal(t, [3]int{0, 0, 0}, [3]int{h, m, s})
}

func TestWallClock(t *testing.T) {
	got, ok := WallClock("2025-03-14", "18:30", almaty)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 14, 18, 30, 0, 0, almaty), got)

	_, ok = WallClock("garbage", "18:30", almaty)
	assert.False(t, ok)
}

func TestParseDurationMinutes(t *testing.T) {
	tests := []struct {
		name string
		raw  RawDuration
		unit DurationUnit
		want float64
		ok   bool
	}{
		{"minutes number", DurationNumber(90), UnitMinutes, 90, true},
		{"hours number", DurationNumber(1.5), UnitHours, 90, true},
		{"negative number", DurationNumber(-30), UnitMinutes, -30, true},
		{"exponent number", RawDuration{Text: "1e2", Numeric: true}, UnitMinutes, 100, true},
		{"decimal string", DurationText(" 45.5 "), UnitMinutes, 45.5, true},
		{"decimal string in hours", DurationText("2"), UnitHours, 120, true},
		{"signed string", DurationText("-30"), UnitMinutes, 0, false},
		{"exponent string", DurationText("1e2"), UnitMinutes, 0, false},
		{"clock notation", DurationText("1:30"), UnitMinutes, 90, true},
		{"clock with seconds", DurationText("0:45:30"), UnitHours, 45.5, true},
		{"clock ignores unit", DurationText("2:00"), UnitHours, 120, true},
		{"empty", RawDuration{}, UnitMinutes, 0, false},
		{"words", DurationText("long"), UnitMinutes, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDurationMinutes(tt.raw, tt.unit)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestDurationOrDefault(t *testing.T) {
	assert.Equal(t, float64(DefaultDurationMinutes), DurationOrDefault(RawDuration{}, UnitMinutes))
	assert.Equal(t, float64(DefaultDurationMinutes), DurationOrDefault(DurationText("-30"), UnitMinutes))
	assert.Equal(t, 30.0, DurationOrDefault(DurationText("30"), UnitMinutes))
}

func TestRawDurationOf(t *testing.T) {
	assert.Equal(t, RawDuration{}, RawDurationOf(nil))
	assert.Equal(t, DurationNumber(1.5), RawDurationOf(1.5))
	assert.Equal(t, RawDuration{Text: "-30", Numeric: true}, RawDurationOf(json.Number("-30")))
	assert.Equal(t, DurationText("-30"), RawDurationOf("-30"))
}

func TestToStorageDuration(t *testing.T) {
	assert.Equal(t, 90.0, ToStorageDuration(90, UnitMinutes))
	assert.Equal(t, 1.5, ToStorageDuration(90, UnitHours))
}

func TestRawDuration_JSON(t *testing.T) {
	var b Booking
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","duration":90}`), &b))
	assert.Equal(t, DurationNumber(90), b.Duration)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","duration":"1:30"}`), &b))
	assert.Equal(t, DurationText("1:30"), b.Duration)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","duration":"-30"}`), &b))
	assert.Equal(t, DurationText("-30"), b.Duration)
	assert.Equal(t, float64(DefaultDurationMinutes), DurationOrDefault(b.Duration, UnitMinutes))

	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","duration":-30}`), &b))
	assert.Equal(t, -30.0, DurationOrDefault(b.Duration, UnitMinutes))

	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","duration":null}`), &b))
	assert.Equal(t, RawDuration{}, b.Duration)

	out, err := json.Marshal(EventProps{Duration: DurationNumber(90)})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"duration":90`)

	out, err = json.Marshal(EventProps{Duration: DurationText("1:30")})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"duration":"1:30"`)

	out, err = json.Marshal(EventProps{})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"duration":null`)
}

func TestInterval_Overlaps(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2025, 1, 1, h, m, 0, 0, time.UTC) }
	a := Interval{Start: at(10, 0), End: at(11, 0)}

	assert.True(t, a.Overlaps(Interval{Start: at(10, 30), End: at(11, 30)}))
	assert.True(t, a.Overlaps(Interval{Start: at(9, 0), End: at(12, 0)}))
	assert.False(t, a.Overlaps(Interval{Start: at(11, 0), End: at(12, 0)}), "touching end")
	assert.False(t, a.Overlaps(Interval{Start: at(9, 0), End: at(10, 0)}), "touching start")
}

func TestFindConflicts(t *testing.T) {
	existing := []Booking{
		{ID: "1", Date: "2025-03-14", StartTime: "10:00", Duration: DurationNumber(60), Status: "confirmed"},
		{ID: "2", Date: "2025-03-14", StartTime: "12:00", Status: "new"},
		{ID: "3", Date: "2025-03-14", StartTime: "14:00", Duration: DurationNumber(120), Status: "cancelled"},
		{ID: "4", StartTime: "18:00", Duration: DurationText("1:00")},
	}

	tests := []struct {
		name string
		c    Candidate
		want []string
	}{
		{"overlaps first", Candidate{Date: "2025-03-14", StartTime: "10:30", Minutes: 60}, []string{"1"}},
		{"touching is free", Candidate{Date: "2025-03-14", StartTime: "11:00", Minutes: 60}, nil},
		{"unknown duration counts as an hour", Candidate{Date: "2025-03-14", StartTime: "12:45", Minutes: 30}, []string{"2"}},
		{"cancelled does not block", Candidate{Date: "2025-03-14", StartTime: "14:30", Minutes: 30}, nil},
		{"missing date uses candidate date", Candidate{Date: "2025-03-14", StartTime: "18:15", Minutes: 15}, []string{"4"}},
		{"spans two", Candidate{Date: "2025-03-14", StartTime: "09:00", Minutes: 240}, []string{"1", "2"}},
		{"open mode never conflicts", Candidate{Date: "2025-03-14", StartTime: "10:00", Minutes: 60, Mode: ModeOpen}, nil},
		{"rescheduling skips itself", Candidate{ID: "1", Date: "2025-03-14", StartTime: "10:15", Minutes: 30}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindConflicts(tt.c, existing, UnitMinutes, almaty)
			var ids []string
			for _, b := range got {
				ids = append(ids, b.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFindConflicts_HoursUnit(t *testing.T) {
	existing := []Booking{{ID: "1", Date: "2025-03-14", StartTime: "10:00", Duration: DurationNumber(2)}}
	got := FindConflicts(Candidate{Date: "2025-03-14", StartTime: "11:30", Minutes: 30}, existing, UnitHours, almaty)
	assert.Len(t, got, 1)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeOpen, ParseMode(" OPEN "))
	assert.Equal(t, ModePrivate, ParseMode(""))
	assert.Equal(t, ModePrivate, ParseMode("whatever"))
}

func TestNumberOrNil(t *testing.T) {
	n, ok := NumberOrNil(" 42 ")
	assert.True(t, ok)
	assert.Equal(t, 42.0, n)

	_, ok = NumberOrNil("Inf")
	assert.False(t, ok)
	_, ok = NumberOrNil("")
	assert.False(t, ok)
}
