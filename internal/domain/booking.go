package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultStatus = "new"
	StatusCancel  = "cancelled"
)

type Mode string

const (
	ModePrivate Mode = "private"
	ModeOpen    Mode = "open"
)

// ParseMode is lenient: anything but "open" is a private session.
func ParseMode(v string) Mode {
	if strings.EqualFold(strings.TrimSpace(v), string(ModeOpen)) {
		return ModeOpen
	}
	return ModePrivate
}

// RawDuration holds the duration value as Directus stored it. Numeric
// records whether it arrived as a JSON number; strings are kept verbatim and
// interpreted by ParseDurationMinutes.
type RawDuration struct {
	Text    string
	Numeric bool
}

func DurationText(s string) RawDuration { return RawDuration{Text: s} }

func DurationNumber(n float64) RawDuration {
	return RawDuration{Text: strconv.FormatFloat(n, 'f', -1, 64), Numeric: true}
}

// RawDurationOf converts a value decoded from a JSON body.
func RawDurationOf(v any) RawDuration {
	switch t := v.(type) {
	case nil:
		return RawDuration{}
	case float64:
		return DurationNumber(t)
	case json.Number:
		return RawDuration{Text: t.String(), Numeric: true}
	case string:
		return DurationText(t)
	default:
		return DurationText(fmt.Sprint(t))
	}
}

func (d *RawDuration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*d = RawDuration{}
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*d = DurationText(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*d = RawDuration{Text: n.String(), Numeric: true}
	return nil
}

func (d RawDuration) MarshalJSON() ([]byte, error) {
	if d.Text == "" {
		return []byte("null"), nil
	}
	if d.Numeric {
		return []byte(d.Text), nil
	}
	return json.Marshal(d.Text)
}

type Booking struct {
	ID         string      `json:"id"`
	ArenaID    string      `json:"arena,omitempty"`
	ClientID   string      `json:"client,omitempty"`
	ClientName string      `json:"clientName,omitempty"`
	GameName   string      `json:"gameName,omitempty"`
	Date       string      `json:"date,omitempty"`
	StartTime  string      `json:"start_time,omitempty"`
	Duration   RawDuration `json:"duration"`
	Status     string      `json:"status,omitempty"`
	Mode       string      `json:"mode,omitempty"`
}

// EventProps mirrors the extendedProps object calendar widgets expect.
type EventProps struct {
	Status     *string     `json:"status"`
	ClientName *string     `json:"clientName"`
	ClientID   *string     `json:"clientId"`
	GameName   *string     `json:"gameName"`
	Date       *string     `json:"date"`
	StartTime  *string     `json:"startTime"`
	Duration   RawDuration `json:"duration"`
}

type Event struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Start         string     `json:"start"`
	End           string     `json:"end"`
	ResourceID    string     `json:"resourceId,omitempty"`
	ExtendedProps EventProps `json:"extendedProps"`

	StartAt time.Time `json:"-"`
	EndAt   time.Time `json:"-"`
}

// BookingDraft is the create request. Numeric inputs arrive as strings so the
// caller can send either JSON numbers or numeric strings.
type BookingDraft struct {
	ArenaID         string
	Date            string
	StartTime       string
	DurationMinutes string
	Duration        RawDuration
	Status          string
	Mode            string
	Players         string
	PlayersCount    string
	PlayersCurrent  string
	Price           string
	Comment         string
	GameID          string
	ClientID        string
	ClientName      string
	Phone           string
}

// BookingPatch is passed through to Directus as-is.
type BookingPatch map[string]any

// Window selects bookings with start <= date < end.
type Window struct {
	Start    string
	End      string
	ArenaIDs []string
}

type BookingRepository interface {
	ListWindow(ctx context.Context, w Window) ([]Booking, error)
	ListDay(ctx context.Context, arenaID, date string) ([]Booking, error)
	Get(ctx context.Context, id string) (*Booking, error)
	Create(ctx context.Context, fields map[string]any) (map[string]any, error)
	Update(ctx context.Context, id string, patch BookingPatch) (map[string]any, error)
	Delete(ctx context.Context, id string) error
}

type ClientRepository interface {
	// FindIDByPhone returns "" with a nil error when no client matches.
	FindIDByPhone(ctx context.Context, phone string) (string, error)
	Create(ctx context.Context, phone, name string) (string, error)
}

// NumberOrNil parses a decimal number, reporting false for blanks and garbage.
func NumberOrNil(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
