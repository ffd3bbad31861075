package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pscheid92/arenadesk/internal/adapter/metrics"
	"github.com/pscheid92/arenadesk/internal/domain"
)

// Fields whose change can move a booking in time or space.
var scheduleFields = []string{"arena", "date", "start_time", "duration", "durationMinutes", "mode", "status"}

type arenaLister interface {
	Arenas(ctx context.Context) ([]domain.Arena, error)
}

type BookingOptions struct {
	Unit     domain.DurationUnit
	Location *time.Location
}

type BookingService struct {
	bookings domain.BookingRepository
	clients  domain.ClientRepository
	arenas   arenaLister
	unit     domain.DurationUnit
	loc      *time.Location
	metrics  *metrics.BookingMetrics
}

func NewBookingService(bookings domain.BookingRepository, clients domain.ClientRepository, arenas arenaLister, opts BookingOptions, m *metrics.BookingMetrics) *BookingService {
	if opts.Unit == "" {
		opts.Unit = domain.UnitMinutes
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &BookingService{
		bookings: bookings,
		clients:  clients,
		arenas:   arenas,
		unit:     opts.Unit,
		loc:      opts.Location,
		metrics:  m,
	}
}

// ListEvents returns the calendar events for bookings dated in [start, end).
// arenaIDs is a comma-separated list; empty means every arena.
func (s *BookingService) ListEvents(ctx context.Context, start, end, arenaIDs string) ([]domain.Event, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return nil, domain.Invalid("start and end are required")
	}
	startDate, ok1 := domain.DateOnly(start, s.loc)
	endDate, ok2 := domain.DateOnly(end, s.loc)
	if !ok1 || !ok2 {
		return nil, domain.Invalid("start and end must be valid dates")
	}
	return s.events(ctx, domain.Window{Start: startDate, End: endDate, ArenaIDs: splitIDs(arenaIDs)})
}

func (s *BookingService) events(ctx context.Context, w domain.Window) ([]domain.Event, error) {
	bookings, err := s.bookings.ListWindow(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	events := make([]domain.Event, 0, len(bookings))
	for _, b := range bookings {
		if e, ok := s.toEvent(b); ok {
			events = append(events, e)
		}
	}
	return events, nil
}

func (s *BookingService) toEvent(b domain.Booking) (domain.Event, bool) {
	start, ok := domain.WallClock(b.Date, b.StartTime, s.loc)
	if !ok {
		return domain.Event{}, false
	}
	end := start.Add(domain.Minutes(domain.DurationOrDefault(b.Duration, s.unit)))

	title := b.ClientName
	if title == "" {
		title = b.GameName
	}
	if title == "" {
		title = "Booking " + b.ID
	}

	return domain.Event{
		ID:         b.ID,
		Title:      title,
		Start:      domain.FormatLocal(start),
		End:        domain.FormatLocal(end),
		ResourceID: b.ArenaID,
		ExtendedProps: domain.EventProps{
			Status:     optional(b.Status),
			ClientName: optional(b.ClientName),
			ClientID:   optional(b.ClientID),
			GameName:   optional(b.GameName),
			Date:       optional(b.Date),
			StartTime:  optional(b.StartTime),
			Duration:   b.Duration,
		},
		StartAt: start,
		EndAt:   end,
	}, true
}

// Create validates the draft, rejects overlaps on the same arena and day,
// resolves the client by phone and writes the booking.
func (s *BookingService) Create(ctx context.Context, d domain.BookingDraft) (map[string]any, error) {
	if strings.TrimSpace(d.ArenaID) == "" || strings.TrimSpace(d.Date) == "" || strings.TrimSpace(d.StartTime) == "" {
		return nil, domain.Invalid("arena, date and start_time are required")
	}

	minutes, ok := domain.NumberOrNil(d.DurationMinutes)
	if !ok {
		minutes = domain.DurationOrDefault(d.Duration, s.unit)
	}

	if err := s.checkConflicts(ctx, domain.Candidate{
		Date:      d.Date,
		StartTime: d.StartTime,
		Minutes:   minutes,
		Mode:      domain.ParseMode(d.Mode),
	}, d.ArenaID); err != nil {
		return nil, err
	}

	status := d.Status
	if status == "" {
		status = domain.DefaultStatus
	}
	fields := map[string]any{
		"arena":      key(d.ArenaID),
		"date":       d.Date,
		"start_time": d.StartTime,
		"duration":   domain.ToStorageDuration(minutes, s.unit),
		"status":     status,
	}
	if d.Mode != "" {
		fields["mode"] = d.Mode
	}
	for _, p := range []string{d.Players, d.PlayersCount, d.PlayersCurrent} {
		if n, ok := domain.NumberOrNil(p); ok {
			fields["players"] = n
			break
		}
	}
	if n, ok := domain.NumberOrNil(d.Price); ok {
		fields["price_total"] = n
	}
	if d.Comment != "" {
		fields["comment"] = d.Comment
	}
	if n, ok := domain.NumberOrNil(d.GameID); ok {
		fields["game"] = n
	}

	clientID, err := s.resolveClient(ctx, d)
	if err != nil {
		return nil, err
	}
	if clientID != nil {
		fields["client"] = clientID
	}

	created, err := s.bookings.Create(ctx, fields)
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	s.metrics.Created.WithLabelValues(string(domain.ParseMode(d.Mode))).Inc()
	slog.InfoContext(ctx, "Booking created", "arena", d.ArenaID, "date", d.Date, "start_time", d.StartTime, "minutes", minutes)
	return created, nil
}

// resolveClient prefers an explicit numeric client id, then an existing
// client with the same phone, then registers a new client.
func (s *BookingService) resolveClient(ctx context.Context, d domain.BookingDraft) (any, error) {
	if n, ok := domain.NumberOrNil(d.ClientID); ok {
		return n, nil
	}
	phone := strings.TrimSpace(d.Phone)
	if phone == "" {
		return nil, nil
	}

	id, err := s.clients.FindIDByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("find client by phone: %w", err)
	}
	if id == "" {
		id, err = s.clients.Create(ctx, phone, d.ClientName)
		if err != nil {
			return nil, fmt.Errorf("create client: %w", err)
		}
	}
	if id == "" {
		return nil, nil
	}
	return key(id), nil
}

func (s *BookingService) checkConflicts(ctx context.Context, c domain.Candidate, arenaID string) error {
	if c.Mode == domain.ModeOpen {
		return nil
	}
	existing, err := s.bookings.ListDay(ctx, arenaID, c.Date)
	if err != nil {
		return fmt.Errorf("load bookings for conflict check: %w", err)
	}
	conflicts := domain.FindConflicts(c, existing, s.unit, s.loc)
	if len(conflicts) == 0 {
		return nil
	}
	s.metrics.Conflicts.Inc()
	return &domain.ConflictError{ArenaID: arenaID, Date: c.Date, Conflicts: conflicts}
}

// Update passes the patch through to Directus. When the patch moves the
// booking, the resulting slot is checked against the other bookings first.
// A durationMinutes key is converted to the stored duration field.
func (s *BookingService) Update(ctx context.Context, id string, patch domain.BookingPatch) (map[string]any, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.Invalid("Missing booking id")
	}
	if patch == nil {
		patch = domain.BookingPatch{}
	}

	if touchesSchedule(patch) {
		current, err := s.bookings.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load booking %s: %w", id, err)
		}
		arenaID, c := s.merge(*current, patch)
		if !strings.EqualFold(stringValue(patch["status"], current.Status), domain.StatusCancel) {
			if err := s.checkConflicts(ctx, c, arenaID); err != nil {
				return nil, err
			}
		}
	}

	if v, ok := patch["durationMinutes"]; ok {
		delete(patch, "durationMinutes")
		if n, ok := domain.NumberOrNil(stringValue(v, "")); ok {
			patch["duration"] = domain.ToStorageDuration(n, s.unit)
		}
	}

	updated, err := s.bookings.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update booking %s: %w", id, err)
	}
	return updated, nil
}

func (s *BookingService) merge(current domain.Booking, patch domain.BookingPatch) (string, domain.Candidate) {
	arenaID := stringValue(patch["arena"], current.ArenaID)
	c := domain.Candidate{
		ID:        current.ID,
		Date:      stringValue(patch["date"], current.Date),
		StartTime: stringValue(patch["start_time"], current.StartTime),
		Mode:      domain.ParseMode(stringValue(patch["mode"], current.Mode)),
	}
	switch {
	case patch["durationMinutes"] != nil:
		if n, ok := domain.NumberOrNil(stringValue(patch["durationMinutes"], "")); ok {
			c.Minutes = n
			break
		}
		c.Minutes = domain.DurationOrDefault(current.Duration, s.unit)
	case patch["duration"] != nil:
		c.Minutes = domain.DurationOrDefault(domain.RawDurationOf(patch["duration"]), s.unit)
	default:
		c.Minutes = domain.DurationOrDefault(current.Duration, s.unit)
	}
	if d, ok := domain.DateOnly(c.Date, s.loc); ok {
		c.Date = d
	}
	return arenaID, c
}

func (s *BookingService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.Invalid("Missing booking id")
	}
	if err := s.bookings.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete booking %s: %w", id, err)
	}
	return nil
}

// Occupancy reports per-day slot usage for month (YYYY-MM). With an arena id
// only that arena's bookings and capacity count.
func (s *BookingService) Occupancy(ctx context.Context, month, arenaID string) ([]domain.DayOccupancy, error) {
	first, err := time.ParseInLocation("2006-01", strings.TrimSpace(month), s.loc)
	if err != nil {
		return nil, domain.Invalid("month must be YYYY-MM")
	}
	w := domain.Window{
		Start: first.Format(domain.DateLayout),
		End:   first.AddDate(0, 1, 0).Format(domain.DateLayout),
	}

	arenaCount := 1
	if arenaID = strings.TrimSpace(arenaID); arenaID != "" {
		w.ArenaIDs = []string{arenaID}
	} else {
		arenas, err := s.arenas.Arenas(ctx)
		if err != nil {
			return nil, fmt.Errorf("list arenas: %w", err)
		}
		arenaCount = len(arenas)
	}

	events, err := s.events(ctx, w)
	if err != nil {
		return nil, err
	}
	return domain.MonthOccupancy(events, first, arenaCount), nil
}

func touchesSchedule(patch domain.BookingPatch) bool {
	for _, f := range scheduleFields {
		if _, ok := patch[f]; ok {
			return true
		}
	}
	return false
}

func splitIDs(v string) []string {
	var ids []string
	for _, id := range strings.Split(v, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// key sends integer-looking ids as JSON numbers and anything else as a string.
func key(id string) any {
	id = strings.TrimSpace(id)
	if _, err := strconv.ParseInt(id, 10, 64); err == nil {
		return json.Number(id)
	}
	return id
}

// stringValue renders a decoded JSON value as text, falling back when absent.
func stringValue(v any, fallback string) string {
	switch t := v.(type) {
	case nil:
		return fallback
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		return stringValue(t["id"], fallback)
	default:
		return fmt.Sprint(t)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
