package directus

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pscheid92/arenadesk/internal/domain"
)

const (
	bookingsPath = "/items/bookings"
	clientsPath  = "/items/clients"
)

var (
	windowFields   = []string{"id", "date", "start_time", "duration", "status", "mode", "arena", "client", "game.name", "client.name"}
	conflictFields = []string{"id", "date", "start_time", "duration", "status", "mode"}
)

type bookingRecord struct {
	ID        flexID             `json:"id"`
	Date      *string            `json:"date"`
	StartTime *string            `json:"start_time"`
	Duration  domain.RawDuration `json:"duration"`
	Status    *string            `json:"status"`
	Mode      *string            `json:"mode"`
	Arena     *relation          `json:"arena"`
	Client    *relation          `json:"client"`
	Game      *relation          `json:"game"`
}

func (r bookingRecord) toDomain() domain.Booking {
	b := domain.Booking{
		ID:        string(r.ID),
		Date:      deref(r.Date),
		StartTime: deref(r.StartTime),
		Duration:  r.Duration,
		Status:    deref(r.Status),
		Mode:      deref(r.Mode),
	}
	if r.Arena != nil {
		b.ArenaID = r.Arena.ID
	}
	if r.Client != nil {
		b.ClientID = r.Client.ID
		b.ClientName = deref(r.Client.Name)
	}
	if r.Game != nil {
		b.GameName = deref(r.Game.Name)
	}
	return b
}

// BookingRepo reads and writes the bookings collection with the service token.
type BookingRepo struct {
	client *Client
}

var _ domain.BookingRepository = (*BookingRepo)(nil)

func NewBookingRepo(c *Client) *BookingRepo {
	return &BookingRepo{client: c}
}

func (r *BookingRepo) ListWindow(ctx context.Context, w domain.Window) ([]domain.Booking, error) {
	q := NewQuery().
		Fields(windowFields...).
		Filter("date", "_gte", w.Start).
		Filter("date", "_lt", w.End).
		Limit(-1)
	if len(w.ArenaIDs) > 0 {
		q.Filter("arena", "_in", strings.Join(w.ArenaIDs, ","))
	}
	return r.list(ctx, q)
}

func (r *BookingRepo) ListDay(ctx context.Context, arenaID, date string) ([]domain.Booking, error) {
	q := NewQuery().
		Fields(conflictFields...).
		Filter("arena", "_eq", arenaID).
		Filter("date", "_eq", date).
		Limit(-1)
	return r.list(ctx, q)
}

func (r *BookingRepo) list(ctx context.Context, q *Query) ([]domain.Booking, error) {
	var records []bookingRecord
	if err := r.client.Do(ctx, Request{Path: bookingsPath, Query: q.Values()}, &records); err != nil {
		return nil, err
	}
	out := make([]domain.Booking, len(records))
	for i, rec := range records {
		out[i] = rec.toDomain()
	}
	return out, nil
}

func (r *BookingRepo) Get(ctx context.Context, id string) (*domain.Booking, error) {
	var rec *bookingRecord
	q := NewQuery().Fields("id", "date", "start_time", "duration", "status", "mode", "arena")
	if err := r.client.Do(ctx, Request{Path: bookingsPath + "/" + url.PathEscape(id), Query: q.Values()}, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	b := rec.toDomain()
	return &b, nil
}

func (r *BookingRepo) Create(ctx context.Context, fields map[string]any) (map[string]any, error) {
	var created map[string]any
	err := r.client.Do(ctx, Request{Method: http.MethodPost, Path: bookingsPath, Body: fields}, &created)
	return created, err
}

func (r *BookingRepo) Update(ctx context.Context, id string, patch domain.BookingPatch) (map[string]any, error) {
	var updated map[string]any
	err := r.client.Do(ctx, Request{Method: http.MethodPatch, Path: bookingsPath + "/" + url.PathEscape(id), Body: map[string]any(patch)}, &updated)
	return updated, err
}

func (r *BookingRepo) Delete(ctx context.Context, id string) error {
	return r.client.Do(ctx, Request{Method: http.MethodDelete, Path: bookingsPath + "/" + url.PathEscape(id)}, nil)
}

// ClientRepo looks up and registers customers by phone number.
type ClientRepo struct {
	client *Client
}

var _ domain.ClientRepository = (*ClientRepo)(nil)

func NewClientRepo(c *Client) *ClientRepo {
	return &ClientRepo{client: c}
}

// FindIDByPhone matches the phone as typed, and also its digits-only form
// when that differs.
func (r *ClientRepo) FindIDByPhone(ctx context.Context, phone string) (string, error) {
	raw := strings.TrimSpace(phone)
	if raw == "" {
		return "", nil
	}
	digits := digitsOnly(raw)

	q := NewQuery().Fields("id").Limit(1)
	if digits != "" && digits != raw {
		q.Or("phone", "_eq", raw).Or("phone", "_eq", digits)
	} else {
		q.Filter("phone", "_eq", raw)
	}

	var found []struct {
		ID flexID `json:"id"`
	}
	if err := r.client.Do(ctx, Request{Path: clientsPath, Query: q.Values()}, &found); err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", nil
	}
	return string(found[0].ID), nil
}

func (r *ClientRepo) Create(ctx context.Context, phone, name string) (string, error) {
	payload := map[string]any{"phone": strings.TrimSpace(phone)}
	if name != "" {
		payload["name"] = name
	}
	var created struct {
		ID flexID `json:"id"`
	}
	if err := r.client.Do(ctx, Request{Method: http.MethodPost, Path: clientsPath, Body: payload}, &created); err != nil {
		return "", err
	}
	return string(created.ID), nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
