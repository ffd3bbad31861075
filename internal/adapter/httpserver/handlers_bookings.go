package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/arenadesk/internal/domain"
	apperrors "github.com/pscheid92/arenadesk/internal/platform/errors"
)

type eventsQuery struct {
	Start    string `query:"start"`
	End      string `query:"end"`
	ArenaIDs string `query:"arenaIds"`
}

type occupancyQuery struct {
	Month   string `query:"month" validate:"required,datetime=2006-01"`
	ArenaID string `query:"arenaId"`
}

type bookingRequest struct {
	Arena           flexString         `json:"arena"`
	Date            string             `json:"date"`
	StartTime       flexString         `json:"start_time"`
	DurationMinutes flexString         `json:"durationMinutes"`
	Duration        domain.RawDuration `json:"duration"`
	Status          string             `json:"status" validate:"max=50"`
	Mode            string             `json:"mode" validate:"max=20"`
	Players         flexString         `json:"players"`
	PlayersCount    flexString         `json:"playersCount"`
	PlayersCurrent  flexString         `json:"playersCurrent"`
	Price           flexString         `json:"price"`
	Comment         string             `json:"comment" validate:"max=2000"`
	Game            flexString         `json:"game"`
	Client          flexString         `json:"client"`
	ClientName      string             `json:"clientName" validate:"max=200"`
	Phone           flexString         `json:"phone" validate:"max=32"`
}

func (r bookingRequest) draft() domain.BookingDraft {
	return domain.BookingDraft{
		ArenaID:         r.Arena.String(),
		Date:            r.Date,
		StartTime:       r.StartTime.String(),
		DurationMinutes: r.DurationMinutes.String(),
		Duration:        r.Duration,
		Status:          r.Status,
		Mode:            r.Mode,
		Players:         r.Players.String(),
		PlayersCount:    r.PlayersCount.String(),
		PlayersCurrent:  r.PlayersCurrent.String(),
		Price:           r.Price.String(),
		Comment:         r.Comment,
		GameID:          r.Game.String(),
		ClientID:        r.Client.String(),
		ClientName:      r.ClientName,
		Phone:           r.Phone.String(),
	}
}

func (s *Server) registerBookingRoutes() {
	s.echo.GET("/api/bookings", s.handleListBookings)
	s.echo.POST("/api/bookings", s.handleCreateBooking)
	s.echo.PATCH("/api/bookings/:id", s.handleUpdateBooking)
	s.echo.DELETE("/api/bookings/:id", s.handleDeleteBooking)

	s.echo.GET("/api/occupancy", s.handleOccupancy)
	s.echo.GET("/api/statuses", s.handleStatuses)
}

func (s *Server) handleListBookings(c echo.Context) error {
	var q eventsQuery
	if err := c.Bind(&q); err != nil {
		return apperrors.ValidationError("invalid query")
	}

	events, err := s.bookings.ListEvents(c.Request().Context(), q.Start, q.End, q.ArenaIDs)
	if err != nil {
		return err
	}
	if events == nil {
		events = []domain.Event{}
	}
	return writeJSON(c, http.StatusOK, events)
}

func (s *Server) handleCreateBooking(c echo.Context) error {
	var req bookingRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	created, err := s.bookings.Create(c.Request().Context(), req.draft())
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusCreated, dataEnvelope(created))
}

// handleUpdateBooking decodes the body itself: echo's binder would copy the
// :id path parameter into the patch map.
func (s *Server) handleUpdateBooking(c echo.Context) error {
	var patch domain.BookingPatch
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	if err := dec.Decode(&patch); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.ValidationError("invalid request body")
	}

	updated, err := s.bookings.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, dataEnvelope(updated))
}

func (s *Server) handleDeleteBooking(c echo.Context) error {
	if err := s.bookings.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleOccupancy(c echo.Context) error {
	var q occupancyQuery
	if err := c.Bind(&q); err != nil {
		return apperrors.ValidationError("invalid query")
	}
	if err := c.Validate(&q); err != nil {
		return err
	}

	days, err := s.bookings.Occupancy(c.Request().Context(), q.Month, q.ArenaID)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, days)
}

func (s *Server) handleStatuses(c echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string]any{
		"statuses": domain.StatusTable,
		"default":  domain.DefaultStatusMeta,
	})
}
