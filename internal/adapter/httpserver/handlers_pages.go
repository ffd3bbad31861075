package httpserver

import (
	"cmp"
	"slices"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/arenadesk/internal/domain"
)

type scheduleRow struct {
	Arena  domain.Arena
	Events []domain.Event
}

func (s *Server) registerPageRoutes() {
	s.echo.GET("/", s.handleSchedule)
	s.echo.GET("/settings", s.handleSettings)
}

// handleSchedule renders one day per arena plus the month's occupancy strip.
// ?date=YYYY-MM-DD selects the day; today otherwise.
func (s *Server) handleSchedule(c echo.Context) error {
	ctx := c.Request().Context()
	loc := s.config.Location()

	day := time.Now().In(loc)
	if d, err := time.ParseInLocation(domain.DateLayout, c.QueryParam("date"), loc); err == nil {
		day = d
	}
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	next := day.AddDate(0, 0, 1)

	arenas, err := s.catalog.Arenas(ctx)
	if err != nil {
		return err
	}
	events, err := s.bookings.ListEvents(ctx, day.Format(domain.DateLayout), next.Format(domain.DateLayout), "")
	if err != nil {
		return err
	}
	occupancy, err := s.bookings.Occupancy(ctx, day.Format("2006-01"), "")
	if err != nil {
		return err
	}

	return s.renderTemplate(c, "schedule.html", map[string]any{
		"Day":       day.Format(domain.DateLayout),
		"PrevDay":   day.AddDate(0, 0, -1).Format(domain.DateLayout),
		"NextDay":   next.Format(domain.DateLayout),
		"Rows":      scheduleRows(arenas, events),
		"Occupancy": occupancy,
		"Statuses":  domain.StatusTable,
	})
}

// scheduleRows groups events by arena in catalog order. Events for arenas
// missing from the catalog land in a trailing row without a title.
func scheduleRows(arenas []domain.Arena, events []domain.Event) []scheduleRow {
	byArena := make(map[string][]domain.Event)
	for _, e := range events {
		byArena[e.ResourceID] = append(byArena[e.ResourceID], e)
	}

	rows := make([]scheduleRow, 0, len(arenas)+1)
	for _, a := range arenas {
		rows = append(rows, scheduleRow{Arena: a, Events: sortedByStart(byArena[a.ID])})
		delete(byArena, a.ID)
	}

	var orphans []domain.Event
	for _, evs := range byArena {
		orphans = append(orphans, evs...)
	}
	if len(orphans) > 0 {
		rows = append(rows, scheduleRow{Events: sortedByStart(orphans)})
	}
	return rows
}

func sortedByStart(events []domain.Event) []domain.Event {
	slices.SortFunc(events, func(a, b domain.Event) int {
		return cmp.Or(a.StartAt.Compare(b.StartAt), cmp.Compare(a.ID, b.ID))
	})
	return events
}

func (s *Server) handleSettings(c echo.Context) error {
	ctx := c.Request().Context()

	arenas, err := s.catalog.Arenas(ctx)
	if err != nil {
		return err
	}
	games, err := s.catalog.Games(ctx)
	if err != nil {
		return err
	}

	var role *domain.Role
	user, err := s.auth.CurrentUser(ctx)
	if err == nil && user != nil {
		role = user.Role
	}

	return s.renderTemplate(c, "settings.html", map[string]any{
		"Arenas":    arenas,
		"Games":     games,
		"User":      user,
		"CanManage": domain.CanManage(role, s.config.ManagerRoleList()) == nil,
	})
}
