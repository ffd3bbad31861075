package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/arenadesk/internal/platform/errors"
)

type arenaRequest struct {
	ID      flexString `json:"id"`
	Name    string     `json:"name" validate:"max=200"`
	Address *string    `json:"address" validate:"omitempty,max=500"`
}

type gameRequest struct {
	ID       flexString `json:"id"`
	Name     string     `json:"name" validate:"max=200"`
	Category *string    `json:"category" validate:"omitempty,max=100"`
}

func (s *Server) registerCatalogRoutes() {
	s.echo.GET("/api/arenas", s.handleListArenas)
	s.echo.POST("/api/arenas", s.handleCreateArena)
	s.echo.PATCH("/api/arenas", s.handleUpdateArena)
	s.echo.DELETE("/api/arenas", s.handleDeleteArena)

	s.echo.GET("/api/games", s.handleListGames)
	s.echo.POST("/api/games", s.handleCreateGame)
	s.echo.PATCH("/api/games", s.handleUpdateGame)
	s.echo.DELETE("/api/games", s.handleDeleteGame)
}

func bindBody(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	return c.Validate(dst)
}

// dataEnvelope mirrors the {"data": ...} shape Directus returns for writes.
func dataEnvelope(v any) map[string]any {
	return map[string]any{"data": v}
}

func (s *Server) handleListArenas(c echo.Context) error {
	arenas, err := s.catalog.Arenas(c.Request().Context())
	if err != nil {
		return apperrors.ExternalError("Failed to load arenas. Check Directus settings.", err)
	}
	return writeJSON(c, http.StatusOK, arenas)
}

func (s *Server) handleCreateArena(c echo.Context) error {
	var req arenaRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	address := ""
	if req.Address != nil {
		address = *req.Address
	}

	created, err := s.catalog.CreateArena(c.Request().Context(), req.Name, address)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, dataEnvelope(created))
}

func (s *Server) handleUpdateArena(c echo.Context) error {
	var req arenaRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	updated, err := s.catalog.UpdateArena(c.Request().Context(), req.ID.String(), req.Name, req.Address)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, dataEnvelope(updated))
}

func (s *Server) handleDeleteArena(c echo.Context) error {
	if err := s.catalog.DeleteArena(c.Request().Context(), c.QueryParam("id")); err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListGames(c echo.Context) error {
	games, err := s.catalog.Games(c.Request().Context())
	if err != nil {
		return apperrors.ExternalError("Failed to load games", err)
	}
	return writeJSON(c, http.StatusOK, games)
}

func (s *Server) handleCreateGame(c echo.Context) error {
	var req gameRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	category := ""
	if req.Category != nil {
		category = *req.Category
	}

	created, err := s.catalog.CreateGame(c.Request().Context(), req.Name, category)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, dataEnvelope(created))
}

func (s *Server) handleUpdateGame(c echo.Context) error {
	var req gameRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	updated, err := s.catalog.UpdateGame(c.Request().Context(), req.ID.String(), req.Name, req.Category)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, dataEnvelope(updated))
}

func (s *Server) handleDeleteGame(c echo.Context) error {
	if err := s.catalog.DeleteGame(c.Request().Context(), c.QueryParam("id")); err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, map[string]bool{"success": true})
}
