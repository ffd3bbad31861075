package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/arenadesk/internal/adapter/directus"
	"github.com/pscheid92/arenadesk/internal/domain"
	"github.com/pscheid92/arenadesk/internal/platform/correlation"
	apperrors "github.com/pscheid92/arenadesk/internal/platform/errors"
)

// correlationMiddleware adopts a sane inbound X-Correlation-ID or mints one,
// stores it in the request context and echoes it on the response.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromHeader(c.Request().Header.Get(correlation.HeaderName))
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.HeaderName, id)
		return next(c)
	}
}

// ErrorHandlingMiddleware turns handler errors into JSON error responses.
// withDetails exposes the underlying cause, for non-production deployments.
func ErrorHandlingMiddleware(withDetails bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			structuredErr := toAppError(err)
			logError(c, structuredErr)

			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse(withDetails)); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

// toAppError maps domain and upstream failures onto the structured error types.
func toAppError(err error) *apperrors.Error {
	var structured *apperrors.Error
	if errors.As(err, &structured) {
		return structured
	}

	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return apperrors.ValidationError(validation.Message)
	}

	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		return apperrors.ConflictError("Time slot conflicts with an existing booking").
			WithField("arena", conflict.ArenaID).
			WithField("date", conflict.Date).
			WithField("conflicts", conflict.Conflicts)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apperrors.UnauthorizedError("Invalid email or password")
	case errors.Is(err, domain.ErrMissingToken),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrNoRole):
		return apperrors.UnauthorizedError("Unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		return apperrors.ForbiddenError("Forbidden")
	case errors.Is(err, domain.ErrNotFound):
		return apperrors.NotFoundError("Not found")
	case errors.Is(err, circuitbreaker.ErrOpen):
		return apperrors.ExternalError("Directus is unavailable", err)
	}

	var apiErr *directus.APIError
	if errors.As(err, &apiErr) {
		return apperrors.ExternalError("Directus request failed", err).WithField("upstream_status", apiErr.Status)
	}

	return apperrors.InternalError("internal server error", err)
}

func logError(c echo.Context, err *apperrors.Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		if k == "conflicts" {
			continue
		}
		attrs = append(attrs, k, v)
	}

	ctx := c.Request().Context()
	switch err.Type {
	case apperrors.TypeValidation:
		slog.InfoContext(ctx, "Validation error", attrs...)
	case apperrors.TypeUnauthorized, apperrors.TypeForbidden:
		slog.InfoContext(ctx, "Access denied", attrs...)
	case apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case apperrors.TypeConflict:
		slog.WarnContext(ctx, "Conflict", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case apperrors.TypeExternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "External service error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

func writeJSON(c echo.Context, status int, body any) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to write JSON response: %w", err)
	}
	return nil
}

func unauthorizedJSON(c echo.Context) error {
	return writeJSON(c, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
}
