package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// domainErrors maps known domain errors to their HTTP status. Order matters
// only where one error wraps another.
var domainErrors = []struct {
	err  error
	code int
}{
	{domain.ErrInvalidInput, http.StatusBadRequest},
	{domain.ErrDuplicateEmail, http.StatusBadRequest},
	{domain.ErrInvalidOrExpiredToken, http.StatusBadRequest},
	{domain.ErrAlreadyAssigned, http.StatusBadRequest},
	{domain.ErrUnknownKind, http.StatusBadRequest},
	{domain.ErrDuplicateDevice, http.StatusBadRequest},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrConflict, http.StatusForbidden},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrUserNotFound, http.StatusNotFound},
	{domain.ErrDeviceNotFound, http.StatusNotFound},
	{domain.ErrAdminNotFound, http.StatusNotFound},
	{domain.ErrRecordNotFound, http.StatusNotFound},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps known domain
// errors to status codes, logs unexpected ones internally without leaking
// details to the client, and renders {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, 429, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			log.Warn().
				Err(he.Internal).
				Int("status", he.Code).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("request failed")
		}
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	for _, m := range domainErrors {
		if !errors.Is(err, m.err) {
			continue
		}
		// Validation failures carry their reason. Everything else is rendered
		// by its sentinel text only, so a forbidden response never names the
		// devices it guards.
		if m.err == domain.ErrInvalidInput {
			return m.code, err.Error()
		}
		if m.err == domain.ErrForbidden {
			log.Debug().Err(err).Str("path", c.Path()).Msg("access denied")
		}
		return m.code, m.err.Error()
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
