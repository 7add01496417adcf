package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rahul-9211/child-tracker-server/internal/api/middleware"
	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
)

// ctxPrincipal returns the caller resolved by the middleware chain and
// fails fast when a protected handler is mounted without it.
func ctxPrincipal(c echo.Context) (*domain.Principal, error) {
	p := middleware.PrincipalFrom(c)
	if p == nil || p.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	return p, nil
}

// ctxUserID returns the authenticated user id.
func ctxUserID(c echo.Context) (string, error) {
	id := middleware.UserID(c)
	if id == "" {
		return "", domain.ErrUnauthorized
	}
	return id, nil
}

// clientInfo captures the request metadata recorded with auth attempts.
func clientInfo(c echo.Context) domain.ClientInfo {
	req := c.Request()
	return domain.ClientInfo{
		IP:         c.RealIP(),
		UserAgent:  req.UserAgent(),
		DeviceType: req.Header.Get("Device-Type"),
	}
}

// bindAndValidate decodes the body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return invalidPayload
	}
	return c.Validate(req)
}

var invalidPayload = echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
