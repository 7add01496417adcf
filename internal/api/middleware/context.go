package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
)

// Context keys set by this package.
const (
	ContextUserID    = "user_id"
	ContextPrincipal = "principal"
)

// UserID returns the authenticated user id set by Auth.
func UserID(c echo.Context) string {
	id, _ := c.Get(ContextUserID).(string)
	return id
}

// PrincipalFrom returns the principal set by LoadPrincipal, or nil.
func PrincipalFrom(c echo.Context) *domain.Principal {
	p, _ := c.Get(ContextPrincipal).(*domain.Principal)
	return p
}
