package middleware

import (
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
)

// RequireRole enforces role-based access control on a route. It must run after
// LoadPrincipal.
func RequireRole(roles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFrom(c)
			if p == nil {
				return domain.ErrUnauthorized
			}
			if !slices.Contains(roles, p.Role) {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
