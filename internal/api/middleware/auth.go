package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
	"github.com/Rahul-9211/child-tracker-server/internal/core/ports"
	"github.com/Rahul-9211/child-tracker-server/internal/pkg/token"
)

// Auth validates the bearer session token and injects the user id into context.
// Reset tokens are rejected here even when correctly signed.
func Auth(tokens *token.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := tokens.Parse(parts[1], token.PurposeSession)
			if err != nil || claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ContextUserID, claims.Subject)
			return next(c)
		}
	}
}

// LoadPrincipal resolves the caller's current role and devices. It must run
// after Auth. A token whose user no longer exists is treated as unauthenticated.
func LoadPrincipal(resolver ports.PrincipalResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := UserID(c)
			if userID == "" {
				return domain.ErrUnauthorized
			}

			p, err := resolver.Resolve(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					return domain.ErrUnauthorized
				}
				return err
			}

			c.Set(ContextPrincipal, p)
			return next(c)
		}
	}
}
