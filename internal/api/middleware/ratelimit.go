package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Rahul-9211/child-tracker-server/internal/infrastructure/db/redis"
	"github.com/Rahul-9211/child-tracker-server/internal/pkg/metrics"
)

// Limiter counts hits per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (redis.Decision, error)
}

// RateLimit throttles a route per client IP. When the limiter store is
// unreachable the request is let through.
func RateLimit(limiter Limiter, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			d, err := limiter.Allow(c.Request().Context(), route+":"+c.RealIP())
			if err != nil {
				log.Warn().Err(err).Str("route", route).Msg("rate limiter unavailable, allowing request")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				metrics.AuthRateLimitedTotal.WithLabelValues(route).Inc()
				h.Set("Retry-After", strconv.Itoa(retryAfterSeconds(d.RetryAfter)))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}

func retryAfterSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}
