package api

import (
	"net"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/Rahul-9211/child-tracker-server/internal/api/handler"
	"github.com/Rahul-9211/child-tracker-server/internal/api/middleware"
	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
	"github.com/Rahul-9211/child-tracker-server/internal/core/ports"
	"github.com/Rahul-9211/child-tracker-server/internal/pkg/token"

	_ "github.com/Rahul-9211/child-tracker-server/docs"
)

// Dependencies is everything the router needs to serve the API.
type Dependencies struct {
	Log        zerolog.Logger
	Tokens     *token.Manager
	Principals ports.PrincipalResolver
	Limiter    middleware.Limiter

	Auth       ports.AuthService
	Devices    ports.DeviceService
	Telemetry  ports.TelemetryService
	Dispatcher handler.TelemetryDispatcher

	// Readiness lists the dependencies checked by /health/ready.
	Readiness map[string]handler.Pinger

	// Registry collects HTTP metrics. Nil uses the Prometheus default registry.
	Registry *prometheus.Registry

	// TrustedProxies are the ranges allowed to set X-Forwarded-For. With
	// none, the TCP peer is the client address.
	TrustedProxies []*net.IPNet
}

// ipExtractor decides what c.RealIP returns, which keys the rate limiter and
// the audit log. Forwarding headers are only read from trusted proxies.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)
	e.IPExtractor = ipExtractor(deps.TrustedProxies)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(prometheusMiddleware(deps.Registry))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	deviceHandler := handler.NewDeviceHandler(deps.Devices)
	telemetryHandler := handler.NewTelemetryHandler(deps.Dispatcher, deps.Telemetry)

	authn := middleware.Auth(deps.Tokens)
	principal := middleware.LoadPrincipal(deps.Principals)
	limited := middleware.RateLimit(deps.Limiter, deps.Log)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/signin", authHandler.Signin, limited)
	auth.POST("/forgot-password", authHandler.ForgotPassword, limited)
	auth.POST("/reset-password", authHandler.ResetPassword)
	auth.POST("/add-device", authHandler.AddDevice, authn)
	auth.GET("/logs", authHandler.Logs, authn)

	// --- Device routes ---
	devices := e.Group("/devices")
	devices.GET("/public", deviceHandler.ListPublic)
	devices.POST("", deviceHandler.Create)
	devices.GET("", deviceHandler.List, authn, principal)
	devices.GET("/:id", deviceHandler.Get, authn, principal)
	devices.PUT("/:id", deviceHandler.Update, authn, principal)
	devices.DELETE("/:id", deviceHandler.Delete, authn, principal)
	devices.POST("/assign", deviceHandler.Assign, authn, principal, middleware.RequireRole(domain.RoleSuperAdmin))

	// --- Telemetry routes ---
	telemetry := e.Group("/telemetry/:kind")
	telemetry.POST("", telemetryHandler.Receive)
	telemetry.POST("/batch", telemetryHandler.ReceiveBatch)
	telemetry.GET("/device/:deviceId", telemetryHandler.ListByDevice, authn, principal)
	telemetry.GET("/device/:deviceId/latest", telemetryHandler.Latest, authn, principal)
	telemetry.PUT("/:id", telemetryHandler.Update, authn, principal)
	telemetry.DELETE("/:id", telemetryHandler.Delete, authn, principal)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Readiness)

	e.GET("/health", healthHandler.Liveness)          // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Observability ---
	e.GET("/metrics", metricsHandler(deps.Registry))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func prometheusMiddleware(reg *prometheus.Registry) echo.MiddlewareFunc {
	cfg := echoprometheus.MiddlewareConfig{
		Subsystem: "child_tracker",
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}
	if reg != nil {
		cfg.Registerer = reg
	}
	return echoprometheus.NewMiddlewareWithConfig(cfg)
}

func metricsHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
