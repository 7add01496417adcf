// Command server runs the child tracker API.
//
// @title           Child Tracker API
// @version         1.0
// @description     Authentication, device registry and telemetry ingestion for the child monitoring agent.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rahul-9211/child-tracker-server/internal/api"
	"github.com/Rahul-9211/child-tracker-server/internal/api/handler"
	"github.com/Rahul-9211/child-tracker-server/internal/core/ports"
	"github.com/Rahul-9211/child-tracker-server/internal/core/service"
	"github.com/Rahul-9211/child-tracker-server/internal/infrastructure/db/mongo"
	"github.com/Rahul-9211/child-tracker-server/internal/infrastructure/db/redis"
	"github.com/Rahul-9211/child-tracker-server/internal/infrastructure/mail"
	"github.com/Rahul-9211/child-tracker-server/internal/infrastructure/queue"
	"github.com/Rahul-9211/child-tracker-server/internal/pkg/config"
	"github.com/Rahul-9211/child-tracker-server/internal/pkg/token"
	"github.com/Rahul-9211/child-tracker-server/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// The logger is not configured yet.
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "child-tracker-server",
		Env:     cfg.Env,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Storage ---
	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	users := mongo.NewUserRepository(db)
	devices := mongo.NewDeviceRepository(db)
	authLogs := mongo.NewAuthLogRepository(db)
	telemetryRepo := mongo.NewTelemetryRepository(db)

	// --- Core services ---
	tokens, err := token.NewManager(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}

	authz := service.NewAuthorizer(users, logger.Component("authz"))
	authService := service.NewAuthService(users, devices, authLogs, tokens, newMailer(cfg.SMTP), service.AuthConfig{
		SuperAdminKey: cfg.Auth.SuperAdminKey,
		SessionTTL:    cfg.Auth.SessionTTL,
		ResetTTL:      cfg.Auth.ResetTTL,
		ResetURL:      cfg.Auth.ResetURL,
	}, logger.Component("auth"))
	deviceService := service.NewDeviceService(devices, users, authz, logger.Component("devices"))
	telemetryService := service.NewTelemetryService(telemetryRepo, redis.NewDedupChecker(rdb), authz, logger.Component("telemetry"))

	// Workers outlive the signal context so buffered records are still written
	// during shutdown.
	dispatcher := queue.NewDispatcher(cfg.IngestWorkers, telemetryService, logger.Component("ingest"))
	dispatcher.Start(context.WithoutCancel(ctx))

	// --- HTTP ---
	proxies, err := cfg.TrustedProxyRanges()
	if err != nil {
		return err
	}
	e := api.NewRouter(api.Dependencies{
		Log:        logger.Component("http"),
		Tokens:     tokens,
		Principals: authz,
		Limiter:    redis.NewRateLimiter(rdb, cfg.Auth.RateLimit, cfg.Auth.RateWindow),
		Auth:       authService,
		Devices:    deviceService,
		Telemetry:  telemetryService,
		Dispatcher: dispatcher,
		Readiness: map[string]handler.Pinger{
			"mongodb": mongo.NewPinger(mongoClient),
			"redis":   redis.NewPinger(rdb),
		},
		TrustedProxies: proxies,
	})

	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case err := <-srvErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	dispatcher.Stop()
	return nil
}

// newMailer falls back to logging outside production. config.Load refuses a
// production config without SMTP_HOST.
func newMailer(cfg config.SMTPConfig) ports.Mailer {
	if cfg.Host == "" {
		return mail.NewLogMailer(logger.Component("mail"))
	}
	return mail.NewSMTPMailer(mail.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	}, logger.Component("mail"))
}
