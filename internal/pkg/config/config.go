package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth  AuthConfig
	Mongo MongoConfig
	Redis RedisConfig
	SMTP  SMTPConfig

	IngestWorkers int `env:"INGEST_WORKERS, default=8"`

	// TrustedProxies lists the CIDR ranges whose X-Forwarded-For header is
	// believed. Empty means the peer address is the client address.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

type AuthConfig struct {
	JWTSecret     string        `env:"JWT_SECRET"`
	SuperAdminKey string        `env:"SUPER_ADMIN_ACCESS_CODE"`
	SessionTTL    time.Duration `env:"SESSION_TTL,      default=24h"`
	ResetTTL      time.Duration `env:"RESET_TOKEN_TTL,  default=1h"`
	ResetURL      string        `env:"RESET_URL,        default=http://localhost:3000/reset-password"`
	RateLimit     int           `env:"AUTH_RATE_LIMIT,  default=10"`
	RateWindow    time.Duration `env:"AUTH_RATE_WINDOW, default=1m"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=child_monitor"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// SMTPConfig configures outbound email. An empty Host disables delivery
// outside production and only the recipient is logged.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT,     default=587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM,     default=no-reply@localhost"`
}

// TrustedProxyRanges parses TrustedProxies.
func (c *Config) TrustedProxyRanges() ([]*net.IPNet, error) {
	ranges := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, cidr := range c.TrustedProxies {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
		}
		ranges = append(ranges, n)
	}
	return ranges, nil
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads an optional .env file, then configuration from environment
// variables using go-envconfig. Variables already set take precedence over .env.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.Auth.SessionTTL <= 0 || c.Auth.ResetTTL <= 0 {
		return errors.New("config: SESSION_TTL and RESET_TOKEN_TTL must be positive")
	}
	if c.Auth.RateLimit <= 0 || c.Auth.RateWindow <= 0 {
		return errors.New("config: AUTH_RATE_LIMIT and AUTH_RATE_WINDOW must be positive")
	}
	if c.IsProduction() && c.SMTP.Host == "" {
		return errors.New("config: SMTP_HOST is required in production")
	}
	if _, err := c.TrustedProxyRanges(); err != nil {
		return err
	}
	return nil
}
