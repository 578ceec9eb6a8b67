package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Port     string `env:"PORT" envDefault:"3000"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBUser      string `env:"DB_USER" envDefault:"postgres"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME" envDefault:"pos"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	DBTimezone  string `env:"DB_TIMEZONE" envDefault:"America/Argentina/Buenos_Aires"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"your-super-secret-key-change-in-production"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	// Empty RedisAddr disables the Redis idempotency store.
	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	SuspensionPollInterval time.Duration `env:"SUSPENSION_POLL_INTERVAL" envDefault:"60s"`
	OverdueSweepInterval   time.Duration `env:"OVERDUE_SWEEP_INTERVAL" envDefault:"24h"`
	OverdueAfterDays       int           `env:"OVERDUE_AFTER_DAYS" envDefault:"30"`

	ReceiptDir     string `env:"RECEIPT_DIR" envDefault:"./receipts"`
	ReceiptBaseURL string `env:"RECEIPT_BASE_URL" envDefault:"/receipts"`

	LoginRatePerMinute int      `env:"LOGIN_RATE_PER_MINUTE" envDefault:"20"`
	CORSOrigins        []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	SuperadminEmail    string `env:"SUPERADMIN_EMAIL" envDefault:"superadmin@example.com"`
	SuperadminPassword string `env:"SUPERADMIN_PASSWORD"`
}

// Load reads configuration from environment variables, with .env as a local fallback.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.OverdueAfterDays <= 0 {
		return nil, fmt.Errorf("invalid OVERDUE_AFTER_DAYS: %d", cfg.OverdueAfterDays)
	}
	if cfg.SuspensionPollInterval <= 0 {
		return nil, fmt.Errorf("invalid SUSPENSION_POLL_INTERVAL: %s", cfg.SuspensionPollInterval)
	}
	return cfg, nil
}

// DSN returns DATABASE_URL when set, otherwise builds one from the DB_* parts.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBTimezone,
	)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}
