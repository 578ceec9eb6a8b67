package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 60*time.Second, cfg.SuspensionPollInterval)
	assert.Equal(t, 30, cfg.OverdueAfterDays)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Contains(t, cfg.DSN(), "dbname=pos")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/pos")
	t.Setenv("SUSPENSION_POLL_INTERVAL", "15s")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("APP_ENV", "Production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/pos", cfg.DSN())
	assert.Equal(t, 15*time.Second, cfg.SuspensionPollInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.IsProduction())
}

func TestLoadRejectsInvalidOverdueDays(t *testing.T) {
	t.Setenv("OVERDUE_AFTER_DAYS", "0")

	_, err := Load()
	assert.Error(t, err)
}
