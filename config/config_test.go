package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Minute, cfg.InactivityThreshold)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 100, cfg.RateLimitCeiling)
	assert.Equal(t, time.Hour, cfg.RateLimitWindow)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("INACTIVITY_THRESHOLD", "90s")
	t.Setenv("SWEEP_INTERVAL", "15s")
	t.Setenv("RATE_LIMIT_CEILING", "250")
	t.Setenv("RATE_LIMIT_WINDOW", "10m")
	t.Setenv("MSG_RATE", "5.5")
	t.Setenv("MSG_BURST", "10")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 90*time.Second, cfg.InactivityThreshold)
	assert.Equal(t, 15*time.Second, cfg.SweepInterval)
	assert.Equal(t, 250, cfg.RateLimitCeiling)
	assert.Equal(t, 10*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 5.5, cfg.MessageRate)
	assert.Equal(t, 10, cfg.MessageBurst)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_CEILING", "not-a-number")
	t.Setenv("SWEEP_INTERVAL", "soon")

	cfg := Load()

	assert.Equal(t, 100, cfg.RateLimitCeiling)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
}
