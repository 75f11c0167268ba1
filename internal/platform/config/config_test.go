package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/notifications"
)

func validConfig() Config {
	return Config{
		DatabaseURL:        "postgres://localhost/perf",
		JWTSecret:          "secret",
		MaxBodyBytes:       1 << 20,
		RateLimitPerMinute: 60,
		ActivationInterval: time.Minute,
		Hierarchy:          HierarchyOptions{MaxDepth: 3},
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/perf")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 3, cfg.Hierarchy.MaxDepth)
	assert.Equal(t, 15*time.Minute, cfg.Hierarchy.CacheTTL)
	assert.Equal(t, notifications.DefaultMinDelay, cfg.NotifyMinDelay)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.True(t, cfg.RunMigrations)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Zero(t, cfg.Weights)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("HIERARCHY_MAX_DEPTH", "5")
	t.Setenv("NOTIFY_MIN_DELAY", "1s")
	t.Setenv("SCORE_WEIGHT_MANAGER", "2.5")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 5, cfg.Hierarchy.MaxDepth)
	assert.Equal(t, time.Second, cfg.NotifyMinDelay)
	assert.Equal(t, 2.5, cfg.Weights.Manager)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("HIERARCHY_MAX_DEPTH", "deep")
	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = " " }, want: "DATABASE_URL"},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }, want: "JWT_SECRET"},
		{name: "weak production secret", mutate: func(c *Config) { c.Environment = Production }, want: "at least 32"},
		{name: "tiny body limit", mutate: func(c *Config) { c.MaxBodyBytes = 10 }, want: "MAX_BODY_BYTES"},
		{name: "no rate limit", mutate: func(c *Config) { c.RateLimitPerMinute = 0 }, want: "RATE_LIMIT_PER_MINUTE"},
		{name: "email without smtp", mutate: func(c *Config) { c.EmailEnabled = true }, want: "SMTP_HOST"},
		{name: "negative delay", mutate: func(c *Config) { c.NotifyMinDelay = -time.Second }, want: "NOTIFY_MIN_DELAY"},
		{name: "zero activation interval", mutate: func(c *Config) { c.ActivationInterval = 0 }, want: "ACTIVATION_INTERVAL"},
		{name: "zero depth", mutate: func(c *Config) { c.Hierarchy.MaxDepth = 0 }, want: "HIERARCHY_MAX_DEPTH"},
		{name: "negative weight", mutate: func(c *Config) { c.Weights.Peer = -1 }, want: "SCORE_WEIGHT_PEER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	require.NoError(t, validConfig().Validate())
}
