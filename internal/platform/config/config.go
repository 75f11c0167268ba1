package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const Production = "production"

type SMTPOptions struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	UseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"true"`
}

type RedisOptions struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type HierarchyOptions struct {
	CacheSize int           `env:"HIERARCHY_CACHE_SIZE" envDefault:"500"`
	CacheTTL  time.Duration `env:"HIERARCHY_CACHE_TTL" envDefault:"15m"`
	MaxDepth  int           `env:"HIERARCHY_MAX_DEPTH" envDefault:"3"`
}

// ScoreWeights are the per-rater-type multipliers of the competency average.
// All zero means the plain mean.
type ScoreWeights struct {
	Self    float64 `env:"SCORE_WEIGHT_SELF" envDefault:"0"`
	Manager float64 `env:"SCORE_WEIGHT_MANAGER" envDefault:"0"`
	Peer    float64 `env:"SCORE_WEIGHT_PEER" envDefault:"0"`
	Upward  float64 `env:"SCORE_WEIGHT_UPWARD" envDefault:"0"`
}

type Config struct {
	Addr           string `env:"APP_ADDR" envDefault:":8080"`
	Environment    string `env:"APP_ENV" envDefault:"development"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL    string `env:"DATABASE_URL"`
	DBMaxConns     int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns     int32  `env:"DB_MIN_CONNS" envDefault:"2"`
	JWTSecret      string `env:"JWT_SECRET"`
	RunMigrations  bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	MaxBodyBytes   int64  `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	// SeedTenantName creates the tenant and its default competency library on start.
	SeedTenantName string `env:"SEED_TENANT_NAME"`

	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`

	EmailFrom    string `env:"EMAIL_FROM" envDefault:"no-reply@example.com"`
	EmailEnabled bool   `env:"EMAIL_ENABLED" envDefault:"false"`
	SMTP         SMTPOptions

	Redis     RedisOptions
	Hierarchy HierarchyOptions
	Weights   ScoreWeights

	// NotifyMinDelay spaces consecutive notification sends.
	NotifyMinDelay     time.Duration `env:"NOTIFY_MIN_DELAY" envDefault:"600ms"`
	ActivationInterval time.Duration `env:"ACTIVATION_INTERVAL" envDefault:"5m"`
	JobQueueSize       int           `env:"JOB_QUEUE_SIZE" envDefault:"100"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == Production
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() && len(strings.TrimSpace(c.JWTSecret)) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EmailEnabled && c.SMTP.Host == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	if c.NotifyMinDelay < 0 {
		return fmt.Errorf("NOTIFY_MIN_DELAY must not be negative")
	}
	if c.ActivationInterval <= 0 {
		return fmt.Errorf("ACTIVATION_INTERVAL must be positive")
	}
	if c.Hierarchy.MaxDepth <= 0 {
		return fmt.Errorf("HIERARCHY_MAX_DEPTH must be positive")
	}
	for name, w := range map[string]float64{
		"SCORE_WEIGHT_SELF":    c.Weights.Self,
		"SCORE_WEIGHT_MANAGER": c.Weights.Manager,
		"SCORE_WEIGHT_PEER":    c.Weights.Peer,
		"SCORE_WEIGHT_UPWARD":  c.Weights.Upward,
	} {
		if w < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}
