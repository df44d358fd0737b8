package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"rotacultural/internal/points/models"
	"rotacultural/pkg/platform/strings"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// AuditBuffer is the async audit queue length; 0 writes events inline.
	AuditBuffer int `env:"AUDIT_BUFFER" envDefault:"256"`

	Auth      AuthConfig
	Points    PointsConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	JWTSigningKey string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"rotacultural"`
	JWTAudience   string        `env:"JWT_AUDIENCE" envDefault:"rotacultural-api"`
	TokenTTL      time.Duration `env:"JWT_TTL" envDefault:"1h"`
	// AdminToken guards the operator endpoints; empty disables them.
	AdminToken string `env:"ADMIN_API_TOKEN"`
}

// PointsConfig configures the point registry.
type PointsConfig struct {
	PageSize   int           `env:"PAGE_SIZE" envDefault:"10"`
	CacheTTL   time.Duration `env:"CACHE_TTL" envDefault:"300s"`
	Categories []string      `env:"POINT_CATEGORIES" envSeparator:","`
}

// StoreConfig selects and configures the backing store.
type StoreConfig struct {
	Backend   string `env:"STORE_BACKEND" envDefault:"memory"`
	KeyPrefix string `env:"STORE_KEY_PREFIX" envDefault:"rotacultural"`
	Redis     RedisConfig
	BoltPath  string `env:"BOLT_PATH" envDefault:"rotacultural.db"`
	// DatabaseURL is the Postgres connection string.
	DatabaseURL string `env:"DATABASE_URL"`
	// Breaker settings apply to the redis, bolt and postgres backends.
	BreakerFailures int           `env:"STORE_BREAKER_FAILURES" envDefault:"5"`
	BreakerCooldown time.Duration `env:"STORE_BREAKER_COOLDOWN" envDefault:"30s"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// RateLimitConfig sets the per-IP budgets for login and point writes.
type RateLimitConfig struct {
	Disabled      bool          `env:"RATE_LIMIT_DISABLED" envDefault:"false"`
	Window        time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	AuthRequests  int           `env:"RATE_LIMIT_AUTH" envDefault:"10"`
	WriteRequests int           `env:"RATE_LIMIT_WRITE" envDefault:"50"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Points.Categories = strings.DedupeFold(cfg.Points.Categories)
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Server) Validate() error {
	var errs []error
	if c.Points.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be positive, got %d", c.Points.PageSize))
	}
	if c.Points.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must not be negative, got %s", c.Points.CacheTTL))
	}
	if c.AuditBuffer < 0 {
		errs = append(errs, fmt.Errorf("AUDIT_BUFFER must not be negative, got %d", c.AuditBuffer))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_TTL must be positive, got %s", c.Auth.TokenTTL))
	}
	if c.Auth.JWTSigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY is required"))
	}
	if !c.RateLimit.Disabled {
		if c.RateLimit.Window <= 0 {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimit.Window))
		}
		if c.RateLimit.AuthRequests <= 0 || c.RateLimit.WriteRequests <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT_AUTH and RATE_LIMIT_WRITE must be positive"))
		}
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis backend"))
		}
	case BackendBolt:
		if c.Store.BoltPath == "" {
			errs = append(errs, errors.New("BOLT_PATH is required for the bolt backend"))
		}
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}
	return errors.Join(errs...)
}

// UsesDevSigningKey reports whether the built-in development key is in use.
func (c Server) UsesDevSigningKey() bool {
	return c.Auth.JWTSigningKey == devSigningKey
}

// PointCategories returns the configured categories, or the defaults when
// none are set.
func (c Server) PointCategories() models.Categories {
	if len(c.Points.Categories) == 0 {
		return models.DefaultCategories
	}
	return models.Categories(c.Points.Categories)
}
