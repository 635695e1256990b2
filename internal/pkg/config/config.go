package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageMongo  = "mongo"
)

// Rate limit backends.
const (
	LimiterMemory = "memory"
	LimiterRedis  = "redis"
)

const minSecretLen = 16

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	Storage         string        `env:"STORAGE,          default=memory"`
	CORSOrigins     []string      `env:"CORS_ORIGINS"`
	TrustedProxies  []string      `env:"TRUSTED_PROXIES"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	Auth    AuthConfig
	Contact ContactConfig
	Mongo   MongoConfig
	SQLite  SQLiteConfig
	Redis   RedisConfig
}

type AuthConfig struct {
	JWTSecret     string        `env:"JWT_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL,    default=24h"`
	CookieName    string        `env:"SESSION_COOKIE, default=portfolio_session"`
	AdminUsername string        `env:"ADMIN_USERNAME"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
}

type ContactConfig struct {
	RateLimitBackend string        `env:"RATE_LIMIT_BACKEND,  default=memory"`
	RateLimit        int           `env:"CONTACT_RATE_LIMIT,  default=5"`
	RateWindow       time.Duration `env:"CONTACT_RATE_WINDOW, default=1h"`
	MaxMessage       int           `env:"CONTACT_MAX_MESSAGE, default=5000"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017/?replicaSet=rs0"`
	Database string `env:"MONGO_DB,  default=portfolio"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH, default=portfolio.db"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	return &cfg, nil
}

// Production reports whether the service runs with ENV=production.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Validate checks the settings the HTTP server needs. Every problem is
// reported, not just the first.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Auth.JWTSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLen))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if !slices.Contains([]string{StorageMemory, StorageSQLite, StorageMongo}, c.Storage) {
		errs = append(errs, fmt.Errorf("STORAGE %q must be one of memory, sqlite, mongo", c.Storage))
	}
	if !slices.Contains([]string{LimiterMemory, LimiterRedis}, c.Contact.RateLimitBackend) {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND %q must be memory or redis", c.Contact.RateLimitBackend))
	}
	if c.Contact.RateLimit < 1 || c.Contact.RateWindow <= 0 {
		errs = append(errs, errors.New("CONTACT_RATE_LIMIT and CONTACT_RATE_WINDOW must be positive"))
	}
	if c.Contact.MaxMessage < 1 {
		errs = append(errs, errors.New("CONTACT_MAX_MESSAGE must be positive"))
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(strings.TrimSpace(cidr)); err != nil {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES entry %q is not a CIDR", cidr))
		}
	}
	if (c.Auth.AdminUsername == "") != (c.Auth.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}
