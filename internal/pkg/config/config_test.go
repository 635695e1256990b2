package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "0123456789abcdef",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" || cfg.Storage != StorageMemory || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Auth.SessionTTL != 24*time.Hour || cfg.Auth.CookieName != "portfolio_session" {
		t.Fatalf("unexpected auth defaults: %+v", cfg.Auth)
	}
	if cfg.Contact.RateLimit != 5 || cfg.Contact.RateWindow != time.Hour || cfg.Contact.MaxMessage != 5000 {
		t.Fatalf("unexpected contact defaults: %+v", cfg.Contact)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Production() {
		t.Fatalf("default env is not production")
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"ENV":                 "production",
		"JWT_SECRET":          "0123456789abcdef",
		"STORAGE":             "sqlite",
		"SQLITE_PATH":         "/var/lib/portfolio/cms.db",
		"SESSION_TTL":         "2h",
		"CORS_ORIGINS":        "https://example.com,https://admin.example.com",
		"RATE_LIMIT_BACKEND":  "redis",
		"CONTACT_RATE_LIMIT":  "3",
		"CONTACT_RATE_WINDOW": "10m",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !cfg.Production() || cfg.Storage != StorageSQLite || cfg.SQLite.Path != "/var/lib/portfolio/cms.db" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Auth.SessionTTL != 2*time.Hour {
		t.Fatalf("unexpected session ttl: %v", cfg.Auth.SessionTTL)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://admin.example.com" {
		t.Fatalf("unexpected origins: %v", cfg.CORSOrigins)
	}
	if cfg.Contact.RateLimitBackend != LimiterRedis || cfg.Contact.RateLimit != 3 || cfg.Contact.RateWindow != 10*time.Minute {
		t.Fatalf("unexpected contact config: %+v", cfg.Contact)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"SESSION_TTL": "forever",
	}))
	if err == nil {
		t.Fatalf("expected an error for an unparsable duration")
	}
}

func TestValidate_ListsEveryProblem(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":         "short",
		"STORAGE":            "postgres",
		"RATE_LIMIT_BACKEND": "memcached",
		"ADMIN_USERNAME":     "carol",
		"TRUSTED_PROXIES":    "10.0.0.0/8,not-a-range",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	err = cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, want := range []string{"JWT_SECRET", "STORAGE", "RATE_LIMIT_BACKEND", "ADMIN_PASSWORD", `"not-a-range"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %s to be reported, got %v", want, err)
		}
	}
	if strings.Contains(err.Error(), "10.0.0.0/8") {
		t.Errorf("valid proxy range reported as invalid: %v", err)
	}
}
