package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/uxfolio/portfolio-cms/internal/api/handler"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
	"github.com/uxfolio/portfolio-cms/internal/infrastructure/db/memory"
	mongodb "github.com/uxfolio/portfolio-cms/internal/infrastructure/db/mongo"
	redisdb "github.com/uxfolio/portfolio-cms/internal/infrastructure/db/redis"
	"github.com/uxfolio/portfolio-cms/internal/infrastructure/db/sqlite"
	"github.com/uxfolio/portfolio-cms/internal/infrastructure/ratelimit"
	"github.com/uxfolio/portfolio-cms/internal/pkg/config"
)

// backend holds the opened storage and the hooks to probe and release it.
type backend struct {
	store   ports.Store
	users   ports.AuthRepository
	pingers map[string]handler.Pinger
	closers []func(context.Context) error
}

func (b *backend) onClose(fn func(context.Context) error) {
	b.closers = append(b.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (b *backend) Close(ctx context.Context) error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func openBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	b := &backend{pingers: map[string]handler.Pinger{}}

	switch cfg.Storage {
	case config.StorageMemory:
		store := memory.New()
		b.store, b.users = store, memory.NewUserRepository()
		b.pingers["storage"] = store
		log.Warn().Msg("using in-memory storage; content is lost on restart")

	case config.StorageSQLite:
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		b.onClose(func(context.Context) error { return sqlDB.Close() })
		if err := sqlite.RunMigrations(ctx, db); err != nil {
			_ = b.Close(ctx)
			return nil, err
		}
		store := sqlite.NewStore(db)
		b.store, b.users = store, sqlite.NewUserRepository(db)
		b.pingers["sqlite"] = store
		log.Info().Str("path", cfg.SQLite.Path).Msg("sqlite storage ready")

	case config.StorageMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		b.onClose(client.Disconnect)
		store := mongodb.NewStore(client, db)
		users := mongodb.NewAuthRepository(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = b.Close(ctx)
			return nil, err
		}
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = b.Close(ctx)
			return nil, err
		}
		b.store, b.users = store, users
		b.pingers["mongodb"] = store
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb storage ready")

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}

	return b, nil
}

// openLimiter builds the contact rate limiter and registers its cleanup on b.
func openLimiter(ctx context.Context, cfg *config.Config, b *backend, log zerolog.Logger) (ports.RateLimiter, error) {
	c := cfg.Contact
	switch c.RateLimitBackend {
	case config.LimiterRedis:
		client, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return nil, err
		}
		b.onClose(func(context.Context) error { return client.Close() })
		b.pingers["redis"] = redisdb.Pinger{Client: client}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis rate limiter ready")
		return redisdb.NewRateLimiter(client, c.RateLimit, c.RateWindow), nil

	default:
		limiter := ratelimit.NewFixedWindow(c.RateLimit, c.RateWindow)
		b.onClose(func(context.Context) error {
			limiter.Stop()
			return nil
		})
		return limiter, nil
	}
}
