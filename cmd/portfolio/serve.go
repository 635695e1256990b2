package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/uxfolio/portfolio-cms/internal/api"
	"github.com/uxfolio/portfolio-cms/internal/api/handler"
	"github.com/uxfolio/portfolio-cms/internal/core/service"
	"github.com/uxfolio/portfolio-cms/internal/pkg/config"
	"github.com/uxfolio/portfolio-cms/pkg/logger"
)

const readHeaderTimeout = 5 * time.Second

func runServe(ctx context.Context, _ *cli.Command) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.Production(),
		Service: "portfolio-cms",
		Version: version,
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := b.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("closing storage")
		}
	}()

	limiter, err := openLimiter(ctx, cfg, b, log)
	if err != nil {
		return err
	}

	authService := service.NewAuthService(b.users, b.store, cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, log)
	if cfg.Auth.AdminUsername != "" {
		created, err := authService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
		if err != nil {
			return err
		}
		if !created {
			log.Debug().Str("username", cfg.Auth.AdminUsername).Msg("admin account already present")
		}
	}

	router := api.NewRouter(api.Deps{
		Auth:           authService,
		Content:        service.NewContentService(b.store, log),
		Contact:        service.NewContactService(b.store, limiter, cfg.Contact.MaxMessage, log),
		Health:         b.pingers,
		Cookie:         handler.CookieConfig{Name: cfg.Auth.CookieName, Secure: cfg.Production()},
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: cfg.TrustedProxies,
		Log:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("storage", cfg.Storage).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runResetAdmin(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true})

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close(context.Background())

	// Token settings are irrelevant here; only the credential store is used.
	authService := service.NewAuthService(b.users, b.store, cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, log)
	user, err := authService.ResetAdmin(ctx, cmd.String("username"), cmd.String("password"))
	if err != nil {
		return err
	}
	log.Info().Str("username", user.Username).Str("id", user.ID).Msg("admin credentials reset")
	return nil
}
