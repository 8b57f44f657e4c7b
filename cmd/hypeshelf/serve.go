package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/sumire/hypeshelf/internal/database"
	"github.com/sumire/hypeshelf/internal/handler"
	"github.com/sumire/hypeshelf/internal/metrics"
	"github.com/sumire/hypeshelf/internal/repository"
	"github.com/sumire/hypeshelf/internal/service"
)

func (r *runner) openDB(ctx context.Context) (*sqlx.DB, error) {
	db, err := database.Open(ctx, r.cfg.Database.URL, database.PoolConfig{
		MaxOpenConns:    r.cfg.Database.MaxOpenConns,
		MaxIdleConns:    r.cfg.Database.MaxIdleConns,
		ConnMaxLifetime: r.cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("database connected")
	return db, nil
}

func (r *runner) serve(ctx context.Context, _ *cli.Command) error {
	cfg := r.cfg
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(cfg.Database.URL); err != nil {
			return err
		}
	}

	db, err := r.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	userRepo := repository.NewUserRepository(db)
	recRepo := repository.NewRecommendationRepository(db)
	transactor := repository.NewTransactor(db)

	authSvc := service.NewAuthService(service.AuthConfig{
		GoogleClientID:     cfg.Auth.GoogleClientID,
		GoogleClientSecret: cfg.Auth.GoogleClientSecret,
		GitHubClientID:     cfg.Auth.GitHubClientID,
		GitHubClientSecret: cfg.Auth.GitHubClientSecret,
		JWTSecret:          cfg.Auth.JWTSecret,
		CallbackBaseURL:    cfg.Auth.CallbackBaseURL,
		AccessTTL:          cfg.Auth.AccessTokenTTL,
		RefreshTTL:         cfg.Auth.RefreshTokenTTL,
		Breaker:            collector,
	})
	userSvc := service.NewUserService(userRepo, collector)
	recSvc := service.NewRecommendationService(recRepo, transactor, service.NewGate(userRepo), collector)

	var limiter *handler.RateLimiter
	if cfg.RateLimit.Enabled {
		limiterCfg := handler.DefaultRateLimiterConfig()
		limiterCfg.Rate = rate.Limit(float64(cfg.RateLimit.RequestsPerMinute) / 60.0)
		limiterCfg.Burst = cfg.RateLimit.Burst
		limiter = handler.NewRateLimiter(limiterCfg)
		defer limiter.Stop()
	}

	if cfg.Auth.DevLogin {
		slog.Warn("dev login is enabled; tokens can be minted for any subject")
	}

	e := handler.NewRouter(handler.RouterConfig{
		Auth:            authSvc,
		Users:           userSvc,
		Recommendations: recSvc,
		Metrics:         collector,
		MetricsHandler:  metrics.Handler(registry),
		RateLimiter:     limiter,
		AllowedOrigins:  []string{cfg.Server.FrontendURL},
		DevLogin:        cfg.Auth.DevLogin,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
