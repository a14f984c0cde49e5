package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/admin"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/audit"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/email"
	authhandler "github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/handler"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/guard"
	authmetrics "github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/metrics"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/provider"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/service"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/session"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/store/resettoken"
	authcleanup "github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/workers/cleanup"
	userstore "github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/store/user"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/config"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/database"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/health"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/logger"
	httpmetrics "github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/metrics"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/redis"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/ratelimit/limiter"
	rlhandler "github.com/mrlts-del/cigar-accessories-v5-sub001/internal/ratelimit/handler"
	rlmetrics "github.com/mrlts-del/cigar-accessories-v5-sub001/internal/ratelimit/metrics"
	rlmiddleware "github.com/mrlts-del/cigar-accessories-v5-sub001/internal/ratelimit/middleware"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/ratelimit/workers/cleanup"
	httptransport "github.com/mrlts-del/cigar-accessories-v5-sub001/internal/transport/http"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/migrations"
)

const (
	shutdownTimeout   = 10 * time.Second
	requestTimeout    = 30 * time.Second
	poolStatsInterval = 15 * time.Second
	readHeaderTimeout = 5 * time.Second
	auditBufferSize   = 256
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("initializing storefront api",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"oauth_enabled", cfg.OAuth.Enabled(),
		"admin_override_configured", cfg.Auth.AdminOverrideEmail != "",
	)

	healthHandler := health.New(cfg.Environment)

	users, pool, err := buildUserStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close() //nolint:errcheck // shutdown path
	if pool != nil {
		healthHandler.RegisterCheck("database", pool.Health)
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var resetTokens service.ResetTokenStore
	var tokenCleaner *authcleanup.CleanupService
	if rc != nil {
		defer rc.Close() //nolint:errcheck // shutdown path
		resetTokens = resettoken.NewRedis(rc.Client)
		healthHandler.RegisterCheck("redis", rc.Health)
		log.Info("password reset tokens stored in redis")
	} else {
		memTokens := resettoken.NewInMemory()
		resetTokens = memTokens
		tokenCleaner, err = authcleanup.New(memTokens,
			authcleanup.WithCleanupInterval(cfg.Auth.ResetCleanupInterval),
			authcleanup.WithCleanupLogger(log),
		)
		if err != nil {
			return err
		}
		log.Info("password reset tokens stored in memory")
	}

	reg := prometheus.DefaultRegisterer
	authMetrics := authmetrics.New(reg)
	limitMetrics := rlmetrics.New(reg)

	auditTrail := audit.NewPublisher(audit.NewInMemory(audit.DefaultCapacity),
		audit.WithAsyncBuffer(auditBufferSize),
		audit.WithPublisherLogger(log),
	)
	defer auditTrail.Close()

	tokens := session.NewTokenService(cfg.Auth.Secret, cfg.Auth.SessionTTL)
	authOpts := []service.Option{
		service.WithLogger(log),
		service.WithAuditPublisher(auditTrail),
		service.WithMetrics(authMetrics),
		service.WithResetTTL(cfg.Auth.PasswordResetTTL),
	}
	if cfg.Environment == "local" {
		authOpts = append(authOpts, service.WithResetNotifier(email.NewLogNotifier(log, cfg.Auth.PublicURL)))
		log.Info("password reset links are written to the log")
	} else {
		log.Warn("no password reset notifier configured, reset links are not delivered")
	}
	authSvc := service.New(users, resetTokens, tokens, authOpts...)

	handlerOpts := []authhandler.Option{authhandler.WithSecureCookies(cfg.Auth.SecureCookies)}
	if cfg.OAuth.Enabled() {
		idp, err := provider.NewOIDC(ctx, cfg.OAuth)
		if err != nil {
			return err
		}
		handlerOpts = append(handlerOpts, authhandler.WithProvider(idp))
	} else {
		log.Warn("oauth provider not configured, delegated sign-in disabled")
	}

	l := limiter.New()
	adminGuard := guard.New(guard.Config{
		Prefix:        guard.DefaultPrefix,
		SignInPath:    guard.DefaultSignInPath,
		OverrideEmail: cfg.Auth.AdminOverrideEmail,
	}, tokens, guard.WithLogger(log), guard.WithMetrics(authMetrics))

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		TrustedProxies: cfg.TrustedProxies,
		RequestTimeout: requestTimeout,
		Auth:           authhandler.New(authSvc, tokens, log, cfg.Auth.SessionTTL, handlerOpts...),
		Admin:          admin.New(authSvc, log, adminGuard.SignInPath(), admin.WithAuditTrail(auditTrail)),
		RateLimit:      rlhandler.New(l, log),
		Health:         healthHandler,
		Limits:         rlmiddleware.New(l, log, limitMetrics),
		Guard:          adminGuard,
		HTTPMetrics:    httpmetrics.New(reg),
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	cleaner := cleanup.New(l,
		cleanup.WithLogger(log),
		cleanup.WithInterval(cfg.RateLimit.SweepInterval),
		cleanup.WithRetention(cfg.RateLimit.Retention),
		cleanup.WithMetrics(limitMetrics),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := cleaner.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if tokenCleaner != nil {
		g.Go(func() error {
			if err := tokenCleaner.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	if rc != nil {
		g.Go(func() error {
			ticker := time.NewTicker(poolStatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					rc.RecordPoolStats()
				}
			}
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildUserStore returns the Postgres store when DATABASE_URL is set and the
// in-memory store otherwise.
func buildUserStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (service.UserStore, *database.Pool, error) {
	pool, err := database.New(ctx, database.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		return nil, nil, err
	}
	if pool == nil {
		log.Warn("DATABASE_URL not set, users are kept in memory")
		return userstore.New(), nil, nil
	}
	if err := migrations.Up(ctx, pool.DB()); err != nil {
		pool.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, nil, err
	}
	log.Info("users stored in postgres")
	return userstore.NewPostgres(pool.DB()), pool, nil
}
