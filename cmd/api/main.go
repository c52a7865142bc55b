// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Caseline HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire sessions, tokens, limiters and mail.
//  7. Wire HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/taibuivan/caseline/internal/api"
	"github.com/taibuivan/caseline/internal/platform/config"
	"github.com/taibuivan/caseline/internal/platform/constants"
	"github.com/taibuivan/caseline/internal/platform/mail"
	"github.com/taibuivan/caseline/internal/platform/migration"
	pgstore "github.com/taibuivan/caseline/internal/platform/postgres"
	"github.com/taibuivan/caseline/internal/platform/ratelimit"
	redisstore "github.com/taibuivan/caseline/internal/platform/redis"
	"github.com/taibuivan/caseline/internal/platform/respond"
	"github.com/taibuivan/caseline/internal/platform/sec"
	"github.com/taibuivan/caseline/internal/platform/session"
	"github.com/taibuivan/caseline/internal/users/account"
	"github.com/taibuivan/caseline/internal/users/auth"
	"github.com/taibuivan/caseline/internal/users/otp"
)

// otpPurgeInterval is how often expired one-time codes are deleted.
const otpPurgeInterval = 10 * time.Minute

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("[Caseline] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	// Stack traces in error bodies never leave a production process.
	respond.ExposeStack(!cfg.IsProduction())

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("session_store", cfg.SessionStore),
	)

	// Root context for background workers; cancelled on shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Use a 30s deadline so misconfiguration is caught quickly rather than
	// hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	// Always required: the login and OTP limiters are shared across replicas.
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Platform Services ──────────────────────────────────────────────
	var sessions session.Store
	switch cfg.SessionStore {
	case config.SessionStoreMemory:
		sessions = session.NewMemoryStore(cfg.RefreshTokenTTL)
	default:
		sessions = session.NewRedisStore(rdb, cfg.RefreshTokenTTL)
	}

	cookie := session.Cookie{
		Name:   cfg.SessionCookieName,
		Path:   constants.SessionCookiePath,
		Secure: !cfg.IsDevelopment(),
		MaxAge: cfg.RefreshTokenTTL,
	}

	tokens := sec.NewTokenService(constants.AuthIssuer)
	secrets := auth.Secrets{
		Access:   cfg.AccessTokenSecret,
		Refresh:  cfg.RefreshTokenSecret,
		Reset:    cfg.ResetTokenSecret,
		Recovery: cfg.RecoveryTokenSecret,
	}

	var mailer mail.Mailer = mail.NewLogMailer(log)
	if cfg.MailAPIURL != "" {
		mailer = mail.NewHTTPMailer(cfg.MailAPIKey, cfg.MailAPIURL, cfg.MailSender)
	}

	loginLimiter := ratelimit.New(rdb, "login", cfg.LoginAttempts, cfg.LoginWindow)
	otpLimiter := ratelimit.New(rdb, "otp-verify", cfg.OTPVerifyAttempts, cfg.OTPWindow)

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)

	otpService := otp.NewService(otp.NewPostgresRepository(pool), otpLimiter, otp.Config{
		MaxPerWindow: cfg.OTPMaxPerWindow,
		Window:       cfg.OTPWindow,
		TTL:          cfg.OTPTTL,
		CodeLength:   constants.OTPLength,
	})
	go otpService.RunPurge(rootCtx, otpPurgeInterval, log)

	authService := auth.NewService(userRepository, sessions, otpService, tokens, mailer, loginLimiter, auth.Config{
		Secrets:       secrets,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		LinkTTL:       cfg.LinkTokenTTL,
		PublicBaseURL: cfg.PublicBaseURL,
	})
	validator := auth.NewSessionValidator(sessions, userRepository, tokens, secrets, cfg.AccessTokenTTL)

	accountService := account.NewService(userRepository, sessions)
	recovery := account.NewRecoveryFlow(userRepository, otpService, tokens, cfg.RecoveryTokenSecret)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService, cookie, !cfg.IsProduction()),
		Account:   account.NewHandler(accountService, recovery, authService, cookie),
	}

	server := api.NewServer(rootCtx, cfg, log, validator, cookie, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	rootCancel()

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// newLogger builds the JSON logger every component receives.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(
		slog.String(constants.FieldApp, constants.AppName),
		slog.String(constants.FieldVersion, constants.AppVersion),
	)
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
