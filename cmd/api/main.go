package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/homeops/internal/auth"
	"github.com/geocoder89/homeops/internal/config"
	"github.com/geocoder89/homeops/internal/credentials"
	"github.com/geocoder89/homeops/internal/db"
	httpx "github.com/geocoder89/homeops/internal/http"
	"github.com/geocoder89/homeops/internal/http/handlers"
	"github.com/geocoder89/homeops/internal/live"
	"github.com/geocoder89/homeops/internal/notifications"
	"github.com/geocoder89/homeops/internal/observability"
	"github.com/geocoder89/homeops/internal/repo/postgres"
	"github.com/geocoder89/homeops/internal/security"
	"github.com/geocoder89/homeops/internal/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, "homeops-api", cfg.OTLPEndpoint)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(sctx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	pool, err := db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	repo := postgres.NewUsersRepo(pool, prom)

	created, err := db.EnsureAdminUser(ctx, repo, cfg)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info("admin user seeded", "email", cfg.AdminEmail)
	}

	checks := []handlers.Check{{Name: "postgres", Ping: pool.Ping}}

	var broker live.Broker
	if cfg.RedisAddr != "" {
		rdb := live.NewRedisClient(live.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()

		rb := live.NewRedisBroker(rdb, live.DefaultChannel, log)
		broker = rb
		checks = append(checks, handlers.Check{Name: "redis", Ping: rb.Ping})
	} else {
		log.Info("REDIS_ADDR not set, live updates stay in-process")
		broker = live.NewMemoryBroker(0)
	}

	var notifier notifications.Notifier
	if cfg.SMTPHost != "" {
		notifier = notifications.NewSMTPNotifier(notifications.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		notifier = notifications.NewLogNotifier(log, !cfg.IsProd())
	}

	notifier = notifications.NewProtectedNotifier(notifier, notifications.ProtectedNotifierConfig{
		Timeout:          10 * time.Second,
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
		OnStateChange: func(from, to notifications.BreakerState) {
			log.Warn("notifier breaker state changed", "from", from, "to", to)
			prom.SetBreakerState(string(to))
		},
	})

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	if err != nil {
		return err
	}

	hasher := security.Bcrypt{}

	authority := credentials.NewAuthority(credentials.Deps{
		Store:    repo,
		Sessions: tokens,
		Notifier: notifier,
		Hasher:   hasher,
		Logger:   log,
		Recorder: prom,
	})

	svc := users.NewService(repo, hasher, live.NewPublisher(broker, log), log)

	router := httpx.NewRouter(httpx.Deps{
		Config:      cfg,
		Logger:      log,
		Gate:        auth.NewGate(tokens, repo),
		Credentials: authority,
		Users:       svc,
		Broker:      broker,
		Prom:        prom,
		Gatherer:    reg,
		Checks:      checks,
	})

	// live streams hang off baseCtx so Shutdown can end them instead of waiting them out
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	// WriteTimeout stays zero: /api/live holds its response open.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("server shutting down")

	sctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return err
	}

	log.Info("shutdown complete")
	return nil
}
