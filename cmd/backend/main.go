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

	configloader "github.com/foxseedlab/mensetsu/external/config"
	discordimpl "github.com/foxseedlab/mensetsu/external/discord"
	llmimpl "github.com/foxseedlab/mensetsu/external/llm"
	lockimpl "github.com/foxseedlab/mensetsu/external/lock"
	notificationimpl "github.com/foxseedlab/mensetsu/external/notification"
	repositoryimpl "github.com/foxseedlab/mensetsu/external/repository"
	webhookimpl "github.com/foxseedlab/mensetsu/external/webhook"
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/httpapi"
	"github.com/foxseedlab/mensetsu/internal/session"
	"github.com/foxseedlab/mensetsu/internal/sweeper"
	"github.com/foxseedlab/mensetsu/internal/webhook"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"
)

const (
	shutdownTimeout   = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "max_questions", cfg.MaxQuestions, "timezone", cfg.ScheduleTimezone)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching http server")
	runServer(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	llmimpl.RegisterDI(injector)
	notificationimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	discordimpl.RegisterDI(injector)
	webhook.RegisterDI(injector)
	lockimpl.RegisterDI(injector)
	session.RegisterDI(injector)
	httpapi.RegisterDI(injector)
	sweeper.RegisterDI(injector)

	return injector
}

func runServer(cfg *config.Config, injector do.Injector) {
	pool, err := do.Invoke[*pgxpool.Pool](injector)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	handler, err := do.Invoke[http.Handler](injector)
	if err != nil {
		slog.Error("failed to resolve http handler", "error", err)
		os.Exit(1)
	}
	sw, err := do.Invoke[*sweeper.Sweeper](injector)
	if err != nil {
		slog.Error("failed to resolve expiry sweeper", "error", err)
		os.Exit(1)
	}
	if err := sw.Start(); err != nil {
		slog.Error("failed to start expiry sweeper", "error", err, "schedule", cfg.ExpirySweepSchedule)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	done := make(chan struct{})
	go func() {
		slog.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
	sw.Stop(ctx)
	slog.Info("shutdown complete")
}
