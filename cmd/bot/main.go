package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"market-signal-bot/internal/logger"
	"market-signal-bot/internal/notify"
	"market-signal-bot/internal/scheduler"
)

func main() {
	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		logger.Critical(ctx, "Cannot start without a valid config", err)
		os.Exit(1)
	}

	a := build(ctx, cfg)

	fatal := func(err error) {
		logger.Critical(ctx, "Fatal error", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}
	gin.SetMode(gin.ReleaseMode)
	srv := newServer(port, newRouter(cfg.ServiceName, a.scheduler.Status, a.registry, time.Now))
	go serve(ctx, srv, fatal)

	logger.Info(ctx, "Bot starting",
		"service", cfg.ServiceName,
		"mode", cfg.Mode,
		"assets", len(cfg.Assets),
		"oracle", cfg.LLM.Provider,
		"tracing", logger.IsTracingEnabled(),
	)
	if err := a.notifier.Send(ctx, notify.StartupMessage(cfg.ServiceName, cfg.Mode, cfg.Assets, a.policy.Threshold())); err != nil {
		logger.ErrorWithErr(ctx, "Failed to send startup message", err)
	}

	runErr := scheduler.Sleep(ctx, cfg.StartDelay)
	if runErr == nil {
		runErr = a.scheduler.Run(ctx)
	}

	shutdown(a, srv)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Critical(context.Background(), "Scan loop stopped", runErr)
		os.Exit(1)
	}
	logger.Info(context.Background(), "Shutdown complete")
}

// shutdown stops the server, writes the session summary and flushes traces.
func shutdown(a *app, srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info(ctx, "Shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorWithErr(ctx, "Health server forced to shut down", err)
	}

	st := a.session.Stats.Snapshot()
	if p, err := a.summarizer.SummarizeSession(st.SessionStart, time.Now()); err != nil {
		logger.ErrorWithErr(ctx, "Failed to write session summary", err)
	} else if p != "" {
		logger.Info(ctx, "Session CSV written", "path", p)
	}
	if err := a.journal.Close(); err != nil {
		logger.Warn(ctx, "Failed to close journal", "error", err)
	}
	if err := logger.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to flush traces: %v\n", err)
	}
}
