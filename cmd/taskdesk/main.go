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

	"github.com/charmbracelet/log"

	"github.com/ent0n29/taskdesk/internal/app"
	"github.com/ent0n29/taskdesk/internal/config"
	"github.com/ent0n29/taskdesk/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, logging.DefaultOptions()).Fatal("config error", "err", err)
	}

	opts := logging.DefaultOptions()
	opts.Level = cfg.LogLevel
	opts.Format = cfg.LogFormat
	logger := logging.New(os.Stderr, opts)
	if cfg.ConfigFile != "" {
		logger.Info("config file loaded", "path", cfg.ConfigFile)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

// run builds the app and serves until a signal arrives or the listener
// fails. Deferred cleanup always runs before it returns.
func run(cfg config.Config, logger *log.Logger) error {
	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	built, err := app.Build(runCtx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			logger.Warn("cleanup failed", "err", err)
		}
	}()

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: built.API.Router(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return serve(httpServer, sigCh, cfg.ShutdownTimeout, logger)
}

// serve runs srv until stop fires or ListenAndServe fails, then shuts it
// down gracefully. A listener failure is returned instead of exiting.
func serve(srv *http.Server, stop <-chan os.Signal, shutdownTimeout time.Duration, logger *log.Logger) error {
	listenErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "ui", "/ui/")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	var result error
	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case err := <-listenErr:
		result = fmt.Errorf("listen error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "err", err)
		_ = srv.Close()
	}

	logger.Info("shutdown complete")
	return result
}
