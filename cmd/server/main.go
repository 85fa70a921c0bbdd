package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/folivafy/folivafy/internal/app/config"
	"github.com/folivafy/folivafy/internal/app/server"
	"github.com/folivafy/folivafy/pkg/logger"
)

const shutdownGrace = 30 * time.Second

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("Fatal", "error", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, log)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting Folivafy server", "port", cfg.Server.Port, "environment", cfg.Environment)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case sig := <-quit:
		log.Info("Signal received, shutting down", "signal", sig.String())
	}

	// Shutdown stops the cron driver and the userdata refresher, then drains
	// in-flight requests.
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	log.Info("Server shutdown complete")
	return nil
}
