package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/circuit-breaker/config"
	"github.com/angeloszaimis/circuit-breaker/internal/circuitbreaker"
	"github.com/angeloszaimis/circuit-breaker/internal/handler"
	"github.com/angeloszaimis/circuit-breaker/internal/httpserver"
	"github.com/angeloszaimis/circuit-breaker/internal/watcher"
	"github.com/angeloszaimis/circuit-breaker/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := circuitbreaker.NewRegistry(log)

	if err := watchDependencies(ctx, cfg, registry, log); err != nil {
		log.Error("Failed to start dependency watchers", slog.Any("err", err))
		os.Exit(1)
	}

	breakerHandler := handler.NewBreakerHandler(log, registry)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(breakerHandler))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Circuit breaker service started",
		slog.String("address", cfg.Server.Address),
		slog.Int("dependencies", len(cfg.Dependencies)))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// watchDependencies creates one breaker per configured dependency and
// starts its health watcher. Breakers share the configured tunables.
func watchDependencies(ctx context.Context, cfg *config.Config, registry *circuitbreaker.Registry, log *slog.Logger) error {
	interval, err := time.ParseDuration(cfg.Watch.Interval)
	if err != nil {
		return err
	}

	settings, err := cfg.BreakerSettings()
	if err != nil {
		return err
	}

	for _, dep := range cfg.Dependencies {
		cb, err := registry.GetOrCreate(dep.Name, settings)
		if err != nil {
			return err
		}

		go watcher.Watch(ctx, dep.Name, dep.URL, cb, interval, log)
	}

	return nil
}
