package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/angeloszaimis/circuit-breaker/internal/circuitbreaker"
)

// Watch periodically probes a dependency's /health endpoint through its
// circuit breaker. While the circuit is open the probe short-circuits
// without touching the dependency; once the recovery timeout elapses
// the breaker admits probes again on its own.
func Watch(
	ctx context.Context,
	dependency string,
	rawURL string,
	cb *circuitbreaker.CircuitBreaker,
	interval time.Duration,
	logger *slog.Logger,
) {
	base, err := url.Parse(rawURL)
	if err != nil {
		logger.Error("Invalid dependency URL",
			slog.String("dependency", dependency),
			slog.String("url", rawURL),
			slog.String("error", err.Error()))
		return
	}

	healthURL := base.ResolveReference(&url.URL{Path: "/health"}).String()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Dependency watch stopped",
				slog.String("dependency", dependency))
			return

		case <-ticker.C:
			err := cb.Do(ctx, func(ctx context.Context) error {
				return ping(ctx, client, healthURL)
			})

			switch {
			case circuitbreaker.IsOpen(err):
				logger.Debug("Probe skipped, circuit open",
					slog.String("dependency", dependency))
			case err != nil:
				logger.Warn("Dependency probe failed",
					slog.String("dependency", dependency),
					slog.String("error", err.Error()))
			}
		}
	}
}

func ping(ctx context.Context, client *http.Client, healthURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return err
	}

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status %d", res.StatusCode)
	}

	return nil
}
