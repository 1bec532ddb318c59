package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/hazard-report-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hazard-report-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-report-service/internal/app"
	"github.com/couchcryptid/hazard-report-service/internal/auth"
	"github.com/couchcryptid/hazard-report-service/internal/config"
	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/couchcryptid/hazard-report-service/internal/observability"
	"github.com/couchcryptid/hazard-report-service/internal/reports"
)

func main() {
	// A missing .env is fine; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backing, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backing.Close(logger)

	// Initialize geocoder (feature-flagged via GEOCODE_ENABLED).
	var resolver domain.AddressResolver
	if cfg.GeocodeEnabled {
		cache, err := app.NewGeocodeCache(ctx, cfg, clock, metrics, logger, backing)
		if err != nil {
			return err
		}
		resolver = cache
		metrics.GeocodeEnabled.Set(1)
		logger.Info("reverse geocoding enabled",
			"base_url", cfg.GeocodeBaseURL,
			"cache_ttl", cfg.GeocodeCacheTTL,
			"cache_max_entries", cfg.GeocodeCacheMaxEntries,
			"failure_policy", cfg.GeocodeFailurePolicy,
		)
	} else {
		logger.Info("reverse geocoding disabled")
	}

	var publisher reports.EventPublisher = reports.NopPublisher{}
	if cfg.KafkaEnabled {
		p := kafkaadapter.NewPublisher(cfg, logger)
		backing.OnClose(p.Close)
		publisher = p
		logger.Info("publishing report events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL, clock)
	authSvc := auth.NewService(backing.Users, tokens, clock, metrics, logger)
	reportSvc := reports.NewService(backing.Reports, resolver, publisher, clock, metrics, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, reportSvc, authSvc, backing.Ready, metrics, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
	return nil
}
