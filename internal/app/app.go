// Package app wires configuration to concrete adapters. It is shared by the
// API server and the seed command.
package app

import (
	"context"
	"log/slog"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-report-service/internal/adapter/memory"
	mongoadapter "github.com/couchcryptid/hazard-report-service/internal/adapter/mongo"
	"github.com/couchcryptid/hazard-report-service/internal/adapter/nominatim"
	"github.com/couchcryptid/hazard-report-service/internal/adapter/postgres"
	redisadapter "github.com/couchcryptid/hazard-report-service/internal/adapter/redis"
	"github.com/couchcryptid/hazard-report-service/internal/auth"
	"github.com/couchcryptid/hazard-report-service/internal/config"
	"github.com/couchcryptid/hazard-report-service/internal/geocache"
	"github.com/couchcryptid/hazard-report-service/internal/observability"
	"github.com/couchcryptid/hazard-report-service/internal/reports"
)

// Backing holds the persistence wiring for the configured STORE_DRIVER.
type Backing struct {
	Reports reports.Store
	Users   auth.UserStore
	Ready   Readiness

	closers []func() error
}

// OnClose registers fn to run when the backing is closed. Closers run in reverse order.
func (b *Backing) OnClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// Close releases every registered resource, logging failures.
func (b *Backing) Close(logger *slog.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			logger.Error("close error", "error", err)
		}
	}
	b.closers = nil
}

// OpenStores connects to the configured store and prepares its schema.
func OpenStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backing, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = postgres.Close(db)
			return nil, err
		}
		rs := postgres.NewReportStore(db)
		logger.Info("using postgres store")
		b := &Backing{Reports: rs, Users: postgres.NewUserStore(db), Ready: Readiness{rs}}
		b.OnClose(func() error { return postgres.Close(db) })
		return b, nil

	case config.StoreMongo:
		client, db, err := mongoadapter.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := mongoadapter.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		rs := mongoadapter.NewReportStore(db)
		logger.Info("using mongo store", "uri", mongoadapter.RedactURI(cfg.MongoURI), "database", cfg.MongoDB)
		b := &Backing{Reports: rs, Users: mongoadapter.NewUserStore(db), Ready: Readiness{rs}}
		b.OnClose(func() error { return client.Disconnect(context.Background()) })
		return b, nil

	default:
		rs := memory.NewReportStore()
		logger.Warn("using in-memory store, data is lost on restart")
		return &Backing{Reports: rs, Users: memory.NewUserStore(), Ready: Readiness{rs}}, nil
	}
}

// NewGeocodeCache builds the Nominatim client behind a geocache.Cache. With
// REDIS_URL set the cache entries live in Redis and the connection joins b's
// readiness checks and closers; otherwise they stay in process memory.
func NewGeocodeCache(ctx context.Context, cfg *config.Config, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger, b *Backing) (*geocache.Cache, error) {
	client := nominatim.NewClient(nominatim.Config{
		BaseURL:   cfg.GeocodeBaseURL,
		Language:  cfg.GeocodeLanguage,
		UserAgent: cfg.GeocodeUserAgent,
		Timeout:   cfg.GeocodeTimeout,
	}, metrics, logger)

	var store geocache.Store = geocache.NewMemoryStore(cfg.GeocodeCacheMaxEntries)
	if cfg.RedisURL != "" {
		rc, err := redisadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		rs := redisadapter.NewStore(rc, cfg.GeocodeCacheTTL, logger)
		b.Ready = append(b.Ready, rs)
		b.OnClose(rc.Close)
		store = rs
		logger.Info("geocode cache backed by redis")
	}

	return geocache.New(client, geocache.Options{
		TTL:       cfg.GeocodeCacheTTL,
		Policy:    cfg.GeocodeFailurePolicy,
		SkipEmpty: !cfg.GeocodeCacheEmpty,
		Store:     store,
		Clock:     clock,
	}, metrics, logger), nil
}

// Readiness is ready when every member is.
type Readiness []sharedobs.ReadinessChecker

func (r Readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
