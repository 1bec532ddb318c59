// Package geocache fronts a reverse geocoder with a time-bounded cache keyed by
// coordinates rounded to five decimal places (about 1.1 m).
package geocache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/couchcryptid/hazard-report-service/internal/observability"
)

const (
	// DefaultTTL is how long a resolution stays fresh.
	DefaultTTL = 24 * time.Hour

	keyPrecision = 5
	keySeparator = "|"
)

// FailurePolicy selects what a geocoding failure does at the cache boundary.
type FailurePolicy string

const (
	// FailOpen degrades any failure to an empty address; the write proceeds.
	FailOpen FailurePolicy = "open"
	// FailClosed surfaces the failure to the caller and caches nothing.
	FailClosed FailurePolicy = "closed"
)

// ParseFailurePolicy accepts "open" or "closed", case-insensitively.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case FailOpen, FailClosed:
		return p, nil
	default:
		return "", fmt.Errorf("unknown geocode failure policy %q", s)
	}
}

// Options tunes a Cache. Zero values select the defaults noted per field.
type Options struct {
	TTL    time.Duration // DefaultTTL
	Policy FailurePolicy // FailOpen
	// SkipEmpty stops empty results from being cached, so a transient provider
	// failure is retried on the next lookup instead of sticking for a full TTL.
	SkipEmpty bool
	Store     Store           // unbounded MemoryStore
	Clock     clockwork.Clock // real clock
}

// Cache implements domain.AddressResolver on top of a domain.Geocoder.
//
// Concurrent misses for the same key may each call the geocoder; the last
// write wins. Lookups for different keys never wait on each other's I/O.
type Cache struct {
	inner     domain.Geocoder
	store     Store
	clock     clockwork.Clock
	ttl       time.Duration
	policy    FailurePolicy
	skipEmpty bool
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// New creates a cache decorator around a geocoder.
func New(inner domain.Geocoder, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Cache {
	c := &Cache{
		inner:     inner,
		store:     opts.Store,
		clock:     opts.Clock,
		ttl:       opts.TTL,
		policy:    opts.Policy,
		skipEmpty: opts.SkipEmpty,
		metrics:   metrics,
		logger:    logger,
	}
	if c.store == nil {
		c.store = NewMemoryStore(0)
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.policy == "" {
		c.policy = FailOpen
	}
	return c
}

// Key formats coordinates as fixed-point with five decimals, rounding half away
// from zero, joined by "|". Non-finite coordinates are rejected.
func Key(lat, lon float64) (string, error) {
	if !finite(lat) || !finite(lon) {
		return "", domain.NewValidationError("coordinates", "must be finite")
	}
	return decimal.NewFromFloat(lat).StringFixed(keyPrecision) + keySeparator +
		decimal.NewFromFloat(lon).StringFixed(keyPrecision), nil
}

// Resolve returns the address for the coordinates, consulting the geocoder only
// on a miss or an entry older than the TTL. Whatever the geocoder yields,
// including "", is cached unless SkipEmpty is set.
func (c *Cache) Resolve(ctx context.Context, lat, lon float64) (string, error) {
	key, err := Key(lat, lon)
	if err != nil {
		return "", err
	}

	if e, ok := c.store.Get(ctx, key); ok && c.clock.Since(e.InsertedAt) < c.ttl {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return e.Address, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	addr, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		if !errors.Is(err, domain.ErrGeocodeUpstream) {
			err = fmt.Errorf("%w: %w", domain.ErrGeocodeUpstream, err)
		}
		if c.policy == FailClosed {
			return "", err
		}
		c.logger.Warn("reverse geocoding failed, using empty address",
			"key", key,
			"error", err,
		)
		addr = ""
	}

	if addr == "" && c.skipEmpty {
		return "", nil
	}
	c.store.Set(ctx, key, Entry{Address: addr, InsertedAt: c.clock.Now()})
	return addr, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
