// Package redis provides a shared geocode cache store so that several service
// replicas reuse each other's resolutions.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/couchcryptid/hazard-report-service/internal/geocache"
)

const keyPrefix = "geocode:"

// Connect initializes a Redis client from a redis:// URL or a host:port address
// and verifies the connection.
func Connect(ctx context.Context, redisURL string) (*goredis.Client, error) {
	var client *goredis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := goredis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = goredis.NewClient(opt)
	} else {
		client = goredis.NewClient(&goredis.Options{Addr: redisURL})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Store implements geocache.Store on Redis strings holding JSON entries.
// Keys expire server-side after the cache TTL; the Cache still checks freshness.
type Store struct {
	client goredis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewStore creates a Redis-backed geocode cache store.
func NewStore(client goredis.UniversalClient, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{client: client, ttl: ttl, logger: logger}
}

// Get returns the entry for key. Redis faults are logged and reported as a miss.
func (s *Store) Get(ctx context.Context, key string) (geocache.Entry, bool) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			s.logger.Warn("redis geocode cache get failed", "key", key, "error", err)
		}
		return geocache.Entry{}, false
	}
	var e geocache.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		s.logger.Warn("redis geocode cache entry corrupt", "key", key, "error", err)
		return geocache.Entry{}, false
	}
	return e, true
}

// Set stores the entry. A failed write is logged; the resolution is still returned to callers.
func (s *Store) Set(ctx context.Context, key string, e geocache.Entry) {
	raw, err := json.Marshal(e)
	if err != nil {
		s.logger.Warn("encode geocode cache entry", "key", key, "error", err)
		return
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("redis geocode cache set failed", "key", key, "error", err)
	}
}

// CheckReadiness pings Redis.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis not ready: %w", err)
	}
	return nil
}
