package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/hazard-report-service/internal/geocache"
)

const minJWTSecretLen = 16

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	StoreDriver string
	DatabaseURL string
	MongoURI    string
	MongoDB     string

	// Reverse geocoding (Nominatim) and its cache.
	GeocodeEnabled         bool
	GeocodeBaseURL         string
	GeocodeLanguage        string
	GeocodeUserAgent       string
	GeocodeTimeout         time.Duration
	GeocodeCacheTTL        time.Duration
	GeocodeCacheMaxEntries int
	GeocodeCacheEmpty      bool
	GeocodeFailurePolicy   geocache.FailurePolicy
	RedisURL               string

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	jwtTTL, err := parseDuration("JWT_TTL", "2h")
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := parseDuration("GEOCODE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("GEOCODE_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}
	maxEntries, err := parseNonNegativeInt("GEOCODE_CACHE_MAX_ENTRIES", 0)
	if err != nil {
		return nil, err
	}
	geocodeEnabled, err := parseBool("GEOCODE_ENABLED", true)
	if err != nil {
		return nil, err
	}
	cacheEmpty, err := parseBool("GEOCODE_CACHE_EMPTY", true)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}
	policy, err := geocache.ParseFailurePolicy(sharedcfg.EnvOrDefault("GEOCODE_FAILURE_POLICY", string(geocache.FailOpen)))
	if err != nil {
		return nil, fmt.Errorf("invalid GEOCODE_FAILURE_POLICY: %w", err)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    jwtTTL,

		StoreDriver: strings.ToLower(sharedcfg.EnvOrDefault("STORE_DRIVER", StoreMemory)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDB:     sharedcfg.EnvOrDefault("MONGO_DB", "hazard_reports"),

		GeocodeEnabled:         geocodeEnabled,
		GeocodeBaseURL:         sharedcfg.EnvOrDefault("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org/reverse"),
		GeocodeLanguage:        sharedcfg.EnvOrDefault("GEOCODE_LANGUAGE", "pt-BR"),
		GeocodeUserAgent:       sharedcfg.EnvOrDefault("GEOCODE_USER_AGENT", "VITA-App/1.0"),
		GeocodeTimeout:         geocodeTimeout,
		GeocodeCacheTTL:        cacheTTL,
		GeocodeCacheMaxEntries: maxEntries,
		GeocodeCacheEmpty:      cacheEmpty,
		GeocodeFailurePolicy:   policy,
		RedisURL:               os.Getenv("REDIS_URL"),

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "report-events"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("JWT_SECRET is required and must be at least %d bytes", minJWTSecretLen)
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required when STORE_DRIVER=mongo")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q (want memory, postgres, or mongo)", c.StoreDriver)
	}
	if c.GeocodeEnabled && c.GeocodeUserAgent == "" {
		return errors.New("GEOCODE_USER_AGENT is required when GEOCODE_ENABLED is true")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	return nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}
