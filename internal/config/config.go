package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Cache backends accepted by CACHE_BACKEND.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string

	SourceTimeout time.Duration
	UserAgent     string

	// Seismic feed.
	USGSEnabled      bool
	USGSFeedURL      string
	USGSMinMagnitude float64

	// Disaster feed.
	ReliefWebEnabled bool
	ReliefWebURL     string
	ReliefWebLimit   int

	// News feed.
	GDELTEnabled    bool
	GDELTURL        string
	GDELTMaxRecords int
	NewsRulesFile   string

	SeedEnabled bool

	// Per-source response cache. Disabled when SourceCacheTTL is zero.
	SourceCacheTTL time.Duration
	CacheBackend   string
	CacheSize      int
	RedisURL       string

	// Snapshot publisher.
	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaTopic      string
	PublishInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		UserAgent:          sharedcfg.EnvOrDefault("USER_AGENT", "CrisisEventAggregator/1.0"),

		USGSFeedURL:   sharedcfg.EnvOrDefault("USGS_FEED_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"),
		ReliefWebURL:  sharedcfg.EnvOrDefault("RELIEFWEB_URL", "https://api.reliefweb.int/v1/disasters"),
		GDELTURL:      sharedcfg.EnvOrDefault("GDELT_URL", "https://api.gdeltproject.org/api/v2/doc/doc"),
		NewsRulesFile: os.Getenv("NEWS_RULES_FILE"),

		CacheBackend: strings.ToLower(sharedcfg.EnvOrDefault("CACHE_BACKEND", CacheMemory)),
		RedisURL:     sharedcfg.EnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),

		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "crisis-events"),
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg.SourceTimeout, err = parsePositiveDuration("SOURCE_TIMEOUT", "10s")
	collect(err)
	cfg.PublishInterval, err = parsePositiveDuration("PUBLISH_INTERVAL", "10m")
	collect(err)
	cfg.SourceCacheTTL, err = parseDuration("SOURCE_CACHE_TTL", "0s")
	collect(err)

	cfg.USGSEnabled, err = parseBool("USGS_ENABLED", true)
	collect(err)
	cfg.ReliefWebEnabled, err = parseBool("RELIEFWEB_ENABLED", true)
	collect(err)
	cfg.GDELTEnabled, err = parseBool("GDELT_ENABLED", true)
	collect(err)
	cfg.SeedEnabled, err = parseBool("SEED_ENABLED", true)
	collect(err)
	cfg.KafkaEnabled, err = parseBool("KAFKA_ENABLED", false)
	collect(err)

	cfg.USGSMinMagnitude, err = parseFloatRange("USGS_MIN_MAGNITUDE", 2.5, 0, 10)
	collect(err)
	cfg.ReliefWebLimit, err = parseIntRange("RELIEFWEB_LIMIT", 50, 1, 1000)
	collect(err)
	cfg.GDELTMaxRecords, err = parseIntRange("GDELT_MAX_RECORDS", 100, 1, 250)
	collect(err)
	cfg.CacheSize, err = parseIntRange("CACHE_SIZE", 100, 1, 1_000_000)
	collect(err)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if !cfg.USGSEnabled && !cfg.ReliefWebEnabled && !cfg.GDELTEnabled && !cfg.SeedEnabled {
		return nil, errors.New("at least one source must be enabled")
	}
	if cfg.CacheBackend != CacheMemory && cfg.CacheBackend != CacheRedis {
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q: want %s or %s", cfg.CacheBackend, CacheMemory, CacheRedis)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

// CacheEnabled reports whether network sources should be wrapped in a cache.
func (c *Config) CacheEnabled() bool {
	return c.SourceCacheTTL > 0
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative duration", key)
	}
	return d, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q is not a boolean", key, s)
	}
	return b, nil
}

func parseIntRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, lo, hi)
	}
	return n, nil
}

func parseFloatRange(key string, def, lo, hi float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < lo || f > hi {
		return 0, fmt.Errorf("invalid %s: must be a number in [%g, %g]", key, lo, hi)
	}
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
