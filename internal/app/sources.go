// Package app wires configuration into the concrete source adapters shared by
// the service and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/crisis-event-aggregator/internal/adapter/cache"
	"github.com/couchcryptid/crisis-event-aggregator/internal/adapter/gdelt"
	"github.com/couchcryptid/crisis-event-aggregator/internal/adapter/reliefweb"
	"github.com/couchcryptid/crisis-event-aggregator/internal/adapter/seed"
	"github.com/couchcryptid/crisis-event-aggregator/internal/adapter/usgs"
	"github.com/couchcryptid/crisis-event-aggregator/internal/config"
	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"github.com/couchcryptid/crisis-event-aggregator/internal/feed"
	"github.com/couchcryptid/crisis-event-aggregator/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Sources holds the enabled adapters in merge order plus anything that must be
// released on shutdown.
type Sources struct {
	List    []domain.Source
	closers []func() error
}

// Close releases cache connections.
func (s *Sources) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BuildSources constructs the enabled adapters: seismic, disaster, news, then
// curated seeds. Network adapters are wrapped in a response cache when
// SOURCE_CACHE_TTL is set.
func BuildSources(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Sources, error) {
	fc := feed.NewClient(cfg.SourceTimeout, cfg.UserAgent)
	out := &Sources{}

	var network []domain.Source
	if cfg.USGSEnabled {
		network = append(network, usgs.NewClient(fc, cfg.USGSFeedURL, cfg.USGSMinMagnitude, logger))
	}
	if cfg.ReliefWebEnabled {
		network = append(network, reliefweb.NewClient(fc, cfg.ReliefWebURL, cfg.ReliefWebLimit, logger))
	}
	if cfg.GDELTEnabled {
		rules, err := gdelt.LoadRules(cfg.NewsRulesFile)
		if err != nil {
			return nil, fmt.Errorf("load news rules: %w", err)
		}
		network = append(network, gdelt.NewClient(fc, cfg.GDELTURL, cfg.GDELTMaxRecords, rules, logger))
	}

	if cfg.CacheEnabled() && len(network) > 0 {
		store, err := newStore(ctx, cfg, out)
		if err != nil {
			return nil, err
		}
		for i, src := range network {
			network[i] = cache.NewCachedSource(src, store, cfg.SourceCacheTTL, metrics, logger)
		}
		logger.Info("source cache enabled", "backend", cfg.CacheBackend, "ttl", cfg.SourceCacheTTL)
	}

	out.List = append(out.List, network...)
	if cfg.SeedEnabled {
		out.List = append(out.List, seed.New(logger))
	}
	return out, nil
}

func newStore(ctx context.Context, cfg *config.Config, out *Sources) (cache.Store, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		store, err := cache.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		out.closers = append(out.closers, store.Close)
		return store, nil
	default:
		return cache.NewMemoryStore(cfg.CacheSize, clockwork.NewRealClock()), nil
	}
}
