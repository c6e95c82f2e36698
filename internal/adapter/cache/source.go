package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"github.com/couchcryptid/crisis-event-aggregator/internal/observability"
)

// CachedSource serves a source's last successful result while it is younger
// than the TTL. Errors from the inner source are never cached.
type CachedSource struct {
	inner   domain.Source
	store   Store
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedSource creates a cache decorator around a source.
func NewCachedSource(inner domain.Source, store Store, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *CachedSource {
	return &CachedSource{
		inner:   inner,
		store:   store,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

func (c *CachedSource) Name() string { return c.inner.Name() }

func (c *CachedSource) Fetch(ctx context.Context) ([]domain.Event, error) {
	name := c.inner.Name()

	events, ok, err := c.store.Get(ctx, name)
	if err != nil {
		// A broken cache degrades to a direct fetch.
		c.logger.Warn("source cache read failed", "source", name, "error", err)
	}
	if ok {
		c.metrics.SourceCache.WithLabelValues(name, "hit").Inc()
		return events, nil
	}
	c.metrics.SourceCache.WithLabelValues(name, "miss").Inc()

	events, err = c.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, name, events, c.ttl); err != nil {
		c.logger.Warn("source cache write failed", "source", name, "error", err)
	}
	return events, nil
}
