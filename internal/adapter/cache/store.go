// Package cache wraps sources with a short-lived response cache backed by an
// in-memory LRU or Redis.
package cache

import (
	"context"
	"time"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
)

// Store holds the last successful result of each source.
type Store interface {
	Get(ctx context.Context, key string) ([]domain.Event, bool, error)
	Set(ctx context.Context, key string, events []domain.Event, ttl time.Duration) error
}
