package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"github.com/couchcryptid/crisis-event-aggregator/internal/observability"
	"github.com/jonboulle/clockwork"
)

const (
	defaultInitialBackoff = 200 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	maxPublishAttempts    = 5
)

// SnapshotSource produces snapshots; *Aggregator satisfies it.
type SnapshotSource interface {
	Aggregate(ctx context.Context) (domain.Snapshot, error)
}

// Publisher delivers a snapshot downstream.
type Publisher interface {
	Publish(ctx context.Context, snap domain.Snapshot) error
}

// Refresher aggregates on a fixed interval and publishes every snapshot.
type Refresher struct {
	source   SnapshotSource
	pub      Publisher
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewRefresher creates a Refresher that runs every interval.
func NewRefresher(source SnapshotSource, pub Publisher, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Refresher {
	return &Refresher{
		source:         source,
		pub:            pub,
		interval:       interval,
		logger:         logger,
		metrics:        metrics,
		clock:          clockwork.NewRealClock(),
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
	}
}

// Run publishes one snapshot immediately and then one per interval until the
// context is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("publisher started", "interval", r.interval)
	r.metrics.PublisherRunning.Set(1)
	defer r.metrics.PublisherRunning.Set(0)

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.cycle(ctx)

		select {
		case <-ctx.Done():
			r.logger.Info("publisher stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// cycle aggregates once and publishes with exponential backoff between attempts.
func (r *Refresher) cycle(ctx context.Context) {
	snap, err := r.source.Aggregate(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("aggregate for publish failed", "error", err)
		}
		return
	}

	backoff := r.initialBackoff
	for attempt := 1; ; attempt++ {
		err := r.pub.Publish(ctx, snap)
		if err == nil {
			r.metrics.EventsPublished.Add(float64(len(snap.Events)))
			r.logger.Info("snapshot published", "snapshot_id", snap.ID, "events", len(snap.Events))
			return
		}
		if ctx.Err() != nil {
			return
		}
		if attempt >= maxPublishAttempts {
			r.logger.Error("publish snapshot failed, giving up",
				"snapshot_id", snap.ID, "attempts", attempt, "error", err)
			return
		}
		r.logger.Warn("publish snapshot failed, retrying",
			"snapshot_id", snap.ID, "attempt", attempt, "backoff", backoff, "error", err)
		if !sleepWithContext(ctx, r.clock, backoff) {
			return
		}
		backoff = nextBackoff(backoff, r.maxBackoff)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
