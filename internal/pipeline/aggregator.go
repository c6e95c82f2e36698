package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"github.com/couchcryptid/crisis-event-aggregator/internal/observability"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownSource = errors.New("unknown source")
	ErrMerge         = errors.New("merge failed")
	errSourcePanic   = errors.New("source panicked")
)

// Fetch outcomes recorded per source.
const (
	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomeTimeout = "timeout"
	outcomePanic   = "panic"
)

// Aggregator fans out to every source concurrently, waits for all of them to
// settle, and merges their events into one deduplicated snapshot.
type Aggregator struct {
	sources []domain.Source
	timeout time.Duration
	policy  domain.MergePolicy
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithMergePolicy replaces domain.ShouldReplace as the collision rule.
func WithMergePolicy(p domain.MergePolicy) Option {
	return func(a *Aggregator) { a.policy = p }
}

// New creates an Aggregator. Sources are merged in the order given; timeout
// bounds each source fetch independently.
func New(sources []domain.Source, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources: sources,
		timeout: timeout,
		policy:  domain.ShouldReplace,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CheckReadiness returns nil once at least one aggregation has completed.
func (a *Aggregator) CheckReadiness(_ context.Context) error {
	if !a.ready.Load() {
		return errors.New("no aggregation has completed yet")
	}
	return nil
}

// SourceNames lists the configured sources in merge order.
func (a *Aggregator) SourceNames() []string {
	names := make([]string, len(a.sources))
	for i, s := range a.sources {
		names[i] = s.Name()
	}
	return names
}

type fetchResult struct {
	events   []domain.Event
	err      error
	outcome  string
	duration time.Duration
}

// Aggregate produces a snapshot from all sources. A failing, slow or panicking
// source contributes zero events; it never fails the aggregation. Aggregate
// returns an error only when ctx is done or the merge step itself fails.
func (a *Aggregator) Aggregate(ctx context.Context) (domain.Snapshot, error) {
	start := time.Now()
	results := make([]fetchResult, len(a.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		g.Go(func() error {
			results[i] = a.fetch(gctx, src)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		a.metrics.Aggregations.WithLabelValues(outcomeError).Inc()
		return domain.Snapshot{}, fmt.Errorf("aggregate: %w", err)
	}

	events, merged, err := a.merge(results)
	if err != nil {
		a.metrics.Aggregations.WithLabelValues(outcomeError).Inc()
		a.logger.Error("aggregation failed", "error", err)
		return domain.Snapshot{}, err
	}

	snap := domain.Snapshot{
		ID:          uuid.NewString(),
		GeneratedAt: domain.Now(),
		Events:      events,
		Sources:     make([]domain.SourceReport, len(a.sources)),
		Merged:      merged,
	}
	for i, src := range a.sources {
		r := results[i]
		report := domain.SourceReport{Name: src.Name(), Events: len(r.events), Duration: r.duration}
		if r.err != nil {
			report.Error = r.err.Error()
		}
		snap.Sources[i] = report
	}

	elapsed := time.Since(start)
	a.metrics.Aggregations.WithLabelValues(outcomeSuccess).Inc()
	a.metrics.AggregationDuration.Observe(elapsed.Seconds())
	a.metrics.EventsMerged.Add(float64(merged))
	a.metrics.SnapshotEvents.Set(float64(len(events)))
	a.ready.Store(true)

	a.logger.Info("aggregation complete",
		"snapshot_id", snap.ID,
		"total", len(events),
		"merged", merged,
		"critical", countSeverity(events, domain.SeverityCritical),
		"high", countSeverity(events, domain.SeverityHigh),
		"sources", sourceSummary(snap.Sources),
		"duration", elapsed,
	)
	return snap, nil
}

// FetchSource runs a single source by case-insensitive name. Unlike Aggregate
// it surfaces the source's error to the caller.
func (a *Aggregator) FetchSource(ctx context.Context, name string) ([]domain.Event, error) {
	for _, src := range a.sources {
		if !strings.EqualFold(src.Name(), name) {
			continue
		}
		r := a.fetch(ctx, src)
		if r.err != nil {
			return nil, r.err
		}
		if r.events == nil {
			r.events = []domain.Event{}
		}
		return r.events, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
}

// fetch calls one source under its own timeout. The call runs in a separate
// goroutine so a source that ignores its context is still abandoned on time.
func (a *Aggregator) fetch(ctx context.Context, src domain.Source) fetchResult {
	name := src.Name()
	fctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan fetchResult, 1)
	go func() {
		var r fetchResult
		defer func() {
			if p := recover(); p != nil {
				r = fetchResult{err: fmt.Errorf("%w: %v", errSourcePanic, p), outcome: outcomePanic}
			}
			done <- r
		}()
		r.events, r.err = src.Fetch(fctx)
		r.outcome = outcomeSuccess
		if r.err != nil {
			r.outcome = outcomeError
		}
	}()

	var r fetchResult
	select {
	case r = <-done:
	case <-fctx.Done():
		r = fetchResult{err: fmt.Errorf("%s: %w", name, fctx.Err())}
	}
	if r.err != nil {
		r.events = nil
		if errors.Is(fctx.Err(), context.DeadlineExceeded) {
			r.outcome = outcomeTimeout
		} else if r.outcome == "" {
			r.outcome = outcomeError
		}
	}
	r.duration = time.Since(start)

	a.metrics.SourceFetches.WithLabelValues(name, r.outcome).Inc()
	a.metrics.SourceFetchDuration.WithLabelValues(name).Observe(r.duration.Seconds())
	if r.err != nil {
		a.logger.Warn("source fetch failed",
			"source", name,
			"outcome", r.outcome,
			"error", r.err,
			"duration", r.duration,
		)
		return r
	}
	a.metrics.SourceEvents.WithLabelValues(name).Add(float64(len(r.events)))
	a.logger.Debug("source fetched", "source", name, "events", len(r.events), "duration", r.duration)
	return r
}

// merge concatenates results in source order, deduplicates and sorts. A panic
// in the policy or sort is returned as ErrMerge.
func (a *Aggregator) merge(results []fetchResult) (events []domain.Event, merged int, err error) {
	defer func() {
		if p := recover(); p != nil {
			events, merged, err = nil, 0, fmt.Errorf("%w: %v", ErrMerge, p)
		}
	}()

	total := 0
	for _, r := range results {
		total += len(r.events)
	}
	all := make([]domain.Event, 0, total)
	for _, r := range results {
		all = append(all, r.events...)
	}

	events, merged = domain.Dedupe(all, a.policy)
	domain.SortNewestFirst(events)
	return events, merged, nil
}

func countSeverity(events []domain.Event, s domain.Severity) int {
	n := 0
	for _, e := range events {
		if e.Severity == s {
			n++
		}
	}
	return n
}

func sourceSummary(reports []domain.SourceReport) string {
	parts := make([]string, len(reports))
	for i, r := range reports {
		if r.Error != "" {
			parts[i] = r.Name + "=failed"
			continue
		}
		parts[i] = fmt.Sprintf("%s=%d", r.Name, r.Events)
	}
	return strings.Join(parts, ",")
}
