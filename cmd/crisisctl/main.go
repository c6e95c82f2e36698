// Command crisisctl runs one-shot aggregations from the terminal and checks
// saved snapshots for integrity.
//
// Usage:
//
//	crisisctl events --format table --type earthquake,conflict
//	crisisctl source usgs
//	crisisctl sources
//	crisisctl validate snapshot.json
package main

import (
	"context"
	"os"

	"github.com/couchcryptid/crisis-event-aggregator/internal/app"
	"github.com/couchcryptid/crisis-event-aggregator/internal/config"
	"github.com/couchcryptid/crisis-event-aggregator/internal/observability"
	"github.com/couchcryptid/crisis-event-aggregator/internal/pipeline"
)

func main() {
	if err := newRootCmd(loadAggregator).Execute(); err != nil {
		os.Exit(1)
	}
}

// loadAggregator builds an Aggregator from the environment. Logs go to stderr
// so stdout stays machine-readable.
func loadAggregator(ctx context.Context) (*pipeline.Aggregator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "warn"
	}
	logger := observability.NewLoggerTo(os.Stderr, cfg)
	metrics := observability.NewMetrics()

	sources, err := app.BuildSources(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, nil, err
	}
	agg := pipeline.New(sources.List, cfg.SourceTimeout, logger, metrics)
	return agg, func() { _ = sources.Close() }, nil
}
