package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"github.com/couchcryptid/crisis-event-aggregator/internal/pipeline"
	"github.com/spf13/cobra"
)

type aggregatorFactory func(ctx context.Context) (*pipeline.Aggregator, func(), error)

func newRootCmd(newAggregator aggregatorFactory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "crisisctl",
		Short:        "Aggregate global crisis events from public feeds",
		Long:         `crisisctl fetches seismic, disaster and news feeds, merges them into one deduplicated list, and prints the result.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newEventsCmd(newAggregator),
		newSourceCmd(newAggregator),
		newSourcesCmd(newAggregator),
		newValidateCmd(),
	)
	return rootCmd
}

func newEventsCmd(newAggregator aggregatorFactory) *cobra.Command {
	var (
		format string
		types  string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Run one aggregation and print the merged events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := parseTypes(types)
			if err != nil {
				return err
			}
			agg, done, err := newAggregator(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			snap, err := agg.Aggregate(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range snap.Sources {
				if r.Error != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s failed: %s\n", r.Name, r.Error)
				}
			}
			return writeEvents(cmd.OutOrStdout(), filterTypes(snap.Events, filter), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "json", "Output format: json or table")
	cmd.Flags().StringVarP(&types, "type", "t", "", "Comma-separated event types to keep")
	return cmd
}

func newSourceCmd(newAggregator aggregatorFactory) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "source <name>",
		Short: "Print one source's normalized events without cross-source merging",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, done, err := newAggregator(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			events, err := agg.FetchSource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeEvents(cmd.OutOrStdout(), events, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "json", "Output format: json or table")
	return cmd
}

func newSourcesCmd(newAggregator aggregatorFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the configured sources in merge order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			agg, done, err := newAggregator(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			for _, name := range agg.SourceNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <snapshot.json>",
		Short: "Check a saved event list for schema, normalization, dedup and ordering problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			events, err := decodeEvents(data)
			if err != nil {
				return err
			}
			if !report(cmd.OutOrStdout(), validate(events)) {
				return fmt.Errorf("%s failed validation", args[0])
			}
			return nil
		},
	}
}

func parseTypes(s string) (map[domain.EventType]bool, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	set := make(map[domain.EventType]bool)
	for _, part := range strings.Split(s, ",") {
		t := domain.EventType(strings.ToLower(strings.TrimSpace(part)))
		if t == "" {
			continue
		}
		if !t.Valid() {
			return nil, fmt.Errorf("unknown event type %q", part)
		}
		set[t] = true
	}
	return set, nil
}

func filterTypes(events []domain.Event, keep map[domain.EventType]bool) []domain.Event {
	if len(keep) == 0 {
		return events
	}
	out := make([]domain.Event, 0, len(events))
	for _, ev := range events {
		if keep[ev.Type] {
			out = append(out, ev)
		}
	}
	return out
}
