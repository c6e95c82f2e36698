package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
)

const maxTitleWidth = 60

func writeEvents(w io.Writer, events []domain.Event, format string) error {
	switch format {
	case "json":
		if events == nil {
			events = []domain.Event{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tTYPE\tSEVERITY\tLAT\tLON\tSOURCE\tTITLE")
		for _, e := range events {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%s\t%s\n",
				e.Date.UTC().Format(time.RFC3339), e.Type, e.Severity, e.Lat, e.Lon, e.Source, shorten(e.Title, maxTitleWidth))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (want json or table)", format)
	}
}

func decodeEvents(data []byte) ([]domain.Event, error) {
	var events []domain.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
