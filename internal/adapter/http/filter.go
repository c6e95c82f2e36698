package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"github.com/couchcryptid/crisis-event-aggregator/internal/geo"
)

const defaultRadiusKm = 500.0

// eventFilter narrows a snapshot's events. Zero-value fields match everything.
type eventFilter struct {
	types      map[domain.EventType]bool
	categories map[domain.Category]bool
	severities map[domain.Severity]bool
	sources    map[string]bool

	bbox     *[4]float64 // minLat, minLon, maxLat, maxLon
	near     *[2]float64 // lat, lon
	radiusKm float64
}

func (f eventFilter) empty() bool {
	return f.types == nil && f.categories == nil && f.severities == nil &&
		f.sources == nil && f.bbox == nil && f.near == nil
}

// parseEventFilter reads filter parameters from q. Unknown enumeration values
// and malformed coordinates are rejected.
func parseEventFilter(q url.Values) (eventFilter, error) {
	f := eventFilter{radiusKm: defaultRadiusKm}

	var err error
	if f.types, err = parseEnumSet(q.Get("type"), "type", func(s string) (domain.EventType, bool) {
		t := domain.EventType(s)
		return t, t.Valid()
	}); err != nil {
		return f, err
	}
	if f.categories, err = parseEnumSet(q.Get("category"), "category", func(s string) (domain.Category, bool) {
		c := domain.Category(s)
		return c, c.Valid()
	}); err != nil {
		return f, err
	}
	if f.severities, err = parseEnumSet(q.Get("severity"), "severity", func(s string) (domain.Severity, bool) {
		sv := domain.Severity(s)
		return sv, sv.Valid()
	}); err != nil {
		return f, err
	}
	if f.sources, err = parseEnumSet(q.Get("source"), "source", func(s string) (string, bool) {
		return s, true
	}); err != nil {
		return f, err
	}

	if raw := q.Get("bbox"); raw != "" {
		v, err := parseFloats(raw, 4, "bbox")
		if err != nil {
			return f, err
		}
		f.bbox = &[4]float64{v[0], v[1], v[2], v[3]}
	}
	if raw := q.Get("near"); raw != "" {
		v, err := parseFloats(raw, 2, "near")
		if err != nil {
			return f, err
		}
		f.near = &[2]float64{v[0], v[1]}
	}
	if raw := q.Get("radius_km"); raw != "" {
		if f.near == nil {
			return f, fmt.Errorf("radius_km requires near")
		}
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r <= 0 {
			return f, fmt.Errorf("invalid radius_km %q: must be a positive number", raw)
		}
		f.radiusKm = r
	}
	return f, nil
}

// apply returns the events that pass every filter, in their original order.
func (f eventFilter) apply(events []domain.Event) ([]domain.Event, error) {
	if f.empty() {
		return events, nil
	}

	out := make([]domain.Event, 0, len(events))
	for _, ev := range events {
		if f.types != nil && !f.types[ev.Type] {
			continue
		}
		if f.categories != nil && !f.categories[ev.Category] {
			continue
		}
		if f.severities != nil && !f.severities[ev.Severity] {
			continue
		}
		if f.sources != nil && !f.matchesSource(ev.Source) {
			continue
		}
		out = append(out, ev)
	}

	if f.bbox == nil && f.near == nil {
		return out, nil
	}
	idx := geo.NewIndex(out)
	var err error
	if f.bbox != nil {
		b := f.bbox
		if out, err = idx.SearchBox(b[0], b[1], b[2], b[3]); err != nil {
			return nil, err
		}
		idx = geo.NewIndex(out)
	}
	if f.near != nil {
		if out, err = idx.SearchRadius(f.near[0], f.near[1], f.radiusKm); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// matchesSource accepts either the full source label or, for curated
// events, the label without its curated suffix.
func (f eventFilter) matchesSource(label string) bool {
	label = strings.ToLower(label)
	return f.sources[label] || f.sources[strings.TrimSuffix(label, domain.CuratedSuffix)]
}

// parseEnumSet splits a comma-separated, case-insensitive list. An empty
// parameter yields a nil set.
func parseEnumSet[T comparable](raw, name string, parse func(string) (T, bool)) (map[T]bool, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	set := make(map[T]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		v, ok := parse(part)
		if !ok {
			return nil, fmt.Errorf("invalid %s %q", name, part)
		}
		set[v] = true
	}
	if len(set) == 0 {
		return nil, nil
	}
	return set, nil
}

func parseFloats(raw string, n int, name string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("invalid %s %q: want %d comma-separated numbers", name, raw, n)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
		out[i] = v
	}
	return out, nil
}
