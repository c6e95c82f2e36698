// Package usgs maps the USGS earthquake GeoJSON summary feed onto domain events.
package usgs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"github.com/couchcryptid/crisis-event-aggregator/internal/feed"
)

const (
	// Name is the source label carried by every event from this adapter.
	Name = "USGS"

	DefaultFeedURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"
	eventPageURL   = "https://earthquake.usgs.gov/earthquakes/eventpage/"
)

// Client implements domain.Source for the USGS seismic feed.
type Client struct {
	feed         *feed.Client
	url          string
	minMagnitude float64
	logger       *slog.Logger
}

// NewClient creates a USGS source. Features below minMagnitude are dropped.
func NewClient(fc *feed.Client, feedURL string, minMagnitude float64, logger *slog.Logger) *Client {
	return &Client{
		feed:         fc,
		url:          feedURL,
		minMagnitude: minMagnitude,
		logger:       logger,
	}
}

func (c *Client) Name() string { return Name }

// Fetch downloads the feature collection and normalizes every usable feature.
func (c *Client) Fetch(ctx context.Context) ([]domain.Event, error) {
	var fc featureCollection
	if err := c.feed.GetJSON(ctx, c.url, &fc); err != nil {
		return nil, fmt.Errorf("usgs: %w", err)
	}

	events := make([]domain.Event, 0, len(fc.Features))
	for _, f := range fc.Features {
		raw, ok := c.toRaw(f)
		if !ok {
			continue
		}
		ev, err := domain.NormalizeEvent(raw)
		if err != nil {
			c.logger.Debug("skip usgs feature", "id", f.ID, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (c *Client) toRaw(f feature) (domain.RawEvent, bool) {
	p := f.Properties
	if p.Mag == nil || *p.Mag < c.minMagnitude {
		return domain.RawEvent{}, false
	}
	if len(f.Geometry.Coordinates) < 2 {
		c.logger.Debug("skip usgs feature without coordinates", "id", f.ID)
		return domain.RawEvent{}, false
	}

	place := strings.TrimSpace(p.Place)
	title := "Earthquake - Unknown Location"
	if place != "" {
		title = "Earthquake - " + place
	}

	var date time.Time
	if p.Time != nil {
		date = time.UnixMilli(*p.Time).UTC()
	}

	url := p.URL
	if !domain.ValidURL(url) {
		url = eventPageURL + firstID(p.IDs, f.ID)
	}

	m := *p.Mag
	return domain.RawEvent{
		Title:     title,
		Summary:   Summary(m, place),
		Lat:       f.Geometry.Coordinates[1],
		Lon:       f.Geometry.Coordinates[0],
		Type:      domain.TypeEarthquake,
		Date:      date,
		Magnitude: &m,
		Source:    Name,
		Country:   countryFromPlace(place),
		URL:       url,
	}, true
}

// Summary describes a quake by magnitude tier: "major" from 6.0, "moderate"
// from 4.0, otherwise "minor". The place is appended when known.
func Summary(magnitude float64, place string) string {
	tier := "minor"
	switch {
	case magnitude >= 6.0:
		tier = "major"
	case magnitude >= 4.0:
		tier = "moderate"
	}
	s := fmt.Sprintf("Magnitude %s %s earthquake", strconv.FormatFloat(magnitude, 'f', -1, 64), tier)
	if place != "" {
		s += " near " + place
	}
	return s
}

// firstID returns the first non-empty entry of the comma-separated ids list.
func firstID(ids, fallback string) string {
	for _, id := range strings.Split(ids, ",") {
		if id = strings.TrimSpace(id); id != "" {
			return id
		}
	}
	return fallback
}

// countryFromPlace takes the last comma-separated segment, e.g. "10 km S of Hualien City, Taiwan".
func countryFromPlace(place string) string {
	if place == "" {
		return ""
	}
	parts := strings.Split(place, ",")
	return strings.TrimSpace(parts[len(parts)-1])
}

// USGS GeoJSON response types.

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID         string     `json:"id"`
	Properties properties `json:"properties"`
	Geometry   geometry   `json:"geometry"`
}

type properties struct {
	Mag   *float64 `json:"mag"`
	Place string   `json:"place"`
	Time  *int64   `json:"time"`
	URL   string   `json:"url"`
	IDs   string   `json:"ids"`
}

type geometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}
