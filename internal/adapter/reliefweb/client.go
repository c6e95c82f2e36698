// Package reliefweb maps the ReliefWeb disasters API onto domain events.
package reliefweb

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"github.com/couchcryptid/crisis-event-aggregator/internal/feed"
)

const (
	// Name is the source label carried by every event from this adapter.
	Name = "ReliefWeb"

	DefaultURL     = "https://api.reliefweb.int/v1/disasters"
	disasterURL    = "https://reliefweb.int/disaster/"
	defaultTitle   = "Disaster Event"
	defaultSummary = "Disaster event reported"
	appName        = "crisis-event-aggregator"
)

// Client implements domain.Source for ReliefWeb disasters.
type Client struct {
	feed    *feed.Client
	baseURL string
	limit   int
	logger  *slog.Logger
}

// NewClient creates a ReliefWeb source requesting the newest limit disasters.
func NewClient(fc *feed.Client, baseURL string, limit int, logger *slog.Logger) *Client {
	return &Client{
		feed:    fc,
		baseURL: baseURL,
		limit:   limit,
		logger:  logger,
	}
}

func (c *Client) Name() string { return Name }

// Fetch downloads the disaster list. Records without a usable country location
// resolve to the (0,0) sentinel and are dropped by normalization.
func (c *Client) Fetch(ctx context.Context) ([]domain.Event, error) {
	u, err := c.requestURL()
	if err != nil {
		return nil, err
	}

	var resp response
	if err := c.feed.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("reliefweb: %w", err)
	}

	events := make([]domain.Event, 0, len(resp.Data))
	for _, item := range resp.Data {
		ev, err := domain.NormalizeEvent(toRaw(item))
		if err != nil {
			c.logger.Debug("skip reliefweb disaster", "id", item.ID, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (c *Client) requestURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("reliefweb: parse url: %w", err)
	}
	q := u.Query()
	q.Set("appname", appName)
	q.Set("limit", strconv.Itoa(c.limit))
	q.Set("sort[]", "date:desc")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func toRaw(item item) domain.RawEvent {
	f := item.Fields

	var lat, lon float64
	var country string
	if len(f.Country) > 0 {
		first := f.Country[0]
		country = first.Name
		if len(first.Location) > 0 {
			lat, lon = first.Location[0].Lat, first.Location[0].Lon
		}
	}

	typ := domain.TypeDisaster
	if strings.Contains(strings.ToLower(strings.Join(f.Type.names(), " ")), "conflict") {
		typ = domain.TypeConflict
	}

	title := strings.TrimSpace(f.Name)
	if title == "" {
		title = defaultTitle
	}

	summary := defaultSummary
	if len(f.Description) > 0 && strings.TrimSpace(f.Description[0]) != "" {
		summary = f.Description[0]
	}

	id := string(f.ID)
	if id == "" {
		id = string(item.ID)
	}

	var date time.Time
	if f.Date.Created != "" {
		if t, err := time.Parse(time.RFC3339, f.Date.Created); err == nil {
			date = t
		}
	}

	return domain.RawEvent{
		Title:   title,
		Summary: summary,
		Lat:     lat,
		Lon:     lon,
		Type:    typ,
		Date:    date,
		Source:  Name,
		Country: country,
		URL:     disasterURL + id,
	}
}
