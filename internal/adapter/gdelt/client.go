// Package gdelt maps GDELT DOC API article lists onto domain events. Articles
// carry no coordinates, so location and type come from keyword Rules.
package gdelt

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
	Name = "GDELT"

	DefaultURL     = "https://api.gdeltproject.org/api/v2/doc/doc"
	searchQuery    = "(conflict OR protest OR \"health emergency\" OR disaster OR crisis OR emergency OR flood OR fire OR war OR violence)"
	seenDateLayout = "20060102T150405Z"

	defaultTitle   = "Global News Event"
	defaultSummary = "News event reported"
	fallbackURL    = "https://www.gdeltproject.org/"
)

// Client implements domain.Source for GDELT articles.
type Client struct {
	feed       *feed.Client
	baseURL    string
	maxRecords int
	rules      Rules
	logger     *slog.Logger
}

// NewClient creates a GDELT source that locates articles with rules.
func NewClient(fc *feed.Client, baseURL string, maxRecords int, rules Rules, logger *slog.Logger) *Client {
	return &Client{
		feed:       fc,
		baseURL:    baseURL,
		maxRecords: maxRecords,
		rules:      rules,
		logger:     logger,
	}
}

func (c *Client) Name() string { return Name }

// Fetch downloads the article list and keeps articles matched by a rule.
func (c *Client) Fetch(ctx context.Context) ([]domain.Event, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("gdelt: parse url: %w", err)
	}
	q := u.Query()
	q.Set("query", searchQuery)
	q.Set("mode", "artlist")
	q.Set("maxrecords", strconv.Itoa(c.maxRecords))
	q.Set("format", "json")
	q.Set("sort", "datedesc")
	u.RawQuery = q.Encode()

	var resp response
	if err := c.feed.GetJSON(ctx, u.String(), &resp); err != nil {
		return nil, fmt.Errorf("gdelt: %w", err)
	}

	events := make([]domain.Event, 0, len(resp.Articles))
	unmatched := 0
	for _, a := range resp.Articles {
		rule, ok := c.rules.Match(a.Title, a.Snippet)
		if !ok {
			unmatched++
			continue
		}
		ev, err := domain.NormalizeEvent(toRaw(a, rule))
		if err != nil {
			c.logger.Debug("skip gdelt article", "url", a.URL, "error", err)
			continue
		}
		events = append(events, ev)
	}
	if unmatched > 0 {
		c.logger.Debug("gdelt articles without location match", "count", unmatched)
	}
	return events, nil
}

func toRaw(a article, rule Rule) domain.RawEvent {
	title := strings.TrimSpace(a.Title)
	if title == "" {
		title = defaultTitle
	}
	summary := strings.TrimSpace(a.Snippet)
	if summary == "" {
		summary = defaultSummary
	}

	link := a.URL
	if !domain.ValidURL(link) {
		link = fallbackURL
		if a.Domain != "" {
			link = "https://" + a.Domain
		}
	}

	var date time.Time
	if t, err := time.Parse(seenDateLayout, a.SeenDate); err == nil {
		date = t
	}

	return domain.RawEvent{
		Title:   title,
		Summary: summary,
		Lat:     rule.Lat,
		Lon:     rule.Lon,
		Type:    rule.Type,
		Date:    date,
		Source:  Name,
		Country: rule.Country,
		URL:     link,
	}
}

// GDELT DOC API response types.

type response struct {
	Articles []article `json:"articles"`
}

type article struct {
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	URL      string `json:"url"`
	Domain   string `json:"domain"`
	SeenDate string `json:"seendate"`
}
