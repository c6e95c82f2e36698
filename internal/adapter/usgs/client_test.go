package usgs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"github.com/couchcryptid/crisis-event-aggregator/internal/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokyoQuakeTime = int64(1740903300000) // 2025-03-02T08:15:00Z

func testClient(t *testing.T, body string, status int) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(feed.NewClient(5*time.Second, "test"), srv.URL, 2.5, logger)
}

func TestClient_Fetch_Tokyo(t *testing.T) {
	body := `{"type":"FeatureCollection","features":[{
		"id":"us7000tokyo",
		"properties":{"mag":7.2,"place":"Tokyo","time":1740903300000,"url":"","ids":",us7000tokyo,jma2025,"},
		"geometry":{"type":"Point","coordinates":[139.6503,35.6762,10.0]}
	}]}`
	c := testClient(t, body, http.StatusOK)

	events, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, domain.TypeEarthquake, ev.Type)
	assert.Equal(t, 35.68, ev.Lat)
	assert.Equal(t, 139.65, ev.Lon)
	assert.Equal(t, domain.SeverityCritical, ev.Severity)
	assert.Equal(t, domain.CategoryNatural, ev.Category)
	assert.Contains(t, ev.Summary, "major")
	assert.Contains(t, ev.Summary, "Tokyo")
	assert.Equal(t, "Earthquake - Tokyo", ev.Title)
	assert.Equal(t, "USGS", ev.Source)
	assert.Equal(t, "Tokyo", ev.Country)
	assert.Equal(t, time.UnixMilli(tokyoQuakeTime).UTC(), ev.Date)
	assert.Equal(t, "https://earthquake.usgs.gov/earthquakes/eventpage/us7000tokyo", ev.URL)
	require.NotNil(t, ev.Magnitude)
	assert.Equal(t, 7.2, *ev.Magnitude)
}

func TestClient_Fetch_FiltersRecords(t *testing.T) {
	body := `{"features":[
		{"id":"small","properties":{"mag":1.2,"place":"Nowhere","time":1740903300000},"geometry":{"coordinates":[10,10]}},
		{"id":"nomag","properties":{"mag":null,"place":"Nowhere","time":1740903300000},"geometry":{"coordinates":[10,10]}},
		{"id":"nocoords","properties":{"mag":5.0,"place":"Nowhere","time":1740903300000},"geometry":{"coordinates":[]}},
		{"id":"badlat","properties":{"mag":5.0,"place":"Nowhere","time":1740903300000},"geometry":{"coordinates":[10,95]}},
		{"id":"ok","properties":{"mag":4.5,"place":"10 km S of Hualien City, Taiwan","time":1740903300000,"url":"https://earthquake.usgs.gov/earthquakes/eventpage/ok"},"geometry":{"coordinates":[121.6,23.97,8]}}
	]}`
	c := testClient(t, body, http.StatusOK)

	events, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Taiwan", events[0].Country)
	assert.Equal(t, domain.SeverityMedium, events[0].Severity)
	assert.Equal(t, "Magnitude 4.5 moderate earthquake near 10 km S of Hualien City, Taiwan", events[0].Summary)
	assert.Equal(t, "https://earthquake.usgs.gov/earthquakes/eventpage/ok", events[0].URL)
}

func TestClient_Fetch_UpstreamError(t *testing.T) {
	c := testClient(t, `oops`, http.StatusBadGateway)

	events, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.Nil(t, events)
}

func TestSummary(t *testing.T) {
	tests := []struct {
		mag      float64
		place    string
		expected string
	}{
		{6.0, "Chile", "Magnitude 6 major earthquake near Chile"},
		{5.9, "Peru", "Magnitude 5.9 moderate earthquake near Peru"},
		{3.1, "", "Magnitude 3.1 minor earthquake"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, Summary(tt.mag, tt.place))
		})
	}
}

func TestCountryFromPlace(t *testing.T) {
	assert.Equal(t, "Alaska", countryFromPlace("45 km NW of Anchorage, Alaska"))
	assert.Equal(t, "Tokyo", countryFromPlace("Tokyo"))
	assert.Empty(t, countryFromPlace(""))
}
