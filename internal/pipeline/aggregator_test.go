package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/crisis-event-aggregator/internal/adapter/gdelt"
	"github.com/couchcryptid/crisis-event-aggregator/internal/adapter/reliefweb"
	"github.com/couchcryptid/crisis-event-aggregator/internal/adapter/seed"
	"github.com/couchcryptid/crisis-event-aggregator/internal/adapter/usgs"
	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"github.com/couchcryptid/crisis-event-aggregator/internal/feed"
	"github.com/couchcryptid/crisis-event-aggregator/internal/observability"
	"github.com/couchcryptid/crisis-event-aggregator/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type stubSource struct {
	name      string
	events    []domain.Event
	err       error
	panicWith any
	block     bool // ignore the context and hang until released
	release   chan struct{}
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context) ([]domain.Event, error) {
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	if s.block {
		<-s.release
		return s.events, nil
	}
	return s.events, s.err
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	today     = time.Date(2025, time.July, 10, 12, 0, 0, 0, time.UTC)
	yesterday = today.Add(-24 * time.Hour)
)

func event(id string, lat, lon float64, typ domain.EventType, sev domain.Severity, date time.Time) domain.Event {
	return domain.Event{ID: id, Title: id, Lat: lat, Lon: lon, Type: typ, Severity: sev, Date: date, Source: "test"}
}

func ids(events []domain.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

// --- Aggregator tests ---

func TestAggregator_NewerConflictWins(t *testing.T) {
	a := &stubSource{name: "A", events: []domain.Event{
		event("older-high", 31.35, 34.31, domain.TypeConflict, domain.SeverityHigh, yesterday),
	}}
	b := &stubSource{name: "B", events: []domain.Event{
		event("newer-medium", 31.35, 34.31, domain.TypeConflict, domain.SeverityMedium, today),
	}}
	metrics := newTestMetrics()

	agg := pipeline.New([]domain.Source{a, b}, time.Second, discardLogger(), metrics)
	snap, err := agg.Aggregate(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Events, 1)
	assert.Equal(t, "newer-medium", snap.Events[0].ID)
	assert.Equal(t, 1, snap.Merged)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsMerged))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SnapshotEvents))
}

func TestAggregator_SortsNewestFirstWithStableTies(t *testing.T) {
	a := &stubSource{name: "A", events: []domain.Event{
		event("a-old", 1, 1, domain.TypeNews, domain.SeverityLow, yesterday),
		event("a-tie", 2, 2, domain.TypeNews, domain.SeverityLow, today),
	}}
	b := &stubSource{name: "B", events: []domain.Event{
		event("b-tie", 3, 3, domain.TypeNews, domain.SeverityLow, today),
		event("b-newest", 4, 4, domain.TypeNews, domain.SeverityLow, today.Add(time.Hour)),
	}}

	agg := pipeline.New([]domain.Source{a, b}, time.Second, discardLogger(), newTestMetrics())
	snap, err := agg.Aggregate(context.Background())
	require.NoError(t, err)

	want := []string{"b-newest", "a-tie", "b-tie", "a-old"}
	if diff := cmp.Diff(want, ids(snap.Events)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregator_AllNetworkSourcesFail(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	failing := &stubSource{name: "USGS", err: errors.New("connection refused")}
	hanging := &stubSource{name: "ReliefWeb", block: true, release: release}
	panicking := &stubSource{name: "GDELT", panicWith: "nil map write"}
	seeds := seed.New(discardLogger())
	metrics := newTestMetrics()

	agg := pipeline.New([]domain.Source{failing, hanging, panicking, seeds}, 50*time.Millisecond, discardLogger(), metrics)

	start := time.Now()
	snap, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second, "a hanging source must not block aggregation")

	require.NotEmpty(t, snap.Events)
	for _, ev := range snap.Events {
		assert.Contains(t, ev.Source, "(curated)")
	}

	require.Len(t, snap.Sources, 4)
	assert.Contains(t, snap.Sources[0].Error, "connection refused")
	assert.NotEmpty(t, snap.Sources[1].Error)
	assert.Contains(t, snap.Sources[2].Error, "panicked")
	assert.Empty(t, snap.Sources[3].Error)
	assert.Equal(t, len(snap.Events)+snap.Merged, snap.Sources[3].Events)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SourceFetches.WithLabelValues("USGS", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SourceFetches.WithLabelValues("ReliefWeb", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SourceFetches.WithLabelValues("GDELT", "panic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Aggregations.WithLabelValues("success")))
}

func TestAggregator_EmptyResultIsNotNil(t *testing.T) {
	failing := &stubSource{name: "USGS", err: errors.New("down")}

	agg := pipeline.New([]domain.Source{failing}, time.Second, discardLogger(), newTestMetrics())
	snap, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.Events)
	assert.Empty(t, snap.Events)
	assert.NotEmpty(t, snap.ID)
}

func TestAggregator_CallerCancelled(t *testing.T) {
	src := &stubSource{name: "A", events: []domain.Event{event("x", 1, 1, domain.TypeNews, domain.SeverityLow, today)}}
	metrics := newTestMetrics()
	agg := pipeline.New([]domain.Source{src}, time.Second, discardLogger(), metrics)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agg.Aggregate(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Aggregations.WithLabelValues("error")))
}

func TestAggregator_MergePanicIsAnError(t *testing.T) {
	src := &stubSource{name: "A", events: []domain.Event{
		event("x", 1, 1, domain.TypeNews, domain.SeverityLow, today),
		event("y", 1, 1, domain.TypeNews, domain.SeverityLow, today),
	}}
	boom := func(domain.Event, domain.Event) bool { panic("bad comparator") }

	agg := pipeline.New([]domain.Source{src}, time.Second, discardLogger(), newTestMetrics(), pipeline.WithMergePolicy(boom))
	_, err := agg.Aggregate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, pipeline.ErrMerge))
	assert.Error(t, agg.CheckReadiness(context.Background()))
}

func TestAggregator_CheckReadiness(t *testing.T) {
	agg := pipeline.New([]domain.Source{&stubSource{name: "A"}}, time.Second, discardLogger(), newTestMetrics())

	require.Error(t, agg.CheckReadiness(context.Background()))

	_, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	assert.NoError(t, agg.CheckReadiness(context.Background()))
}

func TestAggregator_FetchSource(t *testing.T) {
	ok := &stubSource{name: "USGS", events: []domain.Event{event("q", 1, 1, domain.TypeEarthquake, domain.SeverityLow, today)}}
	bad := &stubSource{name: "GDELT", err: errors.New("rate limited")}
	empty := &stubSource{name: "ReliefWeb"}
	agg := pipeline.New([]domain.Source{ok, bad, empty}, time.Second, discardLogger(), newTestMetrics())

	assert.Equal(t, []string{"USGS", "GDELT", "ReliefWeb"}, agg.SourceNames())

	events, err := agg.FetchSource(context.Background(), "usgs")
	require.NoError(t, err)
	assert.Equal(t, []string{"q"}, ids(events))

	_, err = agg.FetchSource(context.Background(), "GDELT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	events, err = agg.FetchSource(context.Background(), "ReliefWeb")
	require.NoError(t, err)
	assert.NotNil(t, events)

	_, err = agg.FetchSource(context.Background(), "nope")
	assert.True(t, errors.Is(err, pipeline.ErrUnknownSource))
}

// --- end-to-end with real adapters ---

func TestAggregator_EndToEnd(t *testing.T) {
	usgsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"features":[{"id":"us1","properties":{"mag":7.2,"place":"Tokyo","time":1740903300000},"geometry":{"coordinates":[139.6503,35.6762,10]}}]}`)
	}))
	t.Cleanup(usgsSrv.Close)
	reliefSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"id":"9","fields":{"id":9,"name":"Unlocated","country":[]}}]}`)
	}))
	t.Cleanup(reliefSrv.Close)
	gdeltSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(gdeltSrv.Close)

	logger := discardLogger()
	fc := feed.NewClient(2*time.Second, "test")
	sources := []domain.Source{
		usgs.NewClient(fc, usgsSrv.URL, 2.5, logger),
		reliefweb.NewClient(fc, reliefSrv.URL, 50, logger),
		gdelt.NewClient(fc, gdeltSrv.URL, 100, gdelt.DefaultRules(), logger),
	}

	agg := pipeline.New(sources, 2*time.Second, logger, newTestMetrics())
	snap, err := agg.Aggregate(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Events, 1)
	quake := snap.Events[0]
	assert.Equal(t, domain.TypeEarthquake, quake.Type)
	assert.Equal(t, 35.68, quake.Lat)
	assert.Equal(t, 139.65, quake.Lon)
	assert.Equal(t, domain.SeverityCritical, quake.Severity)
	assert.Equal(t, domain.CategoryNatural, quake.Category)
	assert.Contains(t, quake.Summary, "major")
	assert.Contains(t, quake.Summary, "Tokyo")

	assert.Equal(t, 0, snap.Sources[1].Events)
	assert.Empty(t, snap.Sources[1].Error)
	assert.NotEmpty(t, snap.Sources[2].Error)

	for _, ev := range snap.Events {
		assert.True(t, domain.ValidCoordinates(ev.Lat, ev.Lon))
		assert.True(t, ev.Type.Valid())
	}
}
