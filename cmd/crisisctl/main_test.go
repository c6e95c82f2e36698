package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"github.com/couchcryptid/crisis-event-aggregator/internal/observability"
	"github.com/couchcryptid/crisis-event-aggregator/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type stubSource struct {
	name   string
	events []domain.Event
	err    error
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Fetch(context.Context) ([]domain.Event, error) { return s.events, s.err }

var baseDate = time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)

func mustNormalize(t *testing.T, raw domain.RawEvent) domain.Event {
	t.Helper()
	ev, err := domain.NormalizeEvent(raw)
	require.NoError(t, err)
	return ev
}

func testEvents(t *testing.T) (quake, conflict domain.Event) {
	mag := 7.2
	quake = mustNormalize(t, domain.RawEvent{
		Title: "Earthquake - Tokyo", Lat: 35.6762, Lon: 139.6503, Type: domain.TypeEarthquake,
		Magnitude: &mag, Date: baseDate, Source: "USGS", URL: "https://earthquake.usgs.gov/x",
	})
	conflict = mustNormalize(t, domain.RawEvent{
		Title: "Ukraine frontline update", Lat: 50.4501, Lon: 30.5234, Type: domain.TypeConflict,
		Date: baseDate.Add(-time.Hour), Source: "GDELT",
	})
	return quake, conflict
}

func factory(sources ...domain.Source) aggregatorFactory {
	return func(context.Context) (*pipeline.Aggregator, func(), error) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		return pipeline.New(sources, time.Second, logger, observability.NewMetricsForTesting()), func() {}, nil
	}
}

func run(t *testing.T, f aggregatorFactory, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(f)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// --- commands ---

func TestEventsCommand_JSON(t *testing.T) {
	quake, conflict := testEvents(t)
	f := factory(
		stubSource{name: "USGS", events: []domain.Event{quake}},
		stubSource{name: "GDELT", events: []domain.Event{conflict}},
		stubSource{name: "ReliefWeb", err: errors.New("status 503")},
	)

	out, errOut, err := run(t, f, "events")
	require.NoError(t, err)

	var got []domain.Event
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, quake.ID, got[0].ID)
	assert.Equal(t, conflict.ID, got[1].ID)
	assert.Contains(t, errOut, "ReliefWeb failed")
}

func TestEventsCommand_TypeFilter(t *testing.T) {
	quake, conflict := testEvents(t)
	f := factory(stubSource{name: "A", events: []domain.Event{quake, conflict}})

	out, _, err := run(t, f, "events", "--type", "Conflict")
	require.NoError(t, err)

	var got []domain.Event
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, domain.TypeConflict, got[0].Type)

	_, _, err = run(t, f, "events", "--type", "volcano")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volcano")
}

func TestEventsCommand_Table(t *testing.T) {
	quake, _ := testEvents(t)
	f := factory(stubSource{name: "USGS", events: []domain.Event{quake}})

	out, _, err := run(t, f, "events", "-o", "table")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "DATE"))
	assert.Contains(t, lines[1], "2025-03-02T08:00:00Z")
	assert.Contains(t, lines[1], "earthquake")
	assert.Contains(t, lines[1], "critical")
	assert.Contains(t, lines[1], "35.68")
	assert.Contains(t, lines[1], "Earthquake - Tokyo")
}

func TestEventsCommand_UnknownFormat(t *testing.T) {
	_, _, err := run(t, factory(), "events", "-o", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestSourceCommand(t *testing.T) {
	quake, _ := testEvents(t)
	f := factory(stubSource{name: "USGS", events: []domain.Event{quake}}, stubSource{name: "GDELT"})

	out, _, err := run(t, f, "source", "usgs")
	require.NoError(t, err)
	var got []domain.Event
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got, 1)

	out, _, err = run(t, f, "source", "gdelt")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	_, _, err = run(t, f, "source", "twitter")
	require.ErrorIs(t, err, pipeline.ErrUnknownSource)
}

func TestSourcesCommand(t *testing.T) {
	f := factory(stubSource{name: "USGS"}, stubSource{name: "ReliefWeb"}, stubSource{name: "Curated"})

	out, _, err := run(t, f, "sources")
	require.NoError(t, err)
	assert.Equal(t, "USGS\nReliefWeb\nCurated\n", out)
}

func TestFactoryError(t *testing.T) {
	f := func(context.Context) (*pipeline.Aggregator, func(), error) {
		return nil, nil, errors.New("SOURCE_TIMEOUT: invalid duration")
	}
	_, _, err := run(t, f, "sources")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOURCE_TIMEOUT")
}

// --- validate ---

func writeSnapshot(t *testing.T, events []domain.Event) string {
	t.Helper()
	data, err := json.Marshal(events)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestValidateCommand_Pass(t *testing.T) {
	quake, conflict := testEvents(t)
	path := writeSnapshot(t, []domain.Event{quake, conflict})

	out, _, err := run(t, factory(), "validate", path)
	require.NoError(t, err)
	assert.Equal(t, "PASS  schema\nPASS  normalization\nPASS  dedup\nPASS  ordering\n", out)
}

func TestValidateCommand_Fail(t *testing.T) {
	quake, conflict := testEvents(t)
	dup := quake
	dup.Date = baseDate.Add(time.Hour)
	path := writeSnapshot(t, []domain.Event{conflict, quake, dup})

	out, _, err := run(t, factory(), "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "PASS  schema")
	assert.Contains(t, out, "FAIL  dedup (1 problems)")
	assert.Contains(t, out, "FAIL  ordering (2 problems)")
}

func TestValidatePhases(t *testing.T) {
	quake, _ := testEvents(t)

	bad := quake
	bad.Lat = 35.6762
	bad.Severity = "extreme"
	bad.URL = "ftp://example.org"

	phases := validate([]domain.Event{bad})
	byName := map[string]*phase{}
	for _, p := range phases {
		byName[p.name] = p
	}

	assert.Len(t, byName["schema"].errors, 2)
	assert.False(t, byName["normalization"].passed())
	assert.True(t, byName["dedup"].passed())
	assert.True(t, byName["ordering"].passed())
}

func TestValidatePhases_InvalidCategory(t *testing.T) {
	quake, _ := testEvents(t)
	quake.Category = "weather"

	schema := validateSchema([]domain.Event{quake})
	require.Len(t, schema.errors, 1)
	assert.Contains(t, schema.errors[0], `invalid category "weather"`)
	assert.Contains(t, schema.errors[0], "natural conflict health economic social environmental")
}

func TestValidateCommand_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := run(t, factory(), "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode events")
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "short", shorten("short", 10))
	assert.Equal(t, "abcdefg...", shorten("abcdefghijklmnop", 10))
}
