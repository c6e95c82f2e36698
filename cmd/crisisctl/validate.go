package main

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func validate(events []domain.Event) []*phase {
	return []*phase{
		validateSchema(events),
		validateNormalization(events),
		validateDedup(events),
		validateOrdering(events),
	}
}

// report prints one line per phase plus its problems and returns true when
// every phase passed.
func report(w io.Writer, phases []*phase) bool {
	ok := true
	for _, p := range phases {
		if p.passed() {
			fmt.Fprintf(w, "PASS  %s\n", p.name)
			continue
		}
		ok = false
		fmt.Fprintf(w, "FAIL  %s (%d problems)\n", p.name, len(p.errors))
		for _, e := range p.errors {
			fmt.Fprintf(w, "      - %s\n", e)
		}
	}
	return ok
}

func validateSchema(events []domain.Event) *phase {
	p := &phase{name: "schema"}
	for i := range events {
		e := &events[i]
		if e.ID == "" {
			p.errorf("[%d] missing id", i)
		}
		if e.Title == "" {
			p.errorf("[%d] %s: missing title", i, e.ID)
		}
		if e.Source == "" {
			p.errorf("[%d] %s: missing source", i, e.ID)
		}
		if e.Date.IsZero() {
			p.errorf("[%d] %s: missing date", i, e.ID)
		}
		if !e.Type.Valid() {
			p.errorf("[%d] %s: invalid type %q", i, e.ID, e.Type)
		}
		if !e.Category.Valid() {
			p.errorf("[%d] %s: invalid category %q (want one of %v)", i, e.ID, e.Category, domain.Categories)
		}
		if !e.Severity.Valid() {
			p.errorf("[%d] %s: invalid severity %q", i, e.ID, e.Severity)
		}
		if !domain.ValidCoordinates(e.Lat, e.Lon) {
			p.errorf("[%d] %s: coordinates out of range (%v, %v)", i, e.ID, e.Lat, e.Lon)
		}
		if e.Magnitude != nil && !domain.ValidMagnitude(*e.Magnitude) {
			p.errorf("[%d] %s: magnitude out of range %v", i, e.ID, *e.Magnitude)
		}
		if e.URL != "" && !domain.ValidURL(e.URL) {
			p.errorf("[%d] %s: invalid url %q", i, e.ID, e.URL)
		}
	}
	return p
}

func validateNormalization(events []domain.Event) *phase {
	p := &phase{name: "normalization"}
	for i := range events {
		e := &events[i]
		if domain.RoundCoord(e.Lat) != e.Lat || domain.RoundCoord(e.Lon) != e.Lon {
			p.errorf("[%d] %s: coordinates not rounded to 0.01 (%v, %v)", i, e.ID, e.Lat, e.Lon)
		}
		if e.Lat == 0 && e.Lon == 0 {
			p.errorf("[%d] %s: placeholder location (0, 0)", i, e.ID)
		}
		if want := domain.GenerateID(e.Type, e.Lat, e.Lon, e.Title); e.ID != want {
			p.errorf("[%d] id %q does not match derived %q", i, e.ID, want)
		}
		if n := utf8.RuneCountInString(e.Summary); n > domain.MaxSummaryLength+3 {
			p.errorf("[%d] %s: summary is %d runes", i, e.ID, n)
		}
	}
	return p
}

func validateDedup(events []domain.Event) *phase {
	p := &phase{name: "dedup"}
	seen := make(map[string]int, len(events))
	for i := range events {
		key := events[i].Key()
		if j, ok := seen[key]; ok {
			p.errorf("[%d] %s shares identity key %s with [%d]", i, events[i].ID, key, j)
			continue
		}
		seen[key] = i
	}
	return p
}

func validateOrdering(events []domain.Event) *phase {
	p := &phase{name: "ordering"}
	for i := 1; i < len(events); i++ {
		if events[i].Date.After(events[i-1].Date) {
			p.errorf("[%d] %s is newer than [%d] %s", i, events[i].ID, i-1, events[i-1].ID)
		}
	}
	return p
}
