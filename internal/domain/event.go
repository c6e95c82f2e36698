package domain

import (
	"context"
	"slices"
	"time"
)

// EventType is the fixed vocabulary of event kinds.
type EventType string

const (
	TypeEarthquake EventType = "earthquake"
	TypeDisaster   EventType = "disaster"
	TypeConflict   EventType = "conflict"
	TypeProtest    EventType = "protest"
	TypeHealth     EventType = "health"
	TypeEconomic   EventType = "economic"
	TypeNews       EventType = "news"
)

// EventTypes lists every valid EventType.
var EventTypes = []EventType{
	TypeEarthquake, TypeDisaster, TypeConflict, TypeProtest, TypeHealth, TypeEconomic, TypeNews,
}

// Valid reports whether t is part of the vocabulary.
func (t EventType) Valid() bool {
	switch t {
	case TypeEarthquake, TypeDisaster, TypeConflict, TypeProtest, TypeHealth, TypeEconomic, TypeNews:
		return true
	}
	return false
}

// Category is the coarse grouping derived from an EventType.
type Category string

const (
	CategoryNatural       Category = "natural"
	CategoryConflict      Category = "conflict"
	CategoryHealth        Category = "health"
	CategoryEconomic      Category = "economic"
	CategorySocial        Category = "social"
	CategoryEnvironmental Category = "environmental"
)

// Categories lists every valid Category.
var Categories = []Category{
	CategoryNatural, CategoryConflict, CategoryHealth, CategoryEconomic, CategorySocial, CategoryEnvironmental,
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Severity is the derived urgency ordinal.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every valid Severity, lowest first.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Valid reports whether s is one of the enumerated severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// RawEvent is a feed record mapped onto common field names by an adapter,
// before sanitation, rounding and classification.
type RawEvent struct {
	Title     string
	Summary   string
	Lat       float64
	Lon       float64
	Type      EventType
	Date      time.Time // zero means "use fetch time"
	Magnitude *float64
	Source    string
	Country   string
	Region    string
	URL       string

	// Curated records may pin these; empty values are derived.
	Severity Severity
	Category Category
}

// Event is the unified, normalized crisis event.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Type      EventType `json:"type"`
	Category  Category  `json:"category"`
	Severity  Severity  `json:"severity"`
	Date      time.Time `json:"date"`
	Magnitude *float64  `json:"magnitude,omitempty"`
	Source    string    `json:"source"`
	Country   string    `json:"country,omitempty"`
	Region    string    `json:"region,omitempty"`
	URL       string    `json:"url"`
}

// CuratedSuffix marks the source label of curated reference events.
const CuratedSuffix = " (curated)"

// Source fetches one upstream feed and maps its records onto normalized events.
// Records that fail normalization are skipped; Fetch returns an error only when
// the feed as a whole could not be read.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Event, error)
}

// SourceReport describes one source's contribution to a snapshot.
type SourceReport struct {
	Name     string        `json:"name"`
	Events   int           `json:"events"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// Snapshot is the result of one aggregation: deduplicated events, newest first.
type Snapshot struct {
	ID          string         `json:"id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Events      []Event        `json:"events"`
	Sources     []SourceReport `json:"sources"`
	Merged      int            `json:"merged"`
}
