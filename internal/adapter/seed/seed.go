// Package seed provides curated reference events so a snapshot is never
// empty even when every network source is down.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"gopkg.in/yaml.v3"
)

// Name identifies the curated source in reports and metrics.
const Name = "Curated"

//go:embed seeds.yaml
var defaultSeeds []byte

// Seed is one curated event definition.
type Seed struct {
	Source   string           `yaml:"source"`
	Title    string           `yaml:"title"`
	Summary  string           `yaml:"summary"`
	URL      string           `yaml:"url"`
	Type     domain.EventType `yaml:"type"`
	Lat      float64          `yaml:"lat"`
	Lon      float64          `yaml:"lon"`
	Country  string           `yaml:"country"`
	Region   string           `yaml:"region"`
	Severity domain.Severity  `yaml:"severity"`
	Category domain.Category  `yaml:"category"`
	Age      time.Duration    `yaml:"age"`
}

type seedsFile struct {
	Seeds []Seed `yaml:"seeds"`
}

// ParseSeeds decodes a YAML seed document.
func ParseSeeds(b []byte) ([]Seed, error) {
	var f seedsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse seeds: %w", err)
	}
	if len(f.Seeds) == 0 {
		return nil, errors.New("parse seeds: no seeds defined")
	}
	return f.Seeds, nil
}

// Source serves a fixed set of seeds. It never fails.
type Source struct {
	seeds  []Seed
	logger *slog.Logger
}

// New returns a Source over the embedded seed set.
func New(logger *slog.Logger) *Source {
	seeds, err := ParseSeeds(defaultSeeds)
	if err != nil {
		panic(fmt.Sprintf("seed: embedded seeds: %v", err))
	}
	return NewWithSeeds(seeds, logger)
}

// NewWithSeeds returns a Source over the given seeds.
func NewWithSeeds(seeds []Seed, logger *slog.Logger) *Source {
	return &Source{seeds: seeds, logger: logger}
}

func (s *Source) Name() string { return Name }

// Fetch normalizes every seed, dating each one Age before now.
func (s *Source) Fetch(_ context.Context) ([]domain.Event, error) {
	now := domain.Now()
	events := make([]domain.Event, 0, len(s.seeds))
	for _, sd := range s.seeds {
		ev, err := domain.NormalizeEvent(domain.RawEvent{
			Title:    sd.Title,
			Summary:  sd.Summary,
			Lat:      sd.Lat,
			Lon:      sd.Lon,
			Type:     sd.Type,
			Date:     now.Add(-sd.Age),
			Source:   sd.Source + domain.CuratedSuffix,
			Country:  sd.Country,
			Region:   sd.Region,
			URL:      sd.URL,
			Severity: sd.Severity,
			Category: sd.Category,
		})
		if err != nil {
			s.logger.Warn("invalid curated seed", "title", sd.Title, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
