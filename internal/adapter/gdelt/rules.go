package gdelt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Rule places an article at fixed coordinates when any of its terms appears
// in the title or snippet.
type Rule struct {
	When    []string         `yaml:"when"`
	Lat     float64          `yaml:"lat"`
	Lon     float64          `yaml:"lon"`
	Type    domain.EventType `yaml:"type"`
	Country string           `yaml:"country"`
}

// Rules is an ordered rule list; earlier rules take priority.
type Rules []Rule

type rulesFile struct {
	Rules Rules `yaml:"rules"`
}

// DefaultRules returns the embedded rule set.
func DefaultRules() Rules {
	rules, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("gdelt: embedded rules: %v", err))
	}
	return rules
}

// LoadRules reads a YAML rule file. An empty path yields the embedded defaults.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read news rules: %w", err)
	}
	return ParseRules(b)
}

// ParseRules decodes and validates a YAML rule document.
func ParseRules(b []byte) (Rules, error) {
	var f rulesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse news rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, errors.New("news rules: no rules defined")
	}
	for i, r := range f.Rules {
		if len(r.When) == 0 {
			return nil, fmt.Errorf("news rules: rule %d has no terms", i)
		}
		if !r.Type.Valid() {
			return nil, fmt.Errorf("news rules: rule %d: %w: %q", i, domain.ErrInvalidType, r.Type)
		}
		if !domain.ValidCoordinates(r.Lat, r.Lon) {
			return nil, fmt.Errorf("news rules: rule %d: %w", i, domain.ErrInvalidCoordinates)
		}
		if domain.RoundCoord(r.Lat) == 0 && domain.RoundCoord(r.Lon) == 0 {
			return nil, fmt.Errorf("news rules: rule %d: %w", i, domain.ErrNoLocation)
		}
		for j := range r.When {
			f.Rules[i].When[j] = strings.ToLower(r.When[j])
		}
	}
	return f.Rules, nil
}

// Match returns the first rule with a term contained in title or snippet,
// compared case-insensitively.
func (rs Rules) Match(title, snippet string) (Rule, bool) {
	title, snippet = strings.ToLower(title), strings.ToLower(snippet)
	for _, r := range rs {
		for _, term := range r.When {
			if strings.Contains(title, term) || strings.Contains(snippet, term) {
				return r, true
			}
		}
	}
	return Rule{}, false
}
