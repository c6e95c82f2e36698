package gdelt

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()
	require.Len(t, rules, 7)
	assert.Equal(t, []string{"ukraine"}, rules[0].When)
	assert.Equal(t, domain.TypeConflict, rules[0].Type)
	assert.Equal(t, "Bangladesh", rules[6].Country)
}

func TestRules_Match(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name        string
		title       string
		snippet     string
		wantMatch   bool
		wantCountry string
		wantType    domain.EventType
	}{
		{"title keyword", "Shelling continues in UKRAINE", "", true, "Ukraine", domain.TypeConflict},
		{"snippet keyword", "Breaking news", "Aid convoys reach Gaza", true, "Gaza", domain.TypeConflict},
		{"priority order", "Protest over Syria policy", "", true, "Syria", domain.TypeConflict},
		{"protest", "Thousands protest in capital", "", true, "USA", domain.TypeProtest},
		{"health", "Health ministry issues warning", "", true, "Kenya", domain.TypeHealth},
		{"flood", "Flash floods hit villages", "", true, "Bangladesh", domain.TypeDisaster},
		{"no match", "Markets rally on earnings", "Stocks up", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := rules.Match(tt.title, tt.snippet)
			assert.Equal(t, tt.wantMatch, ok)
			assert.Equal(t, tt.wantCountry, rule.Country)
			assert.Equal(t, tt.wantType, rule.Type)
		})
	}
}

func TestLoadRules(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		rules, err := LoadRules("")
		require.NoError(t, err)
		assert.Len(t, rules, 7)
	})

	t.Run("file override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		content := "rules:\n  - when: [Sudan, Khartoum]\n    lat: 15.5007\n    lon: 32.5599\n    type: conflict\n    country: Sudan\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		rules, err := LoadRules(path)
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, []string{"sudan", "khartoum"}, rules[0].When)

		rule, ok := rules.Match("Fighting near Khartoum airport", "")
		require.True(t, ok)
		assert.Equal(t, "Sudan", rule.Country)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}

func TestParseRules_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		err  error
	}{
		{"no rules", "rules: []\n", nil},
		{"bad yaml", "rules: [", nil},
		{"no terms", "rules:\n  - lat: 1\n    lon: 1\n    type: news\n", nil},
		{"bad type", "rules:\n  - when: [x]\n    lat: 1\n    lon: 1\n    type: weather\n", domain.ErrInvalidType},
		{"bad coords", "rules:\n  - when: [x]\n    lat: 100\n    lon: 1\n    type: news\n", domain.ErrInvalidCoordinates},
		{"origin", "rules:\n  - when: [equator]\n    lat: 0\n    lon: 0\n    type: news\n", domain.ErrNoLocation},
		{"rounds to origin", "rules:\n  - when: [equator]\n    lat: 0.001\n    lon: -0.004\n    type: news\n", domain.ErrNoLocation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.doc))
			require.Error(t, err)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err))
			}
		})
	}
}
