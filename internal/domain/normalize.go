package domain

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	// MaxFieldLength caps free-text fields after sanitation.
	MaxFieldLength = 1000
	// MaxSummaryLength caps summaries; longer text is cut and suffixed with "...".
	MaxSummaryLength = 200

	slugLength = 10
)

var (
	ErrInvalidType        = errors.New("invalid event type")
	ErrInvalidCoordinates = errors.New("coordinates out of range")
	ErrNoLocation         = errors.New("no location data")
	ErrInvalidMagnitude   = errors.New("magnitude out of range")
)

// NormalizeEvent validates a raw record and produces an Event with rounded
// coordinates, sanitized text, derived severity and category, and a
// deterministic ID. Records without a date get the current clock time.
func NormalizeEvent(raw RawEvent) (Event, error) {
	if !raw.Type.Valid() {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidType, raw.Type)
	}
	if !ValidCoordinates(raw.Lat, raw.Lon) {
		return Event{}, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinates, raw.Lat, raw.Lon)
	}
	lat, lon := RoundCoord(raw.Lat), RoundCoord(raw.Lon)
	if lat == 0 && lon == 0 {
		return Event{}, ErrNoLocation
	}
	if raw.Magnitude != nil && !ValidMagnitude(*raw.Magnitude) {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidMagnitude, *raw.Magnitude)
	}

	title := SanitizeText(raw.Title, MaxFieldLength)
	date := raw.Date
	if date.IsZero() {
		date = Now()
	}

	severity := raw.Severity
	if !severity.Valid() {
		severity = ClassifySeverity(raw.Type, raw.Magnitude, title)
	}
	category := raw.Category
	if !category.Valid() {
		category = ClassifyCategory(raw.Type)
	}

	return Event{
		ID:        GenerateID(raw.Type, lat, lon, title),
		Title:     title,
		Summary:   TruncateSummary(SanitizeText(raw.Summary, MaxFieldLength)),
		Lat:       lat,
		Lon:       lon,
		Type:      raw.Type,
		Category:  category,
		Severity:  severity,
		Date:      date.UTC(),
		Magnitude: raw.Magnitude,
		Source:    SanitizeText(raw.Source, MaxFieldLength),
		Country:   SanitizeText(raw.Country, MaxFieldLength),
		Region:    SanitizeText(raw.Region, MaxFieldLength),
		URL:       SanitizeText(raw.URL, MaxFieldLength),
	}, nil
}

// RoundCoord rounds a coordinate to two decimals, half away from zero.
// Negative zero is returned as zero.
func RoundCoord(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}

// IdentityKey returns the dedup key "<lat>_<lon>_<type>" for already rounded coordinates.
func IdentityKey(lat, lon float64, t EventType) string {
	return fmt.Sprintf("%.2f_%.2f_%s", lat, lon, t)
}

// Key returns the identity key of an event.
func (e Event) Key() string {
	return IdentityKey(e.Lat, e.Lon, e.Type)
}

// GenerateID builds the stable external identifier from type, rounded
// coordinates and a title slug.
func GenerateID(t EventType, lat, lon float64, title string) string {
	return fmt.Sprintf("%s_%.2f_%.2f_%s", t, lat, lon, titleSlug(title))
}

// titleSlug keeps the first ten ASCII letters and digits of the title.
func titleSlug(title string) string {
	var b strings.Builder
	for i := 0; i < len(title) && b.Len() < slugLength; i++ {
		c := title[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// SanitizeText strips angle brackets, trims whitespace and caps the result at
// limit runes.
func SanitizeText(s string, limit int) string {
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// TruncateSummary cuts text longer than MaxSummaryLength runes and appends "...".
func TruncateSummary(s string) string {
	if utf8.RuneCountInString(s) <= MaxSummaryLength {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:MaxSummaryLength])) + "..."
}

// ValidCoordinates reports whether lat/lon are finite WGS-84 degrees.
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ValidMagnitude reports whether m lies in [0, 10].
func ValidMagnitude(m float64) bool {
	return !math.IsNaN(m) && m >= 0 && m <= 10
}

// ValidURL reports whether s is an absolute http or https URL.
func ValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
