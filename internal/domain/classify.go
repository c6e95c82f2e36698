package domain

import "strings"

// ClassifySeverity derives a severity from the event type, an optional magnitude,
// and title keywords. It is total: unknown types yield SeverityLow.
func ClassifySeverity(t EventType, magnitude *float64, title string) Severity {
	title = strings.ToLower(title)

	switch t {
	case TypeEarthquake:
		if magnitude == nil {
			return SeverityLow
		}
		switch m := *magnitude; {
		case m >= 7.0:
			return SeverityCritical
		case m >= 6.0:
			return SeverityHigh
		case m >= 4.0:
			return SeverityMedium
		default:
			return SeverityLow
		}
	case TypeConflict:
		if containsAny(title, "war", "invasion") {
			return SeverityCritical
		}
		return SeverityHigh
	case TypeDisaster:
		if containsAny(title, "major", "severe") {
			return SeverityHigh
		}
		return SeverityMedium
	case TypeHealth:
		if containsAny(title, "pandemic", "outbreak") {
			return SeverityCritical
		}
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ClassifyCategory maps an event type onto its coarse category.
// Types without a dedicated category fall back to CategoryNatural.
func ClassifyCategory(t EventType) Category {
	switch t {
	case TypeEarthquake, TypeDisaster:
		return CategoryNatural
	case TypeConflict:
		return CategoryConflict
	case TypeHealth:
		return CategoryHealth
	case TypeProtest:
		return CategorySocial
	default:
		return CategoryNatural
	}
}

// containsAny is a plain substring match, so "war" also matches "warning".
func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
