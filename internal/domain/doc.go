// Package domain models crisis events aggregated from public feeds.
//
// # Data Sources
//
// Events originate from independently shaped upstream feeds:
//
//	USGS       earthquake.usgs.gov GeoJSON summary feed (seismic)
//	ReliefWeb  api.reliefweb.int disasters list (humanitarian disasters, conflicts)
//	GDELT      api.gdeltproject.org DOC 2.0 article list (global news)
//	Curated    a small embedded set of reference crises that keeps the output
//	           non-empty when every network feed is down
//
// Each adapter maps its payload onto a [RawEvent]; [NormalizeEvent] turns that
// into the unified [Event] shape.
//
// # Coordinates
//
// Coordinates are WGS-84 degrees. USGS orders GeoJSON coordinates as
// [lon, lat, depth]; adapters swap them before building a RawEvent.
//
// Rounding uses math.Round(v*100)/100, which rounds half away from zero:
//
//	0.125  →  0.13
//	-0.125 → -0.13
//
// A rounded result of -0 is stored as 0 so that both sides of the equator and
// the prime meridian produce the same identity key. A rounded (0, 0) pair is the
// "no location data" sentinel and is rejected with [ErrNoLocation].
//
// # Identity Key and ID
//
// The identity key is "<lat>_<lon>_<type>" with both coordinates fixed to two
// decimals, e.g. "35.68_139.65_earthquake". Events that share a key are merged
// by [ShouldReplace] (see [Dedupe]).
//
// The event ID adds a title slug (the first ten ASCII letters and digits of the
// title): "earthquake_35.68_139.65_Earthquake". Because at most one event
// survives per identity key, IDs are unique in every snapshot.
//
// # Classification
//
// Severity is derived from type, magnitude and title keywords:
//
//	earthquake: ≥7.0 critical | ≥6.0 high | ≥4.0 medium | else low
//	conflict:   "war" or "invasion" critical | else high
//	disaster:   "major" or "severe" high | else medium
//	health:     "pandemic" or "outbreak" critical | else medium
//	other:      low
//
// Category is derived from type alone: earthquake and disaster are natural,
// conflict is conflict, health is health, protest is social, everything else
// falls back to natural. Curated events may pin either value.
//
// # Merge Policy
//
// On an identity-key collision the incoming event replaces the stored one when
// it is strictly newer, when it is critical and the stored one is not, or when it
// is high and the stored one is low. The rule is deliberately not a total order:
// high vs high, or medium vs low with equal dates, keep the stored event.
package domain
