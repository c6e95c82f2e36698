// Package geo provides an R-tree index over a snapshot's events for bounding
// box and radius queries.
package geo

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"github.com/dhconnelly/rtreego"
)

const (
	tolerance   = 0.01
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
	earthRadius = 6371.0 // km

	// minExtent keeps degenerate query rectangles valid for rtreego.
	minExtent = 1e-9
)

var ErrInvalidBox = errors.New("invalid bounding box")

// item wraps an event position for R-tree indexing.
type item struct {
	pos  int
	lat  float64
	lon  float64
	rect *rtreego.Rect
}

func (it *item) Bounds() *rtreego.Rect {
	return it.rect
}

// Index is an immutable spatial index built from one list of events.
// Query results keep the order of the input list.
type Index struct {
	tree   *rtreego.Rtree
	events []domain.Event
}

// NewIndex indexes events by their (lat, lon).
func NewIndex(events []domain.Event) *Index {
	items := make([]rtreego.Spatial, len(events))
	for i, ev := range events {
		items[i] = &item{
			pos:  i,
			lat:  ev.Lat,
			lon:  ev.Lon,
			rect: rtreego.Point{ev.Lat, ev.Lon}.ToRect(tolerance),
		}
	}
	return &Index{
		tree:   rtreego.NewTree(dimensions, minChildren, maxChildren, items...),
		events: events,
	}
}

// SearchBox returns events inside the box with corners (minLat, minLon) and
// (maxLat, maxLon), inclusive.
func (x *Index) SearchBox(minLat, minLon, maxLat, maxLon float64) ([]domain.Event, error) {
	if !domain.ValidCoordinates(minLat, minLon) || !domain.ValidCoordinates(maxLat, maxLon) {
		return nil, fmt.Errorf("%w: corners out of range", ErrInvalidBox)
	}
	if minLat > maxLat || minLon > maxLon {
		return nil, fmt.Errorf("%w: min corner exceeds max corner", ErrInvalidBox)
	}

	bounds, err := queryRect(minLat, minLon, maxLat, maxLon)
	if err != nil {
		return nil, err
	}

	return x.collect(bounds, func(it *item) bool {
		return it.lat >= minLat && it.lat <= maxLat && it.lon >= minLon && it.lon <= maxLon
	}), nil
}

// SearchRadius returns events within radiusKm great-circle distance of the center.
func (x *Index) SearchRadius(lat, lon, radiusKm float64) ([]domain.Event, error) {
	if !domain.ValidCoordinates(lat, lon) {
		return nil, fmt.Errorf("%w: center out of range", ErrInvalidBox)
	}
	if radiusKm <= 0 || math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) {
		return nil, fmt.Errorf("%w: radius must be positive", ErrInvalidBox)
	}

	latDeg := radiusKm / earthRadius * (180 / math.Pi)
	minLat, maxLat := math.Max(lat-latDeg, -90), math.Min(lat+latDeg, 90)

	// Longitude degrees shrink toward the poles; fall back to the full range
	// near them or when the box would cross the antimeridian.
	minLon, maxLon := -180.0, 180.0
	if cos := math.Cos(lat * math.Pi / 180); cos > 1e-6 {
		lonDeg := latDeg / cos
		if lon-lonDeg >= -180 && lon+lonDeg <= 180 {
			minLon, maxLon = lon-lonDeg, lon+lonDeg
		}
	}

	bounds, err := queryRect(minLat, minLon, maxLat, maxLon)
	if err != nil {
		return nil, err
	}

	return x.collect(bounds, func(it *item) bool {
		return Distance(lat, lon, it.lat, it.lon) <= radiusKm
	}), nil
}

func (x *Index) collect(bounds *rtreego.Rect, keep func(*item) bool) []domain.Event {
	results := x.tree.SearchIntersect(bounds)

	positions := make([]int, 0, len(results))
	for _, r := range results {
		it, ok := r.(*item)
		if !ok || !keep(it) {
			continue
		}
		positions = append(positions, it.pos)
	}
	slices.Sort(positions)

	out := make([]domain.Event, len(positions))
	for i, p := range positions {
		out[i] = x.events[p]
	}
	return out
}

func queryRect(minLat, minLon, maxLat, maxLon float64) (*rtreego.Rect, error) {
	rect, err := rtreego.NewRect(
		rtreego.Point{minLat, minLon},
		[]float64{math.Max(maxLat-minLat, minExtent), math.Max(maxLon-minLon, minExtent)},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBox, err)
	}
	return rect, nil
}

// Distance returns the haversine distance between two points in kilometers.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	dLat := lat2Rad - lat1Rad
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
