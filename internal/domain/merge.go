package domain

import "slices"

// MergePolicy decides whether incoming replaces stored when both share an identity key.
type MergePolicy func(stored, incoming Event) bool

// ShouldReplace is the default MergePolicy. Incoming wins when it is strictly
// newer, when it is critical and stored is not, or when it is high and stored
// is low. Any other pairing keeps stored.
func ShouldReplace(stored, incoming Event) bool {
	return incoming.Date.After(stored.Date) ||
		(incoming.Severity == SeverityCritical && stored.Severity != SeverityCritical) ||
		(incoming.Severity == SeverityHigh && stored.Severity == SeverityLow)
}

// Dedupe collapses events sharing an identity key using policy. A replacement
// takes over the position of the first event seen for that key. It returns the
// surviving events and the number of collisions.
func Dedupe(events []Event, policy MergePolicy) ([]Event, int) {
	if policy == nil {
		policy = ShouldReplace
	}

	index := make(map[string]int, len(events))
	out := make([]Event, 0, len(events))
	collisions := 0

	for _, e := range events {
		key := e.Key()
		if i, ok := index[key]; ok {
			collisions++
			if policy(out[i], e) {
				out[i] = e
			}
			continue
		}
		index[key] = len(out)
		out = append(out, e)
	}
	return out, collisions
}

// SortNewestFirst orders events by date descending. Equal dates keep their
// relative order.
func SortNewestFirst(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		return b.Date.Compare(a.Date)
	})
}
