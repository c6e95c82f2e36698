package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"github.com/jonboulle/clockwork"
)

// MemoryStore is a thread-safe LRU Store with per-entry expiry.
type MemoryStore struct {
	maxEntries int
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key       string
	events    []domain.Event
	expiresAt time.Time
	prev      *entry
	next      *entry
}

// NewMemoryStore creates an LRU store holding at most maxEntries keys.
// A nil clock uses real time.
func NewMemoryStore(maxEntries int, clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		maxEntries: maxEntries,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]domain.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !s.clock.Now().Before(e.expiresAt) {
		delete(s.entries, key)
		s.remove(e)
		return nil, false, nil
	}
	s.moveToFront(e)
	return slices.Clone(e.events), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, events []domain.Event, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.clock.Now().Add(ttl)
	if e, ok := s.entries[key]; ok {
		e.events = slices.Clone(events)
		e.expiresAt = expiresAt
		s.moveToFront(e)
		return nil
	}

	e := &entry{key: key, events: slices.Clone(events), expiresAt: expiresAt}
	s.entries[key] = e
	s.addToFront(e)

	if len(s.entries) > s.maxEntries {
		s.evictTail()
	}
	return nil
}

// Len returns the number of stored keys, including expired ones not yet evicted.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) moveToFront(e *entry) {
	if e == s.head {
		return
	}
	s.remove(e)
	s.addToFront(e)
}

func (s *MemoryStore) addToFront(e *entry) {
	e.next = s.head
	e.prev = nil
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *MemoryStore) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
}

func (s *MemoryStore) evictTail() {
	if s.tail == nil {
		return
	}
	delete(s.entries, s.tail.key)
	s.remove(s.tail)
}
