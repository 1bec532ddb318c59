package geocache

import (
	"context"
	"sync"
	"time"
)

// Entry is a cached resolution with the time it was recorded.
type Entry struct {
	Address    string    `json:"address"`
	InsertedAt time.Time `json:"inserted_at"`
}

// Store holds cache entries by key. Freshness is decided by the Cache, not the store.
// Implementations must be safe for concurrent use; a backend fault is reported as a miss.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool)
	Set(ctx context.Context, key string, e Entry)
}

// MemoryStore is an in-process Store. With maxEntries <= 0 it grows without bound;
// otherwise it evicts the least recently used entry once full.
type MemoryStore struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*node
	head       *node // most recently used
	tail       *node // least recently used
}

type node struct {
	key   string
	value Entry
	prev  *node
	next  *node
}

// NewMemoryStore creates an in-process store. See MemoryStore for the meaning of maxEntries.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		maxEntries: maxEntries,
		entries:    make(map[string]*node),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	s.moveToFront(n)
	return n.value, true
}

func (s *MemoryStore) Set(_ context.Context, key string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.entries[key]; ok {
		n.value = e
		s.moveToFront(n)
		return
	}

	n := &node{key: key, value: e}
	s.entries[key] = n
	s.addToFront(n)

	if s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		s.evictTail()
	}
}

// Len returns the number of entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) moveToFront(n *node) {
	if n == s.head {
		return
	}
	s.remove(n)
	s.addToFront(n)
}

func (s *MemoryStore) addToFront(n *node) {
	n.next = s.head
	n.prev = nil
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

func (s *MemoryStore) remove(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		s.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		s.tail = n.prev
	}
}

func (s *MemoryStore) evictTail() {
	if s.tail == nil {
		return
	}
	delete(s.entries, s.tail.key)
	s.remove(s.tail)
}
