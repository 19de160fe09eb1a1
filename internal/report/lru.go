package report

import (
	"fmt"
	"sync"
)

// LRUStore is an in-memory LRU cache of recent runs. Runs evicted from
// the cache are gone.
type LRUStore struct {
	mu  sync.Mutex
	cap int

	// Doubly-linked list for LRU ordering (most recent at head).
	head, tail *lruEntry
	items      map[string]*lruEntry
}

type lruEntry struct {
	key    string
	result *RunResult
	prev   *lruEntry
	next   *lruEntry
}

// NewLRUStore creates an LRU cache with the given capacity.
// Capacity must be >= 1.
func NewLRUStore(cap int) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{
		cap:   cap,
		items: make(map[string]*lruEntry, cap),
	}
}

// Save writes the result to the cache, evicting the least recent run when
// the cache is full.
func (s *LRUStore) Save(result *RunResult) error {
	if result == nil || result.ID == "" {
		return fmt.Errorf("saving run: missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(result.ID, result)
	return nil
}

// Load returns the cached run and marks it most recent.
func (s *LRUStore) Load(runID string) (*RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[runID]
	if !ok {
		return nil, fmt.Errorf("loading run %s: %w", runID, ErrNotFound)
	}
	s.moveToFront(e)
	return e.result, nil
}

// put inserts or refreshes key. Callers hold mu.
func (s *LRUStore) put(key string, result *RunResult) {
	if e, ok := s.items[key]; ok {
		e.result = result
		s.moveToFront(e)
		return
	}
	e := &lruEntry{key: key, result: result}
	s.items[key] = e
	s.pushFront(e)
	if len(s.items) > s.cap {
		s.evict()
	}
}

func (s *LRUStore) pushFront(e *lruEntry) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *LRUStore) moveToFront(e *lruEntry) {
	if s.head == e {
		return
	}
	s.remove(e)
	s.pushFront(e)
}

func (s *LRUStore) remove(e *lruEntry) {
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
	e.prev = nil
	e.next = nil
}

func (s *LRUStore) evict() {
	if s.tail == nil {
		return
	}
	e := s.tail
	s.remove(e)
	delete(s.items, e.key)
}
