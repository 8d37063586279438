package memorycache

import (
	"container/list"
	"sync"
)

// SizeFunc returns the size of value in the store's unit (e.g. kilobytes).
type SizeFunc[V any] func(key string, value V) int

type entry[V any] struct {
	key   string
	value V
	size  int
}

// Store is a bounded in-process cache with least recently used eviction.
// Eviction runs synchronously inside Put and never performs I/O.
type Store[V any] struct {
	lock    sync.Mutex
	maxSize int
	size    int
	sizeOf  SizeFunc[V]
	entries map[string]*list.Element
	recency *list.List // front = most recently used
}

func New[V any](maxSize int, sizeOf func(key string, value V) int) *Store[V] {
	if sizeOf == nil {
		sizeOf = func(string, V) int { return 1 }
	}

	return &Store[V]{
		maxSize: maxSize,
		sizeOf:  sizeOf,
		entries: make(map[string]*list.Element),
		recency: list.New(),
	}
}

func (s *Store[V]) Get(key string) (value V, found bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	element, exists := s.entries[key]
	if !exists {
		return
	}

	s.recency.MoveToFront(element)
	return element.Value.(*entry[V]).value, true
}

// Put inserts value under key unless the key is already cached.
// Existing entries are never overwritten; false is returned in that case.
func (s *Store[V]) Put(key string, value V) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, exists := s.entries[key]; exists {
		return false
	}

	size := s.sizeOf(key, value)
	if size < 0 {
		size = 0
	}

	s.entries[key] = s.recency.PushFront(&entry[V]{key, value, size})
	s.size += size
	s.trimToSize()

	return true
}

func (s *Store[V]) Remove(key string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	element, exists := s.entries[key]
	if !exists {
		return false
	}

	s.removeElement(element)
	return true
}

func (s *Store[V]) Size() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.size
}

func (s *Store[V]) MaxSize() int {
	return s.maxSize
}

func (s *Store[V]) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.entries)
}

func (s *Store[V]) trimToSize() {
	for s.size > s.maxSize {
		oldest := s.recency.Back()
		if oldest == nil {
			return
		}

		s.removeElement(oldest)
	}
}

func (s *Store[V]) removeElement(element *list.Element) {
	e := s.recency.Remove(element).(*entry[V])
	delete(s.entries, e.key)
	s.size -= e.size
}
