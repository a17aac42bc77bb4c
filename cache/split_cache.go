// Package cache memoises statement batches returned by the splitting service.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is used when a non-positive size is requested.
const DefaultSize = 256

type entry struct {
	text       string
	statements []string
}

// SplitCache maps SQL text to the statements it was split into.
type SplitCache struct {
	cache *lru.Cache[uint64, entry]
	mu    sync.Mutex
}

// NewSplitCache creates a cache holding at most size batches.
func NewSplitCache(size int) *SplitCache {
	if size <= 0 {
		size = DefaultSize
	}
	c, _ := lru.New[uint64, entry](size)
	return &SplitCache{cache: c}
}

// Get returns a copy of the statements cached for text.
func (s *SplitCache) Get(text string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.cache.Get(Fingerprint(text))
	if !ok || e.text != text {
		return nil, false
	}
	return append([]string(nil), e.statements...), true
}

// Set stores the statements for text.
func (s *SplitCache) Set(text string, statements []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Add(Fingerprint(text), entry{
		text:       text,
		statements: append([]string(nil), statements...),
	})
}

// Len returns the number of cached batches.
func (s *SplitCache) Len() int {
	return s.cache.Len()
}

// Purge drops every cached batch.
func (s *SplitCache) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
}
