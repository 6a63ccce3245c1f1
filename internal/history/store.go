// Package history keeps a bounded log of recent translations for the overlay API.
package history

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/autotranslator/internal/translate"
)

// DefaultMaxEntries bounds the in-memory log.
const DefaultMaxEntries = 50

// Store interface for history operations.
type Store interface {
	Add(r translate.Result)
	Recent(n int) []translate.Result
	Since(d time.Duration) []translate.Result
	Len() int
}

// MemoryStore implements in-memory history, newest last.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []translate.Result
	maxSize int
}

// NewStore creates a history holding at most maxEntries results.
func NewStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		entries: make([]translate.Result, 0, maxEntries),
		maxSize: maxEntries,
	}
}

// Add appends a result, dropping the oldest beyond capacity.
func (s *MemoryStore) Add(r translate.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, r)
	if len(s.entries) > s.maxSize {
		s.entries = s.entries[len(s.entries)-s.maxSize:]
	}
}

// Recent returns up to n of the newest results, oldest first. n <= 0 means all.
func (s *MemoryStore) Recent(n int) []translate.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if n > 0 && n < len(s.entries) {
		start = len(s.entries) - n
	}
	result := make([]translate.Result, len(s.entries)-start)
	copy(result, s.entries[start:])
	return result
}

// Since returns results produced within the last d.
func (s *MemoryStore) Since(d time.Duration) []translate.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-d)
	var result []translate.Result
	for _, r := range s.entries {
		if !r.At.Before(cutoff) {
			result = append(result, r)
		}
	}
	return result
}

// Len returns the number of stored results.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
