// Package syncx provides the shared-state primitives used between the pipeline and the overlay.
package syncx

import "sync"

// Cell is a single-writer, many-reader observable value.
// Reads return a consistent snapshot; the last Set wins.
type Cell[T any] struct {
	mu       sync.RWMutex
	value    T
	version  uint64
	watchers map[chan struct{}]struct{}
}

// NewCell creates a cell holding initial at version 0.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial, watchers: make(map[chan struct{}]struct{})}
}

// Get returns the current value (T should be a value type or immutable).
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Snapshot returns the current value together with its version.
func (c *Cell[T]) Snapshot() (T, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.version
}

// Set replaces the value, bumps the version and wakes watchers.
func (c *Cell[T]) Set(v T) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	return c.changedLocked()
}

// Update applies fn to the value under the write lock.
func (c *Cell[T]) Update(fn func(*T)) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.value)
	return c.changedLocked()
}

func (c *Cell[T]) changedLocked() uint64 {
	c.version++
	for ch := range c.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return c.version
}

// Watchers returns the number of active watchers.
func (c *Cell[T]) Watchers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.watchers)
}

// Watch returns a coalescing change channel; pending wakeups collapse into one.
// Call the returned func to stop watching.
func (c *Cell[T]) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, ch)
			c.mu.Unlock()
		})
	}
}
