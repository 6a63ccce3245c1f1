package translate

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// Cache hands out one translator per language pair, creating it on first use.
// Entries are never evicted; the key space is bounded by the language table.
type Cache struct {
	factory Factory
	mu      sync.Mutex
	handles map[string]Translator
	created int
}

// NewCache creates an empty cache backed by f.
func NewCache(f Factory) *Cache {
	return &Cache{factory: f, handles: make(map[string]Translator)}
}

// Get returns the cached translator for source->target or creates it.
// Concurrent callers for the same pair share a single handle.
func (c *Cache) Get(ctx context.Context, source, target string) (Translator, error) {
	key := Key(source, target)

	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.handles[key]; ok {
		return t, nil
	}

	t, err := c.factory.NewTranslator(ctx, source, target)
	if err != nil {
		return nil, err
	}
	c.handles[key] = t
	c.created++
	slog.Debug("translator created", "key", key, "cached", len(c.handles))
	return t, nil
}

// Len returns the number of live handles.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}

// Created returns how many handles were created over the cache's lifetime.
func (c *Cache) Created() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

// Keys returns the cached pairs in sorted order.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.handles))
	for k := range c.handles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close releases every handle and empties the cache. The cache stays usable.
func (c *Cache) Close() error {
	c.mu.Lock()
	handles := c.handles
	c.handles = make(map[string]Translator)
	c.mu.Unlock()

	var errs []error
	for key, t := range handles {
		if err := t.Close(); err != nil {
			slog.Warn("translator close failed", "key", key, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
