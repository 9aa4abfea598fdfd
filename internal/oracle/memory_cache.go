package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/example/interview-scheduler/internal/interview"
)

// MemoryCache is an in-process TTL cache bounded by entry count.
type MemoryCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	maxEntries int
	entries    map[string]memoryCacheEntry
}

type memoryCacheEntry struct {
	suggestions []interview.Suggestion
	expiresAt   time.Time
}

// NewMemoryCache creates a cache holding at most maxEntries lists.
func NewMemoryCache(maxEntries int, now func() time.Time) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		now:        now,
		maxEntries: maxEntries,
		entries:    make(map[string]memoryCacheEntry),
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]interview.Suggestion, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return cloneSuggestions(entry.suggestions), true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(ctx context.Context, key string, suggestions []interview.Suggestion, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	cloned := cloneSuggestions(suggestions)
	expiry := c.now().Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = memoryCacheEntry{suggestions: cloned, expiresAt: expiry}
	return nil
}

// Len reports the number of live entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// evictOneLocked drops the entry closest to expiry.
func (c *MemoryCache) evictOneLocked() {
	var (
		victim string
		oldest time.Time
	)
	for key, entry := range c.entries {
		if victim == "" || entry.expiresAt.Before(oldest) {
			victim, oldest = key, entry.expiresAt
		}
	}
	delete(c.entries, victim)
}
