// Package cache provides a TTL-bounded in-memory store for analysis
// results, keyed by input content hashes plus the analysis configuration.
// Identical concurrent requests collapse into one computation.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultMaxEntries = 100
	defaultTTL        = time.Hour
)

type entry struct {
	value   any
	expires time.Time
}

// Cache is a size- and TTL-bounded result cache. The zero value is not
// usable; create instances with New or NewWithConfig.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry

	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	group singleflight.Group
}

// New creates a Cache with the default bounds (100 entries, 1 hour TTL).
func New() *Cache {
	return NewWithConfig(defaultMaxEntries, defaultTTL)
}

// NewWithConfig creates a Cache with explicit bounds. Non-positive values
// fall back to the defaults.
func NewWithConfig(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Key builds a deterministic cache key from the content hashes of the input
// files and the analysis configuration. File order does not matter; any
// config difference produces a different key.
func Key(fileHashes []string, config any) (string, error) {
	sorted := append([]string(nil), fileHashes...)
	sort.Strings(sorted)

	payload, err := json.Marshal(struct {
		Config any      `json:"config"`
		Files  []string `json:"files"`
	}{Config: config, Files: sorted})
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// HashContent hashes raw file content for Key.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached value for key, or false on a miss. Expired entries
// count as misses and are dropped.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		c.mu.Lock()
		// Re-check under the write lock; Set may have refreshed the entry.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expires) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. When the cache is full, expired entries are
// dropped first, then the entry closest to expiry.
func (c *Cache) Set(key string, value any) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.entries[key] = &entry{value: value, expires: now.Add(c.ttl)}
}

// Do returns the cached value for key or computes it with fn, storing the
// result. Concurrent calls for the same key share one computation. The
// second return reports whether the value came from the cache.
func (c *Cache) Do(key string, fn func() (any, error)) (any, bool, error) {
	if value, ok := c.Get(key); ok {
		return value, true, nil
	}

	hit := false
	value, err, _ := c.group.Do(key, func() (any, error) {
		if value, ok := c.Get(key); ok {
			hit = true
			return value, nil
		}
		value, err := fn()
		if err != nil {
			return nil, err
		}
		c.Set(key, value)
		return value, nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, hit, nil
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLocked frees at least one slot. Callers must hold the write lock.
func (c *Cache) evictLocked(now time.Time) {
	for key, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}

	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, e := range c.entries {
		if !found || e.expires.Before(oldest) {
			oldestKey, oldest, found = key, e.expires, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
