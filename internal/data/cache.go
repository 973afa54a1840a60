package data

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultResultTTL applies when RESULT_CACHE_TTL is unset or invalid.
const DefaultResultTTL = time.Hour

// CacheEntry represents a cached analysis result
type CacheEntry[T any] struct {
	Value     T
	ExpiresAt time.Time
}

// ResultCache keeps analysis results in memory under generated ids so API clients can
// fetch them again. Entries expire after the TTL.
type ResultCache[T any] struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry[T]
	ttl   time.Duration
	stop  chan struct{}
	once  sync.Once
}

// ResultTTL reads RESULT_CACHE_TTL (a Go duration).
func ResultTTL() time.Duration {
	if ttlStr := os.Getenv("RESULT_CACHE_TTL"); ttlStr != "" {
		if parsed, err := time.ParseDuration(ttlStr); err == nil && parsed > 0 {
			return parsed
		}
	}
	return DefaultResultTTL
}

// NewResultCache starts a cache with a background sweep. Call Close to stop it.
func NewResultCache[T any](ttl time.Duration) *ResultCache[T] {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	c := &ResultCache[T]{
		store: make(map[string]*CacheEntry[T]),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	go c.cleanup(sweepInterval(ttl))
	return c
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl < 5*time.Minute {
		return ttl
	}
	return 5 * time.Minute
}

// Put stores v and returns its new id.
func (c *ResultCache[T]) Put(v T) string {
	id := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[id] = &CacheEntry[T]{
		Value:     v,
		ExpiresAt: time.Now().Add(c.ttl),
	}
	return id
}

// Get retrieves a cached result if available and not expired
func (c *ResultCache[T]) Get(id string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	if _, err := uuid.Parse(id); err != nil {
		return zero, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[id]
	if !exists || time.Now().After(entry.ExpiresAt) {
		return zero, false
	}
	return entry.Value, true
}

func (c *ResultCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Clear removes all entries from the cache
func (c *ResultCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]*CacheEntry[T])
}

// Close stops the background sweep.
func (c *ResultCache[T]) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanup periodically removes expired entries
func (c *ResultCache[T]) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep(time.Now())
		}
	}
}

func (c *ResultCache[T]) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.store {
		if now.After(entry.ExpiresAt) {
			delete(c.store, key)
		}
	}
}
