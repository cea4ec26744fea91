package profitshare

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is used when a non-positive size is given to NewCachedBackend.
const DefaultCacheSize = 1024

// CachedBackend is a read-through LRU cache in front of another Backend.
// Writes go to the underlying backend first and then refresh the cache.
type CachedBackend struct {
	mu    sync.Mutex
	inner Backend
	cache *lru.Cache[Key, *Rule]

	hits   uint64
	misses uint64
}

// Compile-time interface check.
var _ Backend = (*CachedBackend)(nil)

// NewCachedBackend wraps inner with an LRU cache holding up to size rules.
func NewCachedBackend(inner Backend, size int) (*CachedBackend, error) {
	if inner == nil {
		return nil, ErrNilParam
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[Key, *Rule](size)
	if err != nil {
		return nil, err
	}
	return &CachedBackend{inner: inner, cache: c}, nil
}

// Get serves from cache, falling back to the inner backend on a miss.
// The lock is held across the fallback read so a concurrent Put cannot be
// overwritten by a stale value.
func (b *CachedBackend) Get(key Key) (*Rule, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r, ok := b.cache.Get(key); ok {
		b.hits++
		return r.Clone(), nil
	}
	b.misses++

	r, err := b.inner.Get(key)
	if err != nil {
		return nil, err
	}
	b.cache.Add(key, r.Clone())
	return r, nil
}

// Put writes through to the inner backend and refreshes the cached entry.
func (b *CachedBackend) Put(rule *Rule) error {
	if rule == nil {
		return ErrNilParam
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.inner.Put(rule); err != nil {
		// Inner state is unknown after a failed write.
		b.cache.Remove(rule.Key)
		return err
	}
	b.cache.Add(rule.Key, rule.Clone())
	return nil
}

// List always reads the inner backend.
func (b *CachedBackend) List() ([]*Rule, error) { return b.inner.List() }

// Stats returns cache hit and miss counts.
func (b *CachedBackend) Stats() (hits, misses uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits, b.misses
}

// Len returns the number of cached rules.
func (b *CachedBackend) Len() int { return b.cache.Len() }
