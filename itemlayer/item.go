// Package itemlayer stores individual entities keyed by their canonical
// key hash, and drives the eviction engine's size accounting on every
// insert, delete, and access. It is the sole owner of entity payloads; the
// query layer never holds one directly, only a weak reference by hash, so
// an eviction here is always sufficient to prevent a stale query result
// from resurrecting a payload that no longer exists.
package itemlayer

import (
	"sync"
	"time"

	"github.com/arjunmehta/entitycache/eviction"
)

// CachedItem is the unit of storage: a payload plus the timestamps needed
// for TTL arithmetic. createdAt/expiresAt are recomputed on every Set, so a
// refreshed value always gets a fresh TTL window.
type CachedItem[V any] struct {
	Data      V
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (c CachedItem[V]) isFreshAt(t time.Time) bool {
	return t.Before(c.ExpiresAt)
}

// ItemLayer is the authoritative in-process store of CachedItem[V],
// guarded by a single RWMutex: ordered eviction and atomic evict-then-
// insert need a coarse lock, not a sync.Map.
type ItemLayer[V any] struct {
	mu        sync.RWMutex
	items     map[string]CachedItem[V]
	engine    *eviction.Engine
	estimator SizeEstimator[V]
}

// New builds an ItemLayer backed by the given eviction engine and size
// estimator.
func New[V any](engine *eviction.Engine, estimator SizeEstimator[V]) *ItemLayer[V] {
	return &ItemLayer[V]{
		items:     make(map[string]CachedItem[V]),
		engine:    engine,
		estimator: estimator,
	}
}

// Get returns the value for hash iff present and unexpired. An expired
// entry found during the lookup is removed in the same call, a lazy-
// expire-on-read Get rather than a background sweeper.
func (l *ItemLayer[V]) Get(hash string) (V, bool) {
	l.mu.RLock()
	item, ok := l.items[hash]
	l.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	now := time.Now()
	if !item.isFreshAt(now) {
		l.Delete(hash)
		return zero, false
	}

	l.engine.RecordAccess(hash)
	return item.Data, true
}

// GetRaw returns whatever is resident for hash, fresh or not, without
// touching eviction metadata. Used by the stale-while-revalidate
// coordinator to read a value it intends to serve stale.
func (l *ItemLayer[V]) GetRaw(hash string) (CachedItem[V], bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	item, ok := l.items[hash]
	return item, ok
}

// Set inserts or replaces hash's entry with a fresh TTL window, notifies
// the eviction engine, and removes any keys the engine selected as victims
// in the same operation — so a caller never observes the cache briefly
// over its configured limits.
func (l *ItemLayer[V]) Set(hash string, value V, ttl time.Duration) {
	size := l.estimator.EstimateSize(value)
	now := time.Now()
	item := CachedItem[V]{Data: value, CreatedAt: now, ExpiresAt: now.Add(ttl)}

	l.mu.Lock()
	l.items[hash] = item
	evicted := l.engine.RecordAdd(hash, size)
	for _, v := range evicted {
		delete(l.items, v)
	}
	l.mu.Unlock()
}

// Delete removes hash's entry, if any, and notifies the eviction engine.
func (l *ItemLayer[V]) Delete(hash string) {
	l.mu.Lock()
	_, existed := l.items[hash]
	delete(l.items, hash)
	l.mu.Unlock()

	if existed {
		l.engine.RecordRemove(hash)
	}
}

// Clear drops every entry and all eviction metadata.
func (l *ItemLayer[V]) Clear() {
	l.mu.Lock()
	l.items = make(map[string]CachedItem[V])
	l.mu.Unlock()
	l.engine.Clear()
}

// Size reports the current item count and the engine's tracked byte total.
func (l *ItemLayer[V]) Size() (itemCount uint64, sizeBytes uint64) {
	return l.engine.CurrentSize()
}

// ExtendTTL pushes hash's expiry to now+ttl without re-fetching or
// changing its payload, used by stale-while-revalidate to avoid hammering
// a failing origin after a background refresh error.
func (l *ItemLayer[V]) ExtendTTL(hash string, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	item, ok := l.items[hash]
	if !ok {
		return
	}
	item.ExpiresAt = time.Now().Add(ttl)
	l.items[hash] = item
}

// Has reports whether hash currently resolves to a fresh entry, without
// returning the payload or touching access metadata.
func (l *ItemLayer[V]) Has(hash string) bool {
	l.mu.RLock()
	item, ok := l.items[hash]
	l.mu.RUnlock()
	return ok && item.isFreshAt(time.Now())
}
