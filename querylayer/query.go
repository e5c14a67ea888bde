// Package querylayer stores query-result sets — fingerprint to ordered
// key-list plus a completeness flag — and supports invalidating them by
// contained item key or by location prefix. It never holds an entity
// payload itself: only CanonicalKeyHash strings, so an item-layer eviction
// can never leave a dangling pointer here, only a reference the next
// lookup discovers is stale and invalidates on the spot.
package querylayer

import (
	"sync"
	"time"

	"github.com/arjunmehta/entitycache/keys"
)

// Result is one cached query's outcome.
type Result struct {
	ItemKeys   []string // CanonicalKeyHash values, in result order
	IsComplete bool
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

func (r Result) isFreshAt(t time.Time) bool {
	return t.Before(r.ExpiresAt)
}

// entry pairs a stored Result with the location path its fingerprint was
// computed from, so invalidateLocation can match without re-deriving it
// from the fingerprint string.
type entry struct {
	result    Result
	locations []keys.LocationCoordinate
}

// QueryLayer is the authoritative store of Result by fingerprint, guarded
// by a single RWMutex for the same reasons itemlayer.ItemLayer uses one:
// invalidation sweeps need a consistent view of the whole map.
type QueryLayer struct {
	mu      sync.RWMutex
	results map[keys.QueryFingerprint]entry
}

func New() *QueryLayer {
	return &QueryLayer{results: make(map[keys.QueryFingerprint]entry)}
}

// GetResult returns fp's Result iff present and unexpired.
func (q *QueryLayer) GetResult(fp keys.QueryFingerprint) (Result, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	e, ok := q.results[fp]
	if !ok || !e.result.isFreshAt(time.Now()) {
		return Result{}, false
	}
	return e.result, true
}

// SetResult stores result under fp, recording locations for later
// location-prefix invalidation.
func (q *QueryLayer) SetResult(fp keys.QueryFingerprint, result Result, locations []keys.LocationCoordinate) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.results[fp] = entry{result: result, locations: append([]keys.LocationCoordinate(nil), locations...)}
}

// InvalidateQueriesContainingItem removes every Result whose ItemKeys
// references hash.
func (q *QueryLayer) InvalidateQueriesContainingItem(hash string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for fp, e := range q.results {
		for _, k := range e.result.ItemKeys {
			if k == hash {
				delete(q.results, fp)
				break
			}
		}
	}
}

// InvalidateLocation removes every Result whose recorded location path is
// prefixed by locations. An empty locations slice invalidates every
// root-scoped (primary-only) query.
func (q *QueryLayer) InvalidateLocation(locations []keys.LocationCoordinate) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for fp, e := range q.results {
		if locationPrefixMatch(locations, e.locations) {
			delete(q.results, fp)
		}
	}
}

func locationPrefixMatch(prefix, full []keys.LocationCoordinate) bool {
	if len(prefix) == 0 {
		return len(full) == 0
	}
	if len(prefix) > len(full) {
		return false
	}
	for i, p := range prefix {
		if p != full[i] {
			return false
		}
	}
	return true
}

// Clear drops every stored Result.
func (q *QueryLayer) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.results = make(map[keys.QueryFingerprint]entry)
}

// Size returns the number of cached query results, a diagnostic used by
// tests and operators to observe query-layer occupancy.
func (q *QueryLayer) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.results)
}
