package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/arjunmehta/entitycache/keys"
	"github.com/arjunmehta/entitycache/querylayer"
	"github.com/arjunmehta/entitycache/warming"
)

// storeItem derives hash from v via the configured KeyFunc and writes it
// into the item layer under the item-type's effective TTL, returning the
// hash so callers can thread it into a QueryResult's item-key list.
func (c *Cache[V]) storeItem(v V) (string, error) {
	return c.storeItemWithTTL(v, c.ttl.CalculateItemTTL(c.cfg.ItemType).TTL)
}

func (c *Cache[V]) storeItemWithTTL(v V, ttl time.Duration) (string, error) {
	k, err := c.cfg.KeyFunc(v)
	if err != nil {
		return "", err
	}
	hash, err := keys.CanonicalKeyHash(k)
	if err != nil {
		return "", err
	}
	c.items.Set(hash, v, ttl)
	return hash, nil
}

// WarmFetcher builds a warming.Operation.Fetcher that forces an ItemApi
// fetch for key and re-caches the result, scaling the item's normal TTL by
// the running operation's TTLMultiplier (via warming.MultiplierFromContext)
// when one is set. Registering it as an Operation.Fetcher is the intended
// way to let CacheWarmer populate this cache.
func (c *Cache[V]) WarmFetcher(key keys.Key) func(ctx context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		v, err := c.api.Get(ctx, key)
		if err != nil {
			return 0, err
		}
		ttl := c.ttl.CalculateItemTTL(c.cfg.ItemType).TTL
		if m, ok := warming.MultiplierFromContext(ctx); ok {
			ttl = time.Duration(float64(ttl) * m)
		}
		if _, err := c.storeItemWithTTL(v, ttl); err != nil {
			return 0, err
		}
		return 1, nil
	}
}

func (c *Cache[V]) fetchFn(key keys.Key) func(ctx context.Context) (V, error) {
	return func(ctx context.Context) (V, error) {
		return c.api.Get(ctx, key)
	}
}

// Get resolves key, serving from cache (fresh or stale-while-revalidate)
// and falling back to the ItemApi on a cold miss, with concurrent cold
// misses for the same key deduplicated by the in-flight registry.
func (c *Cache[V]) Get(ctx context.Context, key keys.Key) (V, error) {
	var zero V
	hash, err := keys.CanonicalKeyHash(key)
	if err != nil {
		return zero, err
	}

	if c.cfg.BypassCache {
		return c.fetchAndStore(ctx, key, hash)
	}

	ttlCalc := c.ttl.CalculateItemTTL(c.cfg.ItemType)

	if _, ok := c.items.GetRaw(hash); !ok {
		v, _, err := c.inflight.Do(hash, func() (V, error) {
			return c.fetchAndStore(ctx, key, hash)
		})
		if err == nil {
			atomic.AddUint64(&c.misses, 1)
		}
		return v, err
	}

	atomic.AddUint64(&c.hits, 1)
	return c.swr.Get(ctx, hash, ttlCalc.TTL, c.fetchFn(key))
}

func (c *Cache[V]) fetchAndStore(ctx context.Context, key keys.Key, hash string) (V, error) {
	var zero V
	v, err := c.api.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	ttl := c.ttl.CalculateItemTTL(c.cfg.ItemType).TTL
	c.items.Set(hash, v, ttl)
	return v, nil
}

// Retrieve returns whatever is resident for key without triggering a
// background refresh, falling back to Get on a miss. bypassCache forces an
// API round-trip regardless of cache state.
func (c *Cache[V]) Retrieve(ctx context.Context, key keys.Key, bypassCache bool) (V, error) {
	hash, err := keys.CanonicalKeyHash(key)
	if err != nil {
		var zero V
		return zero, err
	}
	if !bypassCache && !c.cfg.BypassCache {
		if v, ok := c.items.Get(hash); ok {
			atomic.AddUint64(&c.hits, 1)
			return v, nil
		}
	}
	return c.Get(ctx, key)
}

// List resolves a query over every matching entity. A cached complete
// result is served only while every referenced item is still fresh; any
// missing item invalidates the cached result and triggers a refetch.
func (c *Cache[V]) List(ctx context.Context, params map[string]interface{}, locations []keys.LocationCoordinate, opts ListOptions) (ListResult[V], error) {
	kind := keys.QueryKind{Base: "all"}
	fp, err := keys.HashQuery(c.cfg.ItemType, kind, params, locations, nil)
	if err != nil {
		return ListResult[V]{}, err
	}

	if !c.cfg.BypassCache {
		if _, items, ok := c.hydrateQuery(fp); ok {
			return ListResult[V]{Items: items, Returned: len(items)}, nil
		}
	}

	res, err := c.api.List(ctx, params, locations, opts)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			res = ListResult[V]{}
		} else {
			return ListResult[V]{}, err
		}
	}

	isComplete := opts.Limit == nil && opts.Offset == nil
	if err := c.cacheQueryItems(fp, res.Items, isComplete, locations); err != nil {
		return ListResult[V]{}, err
	}

	res.Returned = len(res.Items)
	return res, nil
}

// hydrateQuery attempts to serve fp entirely from the item layer. It
// returns ok=false (and invalidates fp) the moment any referenced key is
// no longer resident, so a dangling reference can never resurface a
// deleted item.
func (c *Cache[V]) hydrateQuery(fp keys.QueryFingerprint) (querylayer.Result, []V, bool) {
	result, ok := c.queries.GetResult(fp)
	if !ok {
		return querylayer.Result{}, nil, false
	}
	items := make([]V, 0, len(result.ItemKeys))
	for _, h := range result.ItemKeys {
		v, ok := c.items.Get(h)
		if !ok {
			c.queries.InvalidateQueriesContainingItem(h)
			return result, nil, false
		}
		items = append(items, v)
	}
	return result, items, true
}

func (c *Cache[V]) cacheQueryItems(fp keys.QueryFingerprint, items []V, isComplete bool, locations []keys.LocationCoordinate) error {
	hashes := make([]string, 0, len(items))
	for _, v := range items {
		h, err := c.storeItem(v)
		if err != nil {
			return err
		}
		hashes = append(hashes, h)
	}
	qTTL := c.ttl.CalculateQueryTTL(isComplete).TTL
	now := time.Now()
	c.queries.SetResult(fp, querylayer.Result{
		ItemKeys:   hashes,
		IsComplete: isComplete,
		CreatedAt:  now,
		ExpiresAt:  now.Add(qTTL),
	}, locations)
	return nil
}

// One resolves a query of expected cardinality one. Both a found item and
// an explicit not-found answer are cached under the query fingerprint, so
// repeated "not found" lookups are served from cache until expiry.
func (c *Cache[V]) One(ctx context.Context, params map[string]interface{}, locations []keys.LocationCoordinate) (V, bool, error) {
	var zero V
	kind := keys.QueryKind{Base: "one"}
	fp, err := keys.HashQuery(c.cfg.ItemType, kind, params, locations, nil)
	if err != nil {
		return zero, false, err
	}

	if !c.cfg.BypassCache {
		if result, ok := c.queries.GetResult(fp); ok {
			if len(result.ItemKeys) == 0 {
				return zero, false, nil
			}
			if v, ok := c.items.Get(result.ItemKeys[0]); ok {
				return v, true, nil
			}
			c.queries.InvalidateQueriesContainingItem(result.ItemKeys[0])
		}
	}

	v, found, err := c.api.One(ctx, params, locations)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return zero, false, err
		}
		v, found = zero, false
	}
	if err := c.cacheQueryItems(fp, valueSlice(v, found), true, locations); err != nil {
		return zero, false, err
	}
	return v, found, nil
}

func valueSlice[V any](v V, found bool) []V {
	if !found {
		return nil
	}
	return []V{v}
}

// Create forwards to the ItemApi, caches the returned entity, and clears
// the query layer: a new entity may change the completeness of every
// cached list.
func (c *Cache[V]) Create(ctx context.Context, partial V, locations []keys.LocationCoordinate) (V, error) {
	var zero V
	v, err := c.api.Create(ctx, partial, locations)
	if err != nil {
		return zero, err
	}
	if _, err := c.storeItem(v); err != nil {
		return zero, err
	}
	c.queries.Clear()
	return v, nil
}

// Update forwards to the ItemApi, re-caches the returned entity, and
// invalidates every cached query that referenced key.
func (c *Cache[V]) Update(ctx context.Context, key keys.Key, patch interface{}) (V, error) {
	var zero V
	v, err := c.api.Update(ctx, key, patch)
	if err != nil {
		return zero, err
	}
	hash, err := c.storeItem(v)
	if err != nil {
		return zero, err
	}
	c.queries.InvalidateQueriesContainingItem(hash)
	return v, nil
}

// Remove forwards to the ItemApi, deletes the item locally, and
// invalidates every cached query that referenced it.
func (c *Cache[V]) Remove(ctx context.Context, key keys.Key) error {
	hash, err := keys.CanonicalKeyHash(key)
	if err != nil {
		return err
	}
	if err := c.api.Remove(ctx, key); err != nil {
		return err
	}
	c.items.Delete(hash)
	c.queries.InvalidateQueriesContainingItem(hash)
	return nil
}

// Set writes value into the cache locally (no ItemApi call) and
// invalidates every cached query that referenced its key.
func (c *Cache[V]) Set(key keys.Key, value V) error {
	hash, err := keys.CanonicalKeyHash(key)
	if err != nil {
		return err
	}
	ttl := c.ttl.CalculateItemTTL(c.cfg.ItemType).TTL
	c.items.Set(hash, value, ttl)
	c.queries.InvalidateQueriesContainingItem(hash)
	return nil
}

// Action forwards a named per-entity action to the ItemApi. Any entities
// the action reports as affected are re-cached; the query layer is
// conservatively cleared in full, since an action's side effects on list
// completeness are not knowable in general.
func (c *Cache[V]) Action(ctx context.Context, key keys.Key, name string, body interface{}) (interface{}, error) {
	result, affected, err := c.api.Action(ctx, key, name, body)
	if err != nil {
		return nil, err
	}
	c.queries.Clear()
	for _, v := range affected {
		if _, err := c.storeItem(v); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// AllAction forwards a named collection-wide action to the ItemApi, with
// the same conservative query-layer clearing as Action.
func (c *Cache[V]) AllAction(ctx context.Context, name string, body interface{}, locations []keys.LocationCoordinate) (interface{}, error) {
	result, affected, err := c.api.AllAction(ctx, name, body, locations)
	if err != nil {
		return nil, err
	}
	c.queries.Clear()
	for _, v := range affected {
		if _, err := c.storeItem(v); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Facet passes a named per-entity computed-view request straight through
// to the ItemApi. Facet payloads are arbitrary values, not entities, so
// they are not cached: they don't fit the item layer's V shape or the
// query layer's hash-list shape without a parallel cache this
// specification does not require.
func (c *Cache[V]) Facet(ctx context.Context, key keys.Key, name string, params map[string]interface{}) (interface{}, error) {
	return c.api.Facet(ctx, key, name, params)
}

// AllFacet passes a named collection-wide computed-view request straight
// through to the ItemApi, for the same reason as Facet.
func (c *Cache[V]) AllFacet(ctx context.Context, name string, params map[string]interface{}, locations []keys.LocationCoordinate) (interface{}, error) {
	return c.api.AllFacet(ctx, name, params, locations)
}

// Find resolves a named finder query, caching results the same way List
// does under a distinct query kind so "find:<name>" and "all" fingerprints
// never collide.
func (c *Cache[V]) Find(ctx context.Context, finder string, params map[string]interface{}, locations []keys.LocationCoordinate, opts ListOptions) (ListResult[V], error) {
	kind := keys.QueryKind{Base: "find", Name: finder}
	fp, err := keys.HashQuery(c.cfg.ItemType, kind, params, locations, nil)
	if err != nil {
		return ListResult[V]{}, err
	}

	if !c.cfg.BypassCache {
		if _, items, ok := c.hydrateQuery(fp); ok {
			return ListResult[V]{Items: items, Returned: len(items)}, nil
		}
	}

	res, err := c.api.Find(ctx, finder, params, locations, opts)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			res = ListResult[V]{}
		} else {
			return ListResult[V]{}, err
		}
	}

	isComplete := opts.Limit == nil && opts.Offset == nil
	if err := c.cacheQueryItems(fp, res.Items, isComplete, locations); err != nil {
		return ListResult[V]{}, err
	}
	res.Returned = len(res.Items)
	return res, nil
}

// FindOne resolves a named finder query of expected cardinality one, with
// the same not-found caching behavior as One.
func (c *Cache[V]) FindOne(ctx context.Context, finder string, params map[string]interface{}, locations []keys.LocationCoordinate) (V, bool, error) {
	var zero V
	kind := keys.QueryKind{Base: "findOne", Name: finder}
	fp, err := keys.HashQuery(c.cfg.ItemType, kind, params, locations, nil)
	if err != nil {
		return zero, false, err
	}

	if !c.cfg.BypassCache {
		if result, ok := c.queries.GetResult(fp); ok {
			if len(result.ItemKeys) == 0 {
				return zero, false, nil
			}
			if v, ok := c.items.Get(result.ItemKeys[0]); ok {
				return v, true, nil
			}
			c.queries.InvalidateQueriesContainingItem(result.ItemKeys[0])
		}
	}

	v, found, err := c.api.FindOne(ctx, finder, params, locations)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return zero, false, err
		}
		v, found = zero, false
	}
	if err := c.cacheQueryItems(fp, valueSlice(v, found), true, locations); err != nil {
		return zero, false, err
	}
	return v, found, nil
}

// Reset clears both layers, dropping every cached item and query result.
// It does not touch the stale-while-revalidate coordinator: a background
// refresh already running is not cancelled and, if its fetch succeeds,
// stores the fetched value once it finishes.
func (c *Cache[V]) Reset() {
	c.items.Clear()
	c.queries.Clear()
}

// Upsert reads key; if present, it updates with partial, otherwise it
// creates partial under locations. The read-then-write is not atomic
// across concurrent callers: this is last-write-wins, convergent so long
// as the backing ItemApi enforces its own uniqueness constraint.
func (c *Cache[V]) Upsert(ctx context.Context, key keys.Key, partial V, locations []keys.LocationCoordinate) (V, error) {
	var zero V
	_, err := c.Get(ctx, key)
	if err == nil {
		return c.Update(ctx, key, partial)
	}
	if errors.Is(err, ErrNotFound) {
		return c.Create(ctx, partial, locations)
	}
	return zero, err
}
