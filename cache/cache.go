// Package cache wires the item layer, query layer, eviction engine, TTL
// engine, stale-while-revalidate coordinator, cache warmer, and in-flight
// registry into the public operation surface (get/list/create/update/
// remove/set/action/allAction/facet/allFacet/find/findOne/reset/upsert).
// Application code builds and uses a cache through this package; keys,
// eviction, ttl, swr and warming supply the key and configuration types
// its API takes.
package cache

import (
	"sync/atomic"

	"github.com/arjunmehta/entitycache/eviction"
	"github.com/arjunmehta/entitycache/inflight"
	"github.com/arjunmehta/entitycache/internal/logx"
	"github.com/arjunmehta/entitycache/itemlayer"
	"github.com/arjunmehta/entitycache/querylayer"
	"github.com/arjunmehta/entitycache/swr"
	"github.com/arjunmehta/entitycache/ttl"
	"github.com/arjunmehta/entitycache/warming"
)

// HitStats reports cumulative Get-path hit/miss counts.
type HitStats struct {
	Hits   uint64
	Misses uint64
}

// Cache is a generic entity cache instance: one per entity type, each
// holding its own item layer, query layer, and subsystem state. There is
// no package-level global; every piece of mutable state lives on this
// struct, so an application can run any number of independent caches
// side by side.
type Cache[V any] struct {
	cfg Config[V]
	api ItemApi[V]
	log *logx.Logger

	items    *itemlayer.ItemLayer[V]
	queries  *querylayer.QueryLayer
	eviction *eviction.Engine
	ttl      *ttl.Engine
	swr      *swr.Coordinator[V]
	warmer   *warming.Warmer
	inflight *inflight.Registry[V]

	hits   uint64
	misses uint64
}

// New builds a Cache for the given ItemApi, applying opts over
// DefaultConfig.
func New[V any](itemType string, keyFunc KeyFunc[V], api ItemApi[V], opts ...Option[V]) (*Cache[V], error) {
	cfg := DefaultConfig[V](itemType, keyFunc)
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewWithConfig[V](cfg, api)
}

// NewWithConfig builds a Cache from an already-assembled Config.
func NewWithConfig[V any](cfg Config[V], api ItemApi[V]) (*Cache[V], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log := logx.New(cfg.EnableDebugLogging)

	strategy, err := eviction.BuildStrategy(cfg.Eviction, cfg.Limits.MaxItems)
	if err != nil {
		return nil, err
	}
	evictionEngine := eviction.NewEngine(strategy, cfg.Limits, log)

	estimator := itemlayer.NewJSONSizeEstimator[V]()
	items := itemlayer.New[V](evictionEngine, estimator)

	ttlEngine := ttl.New(cfg.TTL)
	swrCoord := swr.New[V](items, ttlEngine, cfg.SWR, log)
	warmer := warming.New(cfg.Warming, log)

	c := &Cache[V]{
		cfg:      cfg,
		api:      api,
		log:      log,
		items:    items,
		queries:  querylayer.New(),
		eviction: evictionEngine,
		ttl:      ttlEngine,
		swr:      swrCoord,
		warmer:   warmer,
		inflight: inflight.New[V](),
	}
	return c, nil
}

// Warmer exposes the cache warmer so callers can register WarmingOperations
// and Start/Stop the periodic cycle.
func (c *Cache[V]) Warmer() *warming.Warmer { return c.warmer }

// RefreshStatus exposes the stale-while-revalidate coordinator's current
// in-flight refresh snapshot.
func (c *Cache[V]) RefreshStatus() swr.Status { return c.swr.GetRefreshStatus() }

// Stats reports the item count and estimated byte total currently resident.
func (c *Cache[V]) Stats() (itemCount uint64, sizeBytes uint64) {
	return c.items.Size()
}

// HitStats reports cumulative Get-path hit/miss counts since construction.
func (c *Cache[V]) HitStats() HitStats {
	return HitStats{
		Hits:   atomic.LoadUint64(&c.hits),
		Misses: atomic.LoadUint64(&c.misses),
	}
}
