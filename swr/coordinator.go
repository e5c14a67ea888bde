// Package swr implements stale-while-revalidate reads: a lookup past its
// staleness threshold is served immediately while a single background
// refresh per key runs to completion, and a lookup already past full
// expiry races the in-flight refresh against a short grace window before
// falling back to the stale value.
package swr

import (
	"context"
	"sync"
	"time"

	"github.com/arjunmehta/entitycache/internal/logx"
	"github.com/arjunmehta/entitycache/itemlayer"
	"github.com/arjunmehta/entitycache/ttl"
)

// Config controls concurrency, timeouts, and error behavior.
type Config struct {
	MaxConcurrentRefreshes int
	RefreshTimeout         time.Duration
	GraceWindow            time.Duration
	ExtendTTLOnError       bool
	ErrorTTLExtension      time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrentRefreshes: 10,
		RefreshTimeout:         30 * time.Second,
		GraceWindow:            100 * time.Millisecond,
		ExtendTTLOnError:       true,
		ErrorTTLExtension:      300 * time.Second,
	}
}

func sanitize(cfg Config) Config {
	if cfg.MaxConcurrentRefreshes <= 0 {
		cfg.MaxConcurrentRefreshes = 10
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 30 * time.Second
	}
	if cfg.GraceWindow <= 0 {
		cfg.GraceWindow = 100 * time.Millisecond
	}
	if cfg.ErrorTTLExtension <= 0 {
		cfg.ErrorTTLExtension = 300 * time.Second
	}
	return cfg
}

type pendingRefresh struct {
	startedAt   time.Time
	originalTTL time.Duration
	done        chan struct{}
}

// ActiveRefresh describes one in-flight background refresh, for diagnostics.
type ActiveRefresh struct {
	Key         string
	StartedAt   time.Time
	OriginalTTL time.Duration
}

// Status is the snapshot GetRefreshStatus returns.
type Status struct {
	PendingRefreshes int
	MaxConcurrent    int
	ActiveRefreshes  []ActiveRefresh
}

// Fetcher is the caller-supplied origin fetch used both for cold misses and
// for background refreshes.
type Fetcher[V any] func(ctx context.Context) (V, error)

// Coordinator drives stale-while-revalidate reads for a single ItemLayer.
// Its pending-refresh map is deliberately separate from the cold-miss
// InFlightRegistry (package inflight): that one dedupes synchronous fetches
// of absent data, this one dedupes background refreshes of stale-but-
// present data — §4.9 requires the two remain distinct structures.
type Coordinator[V any] struct {
	mu      sync.Mutex
	pending map[string]*pendingRefresh

	items *itemlayer.ItemLayer[V]
	ttl   *ttl.Engine
	cfg   Config
	sem   chan struct{}
	log   *logx.Logger
}

func New[V any](items *itemlayer.ItemLayer[V], ttlEngine *ttl.Engine, cfg Config, log *logx.Logger) *Coordinator[V] {
	if log == nil {
		log = logx.New(false)
	}
	cfg = sanitize(cfg)
	return &Coordinator[V]{
		pending: make(map[string]*pendingRefresh),
		items:   items,
		ttl:     ttlEngine,
		cfg:     cfg,
		sem:     make(chan struct{}, cfg.MaxConcurrentRefreshes),
		log:     log,
	}
}

// Get implements the table in the stale-while-revalidate specification: it
// returns a value immediately (fresh or stale) while ensuring at most one
// background refresh per key is in flight.
func (c *Coordinator[V]) Get(ctx context.Context, hash string, ttlDuration time.Duration, fetch Fetcher[V]) (V, error) {
	raw, ok := c.items.GetRaw(hash)
	if !ok {
		return c.fetchSync(ctx, hash, ttlDuration, fetch)
	}

	itemTTL := raw.ExpiresAt.Sub(raw.CreatedAt)
	switch c.ttl.Classify(raw.CreatedAt, itemTTL) {
	case ttl.Fresh:
		return raw.Data, nil

	case ttl.Stale:
		c.maybeSpawnRefresh(hash, ttlDuration, fetch)
		return raw.Data, nil

	default: // ttl.Expired
		if pending := c.lookupPending(hash); pending != nil {
			select {
			case <-pending.done:
				if fresh, ok := c.items.GetRaw(hash); ok && c.ttl.Classify(fresh.CreatedAt, fresh.ExpiresAt.Sub(fresh.CreatedAt)) != ttl.Expired {
					return fresh.Data, nil
				}
				return raw.Data, nil
			case <-time.After(c.cfg.GraceWindow):
				return raw.Data, nil
			}
		}
		c.maybeSpawnRefresh(hash, ttlDuration, fetch)
		return raw.Data, nil
	}
}

func (c *Coordinator[V]) fetchSync(ctx context.Context, hash string, ttlDuration time.Duration, fetch Fetcher[V]) (V, error) {
	var zero V
	val, err := fetch(ctx)
	if err != nil {
		return zero, err
	}
	c.items.Set(hash, val, ttlDuration)
	return val, nil
}

func (c *Coordinator[V]) lookupPending(hash string) *pendingRefresh {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[hash]
}

// maybeSpawnRefresh starts a background refresh for hash unless one is
// already pending or the concurrency cap is reached, in which case the
// trigger is dropped silently.
func (c *Coordinator[V]) maybeSpawnRefresh(hash string, ttlDuration time.Duration, fetch Fetcher[V]) {
	c.mu.Lock()
	if _, exists := c.pending[hash]; exists {
		c.mu.Unlock()
		return
	}
	select {
	case c.sem <- struct{}{}:
	default:
		c.mu.Unlock()
		return // at capacity; next access after a slot frees may retry
	}

	raw, _ := c.items.GetRaw(hash)
	originalTTL := raw.ExpiresAt.Sub(raw.CreatedAt)
	pr := &pendingRefresh{startedAt: time.Now(), originalTTL: originalTTL, done: make(chan struct{})}
	c.pending[hash] = pr
	c.mu.Unlock()

	go c.runRefresh(hash, ttlDuration, fetch, pr)
}

func (c *Coordinator[V]) runRefresh(hash string, ttlDuration time.Duration, fetch Fetcher[V], pr *pendingRefresh) {
	defer func() {
		c.mu.Lock()
		delete(c.pending, hash)
		c.mu.Unlock()
		<-c.sem
		close(pr.done)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RefreshTimeout)
	defer cancel()

	val, err := fetch(ctx)
	if err != nil {
		c.log.Warn("swr", "background refresh failed", logx.Fields{"key": hash, "error": err.Error()})
		if c.cfg.ExtendTTLOnError {
			c.items.ExtendTTL(hash, c.cfg.ErrorTTLExtension)
		}
		return
	}
	c.items.Set(hash, val, ttlDuration)
}

// IsRefreshing reports whether a background refresh is currently running
// for hash.
func (c *Coordinator[V]) IsRefreshing(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[hash]
	return ok
}

// GetRefreshStatus returns a snapshot of in-flight background refreshes.
func (c *Coordinator[V]) GetRefreshStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	active := make([]ActiveRefresh, 0, len(c.pending))
	for k, pr := range c.pending {
		active = append(active, ActiveRefresh{Key: k, StartedAt: pr.startedAt, OriginalTTL: pr.originalTTL})
	}
	return Status{
		PendingRefreshes: len(c.pending),
		MaxConcurrent:    c.cfg.MaxConcurrentRefreshes,
		ActiveRefreshes:  active,
	}
}
