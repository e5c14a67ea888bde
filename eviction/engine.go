// Package eviction implements the policy-agnostic eviction engine and its
// seven interchangeable strategies (LRU, MRU, FIFO, Random, LFU, ARC, 2Q).
// The engine owns per-key metadata and size accounting; it never touches
// entity payloads directly, mirroring the separation the cache's two-layer
// design relies on: item storage lives in the itemlayer package, which
// drives this engine purely through hash strings and byte-size estimates.
package eviction

import (
	"fmt"
	"sync"
	"time"

	"github.com/arjunmehta/entitycache/internal/logx"
)

// CacheItemMetadata is the per-key bookkeeping an EvictionStrategy consults
// to choose victims.
type CacheItemMetadata struct {
	AddedAt              time.Time
	LastAccessedAt        time.Time
	AccessCount           uint64
	EstimatedSize         uint64
	RawFrequency          uint64
	FrequencyScore        float64
	LastFrequencyUpdate   time.Time
}

// SizeLimits bounds the cache; a zero field means "unbounded" for that
// dimension.
type SizeLimits struct {
	MaxItems     uint64 // 0 = unbounded
	MaxSizeBytes uint64 // 0 = unbounded
}

// EvictionContext is passed to SelectForEviction so a strategy can compute
// how much headroom it must free.
type EvictionContext struct {
	CurrentItems uint64
	CurrentBytes uint64
	Limits       SizeLimits
	NewItemSize  uint64
}

// MetadataProvider is the read/write surface over per-key metadata that a
// strategy is given; the Engine itself is the only implementation, but the
// interface keeps strategies testable against a fake.
type MetadataProvider interface {
	GetMetadata(hash string) (CacheItemMetadata, bool)
	SetMetadata(hash string, meta CacheItemMetadata)
	DeleteMetadata(hash string)
	AllMetadata() map[string]CacheItemMetadata
	CurrentSize() (items uint64, bytes uint64)
	SizeLimits() SizeLimits
}

// Strategy is the pluggable eviction policy contract. Implementations must
// be safe to call without holding any lock of their own: the Engine
// serializes all calls.
type Strategy interface {
	OnItemAccessed(hash string, provider MetadataProvider)
	OnItemAdded(hash string, estimatedSize uint64, provider MetadataProvider)
	OnItemRemoved(hash string, provider MetadataProvider)
	SelectForEviction(provider MetadataProvider, ctx EvictionContext) []string
	StrategyName() string
}

// Engine is the policy-agnostic orchestrator: it owns metadata and size
// accounting and delegates victim selection to a Strategy, catching any
// panic a misbehaving strategy raises so a single bad policy can never
// corrupt cache state or crash the caller's goroutine.
type Engine struct {
	mu       sync.Mutex
	strategy Strategy
	limits   SizeLimits
	meta     map[string]CacheItemMetadata
	bytes    uint64
	log      *logx.Logger
}

// NewEngine builds an Engine around the given strategy and size limits.
func NewEngine(strategy Strategy, limits SizeLimits, log *logx.Logger) *Engine {
	if log == nil {
		log = logx.New(false)
	}
	return &Engine{
		strategy: strategy,
		limits:   limits,
		meta:     make(map[string]CacheItemMetadata),
		log:      log,
	}
}

// --- MetadataProvider implementation -------------------------------------

func (e *Engine) GetMetadata(hash string) (CacheItemMetadata, bool) {
	m, ok := e.meta[hash]
	return m, ok
}

func (e *Engine) SetMetadata(hash string, meta CacheItemMetadata) {
	e.meta[hash] = meta
}

func (e *Engine) DeleteMetadata(hash string) {
	delete(e.meta, hash)
}

func (e *Engine) AllMetadata() map[string]CacheItemMetadata {
	out := make(map[string]CacheItemMetadata, len(e.meta))
	for k, v := range e.meta {
		out[k] = v
	}
	return out
}

func (e *Engine) CurrentSize() (uint64, uint64) {
	return uint64(len(e.meta)), e.bytes
}

func (e *Engine) SizeLimits() SizeLimits {
	return e.limits
}

// --- Public engine operations ---------------------------------------------

// RecordAccess notifies the engine of a read hit on hash, touching
// LastAccessedAt/AccessCount before delegating to the strategy.
func (e *Engine) RecordAccess(hash string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if m, ok := e.meta[hash]; ok {
		m.LastAccessedAt = now()
		m.AccessCount++
		e.meta[hash] = m
	}
	e.safeCall("OnItemAccessed", func() {
		e.strategy.OnItemAccessed(hash, e)
	})
}

// RecordAdd registers a new or replaced entry of estimatedSize bytes and
// returns the hashes the caller (ItemLayer) must now evict to respect the
// configured SizeLimits, in order.
func (e *Engine) RecordAdd(hash string, estimatedSize uint64) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.meta[hash]; ok {
		e.bytes -= existing.EstimatedSize
	} else {
		e.meta[hash] = CacheItemMetadata{}
	}

	t := now()
	m := e.meta[hash]
	if m.AddedAt.IsZero() {
		m.AddedAt = t
	}
	m.LastAccessedAt = t
	m.EstimatedSize = estimatedSize
	e.meta[hash] = m
	e.bytes += estimatedSize

	e.safeCall("OnItemAdded", func() {
		e.strategy.OnItemAdded(hash, estimatedSize, e)
	})

	return e.evictIfNeeded(estimatedSize)
}

// RecordRemove drops hash's metadata and notifies the strategy. Used for
// explicit deletes and for cleanup of hashes this engine itself selected
// for eviction.
func (e *Engine) RecordRemove(hash string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeLocked(hash)
}

func (e *Engine) removeLocked(hash string) {
	if m, ok := e.meta[hash]; ok {
		e.bytes -= m.EstimatedSize
		delete(e.meta, hash)
	}
	e.safeCall("OnItemRemoved", func() {
		e.strategy.OnItemRemoved(hash, e)
	})
}

// Clear drops all metadata, e.g. on a full cache reset.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.meta = make(map[string]CacheItemMetadata)
	e.bytes = 0
}

// StrategyName exposes the active policy's name for diagnostics.
func (e *Engine) StrategyName() string {
	return e.strategy.StrategyName()
}

// evictIfNeeded must be called with e.mu held; it asks the strategy for
// victims until the configured limits are satisfied, removing each victim's
// metadata as it goes, and returns the evicted hashes so ItemLayer can drop
// the corresponding payloads in the same operation.
func (e *Engine) evictIfNeeded(newItemSize uint64) []string {
	limits := e.limits
	if limits.MaxItems == 0 && limits.MaxSizeBytes == 0 {
		return nil
	}

	var evicted []string
	for e.overLimitLocked(limits) {
		ctx := EvictionContext{
			CurrentItems: uint64(len(e.meta)),
			CurrentBytes: e.bytes,
			Limits:       limits,
			NewItemSize:  newItemSize,
		}

		var victims []string
		e.safeCall("SelectForEviction", func() {
			victims = e.strategy.SelectForEviction(e, ctx)
		})
		if len(victims) == 0 {
			break // strategy has nothing left to offer; avoid an infinite loop
		}

		for _, v := range victims {
			if _, ok := e.meta[v]; !ok {
				continue
			}
			e.removeLocked(v)
			evicted = append(evicted, v)
			if !e.overLimitLocked(limits) {
				break
			}
		}
	}
	return evicted
}

func (e *Engine) overLimitLocked(limits SizeLimits) bool {
	if limits.MaxItems != 0 && uint64(len(e.meta)) > limits.MaxItems {
		return true
	}
	if limits.MaxSizeBytes != 0 && e.bytes > limits.MaxSizeBytes {
		return true
	}
	return false
}

// safeCall recovers from a panicking strategy call, logging and treating it
// as "no eviction this round" rather than letting it corrupt engine state
// or crash the caller.
func (e *Engine) safeCall(hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("eviction", "strategy panicked", logx.Fields{
				"hook":     hook,
				"strategy": e.strategy.StrategyName(),
				"error":    fmt.Sprintf("%v", r),
			})
		}
	}()
	fn()
}

func now() time.Time { return time.Now() }
