package cache

import (
	"fmt"

	"github.com/arjunmehta/entitycache/eviction"
	"github.com/arjunmehta/entitycache/swr"
	"github.com/arjunmehta/entitycache/ttl"
	"github.com/arjunmehta/entitycache/warming"
)

// Backend names the storage backend an ItemLayer would use. This module
// implements Memory directly; the others are accepted only so Config can
// reject them clearly instead of silently behaving like Memory — durable
// and out-of-process backends are outside this core's scope.
type Backend string

const (
	BackendMemory        Backend = "memory"
	BackendSessionStorage Backend = "sessionStorage"
	BackendLocalStorage   Backend = "localStorage"
	BackendIndexedDB      Backend = "indexedDB"
)

// Config assembles every independently-optional knob the cache accepts.
// Construct it with DefaultConfig and then override fields, or use the
// With* functional options for a one-line call site.
type Config[V any] struct {
	ItemType string
	KeyFunc  KeyFunc[V]

	CacheType Backend

	TTL      ttl.Config
	Eviction eviction.PolicyConfig
	Limits   eviction.SizeLimits

	BypassCache        bool
	EnableDebugLogging bool

	SWR     swr.Config
	Warming warming.Config
}

// DefaultConfig returns a Config with every subsystem at its documented
// default, for the given item type and key-derivation function.
func DefaultConfig[V any](itemType string, keyFunc KeyFunc[V]) Config[V] {
	return Config[V]{
		ItemType:  itemType,
		KeyFunc:   keyFunc,
		CacheType: BackendMemory,
		TTL:       ttl.DefaultConfig(),
		Eviction:  eviction.PolicyConfig{Name: eviction.PolicyLRU},
		SWR:       swr.DefaultConfig(),
		Warming:   warming.DefaultConfig(),
	}
}

// Option mutates a Config; New applies each Option in order over
// DefaultConfig's result.
type Option[V any] func(*Config[V])

func WithEvictionPolicy[V any](cfg eviction.PolicyConfig) Option[V] {
	return func(c *Config[V]) { c.Eviction = cfg }
}

func WithLimits[V any](limits eviction.SizeLimits) Option[V] {
	return func(c *Config[V]) { c.Limits = limits }
}

func WithTTL[V any](cfg ttl.Config) Option[V] {
	return func(c *Config[V]) { c.TTL = cfg }
}

func WithSWR[V any](cfg swr.Config) Option[V] {
	return func(c *Config[V]) { c.SWR = cfg }
}

func WithWarming[V any](cfg warming.Config) Option[V] {
	return func(c *Config[V]) { c.Warming = cfg }
}

func WithDebugLogging[V any](enabled bool) Option[V] {
	return func(c *Config[V]) { c.EnableDebugLogging = enabled }
}

func WithBypassCache[V any](bypass bool) Option[V] {
	return func(c *Config[V]) { c.BypassCache = bypass }
}

// validate rejects configuration this module cannot honor, chiefly a
// non-memory CacheType.
func (c Config[V]) validate() error {
	if c.CacheType != "" && c.CacheType != BackendMemory {
		return fmt.Errorf("%w: %q", ErrUnsupportedBackend, c.CacheType)
	}
	if c.KeyFunc == nil {
		return fmt.Errorf("%w: KeyFunc is required", ErrInvalidConfig)
	}
	if c.ItemType == "" {
		return fmt.Errorf("%w: ItemType is required", ErrInvalidConfig)
	}
	return nil
}
