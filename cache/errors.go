package cache

import (
	"errors"

	"github.com/arjunmehta/entitycache/keys"
)

// ErrInvalidKey re-exports keys.ErrInvalidKey so callers of this package
// need not import the keys package just to match the error.
var ErrInvalidKey = keys.ErrInvalidKey

// Error kinds surfaced across the cache. Callers match these with
// errors.Is; internal layers wrap them with fmt.Errorf("...: %w", ...) to
// add context on the way up without losing the sentinel underneath.
var (
	// ErrNotFound signals that the upstream ItemApi reported the entity or
	// query as absent.
	ErrNotFound = errors.New("entitycache: not found")

	// ErrNetwork signals a transport-level failure reaching the ItemApi.
	ErrNetwork = errors.New("entitycache: network error")

	// ErrServer signals a non-transport failure reported by the ItemApi
	// (e.g. a 5xx-equivalent response).
	ErrServer = errors.New("entitycache: server error")

	// ErrEvictionStrategy wraps a panic or error recovered from a pluggable
	// EvictionStrategy. It never escapes the eviction engine to a caller;
	// it is only logged.
	ErrEvictionStrategy = errors.New("entitycache: eviction strategy error")

	// ErrUnsupportedBackend is returned when Config.CacheType names a
	// backend other than the in-process memory backend this module
	// implements.
	ErrUnsupportedBackend = errors.New("entitycache: unsupported cache backend")

	// ErrInvalidSize is returned by ParseSize on a malformed size string.
	ErrInvalidSize = errors.New("entitycache: invalid size string")

	// ErrInvalidConfig is returned by configuration validation that cannot
	// be sanitized into a usable default.
	ErrInvalidConfig = errors.New("entitycache: invalid configuration")
)
