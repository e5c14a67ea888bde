// Package inflight deduplicates concurrent cold-miss fetches for the same
// key: if twenty goroutines call Do for the same hash while the first
// fetch is still in flight, the underlying fetcher runs exactly once and
// every caller receives its result.
package inflight

import "golang.org/x/sync/singleflight"

// Registry wraps golang.org/x/sync/singleflight.Group with Go generics so
// callers get back a typed V instead of interface{}. This registry is
// intentionally distinct from the stale-while-revalidate coordinator's own
// in-flight map (package swr): that one dedupes background refreshes of
// stale-but-present data, this one dedupes the synchronous fetch of
// entirely absent data.
type Registry[V any] struct {
	group singleflight.Group
}

func New[V any]() *Registry[V] {
	return &Registry[V]{}
}

// Do runs fn for key if no call for key is already in flight, otherwise it
// waits for and shares the in-flight call's result. The shared flag
// reports whether this caller received a result computed for another
// concurrent caller.
func (r *Registry[V]) Do(key string, fn func() (V, error)) (v V, shared bool, err error) {
	result, err, shared := r.group.Do(key, func() (interface{}, error) {
		return fn()
	})
	if result != nil {
		v = result.(V)
	}
	return v, shared, err
}

// Forget removes key from the in-flight set without waiting for its call,
// so the next Do for key starts a fresh call even if one is still running.
func (r *Registry[V]) Forget(key string) {
	r.group.Forget(key)
}
