package cache

import (
	"context"

	"github.com/arjunmehta/entitycache/keys"
)

// ListOptions carries the pagination/limit knobs an ItemApi list-shaped
// call accepts.
type ListOptions struct {
	Limit  *int
	Offset *int
}

// ListResult is the shape every list-returning ItemApi method answers
// with: the items themselves plus enough metadata to tell a complete
// result from a partial one.
type ListResult[V any] struct {
	Items    []V
	Total    *int
	Returned int
	Limit    *int
	Offset   *int
	HasMore  bool
}

// ItemApi is the remote collaborator this cache consumes; the core never
// implements it; callers provide an adapter over their own transport. Every
// method may fail with an error matching ErrNotFound, ErrNetwork, or
// ErrServer via errors.Is.
type ItemApi[V any] interface {
	Get(ctx context.Context, key keys.Key) (V, error)
	List(ctx context.Context, params map[string]interface{}, locations []keys.LocationCoordinate, opts ListOptions) (ListResult[V], error)
	One(ctx context.Context, params map[string]interface{}, locations []keys.LocationCoordinate) (V, bool, error)
	Create(ctx context.Context, partial V, locations []keys.LocationCoordinate) (V, error)
	Update(ctx context.Context, key keys.Key, patch interface{}) (V, error)
	Remove(ctx context.Context, key keys.Key) error
	Action(ctx context.Context, key keys.Key, name string, body interface{}) (result interface{}, affected []V, err error)
	AllAction(ctx context.Context, name string, body interface{}, locations []keys.LocationCoordinate) (result interface{}, affected []V, err error)
	Facet(ctx context.Context, key keys.Key, name string, params map[string]interface{}) (interface{}, error)
	AllFacet(ctx context.Context, name string, params map[string]interface{}, locations []keys.LocationCoordinate) (interface{}, error)
	Find(ctx context.Context, finder string, params map[string]interface{}, locations []keys.LocationCoordinate, opts ListOptions) (ListResult[V], error)
	FindOne(ctx context.Context, finder string, params map[string]interface{}, locations []keys.LocationCoordinate) (V, bool, error)
}

// KeyFunc derives an entity's Key from its decoded payload, so the
// orchestrator can file API responses into the item layer under the right
// hash without the caller repeating the key on every call.
type KeyFunc[V any] func(V) (keys.Key, error)
