package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/arjunmehta/entitycache/keys"
)

// ticket is the test entity type used across the cache package's tests.
type ticket struct {
	ID     int
	Org    string
	Status string
}

func ticketKeyFunc(t ticket) (keys.Key, error) {
	return keys.NewKey("ticket", t.ID)
}

// mockAPI is a hand-rolled ItemApi[ticket] double: in-memory backing store
// plus call counters, so tests can assert on how many times the cache
// actually reached the origin.
type mockAPI struct {
	mu    sync.Mutex
	byID  map[int]ticket
	byOrg map[string][]int

	getCalls    int32
	listCalls   int32
	oneCalls    int32
	createCalls int32
	updateCalls int32
	removeCalls int32

	getErr error
}

func newMockAPI() *mockAPI {
	return &mockAPI{byID: make(map[int]ticket), byOrg: make(map[string][]int)}
}

func (m *mockAPI) seed(t ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[t.ID] = t
	m.byOrg[t.Org] = append(m.byOrg[t.Org], t.ID)
}

func (m *mockAPI) Get(ctx context.Context, key keys.Key) (ticket, error) {
	atomic.AddInt32(&m.getCalls, 1)
	if m.getErr != nil {
		return ticket{}, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := atoiMust(key.Token)
	t, ok := m.byID[id]
	if !ok {
		return ticket{}, ErrNotFound
	}
	return t, nil
}

func (m *mockAPI) List(ctx context.Context, params map[string]interface{}, locations []keys.LocationCoordinate, opts ListOptions) (ListResult[ticket], error) {
	atomic.AddInt32(&m.listCalls, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	org, _ := params["org"].(string)
	var items []ticket
	for _, id := range m.byOrg[org] {
		items = append(items, m.byID[id])
	}
	return ListResult[ticket]{Items: items}, nil
}

func (m *mockAPI) One(ctx context.Context, params map[string]interface{}, locations []keys.LocationCoordinate) (ticket, bool, error) {
	atomic.AddInt32(&m.oneCalls, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	org, _ := params["org"].(string)
	ids := m.byOrg[org]
	if len(ids) == 0 {
		return ticket{}, false, nil
	}
	return m.byID[ids[0]], true, nil
}

func (m *mockAPI) Create(ctx context.Context, partial ticket, locations []keys.LocationCoordinate) (ticket, error) {
	atomic.AddInt32(&m.createCalls, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[partial.ID] = partial
	m.byOrg[partial.Org] = append(m.byOrg[partial.Org], partial.ID)
	return partial, nil
}

func (m *mockAPI) Update(ctx context.Context, key keys.Key, patch interface{}) (ticket, error) {
	atomic.AddInt32(&m.updateCalls, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	id := atoiMust(key.Token)
	t := m.byID[id]
	if s, ok := patch.(string); ok {
		t.Status = s
	}
	m.byID[id] = t
	return t, nil
}

func (m *mockAPI) Remove(ctx context.Context, key keys.Key) error {
	atomic.AddInt32(&m.removeCalls, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	id := atoiMust(key.Token)
	delete(m.byID, id)
	return nil
}

func (m *mockAPI) Action(ctx context.Context, key keys.Key, name string, body interface{}) (interface{}, []ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := atoiMust(key.Token)
	t := m.byID[id]
	t.Status = "actioned"
	m.byID[id] = t
	return "ok", []ticket{t}, nil
}

func (m *mockAPI) AllAction(ctx context.Context, name string, body interface{}, locations []keys.LocationCoordinate) (interface{}, []ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var affected []ticket
	for id, t := range m.byID {
		t.Status = "bulk-actioned"
		m.byID[id] = t
		affected = append(affected, t)
	}
	return "ok", affected, nil
}

func (m *mockAPI) Facet(ctx context.Context, key keys.Key, name string, params map[string]interface{}) (interface{}, error) {
	return map[string]int{"count": 1}, nil
}

func (m *mockAPI) AllFacet(ctx context.Context, name string, params map[string]interface{}, locations []keys.LocationCoordinate) (interface{}, error) {
	return map[string]int{"count": len(m.byID)}, nil
}

func (m *mockAPI) Find(ctx context.Context, finder string, params map[string]interface{}, locations []keys.LocationCoordinate, opts ListOptions) (ListResult[ticket], error) {
	return m.List(ctx, params, locations, opts)
}

func (m *mockAPI) FindOne(ctx context.Context, finder string, params map[string]interface{}, locations []keys.LocationCoordinate) (ticket, bool, error) {
	return m.One(ctx, params, locations)
}

func atoiMust(s string) int {
	n := 0
	neg := false
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n
}
