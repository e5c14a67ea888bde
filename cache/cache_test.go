package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arjunmehta/entitycache/eviction"
	"github.com/arjunmehta/entitycache/keys"
	"github.com/arjunmehta/entitycache/warming"
)

func TestNewRejectsMissingKeyFunc(t *testing.T) {
	_, err := New[ticket]("ticket", nil, newMockAPI())
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("New() error = %v, want ErrInvalidConfig", err)
	}
}

func TestNewRejectsEmptyItemType(t *testing.T) {
	_, err := New[ticket]("", ticketKeyFunc, newMockAPI())
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("New() error = %v, want ErrInvalidConfig", err)
	}
}

func TestNewRejectsUnsupportedBackend(t *testing.T) {
	cfg := DefaultConfig[ticket]("ticket", ticketKeyFunc)
	cfg.CacheType = BackendLocalStorage
	_, err := NewWithConfig[ticket](cfg, newMockAPI())
	if !errors.Is(err, ErrUnsupportedBackend) {
		t.Fatalf("NewWithConfig() error = %v, want ErrUnsupportedBackend", err)
	}
}

func TestStatsReflectsResidentItems(t *testing.T) {
	c, api := newTestCache(t)
	api.seed(ticket{ID: 1, Org: "acme", Status: "open"})
	key, _ := keys.NewKey("ticket", 1)

	if _, err := c.Get(context.Background(), key); err != nil {
		t.Fatalf("Get: %v", err)
	}
	count, _ := c.Stats()
	if count != 1 {
		t.Fatalf("Stats() itemCount = %d, want 1", count)
	}
}

func TestWarmerIsWiredAndRunsRegisteredOperations(t *testing.T) {
	c, api := newTestCache(t)
	api.seed(ticket{ID: 1, Org: "acme", Status: "open"})
	key, _ := keys.NewKey("ticket", 1)

	var warmed bool
	c.Warmer().AddOperation(warming.Operation{
		ID:       "ticket-1",
		Priority: 1,
		Fetcher: func(ctx context.Context) (int, error) {
			if _, err := c.Get(ctx, key); err != nil {
				return 0, err
			}
			warmed = true
			return 1, nil
		},
	})
	c.Warmer().RunCycle(context.Background())

	if !warmed {
		t.Fatal("expected the registered warming operation to run")
	}
}

func TestWarmFetcherAppliesTTLMultiplierFromOperation(t *testing.T) {
	ttlCfg := ttlConfigWithShortItemTTL()
	c, api := newTestCache(t, WithTTL[ticket](ttlCfg))
	api.seed(ticket{ID: 1, Org: "acme", Status: "open"})
	key, _ := keys.NewKey("ticket", 1)

	c.Warmer().AddOperation(warming.Operation{
		ID:            "ticket-1",
		Priority:      1,
		TTLMultiplier: 10,
		Fetcher:       c.WarmFetcher(key),
	})
	c.Warmer().RunCycle(context.Background())

	hash, _ := keys.CanonicalKeyHash(key)
	raw, ok := c.items.GetRaw(hash)
	if !ok {
		t.Fatal("expected the warming operation to populate the item layer")
	}
	// Normal item TTL is 100ms; a 10x multiplier should push ExpiresAt well
	// past that, proving the multiplier from the operation reached the
	// fetcher's re-cache call.
	if !raw.ExpiresAt.After(raw.CreatedAt.Add(500 * time.Millisecond)) {
		t.Fatalf("expected TTLMultiplier to extend ExpiresAt well past the base TTL, got CreatedAt=%v ExpiresAt=%v", raw.CreatedAt, raw.ExpiresAt)
	}
}

func TestWarmFetcherUsesNormalTTLWithoutMultiplier(t *testing.T) {
	ttlCfg := ttlConfigWithShortItemTTL()
	c, api := newTestCache(t, WithTTL[ticket](ttlCfg))
	api.seed(ticket{ID: 1, Org: "acme", Status: "open"})
	key, _ := keys.NewKey("ticket", 1)

	c.Warmer().AddOperation(warming.Operation{
		ID:       "ticket-1",
		Priority: 1,
		Fetcher:  c.WarmFetcher(key),
	})
	c.Warmer().RunCycle(context.Background())

	hash, _ := keys.CanonicalKeyHash(key)
	raw, ok := c.items.GetRaw(hash)
	if !ok {
		t.Fatal("expected the warming operation to populate the item layer")
	}
	if raw.ExpiresAt.After(raw.CreatedAt.Add(500 * time.Millisecond)) {
		t.Fatalf("expected the normal (short) TTL without a multiplier, got CreatedAt=%v ExpiresAt=%v", raw.CreatedAt, raw.ExpiresAt)
	}
}

func TestWithLimitsEvictsOverMaxItems(t *testing.T) {
	c, api := newTestCache(t, WithLimits[ticket](eviction.SizeLimits{MaxItems: 1}))
	api.seed(ticket{ID: 1, Org: "acme", Status: "open"})
	api.seed(ticket{ID: 2, Org: "acme", Status: "open"})

	k1, _ := keys.NewKey("ticket", 1)
	k2, _ := keys.NewKey("ticket", 2)
	if _, err := c.Get(context.Background(), k1); err != nil {
		t.Fatalf("Get(1): %v", err)
	}
	if _, err := c.Get(context.Background(), k2); err != nil {
		t.Fatalf("Get(2): %v", err)
	}

	count, _ := c.Stats()
	if count > 1 {
		t.Fatalf("Stats() itemCount = %d, want at most 1 under MaxItems=1", count)
	}
}
