package ttl

import (
	"testing"
	"time"
)

func TestCalculateItemTTLUsesPerTypeOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Item.ByType["session"] = 30 * time.Second
	e := New(cfg)

	calc := e.CalculateItemTTL("session")
	if calc.TTL != 30*time.Second {
		t.Fatalf("expected override TTL, got %v", calc.TTL)
	}
	if len(calc.Adjustments) != 1 {
		t.Fatalf("expected one adjustment recorded, got %d", len(calc.Adjustments))
	}

	calc = e.CalculateItemTTL("unconfigured-type")
	if calc.TTL != cfg.Item.Default {
		t.Fatalf("expected default TTL for an unconfigured type, got %v", calc.TTL)
	}
}

func TestCalculateQueryTTLDiffersByCompleteness(t *testing.T) {
	e := New(DefaultConfig())
	complete := e.CalculateQueryTTL(true)
	partial := e.CalculateQueryTTL(false)

	if complete.TTL != 5*time.Minute {
		t.Fatalf("complete query TTL = %v, want 5m", complete.TTL)
	}
	if partial.TTL != time.Minute {
		t.Fatalf("faceted query TTL = %v, want 1m", partial.TTL)
	}
}

func TestIsExpiredAtZeroTTLIsAlwaysExpired(t *testing.T) {
	e := New(DefaultConfig())
	if !e.IsExpired(time.Now(), 0) {
		t.Fatal("a zero TTL must always be treated as expired")
	}
}

func TestClassifyFreshStaleExpired(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StalenessThreshold = 0.5
	e := New(cfg)
	ttl := 100 * time.Millisecond

	now := time.Now()
	if got := e.Classify(now, ttl); got != Fresh {
		t.Fatalf("Classify(fresh) = %v, want Fresh", got)
	}

	staleCreated := now.Add(-60 * time.Millisecond)
	if got := e.Classify(staleCreated, ttl); got != Stale {
		t.Fatalf("Classify(past 0.5*ttl) = %v, want Stale", got)
	}

	expiredCreated := now.Add(-200 * time.Millisecond)
	if got := e.Classify(expiredCreated, ttl); got != Expired {
		t.Fatalf("Classify(past ttl) = %v, want Expired", got)
	}
}

func TestIsStaleFalseWhenSWRDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StaleWhileRevalidate = false
	e := New(cfg)

	staleCreated := time.Now().Add(-90 * time.Millisecond)
	if e.IsStale(staleCreated, 100*time.Millisecond) {
		t.Fatal("IsStale must be false whenever StaleWhileRevalidate is disabled")
	}
}

func TestNewClampsInvalidStalenessThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StalenessThreshold = 0
	e := New(cfg)

	// With the invalid threshold clamped back to 0.8, an entry 90% through
	// its TTL must already read as stale.
	ttl := 100 * time.Millisecond
	createdAt := time.Now().Add(-90 * time.Millisecond)
	if !e.IsStale(createdAt, ttl) {
		t.Fatal("expected clamped default threshold (0.8) to classify an entry 90 percent through its TTL as stale")
	}
}
