// Package ttl computes effective time-to-live for items and queries and
// classifies a cached entry as fresh, stale, or expired.
package ttl

import "time"

// ItemConfig gives the default item TTL and optional per-item-type
// overrides.
type ItemConfig struct {
	Default time.Duration
	ByType  map[string]time.Duration
}

// QueryConfig gives the TTL for complete vs. faceted/partial query results.
type QueryConfig struct {
	Complete time.Duration
	Faceted  time.Duration
}

// Config is the full TTL engine configuration.
type Config struct {
	Item                 ItemConfig
	Query                QueryConfig
	StaleWhileRevalidate bool
	StalenessThreshold   float64 // fraction of TTL after which an entry is stale; default 0.8
}

// DefaultConfig returns the documented default TTLs and staleness
// threshold.
func DefaultConfig() Config {
	return Config{
		Item:  ItemConfig{Default: 5 * time.Minute, ByType: map[string]time.Duration{}},
		Query: QueryConfig{Complete: 5 * time.Minute, Faceted: 1 * time.Minute},
		StaleWhileRevalidate: true,
		StalenessThreshold:   0.8,
	}
}

// Adjustment documents one step of a TTL calculation for debug output.
type Adjustment struct {
	Reason string
	Value  time.Duration
}

// Calculation is the structured breakdown ExplainTTLCalculation and the
// calculate* methods return.
type Calculation struct {
	TTL         time.Duration
	BaseTTL     time.Duration
	Adjustments []Adjustment
}

// Engine computes TTLs and freshness classifications from a Config. It
// holds no mutable state of its own: every decision is a pure function of
// its config plus the timestamps callers pass in.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	if cfg.StalenessThreshold <= 0 || cfg.StalenessThreshold > 1 {
		cfg.StalenessThreshold = 0.8
	}
	return &Engine{cfg: cfg}
}

// CalculateItemTTL returns the effective TTL for itemType, using the
// per-type override when configured.
func (e *Engine) CalculateItemTTL(itemType string) Calculation {
	base := e.cfg.Item.Default
	calc := Calculation{BaseTTL: base, TTL: base}
	if override, ok := e.cfg.Item.ByType[itemType]; ok {
		calc.Adjustments = append(calc.Adjustments, Adjustment{
			Reason: "itemType override: " + itemType,
			Value:  override,
		})
		calc.TTL = override
	}
	return calc
}

// CalculateQueryTTL returns the effective TTL for a query result of the
// given completeness.
func (e *Engine) CalculateQueryTTL(isComplete bool) Calculation {
	if isComplete {
		return Calculation{BaseTTL: e.cfg.Query.Complete, TTL: e.cfg.Query.Complete}
	}
	calc := Calculation{BaseTTL: e.cfg.Query.Faceted, TTL: e.cfg.Query.Faceted}
	calc.Adjustments = append(calc.Adjustments, Adjustment{Reason: "partial/faceted result", Value: e.cfg.Query.Faceted})
	return calc
}

// IsExpired reports whether an entry created at createdAt with the given
// ttl has passed its expiry at the current time.
func (e *Engine) IsExpired(createdAt time.Time, ttl time.Duration) bool {
	return !time.Now().Before(createdAt.Add(ttl))
}

// IsStale reports whether an entry is past its staleness threshold but not
// yet expired; always false when StaleWhileRevalidate is disabled.
func (e *Engine) IsStale(createdAt time.Time, ttl time.Duration) bool {
	if !e.cfg.StaleWhileRevalidate {
		return false
	}
	if e.IsExpired(createdAt, ttl) {
		return false
	}
	staleAt := createdAt.Add(time.Duration(float64(ttl) * e.cfg.StalenessThreshold))
	return !time.Now().Before(staleAt)
}

// Freshness classifies an entry relative to now.
type Freshness int

const (
	Fresh Freshness = iota
	Stale
	Expired
)

// Classify returns the single Freshness state for an entry, combining
// IsExpired and IsStale into the three-way split operations consult.
func (e *Engine) Classify(createdAt time.Time, ttl time.Duration) Freshness {
	if e.IsExpired(createdAt, ttl) {
		return Expired
	}
	if e.IsStale(createdAt, ttl) {
		return Stale
	}
	return Fresh
}

// ExplainTTLCalculation is the debug-oriented variant of CalculateItemTTL
// that also reports whether staleness is enabled, for tooling that wants a
// full picture of how a TTL was derived.
func (e *Engine) ExplainTTLCalculation(itemType string) Calculation {
	calc := e.CalculateItemTTL(itemType)
	if e.cfg.StaleWhileRevalidate {
		calc.Adjustments = append(calc.Adjustments, Adjustment{
			Reason: "stale-while-revalidate enabled",
			Value:  time.Duration(float64(calc.TTL) * e.cfg.StalenessThreshold),
		})
	}
	return calc
}
