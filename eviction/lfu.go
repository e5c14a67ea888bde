package eviction

import (
	"sync"
	"time"
)

// LFUConfig controls the frequency-counting behavior of LFUStrategy.
type LFUConfig struct {
	UseProbabilisticCounting bool
	SketchWidth              uint32        // valid range [16, 65536]
	SketchDepth              uint32        // valid range [1, 16]
	DecayFactor              float64       // valid range [0, 1]; 0 disables decay
	DecayInterval            time.Duration
}

// DefaultLFUConfig returns the sanitized defaults described for the LFU
// policy: a 1024x4 sketch, disabled by default (exact counting), no decay.
func DefaultLFUConfig() LFUConfig {
	return LFUConfig{
		UseProbabilisticCounting: false,
		SketchWidth:              1024,
		SketchDepth:              4,
		DecayFactor:              0,
		DecayInterval:            10 * time.Minute,
	}
}

// SanitizeLFUConfig clamps out-of-range fields to the nearest valid value.
// It returns the sanitized config and the list of fields that were
// clamped, so callers can log a warning per §4.4.8.
func SanitizeLFUConfig(c LFUConfig) (LFUConfig, []string) {
	var warnings []string
	if c.SketchWidth < 16 || c.SketchWidth > 65536 {
		warnings = append(warnings, "sketchWidth")
		c.SketchWidth = 1024
	}
	if c.SketchDepth < 1 || c.SketchDepth > 16 {
		warnings = append(warnings, "sketchDepth")
		c.SketchDepth = 4
	}
	if c.DecayFactor < 0 || c.DecayFactor > 1 {
		warnings = append(warnings, "decayFactor")
		if c.DecayFactor < 0 {
			c.DecayFactor = 0
		} else {
			c.DecayFactor = 1
		}
	}
	if c.DecayInterval <= 0 {
		warnings = append(warnings, "decayInterval")
		c.DecayInterval = 10 * time.Minute
	}
	return c, warnings
}

// LFUStrategy evicts the item with the lowest (optionally decayed)
// frequency, breaking ties by older LastAccessedAt. When
// UseProbabilisticCounting is enabled, frequency is estimated via a
// CountMinSketch instead of being stored exactly per key, trading a small
// amount of overcounting for O(width*depth) memory independent of key
// count — grounded conceptually on Ristretto's TinyLFU-style admission
// counters, reimplemented from scratch here against this package's own
// MetadataProvider contract.
type LFUStrategy struct {
	mu       sync.Mutex
	cfg      LFUConfig
	sketch   *CountMinSketch
	lastDecay time.Time
}

func NewLFUStrategy(cfg LFUConfig) *LFUStrategy {
	cfg, _ = SanitizeLFUConfig(cfg)
	s := &LFUStrategy{cfg: cfg, lastDecay: time.Now()}
	if cfg.UseProbabilisticCounting {
		s.sketch = NewCountMinSketch(cfg.SketchWidth, cfg.SketchDepth)
	}
	return s
}

func (s *LFUStrategy) OnItemAccessed(hash string, provider MetadataProvider) {
	s.bump(hash, provider)
}

func (s *LFUStrategy) OnItemAdded(hash string, size uint64, provider MetadataProvider) {
	s.bump(hash, provider)
}

func (s *LFUStrategy) OnItemRemoved(hash string, provider MetadataProvider) {}

func (s *LFUStrategy) bump(hash string, provider MetadataProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sketch != nil {
		s.sketch.Increment(hash)
	}
	s.maybeDecayLocked(provider)

	m, ok := provider.GetMetadata(hash)
	if !ok {
		return
	}
	m.RawFrequency++
	m.FrequencyScore = s.frequencyOfLocked(hash, m)
	m.LastFrequencyUpdate = time.Now()
	provider.SetMetadata(hash, m)
}

func (s *LFUStrategy) frequencyOfLocked(hash string, m CacheItemMetadata) float64 {
	if s.sketch != nil {
		return float64(s.sketch.Estimate(hash))
	}
	return float64(m.RawFrequency)
}

func (s *LFUStrategy) maybeDecayLocked(provider MetadataProvider) {
	if s.cfg.DecayFactor <= 0 {
		return
	}
	if time.Since(s.lastDecay) < s.cfg.DecayInterval {
		return
	}
	s.lastDecay = time.Now()
	retain := 1 - s.cfg.DecayFactor

	if s.sketch != nil {
		s.sketch.Decay(retain)
	}
	for h, m := range provider.AllMetadata() {
		m.FrequencyScore *= retain
		m.RawFrequency = uint64(float64(m.RawFrequency) * retain)
		provider.SetMetadata(h, m)
	}
}

func (s *LFUStrategy) SelectForEviction(provider MetadataProvider, ctx EvictionContext) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := entriesOf(provider)
	sortEntries(entries, func(a, b metaEntry) bool {
		fa, fb := s.frequencyOfLocked(a.hash, a.meta), s.frequencyOfLocked(b.hash, b.meta)
		if fa == fb {
			return a.meta.LastAccessedAt.Before(b.meta.LastAccessedAt)
		}
		return fa < fb
	})
	return takeHashes(entries, victimCount(ctx))
}

func (s *LFUStrategy) StrategyName() string { return "lfu" }
