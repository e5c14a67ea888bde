package eviction

// FIFOStrategy evicts the item with the smallest AddedAt, regardless of
// access pattern.
type FIFOStrategy struct{}

func NewFIFOStrategy() *FIFOStrategy { return &FIFOStrategy{} }

func (s *FIFOStrategy) OnItemAccessed(hash string, provider MetadataProvider) {}
func (s *FIFOStrategy) OnItemAdded(hash string, size uint64, provider MetadataProvider) {}
func (s *FIFOStrategy) OnItemRemoved(hash string, provider MetadataProvider) {}

func (s *FIFOStrategy) SelectForEviction(provider MetadataProvider, ctx EvictionContext) []string {
	entries := entriesOf(provider)
	sortEntries(entries, func(a, b metaEntry) bool {
		return a.meta.AddedAt.Before(b.meta.AddedAt)
	})
	return takeHashes(entries, victimCount(ctx))
}

func (s *FIFOStrategy) StrategyName() string { return "fifo" }

// RandomStrategy evicts uniformly-chosen present keys without touching any
// ordering metadata. It only remembers the most recently added key, which
// is never selected, so an add does not evict itself.
type RandomStrategy struct {
	lastAdded string
}

func NewRandomStrategy() *RandomStrategy { return &RandomStrategy{} }

func (s *RandomStrategy) OnItemAccessed(hash string, provider MetadataProvider) {}
func (s *RandomStrategy) OnItemAdded(hash string, size uint64, provider MetadataProvider) {
	s.lastAdded = hash
}
func (s *RandomStrategy) OnItemRemoved(hash string, provider MetadataProvider) {}

func (s *RandomStrategy) SelectForEviction(provider MetadataProvider, ctx EvictionContext) []string {
	n := victimCount(ctx)
	var victims []string
	for _, h := range randomHashes(provider, n+1) {
		if h != s.lastAdded && len(victims) < n {
			victims = append(victims, h)
		}
	}
	return victims
}

func (s *RandomStrategy) StrategyName() string { return "random" }
