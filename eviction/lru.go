package eviction

// LRUStrategy evicts the item with the smallest LastAccessedAt, breaking
// ties by insertion order (AddedAt) so victim selection is deterministic.
// Unlike a classic map+doubly-linked-list LRU, it works purely off the
// metadata snapshot a MetadataProvider exposes rather than keeping its own
// list, so the same strategy shape fits every policy in this package.
type LRUStrategy struct{}

func NewLRUStrategy() *LRUStrategy { return &LRUStrategy{} }

func (s *LRUStrategy) OnItemAccessed(hash string, provider MetadataProvider) {}
func (s *LRUStrategy) OnItemAdded(hash string, size uint64, provider MetadataProvider) {}
func (s *LRUStrategy) OnItemRemoved(hash string, provider MetadataProvider) {}

func (s *LRUStrategy) SelectForEviction(provider MetadataProvider, ctx EvictionContext) []string {
	return oldestByAccess(provider, victimCount(ctx), false)
}

func (s *LRUStrategy) StrategyName() string { return "lru" }

// MRUStrategy evicts the item with the largest LastAccessedAt — the
// opposite ordering of LRU, useful for scan-dominated workloads where the
// most recently touched item is least likely to be reused. The most
// recently added item is never selected, so an add does not evict itself.
type MRUStrategy struct {
	lastAdded string
}

func NewMRUStrategy() *MRUStrategy { return &MRUStrategy{} }

func (s *MRUStrategy) OnItemAccessed(hash string, provider MetadataProvider) {}
func (s *MRUStrategy) OnItemAdded(hash string, size uint64, provider MetadataProvider) {
	s.lastAdded = hash
}
func (s *MRUStrategy) OnItemRemoved(hash string, provider MetadataProvider) {}

func (s *MRUStrategy) SelectForEviction(provider MetadataProvider, ctx EvictionContext) []string {
	n := victimCount(ctx)
	var victims []string
	for _, h := range oldestByAccess(provider, n+1, true) {
		if h != s.lastAdded && len(victims) < n {
			victims = append(victims, h)
		}
	}
	return victims
}

func (s *MRUStrategy) StrategyName() string { return "mru" }

// victimCount computes how many keys to free: the item-count overage, plus
// one more when the byte limit is exceeded (regardless of by how much);
// always at least 1 once eviction has been triggered at all.
func victimCount(ctx EvictionContext) int {
	n := 0
	if ctx.Limits.MaxItems != 0 && ctx.CurrentItems > ctx.Limits.MaxItems {
		if over := int(ctx.CurrentItems - ctx.Limits.MaxItems); over > n {
			n = over
		}
	}
	if ctx.Limits.MaxSizeBytes != 0 && ctx.CurrentBytes > ctx.Limits.MaxSizeBytes {
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}

// oldestByAccess returns up to n hashes sorted by LastAccessedAt ascending
// (mru=false) or descending (mru=true), with AddedAt as the tiebreaker.
func oldestByAccess(provider MetadataProvider, n int, mru bool) []string {
	entries := entriesOf(provider)
	sortEntries(entries, func(i, j metaEntry) bool {
		if i.meta.LastAccessedAt.Equal(j.meta.LastAccessedAt) {
			if mru {
				return i.meta.AddedAt.After(j.meta.AddedAt)
			}
			return i.meta.AddedAt.Before(j.meta.AddedAt)
		}
		if mru {
			return i.meta.LastAccessedAt.After(j.meta.LastAccessedAt)
		}
		return i.meta.LastAccessedAt.Before(j.meta.LastAccessedAt)
	})
	return takeHashes(entries, n)
}
