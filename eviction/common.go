package eviction

import (
	"math/rand"
	"sort"
)

// metaEntry pairs a hash with its metadata snapshot; shared by every
// strategy that needs to sort the metadata set to pick victims.
type metaEntry struct {
	hash string
	meta CacheItemMetadata
}

func entriesOf(provider MetadataProvider) []metaEntry {
	all := provider.AllMetadata()
	out := make([]metaEntry, 0, len(all))
	for h, m := range all {
		out = append(out, metaEntry{h, m})
	}
	return out
}

func sortEntries(entries []metaEntry, less func(a, b metaEntry) bool) {
	sort.Slice(entries, func(i, j int) bool { return less(entries[i], entries[j]) })
}

func takeHashes(entries []metaEntry, n int) []string {
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, entries[i].hash)
	}
	return out
}

// randomHashes picks n distinct hashes uniformly at random from provider's
// current metadata set without materializing a sorted order.
func randomHashes(provider MetadataProvider, n int) []string {
	all := provider.AllMetadata()
	keys := make([]string, 0, len(all))
	for h := range all {
		keys = append(keys, h)
	}
	rand.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	if n > len(keys) {
		n = len(keys)
	}
	return keys[:n]
}
