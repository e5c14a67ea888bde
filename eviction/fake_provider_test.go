package eviction

// fakeProvider is a minimal in-memory MetadataProvider used to exercise
// strategies in isolation from Engine's locking/eviction-loop machinery.
type fakeProvider struct {
	meta   map[string]CacheItemMetadata
	limits SizeLimits
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{meta: make(map[string]CacheItemMetadata)}
}

func (p *fakeProvider) GetMetadata(hash string) (CacheItemMetadata, bool) {
	m, ok := p.meta[hash]
	return m, ok
}

func (p *fakeProvider) SetMetadata(hash string, meta CacheItemMetadata) {
	p.meta[hash] = meta
}

func (p *fakeProvider) DeleteMetadata(hash string) {
	delete(p.meta, hash)
}

func (p *fakeProvider) AllMetadata() map[string]CacheItemMetadata {
	out := make(map[string]CacheItemMetadata, len(p.meta))
	for k, v := range p.meta {
		out[k] = v
	}
	return out
}

func (p *fakeProvider) CurrentSize() (uint64, uint64) {
	return uint64(len(p.meta)), 0
}

func (p *fakeProvider) SizeLimits() SizeLimits {
	return p.limits
}
