package eviction

import "fmt"

// PolicyName enumerates the seven interchangeable eviction policies.
type PolicyName string

const (
	PolicyLRU    PolicyName = "lru"
	PolicyLFU    PolicyName = "lfu"
	PolicyFIFO   PolicyName = "fifo"
	PolicyMRU    PolicyName = "mru"
	PolicyRandom PolicyName = "random"
	PolicyARC    PolicyName = "arc"
	Policy2Q     PolicyName = "2q"
)

// PolicyConfig bundles every strategy-specific config behind one value; only
// the field matching Name is consulted.
type PolicyConfig struct {
	Name PolicyName
	LFU  LFUConfig
	ARC  ARCConfig
	TwoQ TwoQConfig
}

// BuildStrategy validates PolicyConfig and constructs the matching Strategy.
// maxCacheSize seeds ARC/2Q's ghost-list bounds when the caller has not set
// one explicitly on the sub-config.
func BuildStrategy(cfg PolicyConfig, maxCacheSize uint64) (Strategy, error) {
	switch cfg.Name {
	case PolicyLRU, "":
		return NewLRUStrategy(), nil
	case PolicyMRU:
		return NewMRUStrategy(), nil
	case PolicyFIFO:
		return NewFIFOStrategy(), nil
	case PolicyRandom:
		return NewRandomStrategy(), nil
	case PolicyLFU:
		return NewLFUStrategy(cfg.LFU), nil
	case PolicyARC:
		c := cfg.ARC
		if c.MaxCacheSize == 0 {
			c.MaxCacheSize = maxCacheSize
		}
		return NewARCStrategy(c), nil
	case Policy2Q:
		c := cfg.TwoQ
		if c.MaxCacheSize == 0 {
			c.MaxCacheSize = maxCacheSize
		}
		return NewTwoQStrategy(c), nil
	default:
		return nil, fmt.Errorf("entitycache: unknown eviction policy %q", cfg.Name)
	}
}
