package eviction

import (
	"hash/fnv"
	"strconv"
)

// CountMinSketch is a fixed-memory approximate frequency counter: width
// columns by depth independent hash rows, each saturating at the counter's
// max value. Querying returns the minimum across rows, which never
// undercounts a key's true frequency (only ever overcounts, due to
// collisions). Each row hashes with FNV-1a 32-bit, re-seeded per row so
// the rows are independent.
type CountMinSketch struct {
	width uint32
	depth uint32
	rows  [][]uint32
}

// NewCountMinSketch builds a sketch of the given width and depth. Width and
// depth are expected to already be sanitized into [16,65536] and [1,16]
// respectively by the eviction config layer.
func NewCountMinSketch(width, depth uint32) *CountMinSketch {
	rows := make([][]uint32, depth)
	for i := range rows {
		rows[i] = make([]uint32, width)
	}
	return &CountMinSketch{width: width, depth: depth, rows: rows}
}

func (s *CountMinSketch) indexFor(row uint32, key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(strconv.FormatUint(uint64(row), 10)))
	h.Write([]byte(":"))
	h.Write([]byte(key))
	return h.Sum32() % s.width
}

// Increment bumps every row's counter for key by 1, saturating at the
// uint32 max rather than wrapping.
func (s *CountMinSketch) Increment(key string) {
	for r := uint32(0); r < s.depth; r++ {
		idx := s.indexFor(r, key)
		if s.rows[r][idx] < ^uint32(0) {
			s.rows[r][idx]++
		}
	}
}

// Estimate returns the minimum counter across all rows for key: the sketch's
// frequency estimate.
func (s *CountMinSketch) Estimate(key string) uint64 {
	min := ^uint32(0)
	for r := uint32(0); r < s.depth; r++ {
		idx := s.indexFor(r, key)
		if s.rows[r][idx] < min {
			min = s.rows[r][idx]
		}
	}
	return uint64(min)
}

// Decay multiplicatively shrinks every counter, used to age out stale
// frequency estimates over time. retain is the fraction kept, i.e. a
// decayFactor config of 0.1 (10% decay per interval) calls Decay(0.9).
func (s *CountMinSketch) Decay(retain float64) {
	if retain < 0 {
		retain = 0
	}
	if retain > 1 {
		retain = 1
	}
	for r := range s.rows {
		for i := range s.rows[r] {
			s.rows[r][i] = uint32(float64(s.rows[r][i]) * retain)
		}
	}
}
