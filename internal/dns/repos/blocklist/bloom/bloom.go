// Package bloom adapts bits-and-blooms Bloom filters to blocklist.BloomFactory.
package bloom

import (
	"sync"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/rr-doh/internal/dns/repos/blocklist"
)

// factory implements blocklist.BloomFactory.
type factory struct{}

// NewFactory returns a BloomFactory that sizes filters from capacity and FP rate.
func NewFactory() blocklist.BloomFactory { return factory{} }

func (factory) New(capacity uint64, fpRate float64) blocklist.BloomFilter {
	m, k := Size(capacity, fpRate)
	return &filter{bf: bitsbloom.New(m, k)}
}

// Size returns the bit count m and hash count k for n keys at false-positive
// rate p. n is clamped to at least 1 and an out-of-range p falls back to 1%.
func Size(n uint64, p float64) (m, k uint) {
	if n == 0 {
		n = 1
	}
	if !(p > 0 && p < 1) {
		p = 0.01
	}
	m, k = bitsbloom.EstimateParameters(uint(n), p)
	if m == 0 {
		m = 1
	}
	if k == 0 {
		k = 1
	}
	return m, k
}

// filter wraps a bits-and-blooms filter so Add may race with MightContain.
type filter struct {
	mu sync.RWMutex
	bf *bitsbloom.BloomFilter
}

func (f *filter) Add(key []byte) {
	f.mu.Lock()
	f.bf.Add(key)
	f.mu.Unlock()
}

func (f *filter) MightContain(key []byte) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.bf.Test(key)
}

var _ blocklist.BloomFilter = (*filter)(nil)
