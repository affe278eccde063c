// Package blocklist decides whether a queried name is covered by a blocklist
// rule. Reads go bloom filter → decision cache → persistent store.
package blocklist

import "github.com/haukened/rr-doh/internal/dns/domain"

// BloomFilter is the minimal interface the repository needs from Bloom filters.
type BloomFilter interface {
	Add(key []byte)
	MightContain(key []byte) bool
}

// BloomFactory builds a filter sized for capacity keys at the target false-positive rate.
type BloomFactory interface {
	New(capacity uint64, fpRate float64) BloomFilter
}

// DecisionCache caches block decisions by canonical name.
type DecisionCache interface {
	Get(name string) (domain.BlockDecision, bool)
	Put(name string, d domain.BlockDecision)
	Len() int
	Purge()
	Stats() CacheStats
}

// Store is the persistent rule index.
//   - RebuildAll replaces every rule and the metadata in one transaction
//   - GetFirstMatch returns the most specific rule covering a canonical name
type Store interface {
	RebuildAll(rules []domain.BlockRule, version uint64, updatedUnix int64) error
	GetFirstMatch(name string) (domain.BlockRule, bool, error)
	Stats() (StoreStats, error)
	Close() error
}
