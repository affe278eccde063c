package blocklist

// CacheStats reports lightweight cache metrics.
// All fields are best-effort snapshots and may be updated concurrently.
type CacheStats struct {
	Capacity  int    // configured capacity (0 for disabled cache)
	Size      int    // current number of entries
	Hits      uint64 // total cache hits since construction
	Misses    uint64 // total cache misses since construction
	Evictions uint64 // total evictions since construction
}

// StoreStats reports store counts and metadata.
type StoreStats struct {
	Version     uint64 // snapshot version (0 if never built)
	UpdatedUnix int64  // last rebuild, unix seconds
	ExactKeys   uint64
	SuffixKeys  uint64
}

// RepoStats combines the cache, the store and the last load.
type RepoStats struct {
	Cache CacheStats
	Store StoreStats
	Rules int // rules in the last load
	Zones int // distinct registrable domains covered by those rules
}
