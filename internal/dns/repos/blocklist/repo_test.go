package blocklist

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/haukened/rr-doh/internal/dns/common/clock"
	"github.com/haukened/rr-doh/internal/dns/common/log"
	"github.com/haukened/rr-doh/internal/dns/domain"
)

// --- fakes ---

type fakeStore struct {
	getRule      domain.BlockRule
	getOK        bool
	getErr       error
	getCalls     int
	rebuildRules []domain.BlockRule
	rebuildVer   uint64
	rebuildUpd   int64
	rebuildErr   error
	stats        StoreStats
	statsErr     error
	closed       bool
}

func (s *fakeStore) GetFirstMatch(string) (domain.BlockRule, bool, error) {
	s.getCalls++
	return s.getRule, s.getOK, s.getErr
}

func (s *fakeStore) RebuildAll(rules []domain.BlockRule, version uint64, updatedUnix int64) error {
	if s.rebuildErr != nil {
		return s.rebuildErr
	}
	s.rebuildRules = append([]domain.BlockRule(nil), rules...)
	s.rebuildVer = version
	s.rebuildUpd = updatedUnix
	s.stats.Version = version
	s.stats.UpdatedUnix = updatedUnix
	return nil
}

func (s *fakeStore) Stats() (StoreStats, error) { return s.stats, s.statsErr }
func (s *fakeStore) Close() error               { s.closed = true; return nil }

type fakeCache struct {
	m          map[string]domain.BlockDecision
	putCalls   int
	purgeCalls int
}

func newFakeCache() *fakeCache { return &fakeCache{m: make(map[string]domain.BlockDecision)} }

func (c *fakeCache) Get(name string) (domain.BlockDecision, bool) {
	v, ok := c.m[name]
	return v, ok
}
func (c *fakeCache) Put(name string, d domain.BlockDecision) { c.putCalls++; c.m[name] = d }
func (c *fakeCache) Len() int                                { return len(c.m) }
func (c *fakeCache) Purge()                                  { c.purgeCalls++; c.m = make(map[string]domain.BlockDecision) }
func (c *fakeCache) Stats() CacheStats                       { return CacheStats{Size: len(c.m)} }

type fakeBloom struct {
	added    []string
	contains map[string]bool
}

func newFakeBloom() *fakeBloom { return &fakeBloom{contains: make(map[string]bool)} }

func (b *fakeBloom) Add(key []byte) {
	b.added = append(b.added, string(key))
	b.contains[string(key)] = true
}
func (b *fakeBloom) MightContain(key []byte) bool { return b.contains[string(key)] }

type fakeFactory struct {
	bf       *fakeBloom
	capacity uint64
	fpRate   float64
}

func (f *fakeFactory) New(capacity uint64, fpRate float64) BloomFilter {
	f.capacity, f.fpRate = capacity, fpRate
	f.bf = newFakeBloom()
	return f.bf
}

func newTestRepo(t *testing.T, st *fakeStore, c *fakeCache, f *fakeFactory) *Repository {
	t.Helper()
	r, err := NewRepository(Options{Store: st, Cache: c, Factory: f, Logger: log.NewNoopLogger()})
	require.NoError(t, err)
	return r
}

func TestNewRepository(t *testing.T) {
	_, err := NewRepository(Options{})
	require.Error(t, err)

	r, err := NewRepository(Options{Store: &fakeStore{}, Cache: newFakeCache(), Factory: &fakeFactory{}, FPRate: 2})
	require.NoError(t, err)
	assert.Equal(t, defaultFPRate, r.fpRate)
	assert.NotNil(t, r.clock)
	assert.NotNil(t, r.logger)
}

func TestDecide_NoFilterConsultsStore(t *testing.T) {
	st := &fakeStore{getOK: true, getRule: domain.BlockRule{Name: "example.com", Kind: domain.BlockRuleSuffix, Source: "s"}}
	c := newFakeCache()
	r := newTestRepo(t, st, c, &fakeFactory{})

	d := r.Decide("Ads.Example.COM.")
	assert.Equal(t, domain.BlockDecision{Blocked: true, MatchedRule: "example.com", Source: "s", Kind: domain.BlockRuleSuffix}, d)
	assert.Equal(t, 1, st.getCalls)
	assert.Equal(t, d, c.m["ads.example.com"])
}

func TestDecide_RootIsNeverBlocked(t *testing.T) {
	st := &fakeStore{getOK: true}
	r := newTestRepo(t, st, newFakeCache(), &fakeFactory{})
	assert.False(t, r.Decide(".").Blocked)
	assert.Equal(t, 0, st.getCalls)
}

func TestDecide_BloomNegativeEarlyAllow(t *testing.T) {
	st := &fakeStore{}
	c := newFakeCache()
	f := &fakeFactory{}
	r := newTestRepo(t, st, c, f)
	require.NoError(t, r.Load(nil))

	assert.False(t, r.Decide("example.com").Blocked)
	assert.Equal(t, 0, st.getCalls)
	assert.Equal(t, 0, c.putCalls)
}

func TestDecide_CacheHitShortCircuit(t *testing.T) {
	st := &fakeStore{}
	c := newFakeCache()
	r := newTestRepo(t, st, c, &fakeFactory{})
	want := domain.BlockDecision{Blocked: true, MatchedRule: "x.example"}
	c.m["x.example"] = want

	assert.Equal(t, want, r.Decide("x.example"))
	assert.Equal(t, 0, st.getCalls)
}

func TestDecide_StoreErrorAllows(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	st := &fakeStore{getErr: errors.New("disk gone")}
	r, err := NewRepository(Options{Store: st, Cache: newFakeCache(), Factory: &fakeFactory{}, Logger: log.FromZap(zap.New(core))})
	require.NoError(t, err)

	assert.False(t, r.Decide("example.com").Blocked)
	entries := logs.FilterMessage("Blocklist store lookup failed, allowing").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "disk gone", entries[0].ContextMap()["error"])
}

func TestLoad_BuildsBloomAndPurgesCache(t *testing.T) {
	st := &fakeStore{stats: StoreStats{Version: 4}}
	c := newFakeCache()
	c.m["stale.example"] = domain.BlockDecision{Blocked: true}
	f := &fakeFactory{}
	mc := clock.NewMockClock(time.Unix(1723551000, 0))
	r, err := NewRepository(Options{Store: st, Cache: c, Factory: f, FPRate: 0.001, Clock: mc, Logger: log.NewNoopLogger()})
	require.NoError(t, err)

	rules := []domain.BlockRule{
		{Name: "a.example.com", Kind: domain.BlockRuleExact},
		{Name: "ads.example.net", Kind: domain.BlockRuleSuffix},
		{Name: "b.example.com", Kind: domain.BlockRuleExact},
	}
	require.NoError(t, r.Load(rules))

	assert.Equal(t, uint64(5), st.rebuildVer)
	assert.Equal(t, int64(1723551000), st.rebuildUpd)
	assert.Equal(t, rules, st.rebuildRules)
	assert.Equal(t, uint64(3), f.capacity)
	assert.Equal(t, 0.001, f.fpRate)
	assert.Equal(t, []string{"e:a.example.com", "s:net.example.ads", "e:b.example.com"}, f.bf.added)
	assert.Equal(t, 1, c.purgeCalls)

	stats, err := r.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Rules)
	assert.Equal(t, 2, stats.Zones)
	assert.Equal(t, uint64(5), stats.Store.Version)

	// suffix anchors reach the store, unrelated names do not
	r.Decide("x.ads.example.net")
	assert.Equal(t, 1, st.getCalls)
	r.Decide("example.net")
	assert.Equal(t, 1, st.getCalls)
	r.Decide("a.example.com")
	assert.Equal(t, 2, st.getCalls)
}

func TestLoad_Errors(t *testing.T) {
	st := &fakeStore{statsErr: errors.New("stats")}
	r := newTestRepo(t, st, newFakeCache(), &fakeFactory{})
	assert.ErrorContains(t, r.Load(nil), "read blocklist store stats")
	_, err := r.Stats()
	assert.Error(t, err)

	st = &fakeStore{rebuildErr: errors.New("full")}
	f := &fakeFactory{}
	r = newTestRepo(t, st, newFakeCache(), f)
	assert.ErrorContains(t, r.Load(nil), "rebuild blocklist store")
	assert.Nil(t, f.bf)
}

func TestClose(t *testing.T) {
	st := &fakeStore{}
	r := newTestRepo(t, st, newFakeCache(), &fakeFactory{})
	require.NoError(t, r.Close())
	assert.True(t, st.closed)
}

func TestNoop(t *testing.T) {
	assert.Equal(t, domain.BlockDecision{}, Noop{}.Decide("anything.example"))
}
