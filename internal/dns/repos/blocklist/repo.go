package blocklist

import (
	"errors"
	"fmt"
	"sync"

	"github.com/haukened/rr-doh/internal/dns/common/clock"
	"github.com/haukened/rr-doh/internal/dns/common/log"
	"github.com/haukened/rr-doh/internal/dns/common/utils"
	"github.com/haukened/rr-doh/internal/dns/domain"
)

const defaultFPRate = 0.01

// Repository composes a Store, a Bloom filter and a DecisionCache.
// Decide is safe for concurrent use; Load swaps in a new snapshot atomically.
type Repository struct {
	mu      sync.RWMutex
	store   Store
	cache   DecisionCache
	bloom   BloomFilter
	factory BloomFactory
	fpRate  float64
	clock   clock.Clock
	logger  log.Logger

	rules int
	zones int
}

// Options configures a Repository. Store, Cache and Factory are required.
type Options struct {
	Store   Store
	Cache   DecisionCache
	Factory BloomFactory
	FPRate  float64
	Clock   clock.Clock
	Logger  log.Logger
}

// NewRepository constructs a Repository. Until Load is called it consults the
// store directly, so a store left by a previous run keeps working.
func NewRepository(opts Options) (*Repository, error) {
	if opts.Store == nil || opts.Cache == nil || opts.Factory == nil {
		return nil, errors.New("blocklist: store, cache and bloom factory are required")
	}
	if !(opts.FPRate > 0 && opts.FPRate < 1) {
		opts.FPRate = defaultFPRate
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	return &Repository{
		store:   opts.Store,
		cache:   opts.Cache,
		factory: opts.Factory,
		fpRate:  opts.FPRate,
		clock:   opts.Clock,
		logger:  opts.Logger,
	}, nil
}

// Decide returns the BlockDecision for name.
// Policy: on store errors, prefer Allow (not blocked).
func (r *Repository) Decide(name string) domain.BlockDecision {
	cn := utils.CanonicalDNSName(name)
	if cn == "" {
		return domain.BlockDecision{}
	}
	if !r.checkBloom(cn) {
		return domain.BlockDecision{}
	}
	if d, ok := r.checkCache(cn); ok {
		return d
	}
	dec := r.checkStore(cn)
	r.updateCache(cn, dec)
	return dec
}

// Load replaces the rule set: it rebuilds the store, builds a fresh Bloom
// filter sized for the rules and purges the decision cache.
func (r *Repository) Load(rules []domain.BlockRule) error {
	prev, err := r.store.Stats()
	if err != nil {
		return fmt.Errorf("read blocklist store stats: %w", err)
	}
	version := prev.Version + 1
	now := r.clock.Now()

	if err := r.store.RebuildAll(rules, version, now.Unix()); err != nil {
		return fmt.Errorf("rebuild blocklist store: %w", err)
	}

	bf := r.factory.New(uint64(len(rules)), r.fpRate)
	zones := make(map[string]struct{})
	for _, ru := range rules {
		switch ru.Kind {
		case domain.BlockRuleExact:
			bf.Add(exactKey(ru.Name))
		case domain.BlockRuleSuffix:
			bf.Add(suffixKey(ru.Name))
		default:
			continue
		}
		zones[utils.Zone(ru.Name)] = struct{}{}
	}

	r.mu.Lock()
	r.bloom = bf
	r.cache.Purge()
	r.rules = len(rules)
	r.zones = len(zones)
	r.mu.Unlock()

	r.logger.Info(map[string]any{
		"rules":   len(rules),
		"zones":   len(zones),
		"version": version,
		"fp_rate": r.fpRate,
	}, "Blocklist loaded")
	return nil
}

// Stats returns a snapshot of the cache, store and last load.
func (r *Repository) Stats() (RepoStats, error) {
	st, err := r.store.Stats()
	if err != nil {
		return RepoStats{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RepoStats{
		Cache: r.cache.Stats(),
		Store: st,
		Rules: r.rules,
		Zones: r.zones,
	}, nil
}

// Close releases the store.
func (r *Repository) Close() error {
	return r.store.Close()
}

func exactKey(name string) []byte {
	return []byte("e:" + utils.CanonicalDNSName(name))
}

func suffixKey(name string) []byte {
	return []byte("s:" + utils.ReverseLabels(name))
}

// checkBloom returns true if we should consult the store (maybe-positive),
// or false if we can early-allow (definitely negative). With no filter loaded
// yet it always returns true.
func (r *Repository) checkBloom(cn string) bool {
	r.mu.RLock()
	bf := r.bloom
	r.mu.RUnlock()
	if bf == nil {
		return true
	}
	if bf.MightContain(exactKey(cn)) {
		return true
	}
	for _, s := range utils.Suffixes(cn) {
		if bf.MightContain(suffixKey(s)) {
			return true
		}
	}
	return false
}

func (r *Repository) checkCache(cn string) (domain.BlockDecision, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cache.Get(cn)
}

func (r *Repository) checkStore(cn string) domain.BlockDecision {
	rule, ok, err := r.store.GetFirstMatch(cn)
	if err != nil {
		r.logger.Warn(map[string]any{
			"name":  cn,
			"error": err.Error(),
		}, "Blocklist store lookup failed, allowing")
		return domain.BlockDecision{}
	}
	if !ok {
		return domain.BlockDecision{}
	}
	return domain.BlockDecision{Blocked: true, MatchedRule: rule.Name, Source: rule.Source, Kind: rule.Kind}
}

func (r *Repository) updateCache(cn string, dec domain.BlockDecision) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.cache.Put(cn, dec)
}
