// Package bolt persists blocklist rules in a bbolt database.
//
// Layout:
//
//	exact/<name>             -> value
//	suffix/<reversed labels> -> value
//	meta/version, meta/updated (8-byte big endian)
//
// where value is the rule's added-at unix time (8 bytes) followed by its source.
package bolt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/rr-doh/internal/dns/common/utils"
	"github.com/haukened/rr-doh/internal/dns/domain"
	"github.com/haukened/rr-doh/internal/dns/repos/blocklist"
)

var (
	bucketExact  = []byte("exact")
	bucketSuffix = []byte("suffix")
	bucketMeta   = []byte("meta")

	keyVersion = []byte("version")
	keyUpdated = []byte("updated")
)

// boltStore implements blocklist.Store using bbolt.
type boltStore struct {
	db *bbolt.DB
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string) (blocklist.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open blocklist db %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketExact, bucketSuffix, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init blocklist db %s: %w", path, err)
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Close() error { return s.db.Close() }

// RebuildAll drops both rule buckets and writes rules and metadata in a
// single transaction, so readers see either the old set or the new one.
func (s *boltStore) RebuildAll(rules []domain.BlockRule, version uint64, updatedUnix int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		exact, err := recreateBucket(tx, bucketExact)
		if err != nil {
			return err
		}
		suffix, err := recreateBucket(tx, bucketSuffix)
		if err != nil {
			return err
		}

		for _, ru := range rules {
			name := utils.CanonicalDNSName(ru.Name)
			if name == "" {
				continue
			}
			val := encodeValue(ru)
			switch ru.Kind {
			case domain.BlockRuleExact:
				err = exact.Put([]byte(name), val)
			case domain.BlockRuleSuffix:
				err = suffix.Put([]byte(utils.ReverseLabels(name)), val)
			default:
				continue
			}
			if err != nil {
				return fmt.Errorf("store rule %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketMeta)
		if err := meta.Put(keyVersion, binary.BigEndian.AppendUint64(nil, version)); err != nil {
			return err
		}
		return meta.Put(keyUpdated, binary.BigEndian.AppendUint64(nil, uint64(updatedUnix)))
	})
}

func recreateBucket(tx *bbolt.Tx, name []byte) (*bbolt.Bucket, error) {
	if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
		return nil, err
	}
	return tx.CreateBucket(name)
}

// GetFirstMatch checks the exact bucket, then walks suffix anchors from the
// most specific (the name itself) up to the top-level label.
func (s *boltStore) GetFirstMatch(name string) (domain.BlockRule, bool, error) {
	cn := utils.CanonicalDNSName(name)
	if cn == "" {
		return domain.BlockRule{}, false, nil
	}

	var (
		rule  domain.BlockRule
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketExact).Get([]byte(cn)); v != nil {
			rule, found = decodeValue(cn, domain.BlockRuleExact, v), true
			return nil
		}
		b := tx.Bucket(bucketSuffix)
		for _, anchor := range utils.Suffixes(cn) {
			if v := b.Get([]byte(utils.ReverseLabels(anchor))); v != nil {
				rule, found = decodeValue(anchor, domain.BlockRuleSuffix, v), true
				return nil
			}
		}
		return nil
	})
	return rule, found, err
}

func (s *boltStore) Stats() (blocklist.StoreStats, error) {
	var st blocklist.StoreStats
	err := s.db.View(func(tx *bbolt.Tx) error {
		st.ExactKeys = uint64(tx.Bucket(bucketExact).Stats().KeyN)
		st.SuffixKeys = uint64(tx.Bucket(bucketSuffix).Stats().KeyN)
		meta := tx.Bucket(bucketMeta)
		if v := meta.Get(keyVersion); len(v) == 8 {
			st.Version = binary.BigEndian.Uint64(v)
		}
		if v := meta.Get(keyUpdated); len(v) == 8 {
			st.UpdatedUnix = int64(binary.BigEndian.Uint64(v))
		}
		return nil
	})
	return st, err
}

func encodeValue(ru domain.BlockRule) []byte {
	v := binary.BigEndian.AppendUint64(make([]byte, 0, 8+len(ru.Source)), uint64(ru.AddedAt.Unix()))
	return append(v, ru.Source...)
}

func decodeValue(name string, kind domain.BlockRuleKind, v []byte) domain.BlockRule {
	ru := domain.BlockRule{Name: name, Kind: kind}
	if len(v) >= 8 {
		ru.AddedAt = time.Unix(int64(binary.BigEndian.Uint64(v[:8])), 0)
		ru.Source = string(v[8:])
	}
	return ru
}
