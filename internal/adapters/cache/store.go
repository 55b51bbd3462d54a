// Package cache keeps raw session-data provider responses on disk so that a
// session is downloaded once.
//
// The cache is an explicit handle: the host opens it with a directory of its
// choosing, hands it to the provider and closes it on shutdown. A nil *Store
// is valid and behaves as an always-empty cache.
package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/perfectlap/pkg/metrics"
	bolt "go.etcd.io/bbolt"
)

const (
	fileName       = "perfectlap.db"
	dirPermission  = 0o750
	filePermission = 0o600
	openTimeout    = time.Second
	stampSize      = 8
)

var (
	entriesBucket = []byte("entries") // key -> stamp|value
	ageBucket     = []byte("age")     // stamp|key -> nil, oldest first
	metaBucket    = []byte("meta")
	countKey      = []byte("count")
)

// Store is a bbolt-backed key/value cache with optional TTL and size bound.
type Store struct {
	db         *bolt.DB
	path       string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// Open creates dir if needed and opens the cache database inside it.
func Open(_ context.Context, dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, dirPermission); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	s := &Store{
		path: filepath.Join(dir, fileName),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := bolt.Open(s.path, filePermission, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, s.path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{entriesBucket, ageBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	s.db = db
	metrics.UpdateCacheEntries(s.Len(context.Background()))
	return s, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Get returns the cached value for key. Expired entries are misses and are
// removed.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, nil
	}

	var (
		value   []byte
		stamp   []byte
		expired bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(entriesBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		if len(raw) < stampSize {
			return fmt.Errorf("%w: %q", ErrCorrupt, key)
		}
		stamp = append([]byte(nil), raw[:stampSize]...)
		if s.ttl > 0 && s.now().Sub(decodeStamp(stamp)) > s.ttl {
			expired = true
			return nil
		}
		value = append([]byte(nil), raw[stampSize:]...)
		return nil
	})
	if err != nil {
		metrics.RecordErrorByComponent("cache", "read")
		return nil, false, err
	}

	if expired {
		var (
			removed bool
			count   int
		)
		err := s.db.Update(func(tx *bolt.Tx) error {
			var err error
			removed, err = deleteEntry(tx, key, stamp)
			count = readCount(tx)
			return err
		})
		switch {
		case err != nil:
			metrics.RecordErrorByComponent("cache", "expire")
		case removed:
			metrics.RecordCacheEvictions(1)
			metrics.UpdateCacheEntries(count)
		}
	}
	if value == nil {
		metrics.RecordCacheMiss()
		return nil, false, nil
	}
	metrics.RecordCacheHit()
	return value, true, nil
}

// Put stores value under key, replacing any previous entry, and evicts the
// oldest entries when the store grows past its bound.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	if s == nil {
		return nil
	}

	stamp := encodeStamp(s.now())
	var (
		evicted int
		count   int
	)
	err := s.db.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(entriesBucket)
		if old := entries.Get([]byte(key)); len(old) >= stampSize {
			if _, err := deleteEntry(tx, key, old[:stampSize]); err != nil {
				return err
			}
		}

		raw := make([]byte, 0, stampSize+len(value))
		raw = append(raw, stamp...)
		raw = append(raw, value...)
		if err := entries.Put([]byte(key), raw); err != nil {
			return err
		}
		if err := tx.Bucket(ageBucket).Put(ageKey(stamp, key), nil); err != nil {
			return err
		}
		if err := addCount(tx, 1); err != nil {
			return err
		}

		count = readCount(tx)
		if s.maxEntries <= 0 || count <= s.maxEntries {
			return nil
		}
		n, err := evictOldest(tx, count-s.maxEntries)
		evicted = n
		count -= n
		return err
	})
	if err != nil {
		metrics.RecordErrorByComponent("cache", "write")
		return err
	}
	if evicted > 0 {
		metrics.RecordCacheEvictions(evicted)
	}
	metrics.UpdateCacheEntries(count)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *Store) Len(_ context.Context) int {
	if s == nil {
		return 0
	}
	n := 0
	_ = s.db.View(func(tx *bolt.Tx) error {
		n = readCount(tx)
		return nil
	})
	return n
}

// Purge removes every entry.
func (s *Store) Purge(_ context.Context) error {
	if s == nil {
		return nil
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{entriesBucket, ageBucket, metaBucket} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		metrics.UpdateCacheEntries(0)
	}
	return err
}

// Close releases the database file.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

func evictOldest(tx *bolt.Tx, n int) (int, error) {
	var victims [][]byte
	c := tx.Bucket(ageBucket).Cursor()
	for k, _ := c.First(); k != nil && len(victims) < n; k, _ = c.Next() {
		victims = append(victims, append([]byte(nil), k...))
	}
	removed := 0
	for _, k := range victims {
		ok, err := deleteEntry(tx, string(k[stampSize:]), k[:stampSize])
		if err != nil {
			return 0, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// deleteEntry removes key if it still carries stamp and reports whether it
// did. A newer write of the same key is left alone.
func deleteEntry(tx *bolt.Tx, key string, stamp []byte) (bool, error) {
	entries := tx.Bucket(entriesBucket)
	raw := entries.Get([]byte(key))
	if len(raw) < stampSize || !bytes.Equal(raw[:stampSize], stamp) {
		return false, nil
	}
	if err := entries.Delete([]byte(key)); err != nil {
		return false, err
	}
	if err := tx.Bucket(ageBucket).Delete(ageKey(stamp, key)); err != nil {
		return false, err
	}
	return true, addCount(tx, -1)
}

func readCount(tx *bolt.Tx) int {
	v := tx.Bucket(metaBucket).Get(countKey)
	if len(v) != stampSize {
		return 0
	}
	return int(binary.BigEndian.Uint64(v))
}

func addCount(tx *bolt.Tx, delta int) error {
	n := readCount(tx) + delta
	if n < 0 {
		n = 0
	}
	b := make([]byte, stampSize)
	binary.BigEndian.PutUint64(b, uint64(n))
	return tx.Bucket(metaBucket).Put(countKey, b)
}

func ageKey(stamp []byte, key string) []byte {
	var b bytes.Buffer
	b.Grow(len(stamp) + len(key))
	b.Write(stamp)
	b.WriteString(key)
	return b.Bytes()
}

func encodeStamp(t time.Time) []byte {
	b := make([]byte, stampSize)
	binary.BigEndian.PutUint64(b, uint64(t.UnixNano()))
	return b
}

func decodeStamp(b []byte) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(b)))
}
