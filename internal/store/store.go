package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/inferno/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// DefaultKeyPrefix namespaces every preference key
const DefaultKeyPrefix = "inferno_"

// Bucket names
var (
	bucketPrefs  = []byte("prefs")
	bucketEvents = []byte("events")
)

// PrefStore implements domain.Store using BoltDB.
type PrefStore struct {
	db     *bolt.DB
	cipher domain.Cipher
	prefix string

	mu     sync.RWMutex // Protects memory cache and closed
	closed bool

	// In-memory cache for hot-path reads (promoted on access).
	// In memory-only mode it is the sole copy.
	cache  map[string][]byte
	events map[string][]byte
}

// NewPrefStore opens (or creates) the BoltDB file at path. An empty path
// selects memory-only mode.
func NewPrefStore(path, prefix string, cipher domain.Cipher) (*PrefStore, error) {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	s := &PrefStore{
		cipher: cipher,
		prefix: prefix,
		cache:  make(map[string][]byte),
		events: make(map[string][]byte),
	}

	if path == "" {
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketPrefs, bucketEvents} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	return s, nil
}

func (s *PrefStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *PrefStore) key(name string) string {
	return s.prefix + name
}

// === Generic helpers ===

func (s *PrefStore) get(name string, dest interface{}) bool {
	key := s.key(name)

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return false
	}
	if data, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketPrefs).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *PrefStore) set(name string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	key := s.key(name)

	if err := s.checkOpen(); err != nil {
		return err
	}

	// The cache only ever holds persisted values
	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketPrefs).Put([]byte(key), data)
		})
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()
	return nil
}

func (s *PrefStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return nil
}

// === Plain values ===

func (s *PrefStore) GetString(key string) (string, bool) {
	var v string
	ok := s.get(key, &v)
	return v, ok
}

func (s *PrefStore) SetString(key, value string) error {
	return s.set(key, value)
}

func (s *PrefStore) GetInt(key string) (int, bool) {
	var v int
	ok := s.get(key, &v)
	return v, ok
}

func (s *PrefStore) SetInt(key string, value int) error {
	return s.set(key, value)
}

func (s *PrefStore) Delete(name string) error {
	key := s.key(name)

	if err := s.checkOpen(); err != nil {
		return err
	}

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketPrefs).Delete([]byte(key))
		})
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", name, err)
		}
	}

	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	return nil
}

// === Encrypted values ===

// GetSecure returns the decrypted value for key. A value that cannot be
// decrypted comes back as stored.
func (s *PrefStore) GetSecure(key string) (string, bool) {
	raw, ok := s.GetString(key)
	if !ok {
		return "", false
	}
	if s.cipher == nil {
		return raw, true
	}
	return s.cipher.Decrypt(raw), true
}

func (s *PrefStore) SetSecure(key, value string) error {
	if s.cipher != nil {
		value = s.cipher.Encrypt(value)
	}
	return s.SetString(key, value)
}

// GetSecureInt decrypts key and parses it as an integer. A value that does
// not parse (including undecryptable ciphertext) is a cache miss.
func (s *PrefStore) GetSecureInt(key string) (int, bool) {
	raw, ok := s.GetSecure(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// === Events ===

// eventKey orders events by time; the id keeps keys unique.
func eventKey(e domain.Event) string {
	return fmt.Sprintf("%020d:%s", e.Timestamp, e.ID)
}

func (s *PrefStore) AppendEvent(e domain.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	key := eventKey(e)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrStoreClosed
	}
	if s.db == nil {
		s.events[key] = data
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEvents).Put([]byte(key), data)
	})
}

// Events returns all recorded events, oldest first.
func (s *PrefStore) Events() ([]domain.Event, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, domain.ErrStoreClosed
	}
	var raw [][]byte
	if s.db == nil {
		keys := make([]string, 0, len(s.events))
		for k := range s.events {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			raw = append(raw, s.events[k])
		}
	}
	s.mu.RUnlock()

	if s.db != nil {
		err := s.db.View(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketEvents).ForEach(func(_, v []byte) error {
				data := make([]byte, len(v))
				copy(data, v)
				raw = append(raw, data)
				return nil
			})
		})
		if err != nil {
			return nil, err
		}
	}

	events := make([]domain.Event, 0, len(raw))
	for _, data := range raw {
		var e domain.Event
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		events = append(events, e)
	}
	return events, nil
}

// FlushEvents deletes every recorded event.
func (s *PrefStore) FlushEvents() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrStoreClosed
	}
	s.events = make(map[string][]byte)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketEvents); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketEvents)
		return err
	})
}

// Keys returns the logical names of all stored preferences whose name starts with prefix.
func (s *PrefStore) Keys(prefix string) []string {
	full := s.key(prefix)
	seen := make(map[string]struct{})

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil
	}
	for k := range s.cache {
		if strings.HasPrefix(k, full) {
			seen[strings.TrimPrefix(k, s.prefix)] = struct{}{}
		}
	}
	s.mu.RUnlock()

	if s.db != nil {
		s.db.View(func(tx *bolt.Tx) error {
			c := tx.Bucket(bucketPrefs).Cursor()
			p := []byte(full)
			for k, _ := c.Seek(p); k != nil && strings.HasPrefix(string(k), full); k, _ = c.Next() {
				seen[strings.TrimPrefix(string(k), s.prefix)] = struct{}{}
			}
			return nil
		})
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
