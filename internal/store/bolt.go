package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/concord4-bridge/internal/integration"
	bolt "go.etcd.io/bbolt"
)

var bucketEntries = []byte("entries")

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &BoltStore{db: db, now: time.Now}, nil
}

// Create stores a new entry. Its id comes from the bucket sequence, so ids
// are never reused.
func (s *BoltStore) Create(title string, data integration.EntryData) (integration.ConfigEntry, error) {
	var entry integration.ConfigEntry
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketEntries)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		entry = integration.ConfigEntry{
			ID:        strconv.FormatUint(seq, 10),
			Title:     title,
			Data:      data,
			CreatedAt: s.now().UTC().Truncate(time.Second),
		}
		bts, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return b.Put(key(entry.ID), bts)
	})
	if err != nil {
		return integration.ConfigEntry{}, fmt.Errorf("create entry: %w", err)
	}
	return entry, nil
}

func (s *BoltStore) Get(id string) (integration.ConfigEntry, error) {
	var entry integration.ConfigEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketEntries)
		}
		data := b.Get(key(id))
		if data == nil {
			return fmt.Errorf("entry %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &entry)
	})
	return entry, err
}

// List returns every entry, in creation order.
func (s *BoltStore) List() ([]integration.ConfigEntry, error) {
	var entries []integration.ConfigEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return nil
		}
		entries = make([]integration.ConfigEntry, 0, b.Stats().KeyN)
		return b.ForEach(func(_, v []byte) error {
			var entry integration.ConfigEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

func (s *BoltStore) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketEntries)
		}
		if b.Get(key(id)) == nil {
			return fmt.Errorf("entry %s: %w", id, ErrNotFound)
		}
		return b.Delete(key(id))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// key zero-pads ids so bolt's byte ordering matches creation order.
func key(id string) []byte {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return []byte(id)
	}
	return []byte(fmt.Sprintf("%020d", n))
}
