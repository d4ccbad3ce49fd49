// Package bolt records orphaned items in a single-file bbolt database for
// servers that run without PostgreSQL.
package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/google/uuid"
	bbolt "go.etcd.io/bbolt"

	"github.com/cory-johannsen/tilemud/internal/game/operation"
)

var (
	bucketOrphans  = []byte("orphans")
	bucketResolved = []byte("resolved")
	// bucketIndex maps an orphan id to its key in orphans or resolved.
	bucketIndex = []byte("orphan_index")
)

// ErrOrphanNotFound is returned when no unresolved orphan has the given id.
var ErrOrphanNotFound = errors.New("orphan not found")

// OrphanStore implements operation.OrphanLedger on bbolt.
type OrphanStore struct {
	db *bbolt.DB
}

// Open opens or creates the database file at path.
//
// Postcondition: all buckets exist, or an error is returned and nothing stays open.
func Open(path string) (*OrphanStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening orphan store %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketOrphans, bucketResolved, bucketIndex} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating orphan buckets: %w", err)
	}
	return &OrphanStore{db: db}, nil
}

// Close closes the database file.
func (s *OrphanStore) Close() error {
	return s.db.Close()
}

// orphanKey orders records by occurrence, then id.
func orphanKey(rec operation.OrphanRecord) []byte {
	key := make([]byte, 8+16)
	binary.BigEndian.PutUint64(key, uint64(rec.OccurredAt.UnixNano()))
	copy(key[8:], rec.ID[:])
	return key
}

func encode(rec operation.OrphanRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (operation.OrphanRecord, error) {
	var rec operation.OrphanRecord
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec)
	return rec, err
}

// RecordOrphan stores rec. A record without an id gets a new one.
//
// Precondition: rec.Amount must be > 0.
// Postcondition: the record is listed by Unresolved.
func (s *OrphanStore) RecordOrphan(_ context.Context, rec operation.OrphanRecord) error {
	if rec.Amount <= 0 {
		return fmt.Errorf("recording orphan: amount must be > 0, got %d", rec.Amount)
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	data, err := encode(rec)
	if err != nil {
		return fmt.Errorf("encoding orphan %s: %w", rec.ID, err)
	}
	key := orphanKey(rec)
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketOrphans).Put(key, data); err != nil {
			return fmt.Errorf("recording orphan %s: %w", rec.ID, err)
		}
		return tx.Bucket(bucketIndex).Put(rec.ID[:], key)
	})
}

// Unresolved lists orphans not yet resolved, oldest first.
//
// Precondition: limit must be > 0.
func (s *OrphanStore) Unresolved(_ context.Context, limit int) ([]operation.OrphanRecord, error) {
	out := make([]operation.OrphanRecord, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketOrphans).Cursor()
		for k, v := c.First(); k != nil && len(out) < limit; k, v = c.Next() {
			rec, err := decode(v)
			if err != nil {
				return fmt.Errorf("decoding orphan: %w", err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing orphans: %w", err)
	}
	return out, nil
}

// Resolve moves an orphan out of the unresolved list.
//
// Postcondition: Returns ErrOrphanNotFound if id is unknown or already resolved.
func (s *OrphanStore) Resolve(_ context.Context, id uuid.UUID) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		key := tx.Bucket(bucketIndex).Get(id[:])
		if key == nil {
			return ErrOrphanNotFound
		}
		open := tx.Bucket(bucketOrphans)
		data := open.Get(key)
		if data == nil {
			return ErrOrphanNotFound
		}
		// Get's slice is only valid inside the transaction, and Put keeps it.
		if err := tx.Bucket(bucketResolved).Put(key, bytes.Clone(data)); err != nil {
			return err
		}
		return open.Delete(key)
	})
}

// Get returns one orphan regardless of its resolution.
//
// Postcondition: Returns ErrOrphanNotFound if id is unknown.
func (s *OrphanStore) Get(_ context.Context, id uuid.UUID) (operation.OrphanRecord, error) {
	var rec operation.OrphanRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket(bucketIndex).Get(id[:])
		if key == nil {
			return ErrOrphanNotFound
		}
		data := tx.Bucket(bucketOrphans).Get(key)
		if data == nil {
			data = tx.Bucket(bucketResolved).Get(key)
		}
		if data == nil {
			return ErrOrphanNotFound
		}
		var err error
		rec, err = decode(data)
		return err
	})
	return rec, err
}
