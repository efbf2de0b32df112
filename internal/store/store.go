// Package store keeps normalized sheet snapshots and the ticket to issue
// mapping in a BoltDB file.
//
// Values are CBOR encoded with deterministic options, so saving the same
// snapshot twice produces the same bytes.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/google/uuid"

	"github.com/rifqisp97-lab/technician-guardian/internal/ticket"
	"github.com/rifqisp97-lab/technician-guardian/pkg/models"
)

var (
	snapshotBucket = []byte("snapshots")
	mirrorBucket   = []byte("mirror")
)

// DefaultRetain is how many snapshots are kept when no limit is given.
const DefaultRetain = 48

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Snapshot is one successful read of the sheet.
type Snapshot struct {
	ID          string             `cbor:"id" json:"id"`
	FetchedAt   time.Time          `cbor:"fetchedAt" json:"fetchedAt"`
	Source      string             `cbor:"source" json:"source"`
	Tickets     []models.Ticket    `cbor:"tickets" json:"tickets"`
	Diagnostics ticket.Diagnostics `cbor:"diagnostics" json:"diagnostics"`
}

// Store wraps a BoltDB database.
type Store struct {
	db     *bolt.DB
	retain int
}

// Open opens (or creates) the database at path. retain bounds the number of
// snapshots kept; values <= 0 select DefaultRetain.
func Open(path string, retain int) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{snapshotBucket, mirrorBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	if retain <= 0 {
		retain = DefaultRetain
	}
	return &Store{db: db, retain: retain}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores snap and drops the oldest snapshots beyond the retention
// limit. An empty ID is filled with a random UUID and a zero FetchedAt with
// the current time. The stored snapshot is returned.
func (s *Store) Save(snap Snapshot) (Snapshot, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}
	data, err := marshal(snap)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encoding snapshot: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(snapshotBucket)
		if err := b.Put(snapshotKey(snap.FetchedAt), data); err != nil {
			return err
		}
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for len(keys) > s.retain {
			if err := b.Delete(keys[0]); err != nil {
				return err
			}
			keys = keys[1:]
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("saving snapshot: %w", err)
	}
	return snap, nil
}

// Latest returns the most recently fetched snapshot.
func (s *Store) Latest() (Snapshot, error) {
	var snap Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		_, v := tx.Bucket(snapshotBucket).Cursor().Last()
		if v == nil {
			return ErrNotFound
		}
		return unmarshal(v, &snap)
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// History returns up to limit snapshots, newest first. A limit <= 0 returns
// all of them.
func (s *Store) History(limit int) ([]Snapshot, error) {
	snaps := []Snapshot{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(snapshotBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(snaps) >= limit {
				break
			}
			var snap Snapshot
			if err := unmarshal(v, &snap); err != nil {
				return fmt.Errorf("decoding snapshot %x: %w", k, err)
			}
			snaps = append(snaps, snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snaps, nil
}

// IssueKey returns the issue key recorded for ticketNo.
func (s *Store) IssueKey(ticketNo string) (string, error) {
	var key string
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(mirrorBucket).Get([]byte(ticketNo))
		if v == nil {
			return ErrNotFound
		}
		key = string(v)
		return nil
	})
	return key, err
}

// SetIssueKey records that ticketNo is mirrored by issueKey. Writing the
// same mapping again is a no-op.
func (s *Store) SetIssueKey(ticketNo, issueKey string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(mirrorBucket)
		if string(b.Get([]byte(ticketNo))) == issueKey {
			return nil
		}
		return b.Put([]byte(ticketNo), []byte(issueKey))
	})
}

// snapshotKey orders snapshots by fetch time.
func snapshotKey(t time.Time) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(t.UnixNano()))
	return k
}
