// Package session persists chat session snapshots on disk so a CLI chat can
// be resumed. Snapshots live in one BoltDB file, keyed by session id.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/planner"
)

var (
	snapshotsBucket = []byte("snapshots")
	metaBucket      = []byte("meta")
	lastKey         = []byte("last")
)

// ErrNotFound is returned when no snapshot exists for a session.
var ErrNotFound = errors.New("session not found")

// Record is a stored snapshot.
type Record struct {
	State   planner.State `json:"state"`
	SavedAt time.Time     `json:"saved_at"`
}

// Store is a BoltDB-backed snapshot store.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens (or creates) sessions.bolt in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	db, err := bolt.Open(filepath.Join(dir, "sessions.bolt"), 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(snapshotsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating session buckets: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores st and marks it as the last active session.
func (s *Store) Save(st planner.State) error {
	if st.SessionID == "" {
		return fmt.Errorf("saving session: missing session id")
	}
	enc, err := json.Marshal(Record{State: st, SavedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", st.SessionID, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(snapshotsBucket).Put([]byte(st.SessionID), enc); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put(lastKey, []byte(st.SessionID))
	})
}

// Load returns the snapshot of sessionID.
func (s *Store) Load(sessionID string) (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(snapshotsBucket).Get([]byte(sessionID))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Last returns the most recently saved snapshot.
func (s *Store) Last() (Record, error) {
	var id string
	if err := s.db.View(func(tx *bolt.Tx) error {
		id = string(tx.Bucket(metaBucket).Get(lastKey))
		return nil
	}); err != nil {
		return Record{}, err
	}
	if id == "" {
		return Record{}, ErrNotFound
	}
	return s.Load(id)
}

// List returns every stored snapshot, most recently saved first. Malformed
// entries are skipped.
func (s *Store) List() ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotsBucket).ForEach(func(_, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}

// Delete removes the snapshot of sessionID.
func (s *Store) Delete(sessionID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		if string(meta.Get(lastKey)) == sessionID {
			if err := meta.Delete(lastKey); err != nil {
				return err
			}
		}
		return tx.Bucket(snapshotsBucket).Delete([]byte(sessionID))
	})
}
