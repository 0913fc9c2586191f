// Package settings persists the few tunables that survive a restart, using a
// small BoltDB file. Today that is just the slideshow interval.
package settings

import (
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const settingsBucket = "Settings"

var intervalKey = []byte("interval_seconds")

// Store wraps the settings database.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the settings database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("settings: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(settingsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("settings: init bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Interval returns the persisted slideshow interval. ok is false when none
// has been stored yet.
func (s *Store) Interval() (d time.Duration, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(settingsBucket)).Get(intervalKey)
		if len(v) != 8 {
			return nil
		}
		secs := binary.BigEndian.Uint64(v)
		d = time.Duration(secs) * time.Second
		ok = true
		return nil
	})
	return d, ok, err
}

// SetInterval persists the slideshow interval, rounded down to whole seconds.
// Sub-second values are rejected.
func (s *Store) SetInterval(d time.Duration) error {
	secs := uint64(d / time.Second)
	if secs == 0 {
		return fmt.Errorf("settings: interval %v too short", d)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		var v [8]byte
		binary.BigEndian.PutUint64(v[:], secs)
		return tx.Bucket([]byte(settingsBucket)).Put(intervalKey, v[:])
	})
}
