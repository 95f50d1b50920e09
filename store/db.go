package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Outcome is how a game ended
type Outcome string

const (
	// OutcomeEscaped means every player made it through the door
	OutcomeEscaped Outcome = "escaped"
	// OutcomeWiped means the shared health ran out
	OutcomeWiped Outcome = "wiped"
	// OutcomeAbandoned means the last player quit or hung up
	OutcomeAbandoned Outcome = "abandoned"
)

// Result is one finished game
type Result struct {
	Outcome  Outcome   `json:"outcome"`
	Turns    uint64    `json:"turns"`
	Players  uint64    `json:"players"`
	Finished time.Time `json:"finished"`
}

var resultsBucket = []byte("results")

var ErrClosed = errors.New("store is closed")

// DB is the on-disk log of finished games
type DB struct {
	db *bolt.DB
}

func Open(path string) (*DB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("error opening store %q: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(resultsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error creating results bucket: %w", err)
	}

	return &DB{db: db}, nil
}

func (db *DB) Close() error {
	if db.db == nil {
		return ErrClosed
	}

	err := db.db.Close()
	db.db = nil
	return err
}

// Record appends a finished game to the log
func (db *DB) Record(result Result) error {
	if db.db == nil {
		return ErrClosed
	}

	value, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}

	return db.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(resultsBucket)

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}

		var key [8]byte
		binary.BigEndian.PutUint64(key[:], seq)
		return bucket.Put(key[:], value)
	})
}

// Recent returns up to n results, newest first
func (db *DB) Recent(n int) ([]Result, error) {
	if db.db == nil {
		return nil, ErrClosed
	}

	if n <= 0 {
		return nil, nil
	}

	results := make([]Result, 0, n)

	err := db.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(resultsBucket).Cursor()

		for k, v := cursor.Last(); k != nil && len(results) < n; k, v = cursor.Prev() {
			var result Result
			if err := json.Unmarshal(v, &result); err != nil {
				return fmt.Errorf("error decoding result %x: %w", k, err)
			}

			results = append(results, result)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}
