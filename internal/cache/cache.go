// Package cache decides when a dependency has to be rebuilt.
//
// Each project keeps a ledger of package name -> time of the package's last
// successful build, stored in a BoltDB file under the project's working
// area. A package is stale when it has no ledger entry or when any regular
// file under its materialized root is newer than the entry. The check is
// purely time based; file contents are never hashed.
//
// The ledger is read once at the start of a pass, updated in memory as
// packages are built and written back as a whole at the end of the pass.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// LedgerFile is the file name of the ledger database. It is never
	// considered when scanning a package for changes.
	LedgerFile = "ledger.db"

	// bucketName is the BoltDB bucket holding ledger entries
	bucketName = "ledger"
)

// Store persists a project's ledger
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the ledger database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the ledger database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

// Load reads the whole ledger
func (s *Store) Load() (Ledger, error) {
	ledger := make(Ledger)

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		return b.ForEach(func(k, v []byte) error {
			ts, err := strconv.ParseInt(string(v), 10, 64)
			if err != nil {
				return fmt.Errorf("corrupt ledger entry %q: %w", k, err)
			}

			ledger[string(k)] = ts
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	return ledger, nil
}

// Save replaces the stored ledger with l in a single transaction
func (s *Store) Save(l Ledger) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}

		b, err := tx.CreateBucket([]byte(bucketName))
		if err != nil {
			return err
		}

		for name, ts := range l {
			if err := b.Put([]byte(name), []byte(strconv.FormatInt(ts, 10))); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}

	return nil
}
