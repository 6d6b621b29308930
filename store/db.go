package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
)

// Database wraps the Badger database the ledger tables live in.
type Database struct {
	db *badger.DB
}

// NewDatabase initializes and returns a new Database instance at path.
func NewDatabase(path string) (*Database, error) {
	// Remove any existing lock file before opening
	lockFile := filepath.Join(path, "LOCK")
	if err := os.Remove(lockFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove existing lock file: %v", err)
	}

	opts := badger.DefaultOptions(path).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open Badger database: %v", err)
	}

	return &Database{db: db}, nil
}

func (d *Database) GetDB() *badger.DB {
	return d.db
}

// Close closes the Badger database
func (d *Database) Close() {
	if d.db != nil {
		err := d.db.Close()
		if err != nil {
			log.Printf("Failed to close Badger database: %v", err)
		}
	}
}
