// Package store keeps small named values, the way a browser keeps
// localStorage entries.
package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key has never been written
var ErrNotFound = errors.New("key not found")

// Store reads and writes raw values by key
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Close() error
}

// Open returns the store for driver ("file" or "sqlite") at path
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "file":
		return NewFileStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
