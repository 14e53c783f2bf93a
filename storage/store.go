// Package storage persists small JSON documents: settings, level progress,
// last played level
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrStorage marks every storage failure
var ErrStorage = errors.New("storage: failure")

// StorageError describes a failed operation on a key
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// Store is a key/value store of encoded documents
// Load reports ok=false for a missing key without error
type Store interface {
	Save(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) (value []byte, ok bool, err error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keys used by the game
const (
	KeySettings        = "settings"
	KeyLevelProgress   = "levelProgress"
	KeyCompletedLevels = "completedLevels"
	KeyLastLevel       = "lastLevel"
)
