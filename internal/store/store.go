package store

import (
	"context"
	"fmt"
)

// Fixed keys for the logical collections held by the local store.
const (
	KeyInventoryCache     = "inventory_cache"
	KeyPendingChanges     = "pending_changes"
	KeyInventoryTimestamp = "inventory_timestamp"
)

// KV is the durable string-keyed persistence layer backing the offline cache
// and the pending-change queue. Writes to a single key are atomic; a missing
// key is not an error.
//
// This abstraction allows swapping between SQLite (default), Redis, and an
// in-memory store for tests without changing the queue logic.
type KV interface {
	// Get retrieves the value for a key. Returns (nil, nil) if the key
	// does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value under a key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying resources.
	Close() error
}

// StorageError wraps a failure of the local persistence layer. Callers must
// treat it as "the offline save itself failed": neither cache nor queue can
// be assumed to reflect the attempted mutation.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("local store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
