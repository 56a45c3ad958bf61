package state

import (
	"context"
	"errors"
)

// Versioned pairs a state blob with the version that was current when it
// was read. Callers hand the version back on CompareAndSwap.
type Versioned struct {
	Version int64
	Blob    []byte
}

// Store persists one versioned state blob per session and is the sole
// mutation point for live session state. Implementations must make
// CompareAndSwap atomic per key; the coordinator holds no locks across
// store calls.
type Store interface {
	// Create initializes the blob at version 0. It fails with
	// ErrSessionExists when the key is already present.
	Create(ctx context.Context, id string, blob []byte) error

	// Read returns the current blob and its version, or
	// ErrSessionNotFound when the key is absent.
	Read(ctx context.Context, id string) (*Versioned, error)

	// CompareAndSwap writes blob and returns expectedVersion+1 iff the
	// stored version still equals expectedVersion. A concurrent write
	// surfaces as ErrVersionConflict.
	CompareAndSwap(ctx context.Context, id string, expectedVersion int64, blob []byte) (int64, error)

	// Delete removes the blob. Deleting an absent key is not an error,
	// so a repeated archive pass stays safe.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

var (
	// ErrSessionExists is returned when creating a key that is already present
	ErrSessionExists = errors.New("session state already exists")
	// ErrSessionNotFound is returned when the key is absent
	ErrSessionNotFound = errors.New("session state not found")
	// ErrVersionConflict is returned when a concurrent write invalidated the expected version
	ErrVersionConflict = errors.New("session state version conflict")
)
