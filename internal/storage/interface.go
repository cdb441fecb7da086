package storage

import (
	"context"
	"errors"
)

// ErrInvalidKey is returned by backends for namespaces that cannot be stored safely.
var ErrInvalidKey = errors.New("invalid collection key")

// Backend persists opaque blobs under well-known keys, one per collection.
//
// Put must replace the value atomically: after a failed Put the previous value
// remains readable. Backends do no locking of their own; Store serializes
// writers per key.
type Backend interface {
	// Lifecycle
	Close() error

	// Blobs
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)

	// Utils
	Location() string
}
