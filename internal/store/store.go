package store

import (
	"context"
	"errors"
)

// Store persists per-visitor client state as opaque payloads. Consumers decide
// what lives under each key; the store only moves bytes.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("key not found")
