// Package persistence provides the durable key/value storage the client
// state store mirrors itself into.
package persistence

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when nothing was saved under the key.
var ErrNotFound = errors.New("persistence: key not found")

// Storage is a durable key/value store for client state.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}
