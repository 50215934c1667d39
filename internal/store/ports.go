// Package store defines the key-value port the ledger persists through.
package store

import (
	"context"
	"errors"
)

// ErrClosed is returned by adapters used after Close.
var ErrClosed = errors.New("store closed")

// Store persists opaque serialized values under string keys.
// Load reports found=false, with a nil error, for a key never saved.
type Store interface {
	Load(ctx context.Context, key string) (value []byte, found bool, err error)
	Save(ctx context.Context, key string, value []byte) error
	Close() error
}
