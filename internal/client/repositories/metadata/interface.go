// Package metadata implements the persistent local key/value store that keeps
// session data across restarts of the client.
package metadata

import (
	"context"
)

// Repository is a string-keyed byte store. Absent keys read as nil.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMany(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMany(ctx context.Context, values map[string][]byte) error
	Clear(ctx context.Context) error
}

var _ Repository = (*SQLiteRepository)(nil)
