package repository

import (
	"context"
	"io"
)

// AvatarStorage keeps avatar images addressed by object key.
type AvatarStorage interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
