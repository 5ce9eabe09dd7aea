package blob

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("object not found")

// Store reads and writes whole objects addressed by bucket and key. Put
// overwrites any existing object.
type Store interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error
}
