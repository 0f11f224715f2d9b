package object

import (
	"context"
	"errors"
	"io"
)

// ErrObjectExists is returned when a key is already taken in the bucket.
var ErrObjectExists = errors.New("object already exists")

// ObjectStore defines the contract for saving and retrieving binary objects.
// Put returns the path of the stored object relative to its bucket.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
