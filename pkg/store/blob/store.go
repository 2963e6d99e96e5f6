// Package blob defines the object-store abstraction holding file content.
//
// The store knows nothing about hierarchy: it maps opaque keys to byte
// blobs. Keys are derived by the model layer from entity identities.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a key has no blob. Expected absence, never
// fatal on its own.
var ErrNotFound = errors.New("blob not found")

// Object describes one stored blob as reported by a listing or stat.
type Object struct {
	// Key is the full object key.
	Key string

	// Size is the blob size in bytes as reported by the store. For files
	// this is the authoritative size; metadata records may lag behind.
	Size int64
}

// Store is a thin client abstraction over a remote object store.
//
// Transient service failures are retried inside the client (the SDK retryer
// is configured with bounded attempts); errors that surface from these
// methods are either ErrNotFound or non-retryable.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Put stores or overwrites the blob at key. size is the exact number of
	// bytes that will be read from r; stores that require a declared length
	// (S3 non-chunked uploads) rely on it.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get returns a reader over the blob at key. The caller must fully
	// consume or close the reader. Returns ErrNotFound for a missing key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Stat returns the blob's key and size without reading its content.
	// Returns ErrNotFound for a missing key.
	Stat(ctx context.Context, key string) (Object, error)

	// Delete removes the blob at key. Deleting a missing key is not an
	// error; Delete is idempotent.
	Delete(ctx context.Context, key string) error

	// Copy duplicates the blob at srcKey to dstKey server-side. Returns
	// ErrNotFound when the source is missing.
	Copy(ctx context.Context, srcKey, dstKey string) error

	// ListPage returns up to limit objects whose keys start with prefix,
	// together with an opaque continuation token for the next page. An
	// empty returned token means the listing is exhausted. Passing limit<=0
	// uses the store's default page size. Order across keys is unspecified.
	ListPage(ctx context.Context, prefix, token string, limit int32) ([]Object, string, error)
}

// ForEach walks every object under prefix, page by page, invoking fn for
// each. Iteration stops at the first error from the store or from fn.
func ForEach(ctx context.Context, s Store, prefix string, fn func(Object) error) error {
	var token string
	for {
		objects, next, err := s.ListPage(ctx, prefix, token, 0)
		if err != nil {
			return err
		}
		for _, obj := range objects {
			if err := fn(obj); err != nil {
				return err
			}
		}
		if next == "" {
			return nil
		}
		token = next
	}
}
