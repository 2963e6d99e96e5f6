// Package memory implements the blob store in process memory.
//
// It backs tests and development setups; nothing is persisted. The
// implementation intentionally mirrors the S3 store's observable behavior
// (idempotent deletes, not-found sentinels, paginated listing) so the
// coordinator can be exercised against it without an S3 endpoint.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/marmos91/s3dav/pkg/store/blob"
)

const defaultPageSize = 1000

// MemoryBlobStore implements blob.Store with a mutex-protected map.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBlobStore creates an empty in-memory blob store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{
		blobs: make(map[string][]byte),
	}
}

// Put stores or overwrites the blob at key.
func (s *MemoryBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content for blob %s: %w", key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("blob %s: declared size %d but read %d bytes", key, size, len(data))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data

	return nil
}

// Get returns a reader over a copy of the stored bytes.
func (s *MemoryBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("blob %s: %w", key, blob.ErrNotFound)
	}

	// Copy so later overwrites don't mutate an open reader.
	buf := make([]byte, len(data))
	copy(buf, data)
	return io.NopCloser(bytes.NewReader(buf)), nil
}

// Stat returns the blob's size.
func (s *MemoryBlobStore) Stat(ctx context.Context, key string) (blob.Object, error) {
	if err := ctx.Err(); err != nil {
		return blob.Object{}, err
	}

	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()

	if !ok {
		return blob.Object{}, fmt.Errorf("blob %s: %w", key, blob.ErrNotFound)
	}

	return blob.Object{Key: key, Size: int64(len(data))}, nil
}

// Delete removes the blob at key. Missing keys are not an error.
func (s *MemoryBlobStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)

	return nil
}

// Copy duplicates the blob at srcKey to dstKey.
func (s *MemoryBlobStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.blobs[srcKey]
	if !ok {
		return fmt.Errorf("copy source %s: %w", srcKey, blob.ErrNotFound)
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	s.blobs[dstKey] = buf

	return nil
}

// ListPage returns one page of objects under prefix in key order. The
// continuation token is the last key of the previous page.
func (s *MemoryBlobStore) ListPage(ctx context.Context, prefix, token string, limit int32) ([]blob.Object, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}

	s.mu.RLock()
	keys := make([]string, 0, len(s.blobs))
	for key := range s.blobs {
		if strings.HasPrefix(key, prefix) && key > token {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	truncated := int32(len(keys)) > limit
	if truncated {
		keys = keys[:limit]
	}

	objects := make([]blob.Object, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, blob.Object{Key: key, Size: int64(len(s.blobs[key]))})
	}
	s.mu.RUnlock()

	var next string
	if truncated {
		next = keys[len(keys)-1]
	}

	return objects, next, nil
}

// Len returns the number of stored blobs. Test helper.
func (s *MemoryBlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
