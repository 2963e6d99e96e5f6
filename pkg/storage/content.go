package storage

import (
	"context"
	"io"

	"github.com/marmos91/s3dav/pkg/model"
)

// OpenContent returns a reader over the file's content. The caller must
// fully consume or close the reader.
func (s *Service) OpenContent(ctx context.Context, file *model.File) (io.ReadCloser, error) {
	const op = "open content"

	if file == nil {
		return nil, invariantf(op, "file is required")
	}

	r, err := s.blobs.Get(ctx, file.BlobKey())
	if err != nil {
		return nil, classify(op, err)
	}
	return r, nil
}

// ContentSize returns the file's size as reported by the blob store, the
// authoritative source; the metadata record's size can go stale.
func (s *Service) ContentSize(ctx context.Context, file *model.File) (int64, error) {
	const op = "content size"

	if file == nil {
		return 0, invariantf(op, "file is required")
	}

	obj, err := s.blobs.Stat(ctx, file.BlobKey())
	if err != nil {
		return 0, classify(op, err)
	}
	return obj.Size, nil
}
