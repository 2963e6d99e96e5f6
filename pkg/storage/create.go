package storage

import (
	"context"
	"io"

	"github.com/marmos91/s3dav/internal/logger"
	"github.com/marmos91/s3dav/pkg/model"
)

// CreateFolder creates a new folder under parent and persists its metadata
// record. Folders have no blob presence, so this is a single-store write.
//
// Sibling name uniqueness is not pre-checked: the metadata store offers no
// unique-secondary-index primitive, so two concurrent creators can both
// succeed. Callers that care check ListChildren first.
func (s *Service) CreateFolder(ctx context.Context, parent *model.Folder, name string) (*model.Folder, error) {
	const op = "create folder"

	if parent == nil {
		return nil, invariantf(op, "parent is required")
	}
	if name == "" {
		return nil, invariantf(op, "name is required")
	}

	folder := model.NewFolder(name, parent)
	if err := s.records.PutRecord(ctx, s.tableName, model.EntityToRecord(folder)); err != nil {
		return nil, classify(op, err)
	}

	logger.Debug("Created folder %s (%s) under %s", name, folder.ID(), parent.ID())
	return folder, nil
}

// CreateFile creates a new file under parent with the given content.
//
// The blob is written first at the derived key, then the metadata record.
// A failed blob write leaves nothing behind. A failed record write after a
// successful blob write leaves an orphaned blob, which is reported as a
// partial failure with the orphan's key; no rollback is attempted.
//
// An empty contentType is inferred from the name's extension. size must be
// the exact number of bytes readable from content.
func (s *Service) CreateFile(ctx context.Context, parent *model.Folder, name string, content io.Reader, size int64, contentType string) (*model.File, error) {
	const op = "create file"

	if parent == nil {
		return nil, invariantf(op, "parent is required")
	}
	if name == "" {
		return nil, invariantf(op, "name is required")
	}
	if size < 0 {
		return nil, invariantf(op, "size must be non-negative, got %d", size)
	}

	file := model.NewFile(name, parent, size, contentType)

	if err := s.blobs.Put(ctx, file.BlobKey(), content, size); err != nil {
		return nil, classify(op, err)
	}

	if err := s.records.PutRecord(ctx, s.tableName, model.EntityToRecord(file)); err != nil {
		return nil, partialf(op, "blob written at %s but metadata record failed, orphaned blob remains: %v", file.BlobKey(), err)
	}

	logger.Debug("Created file %s (%s) under %s, %d bytes", name, file.ID(), parent.ID(), size)
	return file, nil
}
