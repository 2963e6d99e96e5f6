package storage

import (
	"context"

	"github.com/marmos91/s3dav/internal/logger"
	"github.com/marmos91/s3dav/pkg/model"
)

// Delete removes the entity. Deleting the root is rejected as an invariant
// violation. Deleting an already-deleted entity reports not found.
//
// The metadata record is deleted first, then the blob: a concurrent listing
// stops returning the entity immediately, even if the blob deletion lags or
// fails. A failed blob deletion leaves an unreferenced blob and is reported
// as a partial failure; the visible tree is already correct.
//
// Delete is not recursive. Deleting a folder that still has children makes
// them unreachable through listings; callers that need recursive removal
// walk ListChildren bottom-up first.
func (s *Service) Delete(ctx context.Context, entity model.Entity) error {
	const op = "delete"

	if entity == nil {
		return invariantf(op, "entity is required")
	}
	if entity.Parent() == nil {
		return invariantf(op, "the root folder cannot be deleted")
	}

	id := entity.ID().String()

	// DeleteRecord is idempotent at the store level, so absence has to be
	// detected here for the caller to see the second delete fail.
	if _, err := s.records.GetRecord(ctx, s.tableName, id); err != nil {
		return classify(op, err)
	}

	if err := s.records.DeleteRecord(ctx, s.tableName, id); err != nil {
		return classify(op, err)
	}

	if file, ok := entity.(*model.File); ok {
		if err := s.blobs.Delete(ctx, file.BlobKey()); err != nil {
			return partialf(op, "record deleted but blob %s was not, unreferenced blob remains: %v", file.BlobKey(), err)
		}
	}

	logger.Debug("Deleted %s (%s)", entity.Name(), id)
	return nil
}
