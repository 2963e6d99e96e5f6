package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/marmos91/s3dav/internal/logger"
	"github.com/marmos91/s3dav/pkg/model"
	"github.com/marmos91/s3dav/pkg/store/blob"
	"github.com/marmos91/s3dav/pkg/store/table"
)

// ListChildren returns the direct children of folder.
//
// Files and folders are discovered through different anchors. Files are
// anchored by their blob: a prefix scan over the folder's derived key prefix
// finds every content object, and each is resolved to a typed node through a
// metadata lookup on the id suffix of its key. The blob-reported size
// overrides the record's size, which can go stale. Folders carry no blob, so
// they are anchored by metadata alone: a scan for records parented under the
// folder and marked as directories. The two result sets are unioned with
// duplicate ids suppressed.
//
// Listing is resilient to damaged history: a blob with no record, a blob
// whose record is parented elsewhere, an unparseable record id, or malformed
// timestamps each degrade to a warning, never to a failed listing.
func (s *Service) ListChildren(ctx context.Context, folder *model.Folder) ([]model.Entity, error) {
	const op = "list children"

	if folder == nil {
		return nil, invariantf(op, "folder is required")
	}

	var children []model.Entity
	seen := make(map[string]struct{})

	prefix := folder.ChildPrefix()
	err := blob.ForEach(ctx, s.blobs, prefix, func(obj blob.Object) error {
		id := strings.TrimPrefix(obj.Key, prefix)
		if id == "" || strings.Contains(id, "/") {
			logger.Warn("Skipping foreign key %q under folder %s", obj.Key, folder.ID())
			return nil
		}

		rec, err := s.records.GetRecord(ctx, s.tableName, id)
		if errors.Is(err, table.ErrRecordNotFound) {
			logger.Warn("Blob %s has no metadata record, skipping", obj.Key)
			return nil
		}
		if err != nil {
			return err
		}
		if rec.ParentID != folder.ID().String() {
			// A torn move leaves a duplicate blob under the destination
			// prefix while the record still points at the source. The record
			// decides membership.
			logger.Warn("Blob %s is parented elsewhere (%s), skipping", obj.Key, rec.ParentID)
			return nil
		}

		warnTimestamps(rec)
		ent, err := model.RecordToEntity(folder, rec)
		if err != nil {
			logger.Warn("Skipping unusable record for blob %s: %v", obj.Key, err)
			return nil
		}
		if file, ok := ent.(*model.File); ok {
			file.SetSize(obj.Size)
		}

		if _, dup := seen[rec.ID]; !dup {
			seen[rec.ID] = struct{}{}
			children = append(children, ent)
		}
		return nil
	})
	if err != nil {
		return nil, classify(op, err)
	}

	recs, err := s.records.Scan(ctx, s.tableName, table.Filter{
		model.AttrParentID:    folder.ID().String(),
		model.AttrIsDirectory: 1,
	})
	if err != nil {
		return nil, classify(op, err)
	}

	for _, rec := range recs {
		if _, dup := seen[rec.ID]; dup {
			continue
		}

		warnTimestamps(rec)
		ent, err := model.RecordToEntity(folder, rec)
		if err != nil {
			logger.Warn("Skipping unusable record %s: %v", rec.ID, err)
			continue
		}

		seen[rec.ID] = struct{}{}
		children = append(children, ent)
	}

	return children, nil
}
