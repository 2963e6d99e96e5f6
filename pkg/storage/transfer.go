package storage

import (
	"context"
	"time"

	"github.com/marmos91/s3dav/internal/logger"
	"github.com/marmos91/s3dav/pkg/model"
	"github.com/marmos91/s3dav/pkg/store/table"
)

// Rename changes the entity's name without changing its parent.
//
// The blob key depends on identity and parenthood only, so a rename never
// touches the blob store: only the record's name and modification time are
// updated, atomically from the caller's perspective.
func (s *Service) Rename(ctx context.Context, entity model.Entity, newName string) error {
	const op = "rename"

	if entity == nil {
		return invariantf(op, "entity is required")
	}
	if newName == "" {
		return invariantf(op, "name is required")
	}

	err := s.records.UpdateAttributes(ctx, s.tableName, entity.ID().String(), table.Update{
		model.AttrName:         newName,
		model.AttrModifiedDate: model.FormatTimestamp(time.Now()),
	})
	if err != nil {
		return classify(op, err)
	}

	setName(entity, newName)
	return nil
}

// Move reparents the entity, optionally renaming it. An empty newName keeps
// the current name.
//
// For a file the blob key changes with the parent, so the content must
// relocate. The step order is fixed: copy the blob to the new key, update
// the record's parent and name, delete the blob at the old key. At every
// observable instant the file is reachable at the old or the new location,
// never unreachable. A failure after the copy leaves a duplicate blob; a
// failure after the record update leaves the old blob unreferenced. Both are
// reported as partial failures.
//
// Folders carry no blob, so a folder move is a pure metadata update. Child
// blob keys embed the child's own parent id, not the grandparent's, so they
// are unaffected.
func (s *Service) Move(ctx context.Context, entity model.Entity, newParent *model.Folder, newName string) error {
	const op = "move"

	if entity == nil {
		return invariantf(op, "entity is required")
	}
	if entity.Parent() == nil {
		return invariantf(op, "the root folder cannot be moved")
	}
	if newParent == nil {
		return invariantf(op, "destination folder is required")
	}
	if inSubtree(entity, newParent) {
		return invariantf(op, "destination %s is inside the subtree of %s", newParent.ID(), entity.ID())
	}
	if newName == "" {
		newName = entity.Name()
	}

	file, isFile := entity.(*model.File)
	oldKey := ""
	newKey := ""
	if isFile {
		oldKey = file.BlobKey()
		newKey = file.BlobKeyUnder(newParent)
	}

	if isFile && oldKey != newKey {
		if err := s.blobs.Copy(ctx, oldKey, newKey); err != nil {
			return classify(op, err)
		}
	}

	err := s.records.UpdateAttributes(ctx, s.tableName, entity.ID().String(), table.Update{
		model.AttrParentID:     newParent.ID().String(),
		model.AttrName:         newName,
		model.AttrModifiedDate: model.FormatTimestamp(time.Now()),
	})
	if err != nil {
		if isFile && oldKey != newKey {
			return partialf(op, "blob copied to %s but record update failed, duplicate blob remains: %v", newKey, err)
		}
		return classify(op, err)
	}

	setParent(entity, newParent)
	setName(entity, newName)

	if isFile && oldKey != newKey {
		if err := s.blobs.Delete(ctx, oldKey); err != nil {
			return partialf(op, "moved to %s but old blob %s was not deleted, unreferenced blob remains: %v", newKey, oldKey, err)
		}
	}

	logger.Debug("Moved %s (%s) under %s", newName, entity.ID(), newParent.ID())
	return nil
}

// inSubtree reports whether dest lies inside the subtree rooted at entity,
// entity itself included. Reparenting a folder into its own subtree would
// detach it from the root into a parent cycle, and copying a folder into
// itself would recurse over its own fresh duplicates forever, so both
// operations reject such destinations up front.
func inSubtree(entity model.Entity, dest *model.Folder) bool {
	folder, ok := entity.(*model.Folder)
	if !ok {
		return false
	}
	for p := dest; p != nil; p = p.Parent() {
		if p.ID() == folder.ID() {
			return true
		}
	}
	return false
}

// Copy duplicates the entity under destParent with a fresh identity,
// returning the duplicate. The source is untouched.
//
// A file copy is a server-side blob copy to the new derived key followed by
// a new metadata record; a record failure after the copy leaves an orphaned
// blob, reported as a partial failure. A folder copy writes the folder's own
// record first and then copies each child depth-first, so an observer never
// sees a child without its containing folder.
func (s *Service) Copy(ctx context.Context, entity model.Entity, destParent *model.Folder, newName string) (model.Entity, error) {
	const op = "copy"

	if entity == nil {
		return nil, invariantf(op, "entity is required")
	}
	if destParent == nil {
		return nil, invariantf(op, "destination folder is required")
	}
	if inSubtree(entity, destParent) {
		return nil, invariantf(op, "destination %s is inside the subtree of %s", destParent.ID(), entity.ID())
	}
	if newName == "" {
		newName = entity.Name()
	}

	if file, ok := entity.(*model.File); ok {
		dup := model.NewFile(newName, destParent, file.Size(), file.ContentType())

		if err := s.blobs.Copy(ctx, file.BlobKey(), dup.BlobKey()); err != nil {
			return nil, classify(op, err)
		}
		if err := s.records.PutRecord(ctx, s.tableName, model.EntityToRecord(dup)); err != nil {
			return nil, partialf(op, "blob copied to %s but metadata record failed, orphaned blob remains: %v", dup.BlobKey(), err)
		}

		logger.Debug("Copied file %s to %s (%s)", file.ID(), newName, dup.ID())
		return dup, nil
	}

	folder := entity.(*model.Folder)
	dup := model.NewFolder(newName, destParent)
	if err := s.records.PutRecord(ctx, s.tableName, model.EntityToRecord(dup)); err != nil {
		return nil, classify(op, err)
	}

	children, err := s.ListChildren(ctx, folder)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if _, err := s.Copy(ctx, child, dup, child.Name()); err != nil {
			return nil, err
		}
	}

	logger.Debug("Copied folder %s to %s (%s)", folder.ID(), newName, dup.ID())
	return dup, nil
}
