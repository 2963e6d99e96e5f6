package model

import (
	"fmt"

	"github.com/google/uuid"
)

// RecordToEntity converts a metadata record into a typed node, discriminating
// on the IsDirectory attribute. The given parent becomes the node's parent
// reference; pass nil when materializing the root.
//
// Timestamp attributes that fail to parse become zero times and do not fail
// the conversion. Callers interested in those failures use
// TimestampWarnings. Only a structurally unusable record (bad or missing id)
// is an error.
func RecordToEntity(parent *Folder, rec *Record) (Entity, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("record has invalid %s %q: %w", AttrID, rec.ID, err)
	}

	createdAt, _ := ParseTimestamp(rec.CreatedDate)
	modifiedAt, _ := ParseTimestamp(rec.ModifiedDate)

	if rec.IsDir() {
		return restoreFolder(id, rec.Name, createdAt, modifiedAt, parent), nil
	}

	contentType := rec.ContentType
	if contentType == NoParent || contentType == "" {
		contentType = ContentTypeFromName(rec.Name)
	}
	return restoreFile(id, rec.Name, createdAt, modifiedAt, parent, rec.FileSize, contentType), nil
}

// EntityToRecord converts a node into its flat record form. The inverse of
// RecordToEntity up to timestamp formatting.
func EntityToRecord(e Entity) *Record {
	rec := &Record{
		ID:           e.ID().String(),
		Name:         e.Name(),
		ParentID:     NoParent,
		ContentType:  NoParent,
		CreatedDate:  FormatTimestamp(e.CreatedAt()),
		ModifiedDate: FormatTimestamp(e.ModifiedAt()),
	}

	if parent := e.Parent(); parent != nil {
		rec.ParentID = parent.ID().String()
	}

	if file, ok := e.(*File); ok {
		rec.FileSize = file.Size()
		rec.ContentType = file.ContentType()
	} else {
		rec.IsDirectory = 1
	}

	return rec
}
