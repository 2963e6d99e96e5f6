package model

import (
	"mime"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DefaultContentType is used when no MIME type can be inferred from the
// file's name.
const DefaultContentType = "application/octet-stream"

// File is a leaf node whose bytes live in the blob store under a key derived
// from its own id and its parent's id. The key is never persisted; it is
// recomputed on demand, which is what makes renames free of blob traffic.
type File struct {
	entity

	size        int64
	contentType string
}

// NewFile creates a file with a fresh identity under parent. The content
// type defaults to an inference from the name's extension when empty.
func NewFile(name string, parent *Folder, size int64, contentType string) *File {
	if contentType == "" {
		contentType = ContentTypeFromName(name)
	}
	return &File{
		entity:      newEntity(name, parent),
		size:        size,
		contentType: contentType,
	}
}

func restoreFile(id uuid.UUID, name string, createdAt, modifiedAt time.Time, parent *Folder, size int64, contentType string) *File {
	return &File{
		entity: entity{
			id:         id,
			name:       name,
			parent:     parent,
			createdAt:  createdAt,
			modifiedAt: modifiedAt,
		},
		size:        size,
		contentType: contentType,
	}
}

// IsDir implements Entity.
func (f *File) IsDir() bool {
	return false
}

// Size returns the file size in bytes as currently known.
//
// The metadata record's size can go stale; listings override it with the
// blob-store-reported size.
func (f *File) Size() int64 {
	return f.size
}

// SetSize overrides the known size, typically with the blob-store-reported
// value.
func (f *File) SetSize(size int64) {
	f.size = size
}

// ContentType returns the file's MIME type.
func (f *File) ContentType() string {
	return f.contentType
}

// BlobKey returns the derived object-store key for this file's content:
// "parentId/id", or the bare id when the file has no parent.
//
// The key depends on identity and parenthood only, never on the name, so a
// rename leaves the blob untouched while a move requires a blob copy.
func (f *File) BlobKey() string {
	if f.parent == nil {
		return f.id.String()
	}
	return f.parent.ID().String() + "/" + f.id.String()
}

// BlobKeyUnder returns the key the file's content would have under a
// different parent. Used by move and copy to compute destination keys.
func (f *File) BlobKeyUnder(parent *Folder) string {
	if parent == nil {
		return f.id.String()
	}
	return parent.ID().String() + "/" + f.id.String()
}

// ContentTypeFromName infers a MIME type from a file name's extension,
// falling back to DefaultContentType.
func ContentTypeFromName(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return DefaultContentType
}
