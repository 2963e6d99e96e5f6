package model

import (
	"time"

	"github.com/google/uuid"
)

// RootName is the name given to the root folder when it is first created.
const RootName = "/"

// Folder is a container node. Folders exist only as metadata records; they
// have no presence in the blob store.
//
// Folders do not cache their children. The coordinator is stateless and the
// two remote stores are the only source of truth, so child listings are
// always materialized per query.
type Folder struct {
	entity
}

// NewFolder creates a folder with a fresh identity under parent.
// A nil parent creates a root folder.
func NewFolder(name string, parent *Folder) *Folder {
	return &Folder{entity: newEntity(name, parent)}
}

// NewRootFolder creates the parentless root folder.
func NewRootFolder() *Folder {
	return NewFolder(RootName, nil)
}

func restoreFolder(id uuid.UUID, name string, createdAt, modifiedAt time.Time, parent *Folder) *Folder {
	return &Folder{entity: entity{
		id:         id,
		name:       name,
		parent:     parent,
		createdAt:  createdAt,
		modifiedAt: modifiedAt,
	}}
}

// IsDir implements Entity.
func (f *Folder) IsDir() bool {
	return true
}

// ChildPrefix returns the blob-key prefix shared by every file directly
// inside this folder.
func (f *Folder) ChildPrefix() string {
	return f.id.String() + "/"
}
