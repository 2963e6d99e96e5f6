// Package model holds the in-process representation of the filesystem tree:
// folders, files, their flat metadata-record form, and the conversions
// between the two.
//
// The model performs no I/O. The storage coordinator uses it to build store
// requests and to materialize query results back into typed nodes.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Entity is a node in the hierarchy: either a *Folder or a *File.
//
// Identity is immutable after creation. Name and parent are mutable; both
// mutations refresh the modification time.
type Entity interface {
	// ID returns the entity's unique, immutable identifier.
	ID() uuid.UUID

	// Name returns the entity's current name. Names are expected (but not
	// enforced) to be unique among siblings.
	Name() string

	// Parent returns the owning folder, or nil for the root.
	Parent() *Folder

	// CreatedAt returns the creation time. A zero value means the persisted
	// timestamp could not be parsed.
	CreatedAt() time.Time

	// ModifiedAt returns the last rename/move time.
	ModifiedAt() time.Time

	// IsDir reports whether the entity is a folder.
	IsDir() bool
}

// entity carries the fields shared by Folder and File.
type entity struct {
	id         uuid.UUID
	name       string
	parent     *Folder
	createdAt  time.Time
	modifiedAt time.Time
}

func newEntity(name string, parent *Folder) entity {
	now := time.Now()
	return entity{
		id:         uuid.New(),
		name:       name,
		parent:     parent,
		createdAt:  now,
		modifiedAt: now,
	}
}

func (e *entity) ID() uuid.UUID {
	return e.id
}

func (e *entity) Name() string {
	return e.name
}

func (e *entity) Parent() *Folder {
	return e.parent
}

func (e *entity) CreatedAt() time.Time {
	return e.createdAt
}

func (e *entity) ModifiedAt() time.Time {
	return e.modifiedAt
}

// SetName renames the entity and refreshes its modification time.
func (e *entity) SetName(name string) {
	e.name = name
	e.modifiedAt = time.Now()
}

// SetParent reparents the entity and refreshes its modification time.
// A nil parent marks the entity as the root.
func (e *entity) SetParent(parent *Folder) {
	e.parent = parent
	e.modifiedAt = time.Now()
}

// IsRoot reports whether the entity has no parent.
func (e *entity) IsRoot() bool {
	return e.parent == nil
}
