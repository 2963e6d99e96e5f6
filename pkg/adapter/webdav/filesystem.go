package webdav

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"

	"golang.org/x/net/webdav"

	"github.com/marmos91/s3dav/pkg/model"
	"github.com/marmos91/s3dav/pkg/storage"
)

// fileSystem adapts the storage coordinator to webdav.FileSystem.
//
// Paths are resolved by walking child listings segment by segment from the
// root. Nothing is cached except the root folder itself, whose identity is
// created once and never changes; every other lookup reflects the stores at
// the moment of the request.
type fileSystem struct {
	storage *storage.Service

	mu   sync.Mutex
	root *model.Folder
}

func newFileSystem(svc *storage.Service) *fileSystem {
	return &fileSystem{storage: svc}
}

// mapErr translates coordinator errors into the os sentinels the webdav
// handler turns into protocol status codes.
func mapErr(err error) error {
	if storage.IsNotFound(err) {
		return os.ErrNotExist
	}
	return err
}

// splitPath normalizes a WebDAV resource path into its segments. The root
// resolves to no segments.
func splitPath(name string) []string {
	name = path.Clean("/" + name)
	if name == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(name, "/"), "/")
}

func (fs *fileSystem) rootFolder(ctx context.Context) (*model.Folder, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.root == nil {
		root, err := fs.storage.FindRoot(ctx)
		if err != nil {
			return nil, mapErr(err)
		}
		fs.root = root
	}
	return fs.root, nil
}

// lookup finds the directly-contained child of folder with the given name.
func (fs *fileSystem) lookup(ctx context.Context, folder *model.Folder, name string) (model.Entity, error) {
	children, err := fs.storage.ListChildren(ctx, folder)
	if err != nil {
		return nil, mapErr(err)
	}
	for _, child := range children {
		if child.Name() == name {
			return child, nil
		}
	}
	return nil, os.ErrNotExist
}

// resolve walks the path down from the root to the named entity.
func (fs *fileSystem) resolve(ctx context.Context, name string) (model.Entity, error) {
	root, err := fs.rootFolder(ctx)
	if err != nil {
		return nil, err
	}

	var current model.Entity = root
	for _, segment := range splitPath(name) {
		folder, ok := current.(*model.Folder)
		if !ok {
			return nil, os.ErrNotExist
		}
		current, err = fs.lookup(ctx, folder, segment)
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

// resolveParent resolves the containing folder of the named path and returns
// it with the leaf name. The root has no parent and is rejected.
func (fs *fileSystem) resolveParent(ctx context.Context, name string) (*model.Folder, string, error) {
	segments := splitPath(name)
	if len(segments) == 0 {
		return nil, "", fmt.Errorf("path %q has no parent", name)
	}

	parentPath := "/" + strings.Join(segments[:len(segments)-1], "/")
	ent, err := fs.resolve(ctx, parentPath)
	if err != nil {
		return nil, "", err
	}
	folder, ok := ent.(*model.Folder)
	if !ok {
		return nil, "", os.ErrNotExist
	}
	return folder, segments[len(segments)-1], nil
}

// Mkdir implements webdav.FileSystem.
func (fs *fileSystem) Mkdir(ctx context.Context, name string, perm os.FileMode) error {
	parent, leaf, err := fs.resolveParent(ctx, name)
	if err != nil {
		return err
	}

	if _, err := fs.lookup(ctx, parent, leaf); err == nil {
		return os.ErrExist
	} else if !os.IsNotExist(err) {
		return err
	}

	_, err = fs.storage.CreateFolder(ctx, parent, leaf)
	return mapErr(err)
}

// OpenFile implements webdav.FileSystem.
//
// Handles are fully buffered: reads load the blob into memory to satisfy the
// Seek contract, writes accumulate in memory and commit as one coordinator
// operation on Close. That trades memory for the simple all-or-nothing
// semantics the two-store backend can actually provide.
func (fs *fileSystem) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	writing := flag&(os.O_WRONLY|os.O_RDWR) != 0

	ent, err := fs.resolve(ctx, name)
	switch {
	case err == nil:
	case os.IsNotExist(err) && writing && flag&os.O_CREATE != 0:
		ent = nil
	default:
		return nil, err
	}

	if !writing {
		switch node := ent.(type) {
		case *model.Folder:
			return &dirHandle{fs: fs, ctx: ctx, folder: node}, nil
		case *model.File:
			r, err := fs.storage.OpenContent(ctx, node)
			if err != nil {
				return nil, mapErr(err)
			}
			defer r.Close()

			data, err := io.ReadAll(r)
			if err != nil {
				return nil, err
			}
			return newReadHandle(node, data), nil
		}
	}

	if _, isDir := ent.(*model.Folder); isDir {
		return nil, fmt.Errorf("%s is a directory", name)
	}

	parent, leaf, err := fs.resolveParent(ctx, name)
	if err != nil {
		return nil, err
	}

	h := &writeHandle{
		fs:       fs,
		ctx:      ctx,
		parent:   parent,
		name:     leaf,
		existing: ent,
	}

	if ent != nil && flag&os.O_TRUNC == 0 {
		file := ent.(*model.File)
		r, err := fs.storage.OpenContent(ctx, file)
		if err != nil {
			return nil, mapErr(err)
		}
		defer r.Close()

		h.buf, err = io.ReadAll(r)
		if err != nil {
			return nil, err
		}
	}

	return h, nil
}

// RemoveAll implements webdav.FileSystem. Folders are removed bottom-up so
// no child record outlives its listing path.
func (fs *fileSystem) RemoveAll(ctx context.Context, name string) error {
	ent, err := fs.resolve(ctx, name)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if ent.Parent() == nil {
		return fmt.Errorf("cannot remove the root")
	}
	return fs.removeEntity(ctx, ent)
}

func (fs *fileSystem) removeEntity(ctx context.Context, ent model.Entity) error {
	if folder, ok := ent.(*model.Folder); ok {
		children, err := fs.storage.ListChildren(ctx, folder)
		if err != nil {
			return mapErr(err)
		}
		for _, child := range children {
			if err := fs.removeEntity(ctx, child); err != nil {
				return err
			}
		}
	}
	return mapErr(fs.storage.Delete(ctx, ent))
}

// Rename implements webdav.FileSystem, covering both MOVE-as-rename within
// a folder and MOVE across folders. An existing destination is replaced.
func (fs *fileSystem) Rename(ctx context.Context, oldName, newName string) error {
	src, err := fs.resolve(ctx, oldName)
	if err != nil {
		return err
	}
	if src.Parent() == nil {
		return fmt.Errorf("cannot rename the root")
	}

	dstParent, leaf, err := fs.resolveParent(ctx, newName)
	if err != nil {
		return err
	}

	if existing, err := fs.lookup(ctx, dstParent, leaf); err == nil {
		if existing.ID() == src.ID() {
			return nil
		}
		if err := fs.removeEntity(ctx, existing); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	if src.Parent().ID() == dstParent.ID() {
		return mapErr(fs.storage.Rename(ctx, src, leaf))
	}
	return mapErr(fs.storage.Move(ctx, src, dstParent, leaf))
}

// Stat implements webdav.FileSystem.
func (fs *fileSystem) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	ent, err := fs.resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	return entityInfo(ent), nil
}
