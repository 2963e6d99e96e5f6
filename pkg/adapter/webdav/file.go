package webdav

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/marmos91/s3dav/pkg/model"
)

// fileInfo is the os.FileInfo view of an entity.
type fileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) Mode() os.FileMode  { return fi.mode }
func (fi fileInfo) ModTime() time.Time { return fi.modTime }
func (fi fileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi fileInfo) Sys() any           { return nil }

func entityInfo(e model.Entity) fileInfo {
	fi := fileInfo{
		name:    e.Name(),
		modTime: e.ModifiedAt(),
	}
	if file, ok := e.(*model.File); ok {
		fi.size = file.Size()
		fi.mode = 0o644
	} else {
		fi.mode = os.ModeDir | 0o755
	}
	return fi
}

// readHandle serves an open-for-read file from a full in-memory copy of its
// content, which is what lets it honor the Seek contract over a remote blob.
type readHandle struct {
	*bytes.Reader
	info fileInfo
}

func newReadHandle(file *model.File, data []byte) *readHandle {
	info := entityInfo(file)
	info.size = int64(len(data))
	return &readHandle{
		Reader: bytes.NewReader(data),
		info:   info,
	}
}

func (h *readHandle) Close() error                 { return nil }
func (h *readHandle) Write(p []byte) (int, error)  { return 0, os.ErrPermission }
func (h *readHandle) Stat() (os.FileInfo, error)   { return h.info, nil }
func (h *readHandle) Readdir(int) ([]os.FileInfo, error) {
	return nil, fmt.Errorf("%s is not a directory", h.info.name)
}

// writeHandle accumulates written bytes in memory and commits them as one
// coordinator operation on Close. Until Close returns, the tree is
// unchanged; replacing an existing file removes the old entity first, so the
// new content appears under a fresh identity.
type writeHandle struct {
	fs       *fileSystem
	ctx      context.Context
	parent   *model.Folder
	name     string
	existing model.Entity

	buf    []byte
	pos    int64
	closed bool
}

func (h *writeHandle) Write(p []byte) (int, error) {
	if h.closed {
		return 0, os.ErrClosed
	}

	end := h.pos + int64(len(p))
	if end > int64(len(h.buf)) {
		grown := make([]byte, end)
		copy(grown, h.buf)
		h.buf = grown
	}
	copy(h.buf[h.pos:end], p)
	h.pos = end
	return len(p), nil
}

func (h *writeHandle) Read(p []byte) (int, error) {
	if h.closed {
		return 0, os.ErrClosed
	}
	if h.pos >= int64(len(h.buf)) {
		return 0, io.EOF
	}
	n := copy(p, h.buf[h.pos:])
	h.pos += int64(n)
	return n, nil
}

func (h *writeHandle) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = h.pos + offset
	case io.SeekEnd:
		pos = int64(len(h.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("negative seek position %d", pos)
	}
	h.pos = pos
	return pos, nil
}

func (h *writeHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	if h.existing != nil {
		if err := h.fs.storage.Delete(h.ctx, h.existing); err != nil {
			return mapErr(err)
		}
	}

	_, err := h.fs.storage.CreateFile(h.ctx, h.parent, h.name, bytes.NewReader(h.buf), int64(len(h.buf)), "")
	return mapErr(err)
}

func (h *writeHandle) Stat() (os.FileInfo, error) {
	return fileInfo{
		name:    h.name,
		size:    int64(len(h.buf)),
		mode:    0o644,
		modTime: time.Now(),
	}, nil
}

func (h *writeHandle) Readdir(int) ([]os.FileInfo, error) {
	return nil, fmt.Errorf("%s is not a directory", h.name)
}

// dirHandle serves folder listings. Children are fetched once on the first
// Readdir call and paged from that snapshot.
type dirHandle struct {
	fs     *fileSystem
	ctx    context.Context
	folder *model.Folder

	children []os.FileInfo
	loaded   bool
	offset   int
}

func (h *dirHandle) Readdir(count int) ([]os.FileInfo, error) {
	if !h.loaded {
		entities, err := h.fs.storage.ListChildren(h.ctx, h.folder)
		if err != nil {
			return nil, mapErr(err)
		}
		h.children = make([]os.FileInfo, 0, len(entities))
		for _, e := range entities {
			h.children = append(h.children, entityInfo(e))
		}
		h.loaded = true
	}

	if count <= 0 {
		rest := h.children[h.offset:]
		h.offset = len(h.children)
		return rest, nil
	}

	if h.offset >= len(h.children) {
		return nil, io.EOF
	}
	end := h.offset + count
	if end > len(h.children) {
		end = len(h.children)
	}
	page := h.children[h.offset:end]
	h.offset = end
	return page, nil
}

func (h *dirHandle) Close() error                { return nil }
func (h *dirHandle) Read([]byte) (int, error)    { return 0, fmt.Errorf("%s is a directory", h.folder.Name()) }
func (h *dirHandle) Write([]byte) (int, error)   { return 0, fmt.Errorf("%s is a directory", h.folder.Name()) }
func (h *dirHandle) Seek(int64, int) (int64, error) {
	return 0, fmt.Errorf("%s is a directory", h.folder.Name())
}
func (h *dirHandle) Stat() (os.FileInfo, error) { return entityInfo(h.folder), nil }
