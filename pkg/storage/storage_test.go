package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"testing"

	"github.com/marmos91/s3dav/internal/logger"
	"github.com/marmos91/s3dav/pkg/model"
	"github.com/marmos91/s3dav/pkg/store/table"

	"github.com/marmos91/s3dav/pkg/store/blob"
	blobmem "github.com/marmos91/s3dav/pkg/store/blob/memory"
	tablemem "github.com/marmos91/s3dav/pkg/store/table/memory"
)

const testTable = "s3dav-test"

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fixture struct {
	svc   *Service
	blobs *blobmem.MemoryBlobStore
	table *tablemem.MemoryTableStore
	root  *model.Folder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	blobs := blobmem.NewMemoryBlobStore()
	records := tablemem.NewMemoryTableStore()
	if err := records.CreateTable(context.Background(), testTable); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}

	svc, err := NewService(ServiceConfig{
		Blobs:     blobs,
		Records:   records,
		TableName: testTable,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	root, err := svc.FindRoot(context.Background())
	if err != nil {
		t.Fatalf("FindRoot() error = %v", err)
	}

	return &fixture{svc: svc, blobs: blobs, table: records, root: root}
}

func childNames(t *testing.T, svc *Service, folder *model.Folder) []string {
	t.Helper()

	children, err := svc.ListChildren(context.Background(), folder)
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}

	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	return names
}

func readAll(t *testing.T, svc *Service, file *model.File) []byte {
	t.Helper()

	r, err := svc.OpenContent(context.Background(), file)
	if err != nil {
		t.Fatalf("OpenContent() error = %v", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return data
}

func createFile(t *testing.T, svc *Service, parent *model.Folder, name string, content []byte) *model.File {
	t.Helper()

	file, err := svc.CreateFile(context.Background(), parent, name, bytes.NewReader(content), int64(len(content)), "")
	if err != nil {
		t.Fatalf("CreateFile(%q) error = %v", name, err)
	}
	return file
}

func TestFindRootCreatedOnce(t *testing.T) {
	f := newFixture(t)

	again, err := f.svc.FindRoot(context.Background())
	if err != nil {
		t.Fatalf("FindRoot() error = %v", err)
	}
	if again.ID() != f.root.ID() {
		t.Errorf("FindRoot() returned a different root: %s, want %s", again.ID(), f.root.ID())
	}
	if !again.IsRoot() {
		t.Error("root folder reports IsRoot() = false")
	}
}

func TestFindRootMultipleRootsIsInvariantViolation(t *testing.T) {
	f := newFixture(t)

	extra := model.EntityToRecord(model.NewRootFolder())
	if err := f.table.PutRecord(context.Background(), testTable, extra); err != nil {
		t.Fatalf("PutRecord() error = %v", err)
	}

	_, err := f.svc.FindRoot(context.Background())
	if !IsInvariantViolation(err) {
		t.Errorf("FindRoot() with two roots error = %v, want invariant violation", err)
	}
}

func TestListChildrenUnionsFilesAndFolders(t *testing.T) {
	tests := []struct {
		name       string
		folderLast bool
	}{
		{name: "folder created first", folderLast: false},
		{name: "file created first", folderLast: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			makeFolder := func() {
				if _, err := f.svc.CreateFolder(ctx, f.root, "x"); err != nil {
					t.Fatalf("CreateFolder() error = %v", err)
				}
			}
			makeFile := func() {
				createFile(t, f.svc, f.root, "y", []byte("content"))
			}

			if tt.folderLast {
				makeFile()
				makeFolder()
			} else {
				makeFolder()
				makeFile()
			}

			got := childNames(t, f.svc, f.root)
			want := []string{"x", "y"}
			if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
				t.Errorf("ListChildren() names = %v, want %v", got, want)
			}
		})
	}
}

func TestCreateFileRoundTrip(t *testing.T) {
	f := newFixture(t)
	content := []byte("hello, stores")

	file := createFile(t, f.svc, f.root, "a.txt", content)

	if got := readAll(t, f.svc, file); !bytes.Equal(got, content) {
		t.Errorf("content round trip = %q, want %q", got, content)
	}

	size, err := f.svc.ContentSize(context.Background(), file)
	if err != nil {
		t.Fatalf("ContentSize() error = %v", err)
	}
	if size != int64(len(content)) {
		t.Errorf("ContentSize() = %d, want %d", size, len(content))
	}
}

func TestContentTypeInferredFromName(t *testing.T) {
	f := newFixture(t)

	file := createFile(t, f.svc, f.root, "notes.txt", []byte("n"))
	if ct := file.ContentType(); ct == model.DefaultContentType || ct == "" {
		t.Errorf("ContentType() = %q, want a text type inferred from the extension", ct)
	}
}

func TestListChildrenSizeIsBlobAuthoritative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	file := createFile(t, f.svc, f.root, "a.bin", []byte("12345"))

	// Make the record's size lie.
	err := f.table.UpdateAttributes(ctx, testTable, file.ID().String(), table.Update{
		model.AttrFileSize: int64(999),
	})
	if err != nil {
		t.Fatalf("UpdateAttributes() error = %v", err)
	}

	children, err := f.svc.ListChildren(ctx, f.root)
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}
	if len(children) != 1 {
		t.Fatalf("ListChildren() returned %d children, want 1", len(children))
	}

	listed, ok := children[0].(*model.File)
	if !ok {
		t.Fatalf("child is %T, want *model.File", children[0])
	}
	if listed.Size() != 5 {
		t.Errorf("listed size = %d, want the blob-reported 5", listed.Size())
	}
}

func TestDeleteTwiceReportsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	file := createFile(t, f.svc, f.root, "gone.txt", []byte("bye"))

	if err := f.svc.Delete(ctx, file); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if names := childNames(t, f.svc, f.root); len(names) != 0 {
		t.Errorf("ListChildren() after delete = %v, want empty", names)
	}
	if f.blobs.Len() != 0 {
		t.Errorf("blob store holds %d blobs after delete, want 0", f.blobs.Len())
	}

	err := f.svc.Delete(ctx, file)
	if !IsNotFound(err) {
		t.Errorf("second Delete() error = %v, want not found", err)
	}
}

func TestDeleteRootRejected(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Delete(context.Background(), f.root)
	if !IsInvariantViolation(err) {
		t.Errorf("Delete(root) error = %v, want invariant violation", err)
	}
}

func TestMovePreservesContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	content := []byte("moving bytes")

	a, err := f.svc.CreateFolder(ctx, f.root, "A")
	if err != nil {
		t.Fatalf("CreateFolder(A) error = %v", err)
	}
	b, err := f.svc.CreateFolder(ctx, f.root, "B")
	if err != nil {
		t.Fatalf("CreateFolder(B) error = %v", err)
	}

	file := createFile(t, f.svc, a, "f.dat", content)
	blobsBefore := f.blobs.Len()

	if err := f.svc.Move(ctx, file, b, ""); err != nil {
		t.Fatalf("Move() error = %v", err)
	}

	if names := childNames(t, f.svc, a); len(names) != 0 {
		t.Errorf("source folder still lists %v", names)
	}
	if names := childNames(t, f.svc, b); len(names) != 1 || names[0] != "f.dat" {
		t.Errorf("destination folder lists %v, want [f.dat]", names)
	}
	if got := readAll(t, f.svc, file); !bytes.Equal(got, content) {
		t.Errorf("content after move = %q, want %q", got, content)
	}
	if f.blobs.Len() != blobsBefore {
		t.Errorf("blob count after move = %d, want %d (old key reclaimed)", f.blobs.Len(), blobsBefore)
	}
}

func TestMoveRootRejected(t *testing.T) {
	f := newFixture(t)

	dest, err := f.svc.CreateFolder(context.Background(), f.root, "dest")
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}

	err = f.svc.Move(context.Background(), f.root, dest, "")
	if !IsInvariantViolation(err) {
		t.Errorf("Move(root) error = %v, want invariant violation", err)
	}
}

func TestRenameKeepsBlobKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	content := []byte("stable key")

	file := createFile(t, f.svc, f.root, "before.txt", content)
	keyBefore := file.BlobKey()
	blobsBefore := f.blobs.Len()

	if err := f.svc.Rename(ctx, file, "after.txt"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}

	if file.BlobKey() != keyBefore {
		t.Errorf("blob key changed on rename: %s, want %s", file.BlobKey(), keyBefore)
	}
	if f.blobs.Len() != blobsBefore {
		t.Errorf("blob count changed on rename: %d, want %d", f.blobs.Len(), blobsBefore)
	}
	if got := readAll(t, f.svc, file); !bytes.Equal(got, content) {
		t.Errorf("content after rename = %q, want %q", got, content)
	}
	if names := childNames(t, f.svc, f.root); len(names) != 1 || names[0] != "after.txt" {
		t.Errorf("ListChildren() after rename = %v, want [after.txt]", names)
	}
}

func TestCopyIndependence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	content := []byte("original bytes")

	b, err := f.svc.CreateFolder(ctx, f.root, "B")
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}

	file := createFile(t, f.svc, f.root, "f.txt", content)

	dup, err := f.svc.Copy(ctx, file, b, "f2.txt")
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	copied, ok := dup.(*model.File)
	if !ok {
		t.Fatalf("Copy() returned %T, want *model.File", dup)
	}
	if copied.ID() == file.ID() {
		t.Error("copy shares the original's identity")
	}

	if err := f.svc.Delete(ctx, file); err != nil {
		t.Fatalf("Delete(original) error = %v", err)
	}

	if got := readAll(t, f.svc, copied); !bytes.Equal(got, content) {
		t.Errorf("copy content after deleting original = %q, want %q", got, content)
	}
}

func TestCopyFolderRecursive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	src, err := f.svc.CreateFolder(ctx, f.root, "src")
	if err != nil {
		t.Fatalf("CreateFolder(src) error = %v", err)
	}
	sub, err := f.svc.CreateFolder(ctx, src, "sub")
	if err != nil {
		t.Fatalf("CreateFolder(sub) error = %v", err)
	}
	createFile(t, f.svc, src, "top.txt", []byte("top"))
	createFile(t, f.svc, sub, "deep.txt", []byte("deep"))

	dup, err := f.svc.Copy(ctx, src, f.root, "dst")
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	dst := dup.(*model.Folder)

	if names := childNames(t, f.svc, dst); len(names) != 2 || names[0] != "sub" || names[1] != "top.txt" {
		t.Fatalf("copied folder lists %v, want [sub top.txt]", names)
	}

	children, err := f.svc.ListChildren(ctx, dst)
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}
	for _, child := range children {
		if folder, ok := child.(*model.Folder); ok {
			if names := childNames(t, f.svc, folder); len(names) != 1 || names[0] != "deep.txt" {
				t.Errorf("copied subfolder lists %v, want [deep.txt]", names)
			}
		}
	}
}

func TestDuplicateSiblingNamesAllowed(t *testing.T) {
	// Sibling name uniqueness is deliberately not enforced: the metadata
	// store has no unique-index primitive, so two concurrent creators can
	// both win. Documented behavior, not a bug.
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateFolder(ctx, f.root, "dup")
	if err != nil {
		t.Fatalf("first CreateFolder() error = %v", err)
	}
	second, err := f.svc.CreateFolder(ctx, f.root, "dup")
	if err != nil {
		t.Fatalf("second CreateFolder() error = %v", err)
	}
	if first.ID() == second.ID() {
		t.Error("duplicate folders share an id")
	}

	names := childNames(t, f.svc, f.root)
	if len(names) != 2 || names[0] != "dup" || names[1] != "dup" {
		t.Errorf("ListChildren() = %v, want [dup dup]", names)
	}
}

func TestListChildrenSkipsOrphanBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	createFile(t, f.svc, f.root, "kept.txt", []byte("kept"))

	// A blob whose record was lost must not break the listing.
	orphanKey := f.root.ChildPrefix() + "11111111-2222-3333-4444-555555555555"
	if err := f.blobs.Put(ctx, orphanKey, bytes.NewReader([]byte("orphan")), 6); err != nil {
		t.Fatalf("Put(orphan) error = %v", err)
	}

	if names := childNames(t, f.svc, f.root); len(names) != 1 || names[0] != "kept.txt" {
		t.Errorf("ListChildren() = %v, want [kept.txt]", names)
	}
}

func TestMoveIntoOwnSubtreeRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	src, err := f.svc.CreateFolder(ctx, f.root, "src")
	if err != nil {
		t.Fatalf("CreateFolder(src) error = %v", err)
	}
	sub, err := f.svc.CreateFolder(ctx, src, "sub")
	if err != nil {
		t.Fatalf("CreateFolder(sub) error = %v", err)
	}

	if err := f.svc.Move(ctx, src, src, ""); !IsInvariantViolation(err) {
		t.Errorf("Move(src, src) error = %v, want invariant violation", err)
	}
	if err := f.svc.Move(ctx, src, sub, ""); !IsInvariantViolation(err) {
		t.Errorf("Move(src, descendant) error = %v, want invariant violation", err)
	}

	// The rejected moves left the hierarchy untouched.
	if names := childNames(t, f.svc, f.root); len(names) != 1 || names[0] != "src" {
		t.Errorf("ListChildren(root) = %v, want [src]", names)
	}
	if names := childNames(t, f.svc, src); len(names) != 1 || names[0] != "sub" {
		t.Errorf("ListChildren(src) = %v, want [sub]", names)
	}
}

func TestCopyIntoOwnSubtreeRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	src, err := f.svc.CreateFolder(ctx, f.root, "src")
	if err != nil {
		t.Fatalf("CreateFolder(src) error = %v", err)
	}
	sub, err := f.svc.CreateFolder(ctx, src, "sub")
	if err != nil {
		t.Fatalf("CreateFolder(sub) error = %v", err)
	}
	createFile(t, f.svc, src, "f.txt", []byte("f"))

	if _, err := f.svc.Copy(ctx, src, src, "dup"); !IsInvariantViolation(err) {
		t.Errorf("Copy(src, src) error = %v, want invariant violation", err)
	}
	if _, err := f.svc.Copy(ctx, src, sub, "dup"); !IsInvariantViolation(err) {
		t.Errorf("Copy(src, descendant) error = %v, want invariant violation", err)
	}

	if names := childNames(t, f.svc, src); len(names) != 2 || names[0] != "f.txt" || names[1] != "sub" {
		t.Errorf("ListChildren(src) = %v, want [f.txt sub]", names)
	}
	if names := childNames(t, f.svc, sub); len(names) != 0 {
		t.Errorf("ListChildren(sub) = %v, want empty", names)
	}
}

// failingTableStore wraps a working store and fails writes on demand, to
// exercise the partial-failure paths.
type failingTableStore struct {
	table.Store
	failPuts    bool
	failUpdates bool
}

var errInjected = errors.New("injected store failure")

func (s *failingTableStore) PutRecord(ctx context.Context, tableName string, rec *model.Record) error {
	if s.failPuts {
		return errInjected
	}
	return s.Store.PutRecord(ctx, tableName, rec)
}

func (s *failingTableStore) UpdateAttributes(ctx context.Context, tableName, id string, updates table.Update) error {
	if s.failUpdates {
		return errInjected
	}
	return s.Store.UpdateAttributes(ctx, tableName, id, updates)
}

// failingBlobStore wraps a working store and fails deletes on demand.
type failingBlobStore struct {
	blob.Store
	failDeletes bool
}

func (s *failingBlobStore) Delete(ctx context.Context, key string) error {
	if s.failDeletes {
		return errInjected
	}
	return s.Store.Delete(ctx, key)
}

func TestCreateFilePartialFailureLeavesBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	failing := &failingTableStore{Store: f.table}
	svc, err := NewService(ServiceConfig{
		Blobs:     f.blobs,
		Records:   failing,
		TableName: testTable,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	failing.failPuts = true
	_, err = svc.CreateFile(ctx, f.root, "torn.txt", bytes.NewReader([]byte("torn")), 4, "")
	if !IsPartialFailure(err) {
		t.Fatalf("CreateFile() with failing record store error = %v, want partial failure", err)
	}

	// The orphaned blob is left for reconciliation, not rolled back.
	if f.blobs.Len() != 1 {
		t.Errorf("blob store holds %d blobs, want the 1 orphan", f.blobs.Len())
	}

	// The torn file is invisible to listings.
	if names := childNames(t, f.svc, f.root); len(names) != 0 {
		t.Errorf("ListChildren() = %v, want empty", names)
	}
}

func TestMovePartialFailureOnRecordUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.CreateFolder(ctx, f.root, "A")
	if err != nil {
		t.Fatalf("CreateFolder(A) error = %v", err)
	}
	b, err := f.svc.CreateFolder(ctx, f.root, "B")
	if err != nil {
		t.Fatalf("CreateFolder(B) error = %v", err)
	}
	file := createFile(t, f.svc, a, "f.dat", []byte("bytes"))
	blobsBefore := f.blobs.Len()

	failing := &failingTableStore{Store: f.table}
	svc, err := NewService(ServiceConfig{
		Blobs:     f.blobs,
		Records:   failing,
		TableName: testTable,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	failing.failUpdates = true
	if err := svc.Move(ctx, file, b, ""); !IsPartialFailure(err) {
		t.Fatalf("Move() with failing record update error = %v, want partial failure", err)
	}

	// The blob was copied before the record update failed: the duplicate
	// stays behind and the file is still reachable at the old location.
	if f.blobs.Len() != blobsBefore+1 {
		t.Errorf("blob count = %d, want %d (duplicate left behind)", f.blobs.Len(), blobsBefore+1)
	}
	if names := childNames(t, f.svc, a); len(names) != 1 || names[0] != "f.dat" {
		t.Errorf("source folder lists %v, want [f.dat]", names)
	}
	if names := childNames(t, f.svc, b); len(names) != 0 {
		t.Errorf("destination folder lists %v, want empty", names)
	}
}

func TestMovePartialFailureOnOldBlobDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	content := []byte("bytes")

	a, err := f.svc.CreateFolder(ctx, f.root, "A")
	if err != nil {
		t.Fatalf("CreateFolder(A) error = %v", err)
	}
	b, err := f.svc.CreateFolder(ctx, f.root, "B")
	if err != nil {
		t.Fatalf("CreateFolder(B) error = %v", err)
	}
	file := createFile(t, f.svc, a, "f.dat", content)
	blobsBefore := f.blobs.Len()

	failing := &failingBlobStore{Store: f.blobs, failDeletes: true}
	svc, err := NewService(ServiceConfig{
		Blobs:     failing,
		Records:   f.table,
		TableName: testTable,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	if err := svc.Move(ctx, file, b, ""); !IsPartialFailure(err) {
		t.Fatalf("Move() with failing old-blob delete error = %v, want partial failure", err)
	}

	// The record moved, so the file lives at the destination; the old blob
	// stays behind unreferenced until reconciliation.
	if names := childNames(t, f.svc, b); len(names) != 1 || names[0] != "f.dat" {
		t.Errorf("destination folder lists %v, want [f.dat]", names)
	}
	if names := childNames(t, f.svc, a); len(names) != 0 {
		t.Errorf("source folder lists %v, want empty", names)
	}
	if f.blobs.Len() != blobsBefore+1 {
		t.Errorf("blob count = %d, want %d (old blob left behind)", f.blobs.Len(), blobsBefore+1)
	}
	if got := readAll(t, f.svc, file); !bytes.Equal(got, content) {
		t.Errorf("content after torn move = %q, want %q", got, content)
	}
}

func TestDeletePartialFailureOnBlobDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	file := createFile(t, f.svc, f.root, "f.dat", []byte("bytes"))

	failing := &failingBlobStore{Store: f.blobs, failDeletes: true}
	svc, err := NewService(ServiceConfig{
		Blobs:     failing,
		Records:   f.table,
		TableName: testTable,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	if err := svc.Delete(ctx, file); !IsPartialFailure(err) {
		t.Fatalf("Delete() with failing blob delete error = %v, want partial failure", err)
	}

	// The record went first, so the file disappears from listings even
	// though its blob survived.
	if names := childNames(t, f.svc, f.root); len(names) != 0 {
		t.Errorf("ListChildren() = %v, want empty", names)
	}
	if f.blobs.Len() != 1 {
		t.Errorf("blob store holds %d blobs, want the 1 leftover", f.blobs.Len())
	}
}
