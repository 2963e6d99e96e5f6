package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/marmos91/s3dav/pkg/store/blob"
)

func put(t *testing.T, s *MemoryBlobStore, key, content string) {
	t.Helper()
	if err := s.Put(context.Background(), key, strings.NewReader(content), int64(len(content))); err != nil {
		t.Fatalf("Put(%q) error = %v", key, err)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := NewMemoryBlobStore()
	put(t, s, "parent/child", "hello world")

	rc, err := s.Get(context.Background(), "parent/child")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("content = %q, want %q", data, "hello world")
	}
}

func TestPutSizeMismatch(t *testing.T) {
	s := NewMemoryBlobStore()
	err := s.Put(context.Background(), "k", strings.NewReader("abc"), 99)
	if err == nil {
		t.Error("Put() with wrong declared size: want error, got nil")
	}
}

func TestGetMissing(t *testing.T) {
	s := NewMemoryBlobStore()
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStat(t *testing.T) {
	s := NewMemoryBlobStore()
	put(t, s, "k", "12345")

	obj, err := s.Stat(context.Background(), "k")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if obj.Size != 5 {
		t.Errorf("Stat() size = %d, want 5", obj.Size)
	}

	if _, err := s.Stat(context.Background(), "missing"); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("Stat(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := NewMemoryBlobStore()
	put(t, s, "k", "x")

	if err := s.Delete(context.Background(), "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(context.Background(), "k"); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after delete, want 0", s.Len())
	}
}

func TestCopy(t *testing.T) {
	s := NewMemoryBlobStore()
	put(t, s, "src", "payload")

	if err := s.Copy(context.Background(), "src", "dst"); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	obj, err := s.Stat(context.Background(), "dst")
	if err != nil {
		t.Fatalf("Stat(dst) error = %v", err)
	}
	if obj.Size != int64(len("payload")) {
		t.Errorf("copied size = %d, want %d", obj.Size, len("payload"))
	}

	if err := s.Copy(context.Background(), "missing", "dst2"); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("Copy(missing) error = %v, want ErrNotFound", err)
	}
}

func TestCopyIsIndependent(t *testing.T) {
	s := NewMemoryBlobStore()
	put(t, s, "src", "original")
	if err := s.Copy(context.Background(), "src", "dst"); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	// Overwrite the source; the copy must be unaffected.
	put(t, s, "src", "mutated!")

	rc, err := s.Get(context.Background(), "dst")
	if err != nil {
		t.Fatalf("Get(dst) error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "original" {
		t.Errorf("copy content = %q, want %q", data, "original")
	}
}

func TestListPagePagination(t *testing.T) {
	s := NewMemoryBlobStore()
	put(t, s, "p/a", "1")
	put(t, s, "p/b", "22")
	put(t, s, "p/c", "333")
	put(t, s, "q/d", "4444")

	var got []blob.Object
	var token string
	pages := 0
	for {
		objects, next, err := s.ListPage(context.Background(), "p/", token, 2)
		if err != nil {
			t.Fatalf("ListPage() error = %v", err)
		}
		got = append(got, objects...)
		pages++
		if next == "" {
			break
		}
		token = next
	}

	if len(got) != 3 {
		t.Fatalf("listed %d objects, want 3", len(got))
	}
	if pages != 2 {
		t.Errorf("listing took %d pages, want 2", pages)
	}
	for _, obj := range got {
		if !strings.HasPrefix(obj.Key, "p/") {
			t.Errorf("listed key %q outside prefix", obj.Key)
		}
	}
}

func TestForEach(t *testing.T) {
	s := NewMemoryBlobStore()
	put(t, s, "p/a", "1")
	put(t, s, "p/b", "22")

	sizes := map[string]int64{}
	err := blob.ForEach(context.Background(), s, "p/", func(obj blob.Object) error {
		sizes[obj.Key] = obj.Size
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach() error = %v", err)
	}
	if sizes["p/a"] != 1 || sizes["p/b"] != 2 {
		t.Errorf("ForEach() sizes = %v", sizes)
	}
}

func TestGetSnapshotIsolation(t *testing.T) {
	s := NewMemoryBlobStore()
	put(t, s, "k", "before")

	rc, err := s.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer rc.Close()

	put(t, s, "k", "after!")

	data, _ := io.ReadAll(rc)
	if string(data) != "before" {
		t.Errorf("open reader observed overwrite: %q", data)
	}
}
