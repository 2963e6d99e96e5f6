//go:build integration

package badger_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/s3dav/pkg/model"
	"github.com/marmos91/s3dav/pkg/store/table"
	"github.com/marmos91/s3dav/pkg/store/table/badger"
)

// TestBadgerTableStore_Integration runs integration tests for the BadgerDB
// table store.
//
// Prerequisites:
//   - None (BadgerDB is embedded, no external services needed)
//   - Run with: go test -tags=integration ./test/integration/badger/...
//
// These tests verify that the BadgerDB table store:
//   - Can be created and provisions tables
//   - Persists records across close/reopen
//   - Honors the shared filter and update semantics
func TestBadgerTableStore_Integration(t *testing.T) {
	ctx := context.Background()

	tempDir, err := os.MkdirTemp("", "s3dav-badger-meta-*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "metadata.db")
	tableName := "s3dav-integration"

	openStore := func(t *testing.T) *badger.BadgerTableStore {
		t.Helper()
		store, err := badger.NewBadgerTableStore(ctx, badger.BadgerTableStoreConfig{DBPath: dbPath})
		if err != nil {
			t.Fatalf("Failed to open BadgerTableStore: %v", err)
		}
		return store
	}

	rootID := uuid.NewString()
	fileID := uuid.NewString()

	// ========================================================================
	// Test: Provision the table and write the initial records
	// ========================================================================

	t.Run("ProvisionAndPut", func(t *testing.T) {
		store := openStore(t)
		defer store.Close()

		if err := store.CreateTable(ctx, tableName); err != nil {
			t.Fatalf("CreateTable failed: %v", err)
		}
		// Creating an existing table must not be an error.
		if err := store.CreateTable(ctx, tableName); err != nil {
			t.Fatalf("CreateTable on existing table failed: %v", err)
		}

		exists, err := store.TableExists(ctx, tableName)
		if err != nil {
			t.Fatalf("TableExists failed: %v", err)
		}
		if !exists {
			t.Fatal("Table should exist after CreateTable")
		}

		now := model.FormatTimestamp(time.Now())
		records := []*model.Record{
			{ID: rootID, Name: "/", ParentID: model.NoParent, IsDirectory: 1, CreatedDate: now, ModifiedDate: now},
			{ID: fileID, Name: "report.txt", ParentID: rootID, FileSize: 42, ContentType: "text/plain", CreatedDate: now, ModifiedDate: now},
		}
		for _, rec := range records {
			if err := store.PutRecord(ctx, tableName, rec); err != nil {
				t.Fatalf("PutRecord %s failed: %v", rec.Name, err)
			}
		}
	})

	// ========================================================================
	// Test: Records survive close/reopen
	// ========================================================================

	t.Run("PersistsAcrossReopen", func(t *testing.T) {
		store := openStore(t)
		defer store.Close()

		rec, err := store.GetRecord(ctx, tableName, fileID)
		if err != nil {
			t.Fatalf("GetRecord after reopen failed: %v", err)
		}
		if rec.Name != "report.txt" || rec.ParentID != rootID || rec.FileSize != 42 {
			t.Fatalf("Record damaged across reopen: %+v", rec)
		}
	})

	// ========================================================================
	// Test: Scan filters and partial updates
	// ========================================================================

	t.Run("ScanAndUpdate", func(t *testing.T) {
		store := openStore(t)
		defer store.Close()

		children, err := store.Scan(ctx, tableName, table.Filter{model.AttrParentID: rootID})
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(children) != 1 || children[0].ID != fileID {
			t.Fatalf("Expected exactly the file record under the root, got %d records", len(children))
		}

		err = store.UpdateAttributes(ctx, tableName, fileID, table.Update{model.AttrName: "renamed.txt"})
		if err != nil {
			t.Fatalf("UpdateAttributes failed: %v", err)
		}
		rec, err := store.GetRecord(ctx, tableName, fileID)
		if err != nil {
			t.Fatalf("GetRecord after update failed: %v", err)
		}
		if rec.Name != "renamed.txt" {
			t.Fatalf("Expected renamed.txt, got %q", rec.Name)
		}
		if rec.FileSize != 42 {
			t.Fatalf("Partial update clobbered FileSize: %d", rec.FileSize)
		}
	})

	// ========================================================================
	// Test: Idempotent delete and NotFound sentinels
	// ========================================================================

	t.Run("DeleteAndNotFound", func(t *testing.T) {
		store := openStore(t)
		defer store.Close()

		if err := store.DeleteRecord(ctx, tableName, fileID); err != nil {
			t.Fatalf("DeleteRecord failed: %v", err)
		}
		// Deleting a missing record is not an error.
		if err := store.DeleteRecord(ctx, tableName, fileID); err != nil {
			t.Fatalf("Second DeleteRecord failed: %v", err)
		}

		_, err := store.GetRecord(ctx, tableName, fileID)
		if !errors.Is(err, table.ErrRecordNotFound) {
			t.Fatalf("Expected ErrRecordNotFound, got %v", err)
		}
	})

	// ========================================================================
	// Test: Table deletion removes the namespace
	// ========================================================================

	t.Run("DeleteTable", func(t *testing.T) {
		store := openStore(t)
		defer store.Close()

		if err := store.DeleteTable(ctx, tableName); err != nil {
			t.Fatalf("DeleteTable failed: %v", err)
		}
		exists, err := store.TableExists(ctx, tableName)
		if err != nil {
			t.Fatalf("TableExists after delete failed: %v", err)
		}
		if exists {
			t.Fatal("Table should not exist after DeleteTable")
		}

		_, err = store.GetRecord(ctx, tableName, rootID)
		if !errors.Is(err, table.ErrTableNotFound) {
			t.Fatalf("Expected ErrTableNotFound, got %v", err)
		}
	})
}
