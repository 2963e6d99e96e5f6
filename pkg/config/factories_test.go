package config

import (
	"context"
	"testing"
)

func TestCreateBlobStoreMemory(t *testing.T) {
	store, err := CreateBlobStore(context.Background(), &BlobConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("CreateBlobStore() error = %v", err)
	}
	if store == nil {
		t.Fatal("CreateBlobStore() returned nil store")
	}
}

func TestCreateBlobStoreUnknownType(t *testing.T) {
	if _, err := CreateBlobStore(context.Background(), &BlobConfig{Type: "tape"}); err == nil {
		t.Error("CreateBlobStore() with unknown type succeeded, want error")
	}
}

func TestCreateBlobStoreS3RequiresBucket(t *testing.T) {
	_, err := CreateBlobStore(context.Background(), &BlobConfig{
		Type: "s3",
		S3:   map[string]any{"region": "eu-west-1"},
	})
	if err == nil {
		t.Error("CreateBlobStore() without bucket succeeded, want error")
	}
}

func TestCreateTableStoreMemory(t *testing.T) {
	store, err := CreateTableStore(context.Background(), &MetadataConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("CreateTableStore() error = %v", err)
	}
	if store == nil {
		t.Fatal("CreateTableStore() returned nil store")
	}
}

func TestCreateTableStoreBadger(t *testing.T) {
	store, err := CreateTableStore(context.Background(), &MetadataConfig{
		Type:   "badger",
		Badger: map[string]any{"path": t.TempDir()},
	})
	if err != nil {
		t.Fatalf("CreateTableStore() error = %v", err)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		t.Cleanup(func() { _ = closer.Close() })
	}
}

func TestCreateTableStoreBadgerRequiresPath(t *testing.T) {
	_, err := CreateTableStore(context.Background(), &MetadataConfig{
		Type:   "badger",
		Badger: map[string]any{},
	})
	if err == nil {
		t.Error("CreateTableStore() without path succeeded, want error")
	}
}

func TestCreateTableStoreDynamoRequiresRegion(t *testing.T) {
	_, err := CreateTableStore(context.Background(), &MetadataConfig{
		Type:   "dynamo",
		Dynamo: map[string]any{},
	})
	if err == nil {
		t.Error("CreateTableStore() without region succeeded, want error")
	}
}

func TestCreateTableStoreUnknownType(t *testing.T) {
	if _, err := CreateTableStore(context.Background(), &MetadataConfig{Type: "etcd"}); err == nil {
		t.Error("CreateTableStore() with unknown type succeeded, want error")
	}
}
