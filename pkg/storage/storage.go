// Package storage implements the coordination layer that maintains one
// consistent filesystem tree across two independent remote stores: a blob
// store holding file content and a metadata table holding the hierarchy.
//
// Neither store is transactional and there is no shared transaction across
// them. Every multi-store operation follows a fixed step order chosen so
// that, at any observable instant, an entity is reachable at its old or new
// location but never unreachable. The tradeoff runs the other way: a failure
// mid-operation can leave a harmless duplicate or unreferenced blob, which is
// surfaced as a partial failure rather than silently accepted.
//
// The coordinator is a stateless façade. It holds no cache and takes no
// locks; the two remote stores are the only shared mutable state, and
// concurrent same-entity operations resolve by the metadata store's per-key
// last-write-wins semantics.
package storage

import (
	"context"

	"github.com/marmos91/s3dav/internal/logger"
	"github.com/marmos91/s3dav/pkg/model"
	"github.com/marmos91/s3dav/pkg/store/blob"
	"github.com/marmos91/s3dav/pkg/store/table"
)

// Service coordinates the blob store and the metadata table.
//
// Thread safety: Service holds no mutable state and is safe for concurrent
// use as long as its stores are.
type Service struct {
	blobs     blob.Store
	records   table.Store
	tableName string
}

// ServiceConfig contains the coordinator's dependencies.
type ServiceConfig struct {
	// Blobs is the object store holding file content.
	Blobs blob.Store

	// Records is the key-value store holding the hierarchy records.
	Records table.Store

	// TableName is the metadata table the coordinator operates on. The
	// table must exist; provisioning is a startup concern.
	TableName string
}

// NewService creates a storage coordinator.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Blobs == nil {
		return nil, invariantf("new service", "blob store is required")
	}
	if cfg.Records == nil {
		return nil, invariantf("new service", "metadata store is required")
	}
	if cfg.TableName == "" {
		return nil, invariantf("new service", "table name is required")
	}

	return &Service{
		blobs:     cfg.Blobs,
		records:   cfg.Records,
		tableName: cfg.TableName,
	}, nil
}

// FindRoot returns the root folder, creating it on first use.
//
// The root is the single record carrying the sentinel parent id. Zero such
// records means a fresh deployment and a new root is written; more than one
// is a corruption state and is reported, never silently resolved.
func (s *Service) FindRoot(ctx context.Context) (*model.Folder, error) {
	const op = "find root"

	recs, err := s.records.Scan(ctx, s.tableName, table.Filter{
		model.AttrParentID: model.NoParent,
	})
	if err != nil {
		return nil, classify(op, err)
	}

	switch len(recs) {
	case 0:
		// Scan-then-create is racy: two concurrent first calls on an empty
		// table can both write a root, which the next call reports as the
		// multi-root corruption below. A conditional put would close the
		// window, but the root is created once per deployment, at startup,
		// before any adapter serves.
		// TODO: guard the put with attribute_not_exists(UniqueId) once the
		// table store grows a conditional-put operation.
		root := model.NewRootFolder()
		if err := s.records.PutRecord(ctx, s.tableName, model.EntityToRecord(root)); err != nil {
			return nil, classify(op, err)
		}
		logger.Info("Created root folder %s", root.ID())
		return root, nil

	case 1:
		warnTimestamps(recs[0])
		ent, err := model.RecordToEntity(nil, recs[0])
		if err != nil {
			return nil, invariantf(op, "root record is unusable: %v", err)
		}
		root, ok := ent.(*model.Folder)
		if !ok {
			return nil, invariantf(op, "root record %s is not a folder", recs[0].ID)
		}
		return root, nil

	default:
		return nil, invariantf(op, "found %d root records, want at most 1", len(recs))
	}
}

// warnTimestamps logs the timestamp attributes of rec that could not be
// parsed. Malformed historical data degrades to zero times instead of
// failing lookups.
func warnTimestamps(rec *model.Record) {
	for _, w := range model.TimestampWarnings(rec) {
		logger.Warn("%v", w)
	}
}

// setName renames the in-memory node after the store accepted the change.
func setName(e model.Entity, name string) {
	switch n := e.(type) {
	case *model.Folder:
		n.SetName(name)
	case *model.File:
		n.SetName(name)
	}
}

// setParent reparents the in-memory node after the store accepted the change.
func setParent(e model.Entity, parent *model.Folder) {
	switch n := e.(type) {
	case *model.Folder:
		n.SetParent(parent)
	case *model.File:
		n.SetParent(parent)
	}
}
