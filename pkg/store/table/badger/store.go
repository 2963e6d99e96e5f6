// Package badger implements the metadata table store on BadgerDB.
//
// This is the embedded, single-node alternative to DynamoDB: development
// setups and deployments that want persistence without a remote metadata
// service. Tables become key namespaces; the store offers the same
// contract as the remote backends, including idempotent deletes and the
// NotFound sentinels.
package badger

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/marmos91/s3dav/internal/logger"
)

// Database Key Namespace
// ======================
//
// Data Type      Prefix  Key Format           Value
// --------------------------------------------------------------
// Table marker   "t:"    t:<table>            creation timestamp (text)
// Record         "r:"    r:<table>:<id>       model.Record (JSON)
//
// Records are stored as JSON: the metadata workload is small and the
// debuggability of human-readable values outweighs binary compactness.
// Range scans over "r:<table>:" implement the full-table predicate scan.

// BadgerTableStore implements table.Store using BadgerDB for persistence.
type BadgerTableStore struct {
	db *badger.DB
}

// BadgerTableStoreConfig contains configuration for the badger table store.
type BadgerTableStoreConfig struct {
	// DBPath is the directory holding the BadgerDB files.
	DBPath string

	// BadgerOptions overrides the default options entirely when non-nil.
	BadgerOptions *badger.Options
}

// NewBadgerTableStore opens (creating if needed) the database at the
// configured path.
func NewBadgerTableStore(ctx context.Context, cfg BadgerTableStoreConfig) (*BadgerTableStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.BadgerOptions != nil {
		opts = *cfg.BadgerOptions
	} else {
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("badger table store: db path is required")
		}
		opts = badger.DefaultOptions(cfg.DBPath)
		opts = opts.WithLoggingLevel(badger.WARNING)
		// Record values are tiny JSON documents; compression overhead is
		// not worth it.
		opts = opts.WithCompression(options.None)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	logger.Debug("badger table store opened at %s", cfg.DBPath)

	return &BadgerTableStore{db: db}, nil
}

// Close releases the database. The store is unusable afterwards.
func (s *BadgerTableStore) Close() error {
	return s.db.Close()
}

func keyTable(tableName string) []byte {
	return []byte("t:" + tableName)
}

func keyRecord(tableName, id string) []byte {
	return []byte("r:" + tableName + ":" + id)
}

func recordPrefix(tableName string) []byte {
	return []byte("r:" + tableName + ":")
}
