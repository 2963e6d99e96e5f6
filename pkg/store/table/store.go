// Package table defines the key-value metadata store abstraction holding
// the hierarchy records.
//
// The store is a thin client over a remote record service (DynamoDB in
// production). It offers no secondary indexes; lookups that are not by
// primary key are full-table predicate scans. That is a deliberate
// simplicity/cost tradeoff at the expected entity-count scale, documented
// here rather than hidden behind an index abstraction.
package table

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/s3dav/pkg/model"
)

var (
	// ErrRecordNotFound is returned when no record exists for an id.
	// Expected absence, never fatal on its own.
	ErrRecordNotFound = errors.New("metadata record not found")

	// ErrTableNotFound is returned when the target table does not exist.
	ErrTableNotFound = errors.New("metadata table not found")
)

// Provisioning wait policy for table state transitions, applied by
// implementations whose backends provision asynchronously.
const (
	ProvisionPollInterval = 20 * time.Second
	ProvisionTimeout      = 10 * time.Minute
)

// Filter selects records by attribute equality. Keys are the record
// attribute names (model.Attr*); values are strings or integers.
type Filter map[string]any

// Update names the attributes to overwrite in a partial record update.
// Keys are record attribute names; values must match the attribute type.
type Update map[string]any

// Store is a thin client abstraction over a remote key-value record store.
//
// Implementations must be safe for concurrent use. NotFound conditions are
// reported with the sentinel errors above; anything else surfacing from
// these methods is a service or caller error.
type Store interface {
	// CreateTable provisions the named table and blocks, polling with the
	// package wait policy, until it is ready. Creating a table that already
	// exists is not an error.
	CreateTable(ctx context.Context, tableName string) error

	// DeleteTable destroys the named table and blocks until it is gone.
	// Deleting a missing table is not an error.
	DeleteTable(ctx context.Context, tableName string) error

	// TableExists reports whether the named table exists and is ready.
	TableExists(ctx context.Context, tableName string) (bool, error)

	// PutRecord fully overwrites the record keyed by rec.ID.
	PutRecord(ctx context.Context, tableName string, rec *model.Record) error

	// GetRecord fetches a record by primary key. Returns ErrRecordNotFound
	// when absent.
	GetRecord(ctx context.Context, tableName, id string) (*model.Record, error)

	// Scan returns every record matching all filter equalities. A nil or
	// empty filter returns the whole table. O(table size) per call.
	Scan(ctx context.Context, tableName string, filter Filter) ([]*model.Record, error)

	// UpdateAttributes overwrites only the named attributes of the record
	// keyed by id, leaving the rest untouched. Unknown attribute names or
	// mistyped values are caller bugs and fail without touching the store.
	UpdateAttributes(ctx context.Context, tableName, id string, updates Update) error

	// DeleteRecord removes the record keyed by id. Deleting a missing
	// record is not an error; DeleteRecord is idempotent.
	DeleteRecord(ctx context.Context, tableName, id string) error
}
