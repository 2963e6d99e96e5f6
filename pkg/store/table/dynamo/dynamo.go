// Package dynamo implements the metadata table store on Amazon DynamoDB.
//
// Tables use a single string hash key on the entity id attribute. There are
// no secondary indexes; filtered lookups are expressed as table scans, which
// matches the expected entity-count scale of a personal filesystem.
package dynamo

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/marmos91/s3dav/pkg/store/table"
)

// Default provisioned throughput for new tables, in capacity units.
const (
	defaultReadCapacity  = 10
	defaultWriteCapacity = 10
)

// DynamoTableStore implements table.Store against DynamoDB.
//
// Thread safety: the underlying SDK client is safe for concurrent use and
// this type holds no mutable state.
type DynamoTableStore struct {
	client        *dynamodb.Client
	readCapacity  int64
	writeCapacity int64
}

// DynamoTableStoreConfig contains configuration for the DynamoDB table store.
type DynamoTableStoreConfig struct {
	// Client is the configured DynamoDB client.
	Client *dynamodb.Client

	// ReadCapacity and WriteCapacity are the provisioned throughput applied
	// to tables created through this store. Both default to 10 when zero.
	ReadCapacity  int64
	WriteCapacity int64
}

// NewDynamoTableStore creates a DynamoDB-backed table store.
//
// No remote call is made here; table existence is a per-call concern because
// the store can be pointed at a table it is also asked to provision.
func NewDynamoTableStore(cfg DynamoTableStoreConfig) (*DynamoTableStore, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("DynamoDB client is required")
	}

	read := cfg.ReadCapacity
	if read <= 0 {
		read = defaultReadCapacity
	}
	write := cfg.WriteCapacity
	if write <= 0 {
		write = defaultWriteCapacity
	}

	return &DynamoTableStore{
		client:        cfg.Client,
		readCapacity:  read,
		writeCapacity: write,
	}, nil
}

// translateTableErr maps a missing-table service error to the package
// sentinel so callers never have to know SDK error types.
func translateTableErr(err error) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return table.ErrTableNotFound
	}
	return err
}
