package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/s3dav/pkg/model"
	"github.com/marmos91/s3dav/pkg/store/table"
)

// CreateTable provisions a table by writing its marker key. BadgerDB
// tables are ready the instant the marker lands, so no polling is needed.
// Creating an existing table is a no-op.
func (s *BadgerTableStore) CreateTable(ctx context.Context, tableName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(keyTable(tableName))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to probe table %s: %w", tableName, err)
		}
		return txn.Set(keyTable(tableName), []byte(time.Now().Format(time.RFC3339)))
	})
}

// DeleteTable removes the table marker and every record under the table's
// namespace. Deleting a missing table is a no-op.
func (s *BadgerTableStore) DeleteTable(ctx context.Context, tableName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = recordPrefix(tableName)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("failed to delete record %s: %w", key, err)
			}
		}

		return txn.Delete(keyTable(tableName))
	})
}

// TableExists reports whether the table marker is present.
func (s *BadgerTableStore) TableExists(ctx context.Context, tableName string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var exists bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(keyTable(tableName))
		if err == nil {
			exists = true
			return nil
		}
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	return exists, err
}

// PutRecord fully overwrites the record keyed by rec.ID.
func (s *BadgerTableStore) PutRecord(ctx context.Context, tableName string, rec *model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("record is missing %s", model.AttrID)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := s.requireTable(txn, tableName); err != nil {
			return err
		}
		return txn.Set(keyRecord(tableName, rec.ID), data)
	})
}

// GetRecord fetches a record by primary key.
func (s *BadgerTableStore) GetRecord(ctx context.Context, tableName, id string) (*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *model.Record
	err := s.db.View(func(txn *badger.Txn) error {
		if err := s.requireTable(txn, tableName); err != nil {
			return err
		}

		item, err := txn.Get(keyRecord(tableName, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("record %s: %w", id, table.ErrRecordNotFound)
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			rec = &model.Record{}
			if err := json.Unmarshal(val, rec); err != nil {
				return fmt.Errorf("failed to decode record %s: %w", id, err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Scan iterates the table's record namespace and returns every record
// matching the filter.
func (s *BadgerTableStore) Scan(ctx context.Context, tableName string, filter table.Filter) ([]*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matches []*model.Record
	err := s.db.View(func(txn *badger.Txn) error {
		if err := s.requireTable(txn, tableName); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix(tableName)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				rec := &model.Record{}
				if err := json.Unmarshal(val, rec); err != nil {
					return fmt.Errorf("failed to decode record %s: %w", it.Item().Key(), err)
				}
				if table.Matches(rec, filter) {
					matches = append(matches, rec)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// UpdateAttributes applies a partial update as a read-modify-write inside
// a single transaction.
func (s *BadgerTableStore) UpdateAttributes(ctx context.Context, tableName, id string, updates table.Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := s.requireTable(txn, tableName); err != nil {
			return err
		}

		item, err := txn.Get(keyRecord(tableName, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("record %s: %w", id, table.ErrRecordNotFound)
		}
		if err != nil {
			return err
		}

		rec := &model.Record{}
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, rec)
		})
		if err != nil {
			return fmt.Errorf("failed to decode record %s: %w", id, err)
		}

		if err := table.ApplyUpdate(rec, updates); err != nil {
			return err
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", id, err)
		}
		return txn.Set(keyRecord(tableName, id), data)
	})
}

// DeleteRecord removes a record. Missing records are not an error.
func (s *BadgerTableStore) DeleteRecord(ctx context.Context, tableName, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := s.requireTable(txn, tableName); err != nil {
			return err
		}
		return txn.Delete(keyRecord(tableName, id))
	})
}

// requireTable fails with ErrTableNotFound when the marker is absent.
func (s *BadgerTableStore) requireTable(txn *badger.Txn, tableName string) error {
	_, err := txn.Get(keyTable(tableName))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("table %s: %w", tableName, table.ErrTableNotFound)
	}
	return err
}
