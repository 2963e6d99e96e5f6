// Package memory implements the metadata table store in process memory.
//
// It backs tests and development setups. Tables exist the moment they are
// created; the bounded provisioning wait of remote backends degenerates to
// an immediate success here.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/s3dav/pkg/model"
	"github.com/marmos91/s3dav/pkg/store/table"
)

// MemoryTableStore implements table.Store with mutex-protected maps.
type MemoryTableStore struct {
	mu     sync.RWMutex
	tables map[string]map[string]*model.Record
}

// NewMemoryTableStore creates an empty in-memory table store.
func NewMemoryTableStore() *MemoryTableStore {
	return &MemoryTableStore{
		tables: make(map[string]map[string]*model.Record),
	}
}

// CreateTable provisions a table. Existing tables are left untouched.
func (s *MemoryTableStore) CreateTable(ctx context.Context, tableName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[tableName]; !ok {
		s.tables[tableName] = make(map[string]*model.Record)
	}
	return nil
}

// DeleteTable destroys a table and all its records.
func (s *MemoryTableStore) DeleteTable(ctx context.Context, tableName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, tableName)
	return nil
}

// TableExists reports whether the table has been created.
func (s *MemoryTableStore) TableExists(ctx context.Context, tableName string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[tableName]
	return ok, nil
}

// PutRecord fully overwrites the record keyed by rec.ID.
func (s *MemoryTableStore) PutRecord(ctx context.Context, tableName string, rec *model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("record is missing %s", model.AttrID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.tables[tableName]
	if !ok {
		return fmt.Errorf("table %s: %w", tableName, table.ErrTableNotFound)
	}

	stored := *rec
	records[rec.ID] = &stored
	return nil
}

// GetRecord fetches a record by primary key.
func (s *MemoryTableStore) GetRecord(ctx context.Context, tableName, id string) (*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.tables[tableName]
	if !ok {
		return nil, fmt.Errorf("table %s: %w", tableName, table.ErrTableNotFound)
	}

	rec, ok := records[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, table.ErrRecordNotFound)
	}

	out := *rec
	return &out, nil
}

// Scan returns every record matching the filter.
func (s *MemoryTableStore) Scan(ctx context.Context, tableName string, filter table.Filter) ([]*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.tables[tableName]
	if !ok {
		return nil, fmt.Errorf("table %s: %w", tableName, table.ErrTableNotFound)
	}

	var matches []*model.Record
	for _, rec := range records {
		if table.Matches(rec, filter) {
			out := *rec
			matches = append(matches, &out)
		}
	}
	return matches, nil
}

// UpdateAttributes overwrites only the named attributes of a record.
func (s *MemoryTableStore) UpdateAttributes(ctx context.Context, tableName, id string, updates table.Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.tables[tableName]
	if !ok {
		return fmt.Errorf("table %s: %w", tableName, table.ErrTableNotFound)
	}

	rec, ok := records[id]
	if !ok {
		return fmt.Errorf("record %s: %w", id, table.ErrRecordNotFound)
	}

	updated := *rec
	if err := table.ApplyUpdate(&updated, updates); err != nil {
		return err
	}
	records[id] = &updated
	return nil
}

// DeleteRecord removes a record. Missing records are not an error.
func (s *MemoryTableStore) DeleteRecord(ctx context.Context, tableName, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.tables[tableName]
	if !ok {
		return fmt.Errorf("table %s: %w", tableName, table.ErrTableNotFound)
	}

	delete(records, id)
	return nil
}
