// Package memory implements an in-memory batch sink for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ekaval/estate-harvester/internal/harvest"
	"github.com/ekaval/estate-harvester/internal/record"
)

// Sink keeps batches in a map. Safe for concurrent use.
type Sink struct {
	mu      sync.RWMutex
	batches map[string][]record.Merged
}

var _ harvest.Sink = (*Sink)(nil)

// New returns an empty in-memory sink.
func New() *Sink {
	return &Sink{batches: make(map[string][]record.Merged)}
}

// WriteBatch stores a copy of the records under id. A duplicate id surfaces
// as harvest.ErrBatchExists.
func (s *Sink) WriteBatch(ctx context.Context, id string, records []record.Merged) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("batch id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[id]; ok {
		return fmt.Errorf("batch %s: %w", id, harvest.ErrBatchExists)
	}
	cp := make([]record.Merged, len(records))
	copy(cp, records)
	s.batches[id] = cp
	return nil
}

// ReadBatch returns the records stored under id.
func (s *Sink) ReadBatch(ctx context.Context, id string) ([]record.Merged, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %s not found", id)
	}
	cp := make([]record.Merged, len(records))
	copy(cp, records)
	return cp, nil
}

// ListBatchIDs returns all stored identifiers in lexical order.
func (s *Sink) ListBatchIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.batches))
	for id := range s.batches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
