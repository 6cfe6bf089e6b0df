// Package fs implements a local filesystem batch sink. Each batch is a JSON
// Lines file named after its batch identifier.
package fs

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ekaval/estate-harvester/internal/harvest"
	"github.com/ekaval/estate-harvester/internal/record"
)

const batchExt = ".jsonl"

// Sink writes batches under a base directory.
type Sink struct {
	baseDir string
}

var _ harvest.Sink = (*Sink)(nil)

// New creates the base directory if needed and verifies it is writable.
func New(baseDir string) (*Sink, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	info, err := os.Stat(baseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}
	return &Sink{baseDir: baseDir}, nil
}

// WriteBatch persists the records as one JSONL file. An existing file with
// the same identifier surfaces as harvest.ErrBatchExists so the engine can
// fall back to an alternate identifier.
func (s *Sink) WriteBatch(ctx context.Context, id string, records []record.Merged) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.batchPath(id)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("batch %s: %w", id, harvest.ErrBatchExists)
		}
		return fmt.Errorf("create batch file: %w", err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			f.Close() //nolint:errcheck,gosec // encode error wins
			return fmt.Errorf("encode record %d of batch %s: %w", i, id, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close() //nolint:errcheck,gosec
		return fmt.Errorf("flush batch %s: %w", id, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close batch %s: %w", id, err)
	}
	return nil
}

// ReadBatch loads the records of one batch in write order.
func (s *Sink) ReadBatch(ctx context.Context, id string) ([]record.Merged, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.batchPath(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // path is validated against the base dir
	if err != nil {
		return nil, fmt.Errorf("open batch %s: %w", id, err)
	}
	defer f.Close() //nolint:errcheck

	var records []record.Merged
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec record.Merged
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode batch %s: %w", id, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ListBatchIDs returns the identifiers of every stored batch in lexical
// order.
func (s *Sink) ListBatchIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read base directory: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, batchExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, batchExt))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Sink) batchPath(id string) (string, error) {
	if id == "" || id == "." || id == ".." || id != filepath.Base(id) || strings.ContainsAny(id, "/\\") {
		return "", fmt.Errorf("invalid batch id %q", id)
	}
	return filepath.Join(s.baseDir, id+batchExt), nil
}
