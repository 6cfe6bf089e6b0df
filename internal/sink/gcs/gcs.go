// Package gcs implements a batch sink backed by Google Cloud Storage. Each
// batch is one JSON object under the configured prefix.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/ekaval/estate-harvester/internal/harvest"
	"github.com/ekaval/estate-harvester/internal/record"
)

const objectExt = ".json"

// Config captures the parameters required to address batch objects.
type Config struct {
	Bucket string
	// Prefix namespaces the batch objects, e.g. "harvest/2026-08-26".
	Prefix string
}

// Sink writes batch objects to a GCS bucket. Authentication follows Google's
// Application Default Credentials.
type Sink struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ harvest.Sink = (*Sink)(nil)

// New wraps an existing client. The bucket must already exist.
func New(client *storage.Client, cfg Config) (*Sink, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Sink{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// WriteBatch uploads the records as one JSON object. The write is conditional
// on the object not existing; a precondition failure surfaces as
// harvest.ErrBatchExists.
func (s *Sink) WriteBatch(ctx context.Context, id string, records []record.Merged) error {
	if id == "" {
		return fmt.Errorf("batch id is required")
	}
	if records == nil {
		records = []record.Merged{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal batch %s: %w", id, err)
	}

	obj := s.client.Bucket(s.bucket).Object(s.objectName(id)).
		If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return fmt.Errorf("write batch %s: %w", id, err)
	}
	if err := w.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 412 {
			return fmt.Errorf("batch %s: %w", id, harvest.ErrBatchExists)
		}
		return fmt.Errorf("finalize batch %s: %w", id, err)
	}
	return nil
}

// ReadBatch downloads and decodes one batch object.
func (s *Sink) ReadBatch(ctx context.Context, id string) ([]record.Merged, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.objectName(id)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open batch %s: %w", id, err)
	}
	defer r.Close() //nolint:errcheck

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read batch %s: %w", id, err)
	}
	var records []record.Merged
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("unmarshal batch %s: %w", id, err)
	}
	return records, nil
}

// ListBatchIDs lists every batch object under the prefix in lexical order.
func (s *Sink) ListBatchIDs(ctx context.Context) ([]string, error) {
	query := &storage.Query{}
	if s.prefix != "" {
		query.Prefix = s.prefix + "/"
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, query)

	var ids []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list batches: %w", err)
		}
		name := strings.TrimPrefix(attrs.Name, query.Prefix)
		if !strings.HasSuffix(name, objectExt) || strings.Contains(name, "/") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, objectExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// Close releases the underlying client.
func (s *Sink) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close storage client: %w", err)
	}
	return nil
}

func (s *Sink) objectName(id string) string {
	if s.prefix == "" {
		return id + objectExt
	}
	return s.prefix + "/" + id + objectExt
}
