package harvest

import (
	"context"
	"errors"
	"time"

	"github.com/ekaval/estate-harvester/internal/record"
)

// Readiness selects which structural condition a Browser awaits before a
// page counts as loaded.
type Readiness string

// Page kinds the engine navigates between.
const (
	ReadinessList   Readiness = "list-view"
	ReadinessDetail Readiness = "detail-view"
)

// ErrLoadTimeout indicates the readiness condition was not observed within
// the bounded wait. Callers treat it as "no content", never as fatal.
var ErrLoadTimeout = errors.New("timed out waiting for page content")

// ErrBatchExists indicates a sink already holds a batch under the requested
// identifier, typically output from a previous run.
var ErrBatchExists = errors.New("batch identifier already exists")

// Page is a rendered document snapshot handed from a Browser to a
// DocumentReader.
type Page struct {
	URL  string
	HTML string
}

// Browser loads a URL and waits for the page-kind-specific readiness
// condition before returning the rendered document.
type Browser interface {
	Load(ctx context.Context, rawURL string, readiness Readiness) (Page, error)
	Close(ctx context.Context) error
}

// DocumentReader extracts raw values from a rendered document. Missing
// elements yield absent fields, never errors; errors are reserved for
// documents that cannot be parsed at all.
type DocumentReader interface {
	// ReadSummaries extracts listing summaries from a list-view page.
	// Returned summaries carry no ID yet; the pipeline derives it.
	ReadSummaries(page Page) ([]record.Summary, error)
	// ReadLabeledFields extracts raw (label, value) pairs from a detail page.
	ReadLabeledFields(page Page) ([]record.LabeledField, error)
}

// Sink persists batches of merged records. It is append-only from the
// engine's perspective; one writer, sequential calls.
type Sink interface {
	// WriteBatch stores records under id. It must return ErrBatchExists
	// (possibly wrapped) rather than overwrite an existing batch.
	WriteBatch(ctx context.Context, id string, records []record.Merged) error
	ReadBatch(ctx context.Context, id string) ([]record.Merged, error)
	// ListBatchIDs returns every stored batch identifier in order.
	ListBatchIDs(ctx context.Context) ([]string, error)
}

// Pauser abstracts how the engine suspends for politeness delays and retry
// cooldowns, so tests can run without wall-clock waits.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}
