package harvest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaval/estate-harvester/internal/record"
)

// Checkpoint makes long crawls resumable and memory-bounded by flushing one
// batch per page instead of buffering the entire run. Once a page's batch is
// flushed the records are owned by the Sink; the checkpoint only remembers
// batch identifiers.
type Checkpoint struct {
	sink   Sink
	ids    []string
	logger *zap.Logger
}

// NewCheckpoint builds a checkpoint over the sink.
func NewCheckpoint(sink Sink, logger *zap.Logger) *Checkpoint {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checkpoint{sink: sink, logger: logger}
}

// batchID derives the deterministic, page-indexed batch identifier. The
// zero-padding keeps lexicographic and page order aligned for sinks that
// list lexicographically.
func batchID(pageIndex int) string {
	return fmt.Sprintf("page%04d", pageIndex)
}

// Append flushes the page's records as one batch. On an identifier collision
// with a previous run's output it falls back to an alternate identifier
// instead of overwriting; losing data to an accidental overwrite is worse
// than a duplicate-named artifact. If the fallback also fails the error is
// returned, fatal for this page's persistence only.
func (c *Checkpoint) Append(ctx context.Context, pageIndex int, records []record.Merged) error {
	id := batchID(pageIndex)
	err := c.sink.WriteBatch(ctx, id, records)
	if errors.Is(err, ErrBatchExists) {
		alt := id + "_alt"
		c.logger.Warn("Batch identifier collision, using alternate",
			zap.String("batch_id", id), zap.String("alternate", alt))
		id = alt
		err = c.sink.WriteBatch(ctx, id, records)
	}
	if err != nil {
		return fmt.Errorf("flush batch for page %d: %w", pageIndex, err)
	}
	c.ids = append(c.ids, id)
	return nil
}

// Consolidate reads back every batch written during the run, in page order,
// and concatenates them into the final dataset. Zero batches yield an empty
// dataset, not an error. Calling it twice without an intervening Append
// returns an identical sequence.
func (c *Checkpoint) Consolidate(ctx context.Context) ([]record.Merged, error) {
	out := make([]record.Merged, 0)
	for _, id := range c.ids {
		batch, err := c.sink.ReadBatch(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("read batch %s: %w", id, err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

// Restore seeds the batch list from what the sink already holds, so a
// consolidation can pick up the output of an interrupted run.
func (c *Checkpoint) Restore(ctx context.Context) error {
	ids, err := c.sink.ListBatchIDs(ctx)
	if err != nil {
		return fmt.Errorf("list existing batches: %w", err)
	}
	c.ids = ids
	return nil
}

// BatchIDs returns the identifiers flushed so far, in page order.
func (c *Checkpoint) BatchIDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}
