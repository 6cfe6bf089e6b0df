package harvest

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaval/estate-harvester/internal/record"
)

// Stats summarizes a harvest run for the end-of-run report.
type Stats struct {
	PagesVisited    int
	ItemsDiscovered int
	ItemsEnriched   int
	ItemsSkipped    int
	Retries         int
	PagesFailed     int
}

// Orchestrator drives the pipeline and checkpoint across the configured page
// range. It owns sequencing and the termination decision; it performs no
// retries and no I/O of its own.
type Orchestrator struct {
	pipeline   *Pipeline
	checkpoint *Checkpoint
	cfg        Config
	pauser     Pauser
	delays     DelayPolicy
	reporter   *Reporter
	logger     *zap.Logger
}

// NewOrchestrator assembles the top-level control loop.
func NewOrchestrator(
	pipeline *Pipeline,
	checkpoint *Checkpoint,
	cfg Config,
	pauser Pauser,
	reporter *Reporter,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reporter == nil {
		reporter = NewReporter(nil)
	}
	return &Orchestrator{
		pipeline:   pipeline,
		checkpoint: checkpoint,
		cfg:        cfg,
		pauser:     pauser,
		delays:     cfg.Delays(),
		reporter:   reporter,
		logger:     logger,
	}
}

// Run traverses pages [StartPage, StopPage) in strictly increasing order,
// halting early at the first empty discover result: an empty page means the
// site has run out of listings. Every visited page is flushed as one batch,
// give-ups included (they simply contribute no record). The consolidated
// dataset is returned even when a capability failure aborts the crawl, so
// partial results are never discarded.
func (o *Orchestrator) Run(ctx context.Context) ([]record.Merged, Stats, error) {
	var stats Stats
	o.reporter.runStart()

	runErr := o.crawl(ctx, &stats)
	if runErr != nil {
		o.reporter.runError(runErr)
	} else {
		o.reporter.runDone()
	}

	records, err := o.checkpoint.Consolidate(ctx)
	if err != nil {
		o.logger.Error("Consolidation failed", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
		return nil, stats, runErr
	}
	return records, stats, runErr
}

func (o *Orchestrator) crawl(ctx context.Context, stats *Stats) error {
	for pageIndex := o.cfg.StartPage; pageIndex < o.cfg.StopPage; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.reporter.pageStart(pageIndex)
		o.logger.Info("Discovering page", zap.Int("page", pageIndex))

		summaries, total, err := o.pipeline.Discover(ctx, pageIndex)
		if err != nil {
			return err
		}
		if total == 0 {
			o.logger.Info("Empty page, assuming end of results", zap.Int("page", pageIndex))
			return nil
		}
		stats.PagesVisited++
		stats.ItemsDiscovered += len(summaries)
		o.logger.Info("Enriching listings",
			zap.Int("page", pageIndex), zap.Int("count", len(summaries)))

		collected := make([]record.Merged, 0, len(summaries))
		for _, summary := range summaries {
			result, err := o.pipeline.Enrich(ctx, pageIndex, summary)
			stats.Retries += result.Attempts
			if err != nil {
				return err
			}
			if !result.OK {
				stats.ItemsSkipped++
				continue
			}
			stats.ItemsEnriched++
			collected = append(collected, result.Record)
		}

		if err := o.flush(ctx, pageIndex, collected); err != nil {
			// Fatal for this page's persistence only; the crawl goes on.
			stats.PagesFailed++
			o.logger.Error("Failed to persist page batch",
				zap.Int("page", pageIndex), zap.Error(err))
		}
		o.reporter.pageDone(pageIndex, len(summaries))

		o.pauser.Pause(ctx, o.delays.Next())
	}
	return nil
}

func (o *Orchestrator) flush(ctx context.Context, pageIndex int, records []record.Merged) error {
	if err := o.checkpoint.Append(ctx, pageIndex, records); err != nil {
		return err
	}
	ids := o.checkpoint.BatchIDs()
	o.reporter.batchFlushed(pageIndex, len(records), ids[len(ids)-1])
	return nil
}
