package harvest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaval/estate-harvester/internal/record"
	"github.com/ekaval/estate-harvester/internal/retry"
)

// Pipeline executes one discover-then-enrich cycle for a single page index.
// It owns the per-item retry loop and the politeness delays between detail
// fetches; page sequencing belongs to the Orchestrator.
type Pipeline struct {
	cfg      Config
	browser  Browser
	reader   DocumentReader
	mapping  record.Mapping
	sched    retry.Scheduler
	pauser   Pauser
	delays   DelayPolicy
	reporter *Reporter
	logger   *zap.Logger
}

// NewPipeline wires the capabilities into a pipeline.
func NewPipeline(
	cfg Config,
	browser Browser,
	reader DocumentReader,
	mapping record.Mapping,
	pauser Pauser,
	reporter *Reporter,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reporter == nil {
		reporter = NewReporter(nil)
	}
	return &Pipeline{
		cfg:      cfg,
		browser:  browser,
		reader:   reader,
		mapping:  mapping,
		sched:    retry.NewScheduler(cfg.MaxAttempts, cfg.CooldownUnit),
		pauser:   pauser,
		delays:   cfg.Delays(),
		reporter: reporter,
		logger:   logger,
	}
}

// Discover loads the list-view page for pageIndex and extracts its listing
// summaries. The returned total counts every card the reader found; a zero
// total is valid and meaningful, it is how the site signals that the range
// of results has ended. A load timeout is treated the same way, as "no
// content". Summaries without a detail reference are dropped from the
// returned slice because they can never be enriched, but they still count
// toward the total so a page of link-less cards does not read as the end of
// results.
func (p *Pipeline) Discover(ctx context.Context, pageIndex int) ([]record.Summary, int, error) {
	pageURL := p.cfg.PageURL(pageIndex)
	page, err := p.browser.Load(ctx, pageURL, ReadinessList)
	if err != nil {
		if errors.Is(err, ErrLoadTimeout) {
			p.logger.Warn("Timeout waiting for list view, treating as empty page",
				zap.Int("page", pageIndex), zap.String("url", pageURL))
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("load page %d: %w", pageIndex, err)
	}

	raw, err := p.reader.ReadSummaries(page)
	if err != nil {
		return nil, 0, fmt.Errorf("read summaries on page %d: %w", pageIndex, err)
	}

	summaries := make([]record.Summary, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s.DetailRef) == "" {
			p.reporter.itemDropped(pageIndex, s.Title)
			continue
		}
		s.ID = listingIDFromRef(s.DetailRef)
		summaries = append(summaries, s)
	}
	return summaries, len(raw), nil
}

// EnrichResult reports the outcome of one summary's enrichment.
type EnrichResult struct {
	Record record.Merged
	// OK is false when the item was permanently skipped.
	OK bool
	// Attempts counts the failed attempts before success or give-up.
	Attempts int
}

// Enrich visits the summary's detail page and merges the extracted fields
// over the summary. A page that yields zero mapped fields is read as a soft
// block: the pipeline cools down per the retry scheduler and tries again,
// giving up after the configured number of attempts. Only capability-level
// failures (a lost browser session, a canceled context) surface as errors.
func (p *Pipeline) Enrich(ctx context.Context, pageIndex int, s record.Summary) (EnrichResult, error) {
	detailURL, err := p.cfg.ResolveDetail(s.DetailRef)
	if err != nil {
		p.logger.Warn("Unresolvable detail reference, skipping item",
			zap.String("item_id", s.ID), zap.Error(err))
		p.reporter.itemDropped(pageIndex, s.ID)
		return EnrichResult{}, nil
	}

	state := retry.State{}
	for {
		detail, err := p.fetchDetail(ctx, detailURL)
		if err != nil {
			return EnrichResult{Attempts: state.Attempts}, err
		}

		if detail.Len() > 0 {
			p.reporter.itemEnriched(pageIndex, s.ID, detailURL, state.Attempts)
			p.pauser.Pause(ctx, p.delays.Next())
			return EnrichResult{
				Record:   record.Merge(s, detail),
				OK:       true,
				Attempts: state.Attempts,
			}, nil
		}

		state = p.sched.RecordFailure(state)
		p.reporter.itemRetry(pageIndex, s.ID, detailURL, state.Attempts)
		p.logger.Warn("Detail page yielded no fields",
			zap.String("item_id", s.ID),
			zap.Int("attempts", state.Attempts),
			zap.Int("max_attempts", p.sched.MaxAttempts()))

		if p.sched.Exhausted(state) {
			p.reporter.itemSkipped(pageIndex, s.ID, detailURL, state.Attempts)
			p.pauser.Pause(ctx, p.delays.Next())
			return EnrichResult{Attempts: state.Attempts}, nil
		}

		cooldown := p.sched.NextCooldown(state)
		p.logger.Info("Cooling down before retry, soft block suspected",
			zap.String("item_id", s.ID), zap.Duration("cooldown", cooldown))
		p.pauser.Pause(ctx, cooldown)
		if ctx.Err() != nil {
			// An interrupted cooldown fails the in-flight item.
			return EnrichResult{Attempts: state.Attempts}, ctx.Err()
		}
	}
}

// fetchDetail performs a single detail-page attempt. A load timeout is a
// transient content failure and comes back as an empty detail.
func (p *Pipeline) fetchDetail(ctx context.Context, detailURL string) (record.Detail, error) {
	page, err := p.browser.Load(ctx, detailURL, ReadinessDetail)
	if err != nil {
		if errors.Is(err, ErrLoadTimeout) {
			return record.NewDetail(), nil
		}
		return record.Detail{}, fmt.Errorf("load detail %s: %w", detailURL, err)
	}
	pairs, err := p.reader.ReadLabeledFields(page)
	if err != nil {
		return record.Detail{}, fmt.Errorf("read detail fields %s: %w", detailURL, err)
	}
	return p.mapping.Apply(pairs), nil
}

// listingIDFromRef derives the listing ID from the detail URL's last path
// segment. IDs are unique within a page; a listing can reappear on another
// page if results shift mid-crawl, which is an accepted limitation.
func listingIDFromRef(ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return path.Base(ref)
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
