package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ekaval/estate-harvester/internal/api"
	"github.com/ekaval/estate-harvester/internal/browser"
	"github.com/ekaval/estate-harvester/internal/export"
	"github.com/ekaval/estate-harvester/internal/harvest"
	"github.com/ekaval/estate-harvester/internal/logging"
	"github.com/ekaval/estate-harvester/internal/notify"
	"github.com/ekaval/estate-harvester/internal/progress"
	"github.com/ekaval/estate-harvester/internal/reader"
	"github.com/ekaval/estate-harvester/internal/record"
	fssink "github.com/ekaval/estate-harvester/internal/sink/fs"
	gcssink "github.com/ekaval/estate-harvester/internal/sink/gcs"
	memsink "github.com/ekaval/estate-harvester/internal/sink/memory"
	pgsink "github.com/ekaval/estate-harvester/internal/sink/postgres"
	"github.com/ekaval/estate-harvester/pkg/config"
)

// newHarvestCmd creates the 'harvest' subcommand, which runs one full crawl
// from the configured start page until the portal runs out of listings.
func newHarvestCmd() *cobra.Command {
	var resume bool

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Runs one harvest pass over the configured portal",
		Long: `Walks the paginated list views, enriches each discovered listing from
its detail page, flushes one batch per page, and writes the consolidated
records as CSV when the crawl finishes or fails.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHarvest(cmd.Context(), resume)
		},
	}
	cmd.Flags().BoolVar(&resume, "resume", false,
		"pick up batch identifiers already present in the sink before crawling")
	return cmd
}

func runHarvest(parent context.Context, resume bool) error {
	fileUsed, err := config.InitConfig(cfgFile)
	if err != nil {
		return err
	}
	v := viper.GetViper()

	logger, err := logging.New(v.GetBool("log.development"), v.GetString("log.level"))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	if fileUsed != "" {
		logger.Info("using config file", zap.String("path", fileUsed))
	}

	cfg, err := harvest.LoadConfig(v)
	if err != nil {
		return fmt.Errorf("load harvest config: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := buildBrowser(v, cfg, logger)
	if err != nil {
		return fmt.Errorf("init browser: %w", err)
	}
	defer func() {
		if cerr := b.Close(context.Background()); cerr != nil {
			logger.Warn("failed to close browser", zap.Error(cerr))
		}
	}()

	sink, sinkClose, err := buildSink(ctx, v)
	if err != nil {
		return fmt.Errorf("init sink: %w", err)
	}
	defer sinkClose()

	registry := prometheus.NewRegistry()
	promSink, err := progress.NewPrometheusSink(registry)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	storeSink := progress.NewStoreSink()
	hub := progress.NewHub(logger, progress.NewLogSink(logger), promSink, storeSink)
	reporter := harvest.NewReporter(hub)

	if v.GetBool("server.enabled") {
		startServer(ctx, v.GetInt("server.port"), storeSink, registry, logger)
	}

	pipeline := harvest.NewPipeline(
		cfg, b, reader.NewDocument(reader.DefaultSelectors()),
		record.DefaultMapping(), harvest.NewTimerPauser(), reporter, logger,
	)
	checkpoint := harvest.NewCheckpoint(sink, logger)
	if resume {
		if err := checkpoint.Restore(ctx); err != nil {
			return fmt.Errorf("restore checkpoint: %w", err)
		}
		logger.Info("resuming over existing batches",
			zap.Strings("batch_ids", checkpoint.BatchIDs()))
	}
	orchestrator := harvest.NewOrchestrator(pipeline, checkpoint, cfg, harvest.NewTimerPauser(), reporter, logger)

	records, stats, runErr := orchestrator.Run(ctx)
	logger.Info("harvest finished",
		zap.Int("pages_visited", stats.PagesVisited),
		zap.Int("items_discovered", stats.ItemsDiscovered),
		zap.Int("items_enriched", stats.ItemsEnriched),
		zap.Int("items_skipped", stats.ItemsSkipped),
		zap.Int("retries", stats.Retries),
		zap.Int("pages_failed", stats.PagesFailed),
		zap.Int("records", len(records)),
	)
	for _, rec := range sampleRecords(records, 3) {
		logger.Info("sample record", sampleFields(rec)...)
	}

	if path := v.GetString("export.csv"); path != "" && len(records) > 0 {
		if err := writeCSVFile(path, records); err != nil {
			logger.Error("csv export failed", zap.Error(err))
		} else {
			logger.Info("wrote consolidated csv", zap.String("path", path))
		}
	}

	if v.GetBool("notify.enabled") {
		runID := uuid.UUID(reporter.RunID()).String()
		summary := notify.NewRunSummary(runID, stats, checkpoint.BatchIDs(), len(records), runErr)
		if err := publishSummary(ctx, v, summary); err != nil {
			logger.Error("run summary publish failed", zap.Error(err))
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("harvest run: %w", runErr)
	}
	return nil
}

func buildBrowser(v *viper.Viper, cfg harvest.Config, logger *zap.Logger) (harvest.Browser, error) {
	opts := browser.Options{
		UserAgent:   cfg.UserAgent,
		LoadTimeout: cfg.LoadTimeout,
		DomainQPS:   v.GetFloat64("browser.domain_qps"),
		Selectors: browser.ReadinessSelectors{
			List:   v.GetString("browser.selector_list"),
			Detail: v.GetString("browser.selector_detail"),
		},
	}
	switch mode := v.GetString("browser.mode"); mode {
	case "chromedp":
		return browser.NewChromedp(opts, logger)
	case "static":
		return browser.NewStatic(opts, logger)
	default:
		return nil, fmt.Errorf("unknown browser.mode %q", mode)
	}
}

func buildSink(ctx context.Context, v *viper.Viper) (harvest.Sink, func(), error) {
	noop := func() {}
	switch kind := v.GetString("sink.type"); kind {
	case "fs":
		s, err := fssink.New(v.GetString("sink.dir"))
		return s, noop, err
	case "memory":
		return memsink.New(), noop, nil
	case "postgres":
		s, err := pgsink.New(ctx, pgsink.Config{
			DSN:   v.GetString("sink.dsn"),
			Table: v.GetString("sink.table"),
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create storage client: %w", err)
		}
		s, err := gcssink.New(client, gcssink.Config{
			Bucket: v.GetString("sink.bucket"),
			Prefix: v.GetString("sink.prefix"),
		})
		if err != nil {
			client.Close() //nolint:errcheck,gosec
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink.type %q", kind)
	}
}

func startServer(ctx context.Context, port int, store *progress.StoreSink, registry *prometheus.Registry, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           api.NewServer(store, registry, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http server started", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http server shutdown", zap.Error(err))
		}
	}()
}

// sampleRecords returns up to n records for the end-of-run report.
func sampleRecords(records []record.Merged, n int) []record.Merged {
	if len(records) > n {
		return records[:n]
	}
	return records
}

func sampleFields(rec record.Merged) []zap.Field {
	id, _ := rec.Get(record.FieldListingID)
	title, _ := rec.Get(record.FieldTitle)
	price, _ := rec.Get(record.FieldPrice)
	return []zap.Field{
		zap.String("listing_id", id),
		zap.String("title", title),
		zap.String("price", price),
	}
}

func writeCSVFile(path string, records []record.Merged) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}
	f, err := os.Create(path) //nolint:gosec // operator-provided export path
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	if err := export.WriteCSV(f, records); err != nil {
		f.Close() //nolint:errcheck,gosec
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv file: %w", err)
	}
	return nil
}

func publishSummary(ctx context.Context, v *viper.Viper, summary notify.RunSummary) error {
	client, err := pubsub.NewClient(ctx, v.GetString("notify.project"))
	if err != nil {
		return fmt.Errorf("create pubsub client: %w", err)
	}
	defer client.Close() //nolint:errcheck

	topic := client.Topic(v.GetString("notify.topic"))
	defer topic.Stop()

	if _, err := notify.New(topic).Publish(ctx, summary); err != nil {
		return err
	}
	return nil
}
