package progress

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink exports harvest progress metrics via Prometheus. It owns the
// collectors for page, item, retry, and flush counters.
type PrometheusSink struct {
	pagesVisited  prometheus.Counter
	itemsEnriched prometheus.Counter
	itemsSkipped  prometheus.Counter
	itemsDropped  prometheus.Counter
	retries       prometheus.Counter
	recordsFlush  prometheus.Counter
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		pagesVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvester_pages_visited_total",
			Help: "List-view pages whose discovery completed.",
		}),
		itemsEnriched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvester_items_enriched_total",
			Help: "Listings whose detail enrichment succeeded.",
		}),
		itemsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvester_items_skipped_total",
			Help: "Listings given up on after retry exhaustion.",
		}),
		itemsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvester_items_dropped_total",
			Help: "Summaries dropped for lacking a detail reference.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvester_retries_total",
			Help: "Detail fetch attempts that failed and were retried or exhausted.",
		}),
		recordsFlush: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvester_records_flushed_total",
			Help: "Merged records flushed to the sink.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.pagesVisited,
		s.itemsEnriched,
		s.itemsSkipped,
		s.itemsDropped,
		s.retries,
		s.recordsFlush,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors for one event.
func (s *PrometheusSink) Consume(evt Event) {
	switch evt.Stage {
	case StagePageDone:
		s.pagesVisited.Inc()
	case StageItemEnriched:
		s.itemsEnriched.Inc()
	case StageItemRetry:
		s.retries.Inc()
	case StageItemSkipped:
		s.itemsSkipped.Inc()
	case StageItemDropped:
		s.itemsDropped.Inc()
	case StageBatchFlushed:
		s.recordsFlush.Add(float64(evt.Count))
	}
}
