package progress

import (
	"sync"
	"time"
)

// Snapshot is the aggregate view of a run served by the status API.
type Snapshot struct {
	RunID         string    `json:"run_id"`
	Started       time.Time `json:"started_at,omitempty"`
	Finished      time.Time `json:"finished_at,omitempty"`
	CurrentPage   int       `json:"current_page"`
	PagesVisited  int       `json:"pages_visited"`
	ItemsEnriched int       `json:"items_enriched"`
	ItemsSkipped  int       `json:"items_skipped"`
	ItemsDropped  int       `json:"items_dropped"`
	Retries       int       `json:"retries"`
	RecordsSaved  int       `json:"records_saved"`
	LastError     string    `json:"last_error,omitempty"`
}

// StoreSink accumulates the latest run snapshot in memory so the API can
// serve it without touching the crawl goroutine.
type StoreSink struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewStoreSink builds an empty snapshot store.
func NewStoreSink() *StoreSink {
	return &StoreSink{}
}

// Consume folds the event into the snapshot.
func (s *StoreSink) Consume(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.RunID = evt.RunUUID().String()
	switch evt.Stage {
	case StageRunStart:
		s.snap = Snapshot{RunID: evt.RunUUID().String(), Started: evt.TS}
	case StageRunDone:
		s.snap.Finished = evt.TS
	case StageRunError:
		s.snap.Finished = evt.TS
		s.snap.LastError = evt.Note
	case StagePageStart:
		s.snap.CurrentPage = evt.Page
	case StagePageDone:
		s.snap.PagesVisited++
	case StageItemEnriched:
		s.snap.ItemsEnriched++
	case StageItemRetry:
		s.snap.Retries++
	case StageItemSkipped:
		s.snap.ItemsSkipped++
	case StageItemDropped:
		s.snap.ItemsDropped++
	case StageBatchFlushed:
		s.snap.RecordsSaved += evt.Count
	}
}

// Snapshot returns a copy of the current aggregate view.
func (s *StoreSink) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
