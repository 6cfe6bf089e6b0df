// Package progress defines the event structures emitted while a harvest run
// progresses, plus the sinks that consume them (structured logs, Prometheus
// counters, and a latest-snapshot store for the status API).
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart     Stage = "RUN_START"
	StageRunDone      Stage = "RUN_DONE"
	StageRunError     Stage = "RUN_ERROR"
	StagePageStart    Stage = "PAGE_START"
	StagePageDone     Stage = "PAGE_DONE"
	StageItemEnriched Stage = "ITEM_ENRICHED"
	StageItemRetry    Stage = "ITEM_RETRY"
	StageItemSkipped  Stage = "ITEM_SKIPPED"
	StageItemDropped  Stage = "ITEM_DROPPED"
	StageBatchFlushed Stage = "BATCH_FLUSHED"
)

// Event captures a single milestone of harvester progress.
type Event struct {
	// RunID uniquely identifies a harvest run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle milestone occurred.
	Stage Stage
	// Page is the discover-phase page index the event belongs to, if any.
	Page int
	// ItemID is the listing identifier for item-level events.
	ItemID string
	// URL is the optional page or detail URL.
	URL string
	// Count carries a stage-specific tally (summaries found, records flushed).
	Count int
	// Attempts is the failed-attempt count for retry/skip events.
	Attempts int
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError, StagePageStart, StagePageDone, StageBatchFlushed:
	case StageItemEnriched, StageItemRetry, StageItemSkipped, StageItemDropped:
		if e.ItemID == "" && e.URL == "" {
			return fmt.Errorf("stage %q requires an item id or url", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID for reporting.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// NewRunID generates a fresh run identifier in the Event form.
func NewRunID() [16]byte {
	id := uuid.New()
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
