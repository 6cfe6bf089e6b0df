package harvest

import (
	"time"

	"github.com/ekaval/estate-harvester/internal/progress"
)

// Reporter scopes progress events to one harvest run. It is shared by the
// orchestrator and the pipeline so both report under the same run ID.
type Reporter struct {
	emitter progress.Emitter
	runID   [16]byte
}

// NewReporter allocates a run ID and binds it to the emitter. A nil emitter
// yields a reporter that discards everything.
func NewReporter(emitter progress.Emitter) *Reporter {
	if emitter == nil {
		emitter = progress.NopEmitter{}
	}
	return &Reporter{emitter: emitter, runID: progress.NewRunID()}
}

// RunID exposes the run identifier for end-of-run summaries.
func (r *Reporter) RunID() [16]byte {
	return r.runID
}

func (r *Reporter) emit(evt progress.Event) {
	evt.RunID = r.runID
	evt.TS = time.Now().UTC()
	r.emitter.Emit(evt)
}

func (r *Reporter) runStart() {
	r.emit(progress.Event{Stage: progress.StageRunStart})
}

func (r *Reporter) runDone() {
	r.emit(progress.Event{Stage: progress.StageRunDone})
}

func (r *Reporter) runError(err error) {
	r.emit(progress.Event{Stage: progress.StageRunError, Note: err.Error()})
}

func (r *Reporter) pageStart(page int) {
	r.emit(progress.Event{Stage: progress.StagePageStart, Page: page})
}

func (r *Reporter) pageDone(page, summaries int) {
	r.emit(progress.Event{Stage: progress.StagePageDone, Page: page, Count: summaries})
}

func (r *Reporter) itemEnriched(page int, itemID, url string, attempts int) {
	r.emit(progress.Event{
		Stage:    progress.StageItemEnriched,
		Page:     page,
		ItemID:   itemID,
		URL:      url,
		Attempts: attempts,
	})
}

func (r *Reporter) itemRetry(page int, itemID, url string, attempts int) {
	r.emit(progress.Event{
		Stage:    progress.StageItemRetry,
		Page:     page,
		ItemID:   itemID,
		URL:      url,
		Attempts: attempts,
	})
}

func (r *Reporter) itemSkipped(page int, itemID, url string, attempts int) {
	r.emit(progress.Event{
		Stage:    progress.StageItemSkipped,
		Page:     page,
		ItemID:   itemID,
		URL:      url,
		Attempts: attempts,
	})
}

func (r *Reporter) itemDropped(page int, itemID string) {
	if itemID == "" {
		itemID = "unknown"
	}
	r.emit(progress.Event{Stage: progress.StageItemDropped, Page: page, ItemID: itemID, Note: "summary has no detail reference"})
}

func (r *Reporter) batchFlushed(page, records int, id string) {
	r.emit(progress.Event{Stage: progress.StageBatchFlushed, Page: page, Count: records, Note: id})
}
