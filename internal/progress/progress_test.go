package progress

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func testEvent(stage Stage) Event {
	return Event{
		RunID:  NewRunID(),
		TS:     time.Now().UTC(),
		Stage:  stage,
		ItemID: "123",
	}
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	evt := testEvent(StageItemEnriched)
	require.NoError(t, evt.Validate())

	evt.ItemID = ""
	evt.URL = ""
	require.Error(t, evt.Validate(), "item events need an identifier")

	evt = testEvent(StageRunStart)
	evt.TS = time.Time{}
	require.Error(t, evt.Validate())

	evt = testEvent("BOGUS")
	require.Error(t, evt.Validate())
}

func TestHubFansOutToSinks(t *testing.T) {
	t.Parallel()

	store := NewStoreSink()
	hub := NewHub(nil, store)

	runID := NewRunID()
	base := Event{RunID: runID, TS: time.Now().UTC()}

	start := base
	start.Stage = StageRunStart
	hub.Emit(start)

	enriched := base
	enriched.Stage = StageItemEnriched
	enriched.ItemID = "a"
	hub.Emit(enriched)

	flushed := base
	flushed.Stage = StageBatchFlushed
	flushed.Count = 4
	hub.Emit(flushed)

	snap := store.Snapshot()
	require.Equal(t, 1, snap.ItemsEnriched)
	require.Equal(t, 4, snap.RecordsSaved)
}

func TestHubDropsInvalidEvents(t *testing.T) {
	t.Parallel()

	store := NewStoreSink()
	hub := NewHub(nil, store)
	hub.Emit(Event{Stage: StageRunStart}) // missing run id and timestamp

	require.Equal(t, Snapshot{}, store.Snapshot())
}

func TestPrometheusSinkCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	sink.Consume(testEvent(StageItemEnriched))
	sink.Consume(testEvent(StageItemRetry))
	sink.Consume(testEvent(StageItemRetry))
	flushed := testEvent(StageBatchFlushed)
	flushed.Count = 3
	sink.Consume(flushed)

	require.Equal(t, 1.0, testutil.ToFloat64(sink.itemsEnriched))
	require.Equal(t, 2.0, testutil.ToFloat64(sink.retries))
	require.Equal(t, 3.0, testutil.ToFloat64(sink.recordsFlush))
}

func TestStoreSinkTracksLifecycle(t *testing.T) {
	t.Parallel()

	store := NewStoreSink()
	runID := NewRunID()
	now := time.Now().UTC()

	store.Consume(Event{RunID: runID, TS: now, Stage: StageRunStart})
	store.Consume(Event{RunID: runID, TS: now, Stage: StagePageStart, Page: 2})
	store.Consume(Event{RunID: runID, TS: now, Stage: StagePageDone, Page: 2})
	store.Consume(Event{RunID: runID, TS: now.Add(time.Minute), Stage: StageRunError, Note: "session lost"})

	snap := store.Snapshot()
	require.Equal(t, 2, snap.CurrentPage)
	require.Equal(t, 1, snap.PagesVisited)
	require.Equal(t, "session lost", snap.LastError)
	require.Equal(t, now.Add(time.Minute), snap.Finished)
}
