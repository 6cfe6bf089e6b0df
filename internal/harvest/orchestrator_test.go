package harvest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ekaval/estate-harvester/internal/record"
)

func listURL(page int) string {
	return fmt.Sprintf("https://site.test/listings?sort=date&page=%d", page)
}

func detailURL(id string) string {
	return "https://site.test/listings/" + id
}

// expectListPage scripts one discover page returning the given summaries.
func expectListPage(browser *MockBrowser, reader *MockReader, pageIndex int, summaries []record.Summary) {
	page := Page{URL: listURL(pageIndex), HTML: fmt.Sprintf("<list %d/>", pageIndex)}
	browser.On("Load", mock.Anything, listURL(pageIndex), ReadinessList).Return(page, nil)
	reader.On("ReadSummaries", page).Return(summaries, nil)
}

// expectDetail scripts an item whose detail page succeeds immediately.
func expectDetail(browser *MockBrowser, reader *MockReader, id string, pairs []record.LabeledField) {
	page := Page{URL: detailURL(id), HTML: "<detail " + id + "/>"}
	browser.On("Load", mock.Anything, detailURL(id), ReadinessDetail).Return(page, nil)
	reader.On("ReadLabeledFields", page).Return(pairs, nil)
}

func newTestOrchestrator(browser Browser, reader DocumentReader, sink Sink) (*Orchestrator, *Checkpoint) {
	cfg := testConfig()
	pauser := &recordingPauser{}
	pipeline := NewPipeline(cfg, browser, reader, record.DefaultMapping(), pauser, nil, nil)
	checkpoint := NewCheckpoint(sink, nil)
	return NewOrchestrator(pipeline, checkpoint, cfg, pauser, nil, nil), checkpoint
}

func TestRunStopsAtFirstEmptyPage(t *testing.T) {
	t.Parallel()

	browser := new(MockBrowser)
	reader := new(MockReader)

	expectListPage(browser, reader, 1, []record.Summary{{Title: "one", DetailRef: detailURL("100")}})
	expectListPage(browser, reader, 2, []record.Summary{{Title: "two", DetailRef: detailURL("200")}})
	expectListPage(browser, reader, 3, []record.Summary{})
	// Page 4 would have data, but must never be visited.
	expectListPage(browser, reader, 4, []record.Summary{{Title: "ghost", DetailRef: detailURL("400")}})
	expectDetail(browser, reader, "100", roomCountPairs())
	expectDetail(browser, reader, "200", roomCountPairs())

	o, _ := newTestOrchestrator(browser, reader, newFakeSink())
	records, stats, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2, "pagination short-circuits on the first empty page")
	require.Equal(t, 2, stats.PagesVisited)

	browser.AssertNotCalled(t, "Load", mock.Anything, listURL(4), ReadinessList)
}

func TestRunContinuesPastPageOfLinklessCards(t *testing.T) {
	t.Parallel()

	browser := new(MockBrowser)
	reader := new(MockReader)

	// Every card on page 1 is missing its detail link, perhaps a markup
	// hiccup. The crawl moves on instead of reading it as end of results.
	expectListPage(browser, reader, 1, []record.Summary{{Title: "one"}, {Title: "two"}})
	expectListPage(browser, reader, 2, []record.Summary{{Title: "three", DetailRef: detailURL("300")}})
	expectListPage(browser, reader, 3, []record.Summary{})
	expectDetail(browser, reader, "300", roomCountPairs())

	o, _ := newTestOrchestrator(browser, reader, newFakeSink())
	records, stats, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 2, stats.PagesVisited)
	require.Equal(t, 1, stats.ItemsDiscovered)
}

func TestRunEndToEndScenario(t *testing.T) {
	t.Parallel()

	browser := new(MockBrowser)
	reader := new(MockReader)

	expectListPage(browser, reader, 1, []record.Summary{
		{Title: "A", DetailRef: detailURL("aaa")},
		{Title: "B", DetailRef: detailURL("bbb")},
	})
	expectListPage(browser, reader, 2, []record.Summary{})

	expectDetail(browser, reader, "aaa", roomCountPairs())

	// B's detail page is blocked twice before yielding content.
	pageB := Page{URL: detailURL("bbb"), HTML: "<detail bbb/>"}
	browser.On("Load", mock.Anything, detailURL("bbb"), ReadinessDetail).Return(pageB, nil).Times(3)
	reader.On("ReadLabeledFields", pageB).Return([]record.LabeledField{}, nil).Twice()
	reader.On("ReadLabeledFields", pageB).Return(furnishedPairs(), nil).Once()

	o, _ := newTestOrchestrator(browser, reader, newFakeSink())
	records, stats, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, 2, stats.ItemsEnriched)
	require.Equal(t, 2, stats.Retries, "B's two failed attempts are recorded")
	require.Zero(t, stats.ItemsSkipped)

	rooms, ok := records[0].Get(record.FieldRoomCount)
	require.True(t, ok)
	require.Equal(t, "3", rooms)
	furnished, ok := records[1].GetBool(record.FieldIsFurnished)
	require.True(t, ok)
	require.True(t, furnished)
}

func TestRunFlushesPagesWithGiveUps(t *testing.T) {
	t.Parallel()

	browser := new(MockBrowser)
	reader := new(MockReader)

	expectListPage(browser, reader, 1, []record.Summary{
		{Title: "good", DetailRef: detailURL("g")},
		{Title: "blocked", DetailRef: detailURL("x")},
	})
	expectListPage(browser, reader, 2, []record.Summary{})
	expectDetail(browser, reader, "g", roomCountPairs())

	pageX := Page{URL: detailURL("x"), HTML: "<detail x/>"}
	browser.On("Load", mock.Anything, detailURL("x"), ReadinessDetail).Return(pageX, nil).Times(3)
	reader.On("ReadLabeledFields", pageX).Return([]record.LabeledField{}, nil).Times(3)

	sink := newFakeSink()
	o, cp := newTestOrchestrator(browser, reader, sink)
	records, stats, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1, "the given-up item contributes no record")
	require.Equal(t, 1, stats.ItemsSkipped)
	require.Equal(t, []string{"page0001"}, cp.BatchIDs(), "the page flushes despite the give-up")
}

func TestRunPreservesPartialResultsOnFatalFailure(t *testing.T) {
	t.Parallel()

	browser := new(MockBrowser)
	reader := new(MockReader)

	expectListPage(browser, reader, 1, []record.Summary{{Title: "one", DetailRef: detailURL("1")}})
	expectDetail(browser, reader, "1", roomCountPairs())

	fatal := errors.New("browser session lost")
	browser.On("Load", mock.Anything, listURL(2), ReadinessList).Return(Page{}, fatal)

	o, _ := newTestOrchestrator(browser, reader, newFakeSink())
	records, _, err := o.Run(context.Background())
	require.ErrorIs(t, err, fatal)
	require.Len(t, records, 1, "everything flushed before the failure stays retrievable")
}

func TestRunContinuesWhenOnePageFailsToPersist(t *testing.T) {
	t.Parallel()

	browser := new(MockBrowser)
	reader := new(MockReader)

	expectListPage(browser, reader, 1, []record.Summary{{Title: "one", DetailRef: detailURL("1")}})
	expectListPage(browser, reader, 2, []record.Summary{{Title: "two", DetailRef: detailURL("2")}})
	expectListPage(browser, reader, 3, []record.Summary{})
	expectDetail(browser, reader, "1", roomCountPairs())
	expectDetail(browser, reader, "2", roomCountPairs())

	sink := newFakeSink()
	// Pre-seed both the primary and alternate identifiers for page 1 so both
	// writes collide and the page's persistence fails outright.
	ctx := context.Background()
	require.NoError(t, sink.WriteBatch(ctx, "page0001", nil))
	require.NoError(t, sink.WriteBatch(ctx, "page0001_alt", nil))

	o, _ := newTestOrchestrator(browser, reader, sink)
	records, stats, err := o.Run(ctx)
	require.NoError(t, err, "a per-page persistence failure does not abort the crawl")
	require.Equal(t, 1, stats.PagesFailed)
	require.Len(t, records, 1, "page 2 is unaffected")
}

func TestRunHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o, _ := newTestOrchestrator(new(MockBrowser), new(MockReader), newFakeSink())
	records, _, err := o.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, records)
}
