package harvest

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ekaval/estate-harvester/internal/record"
)

// MockBrowser is a mock implementation of the Browser interface.
type MockBrowser struct {
	mock.Mock
}

func (m *MockBrowser) Load(ctx context.Context, rawURL string, readiness Readiness) (Page, error) {
	args := m.Called(ctx, rawURL, readiness)
	return args.Get(0).(Page), args.Error(1)
}

func (m *MockBrowser) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockReader is a mock implementation of the DocumentReader interface.
type MockReader struct {
	mock.Mock
}

func (m *MockReader) ReadSummaries(page Page) ([]record.Summary, error) {
	args := m.Called(page)
	return args.Get(0).([]record.Summary), args.Error(1)
}

func (m *MockReader) ReadLabeledFields(page Page) ([]record.LabeledField, error) {
	args := m.Called(page)
	return args.Get(0).([]record.LabeledField), args.Error(1)
}

// recordingPauser records every requested delay without sleeping.
type recordingPauser struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (p *recordingPauser) Pause(_ context.Context, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delays = append(p.delays, delay)
}

func (p *recordingPauser) nonZero() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []time.Duration
	for _, d := range p.delays {
		if d > 0 {
			out = append(out, d)
		}
	}
	return out
}

// fakeSink is an in-memory Sink with scriptable write failures.
type fakeSink struct {
	mu      sync.Mutex
	batches map[string][]record.Merged
	order   []string
	failAll error
}

func newFakeSink() *fakeSink {
	return &fakeSink{batches: make(map[string][]record.Merged)}
}

func (s *fakeSink) WriteBatch(_ context.Context, id string, records []record.Merged) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return s.failAll
	}
	if _, ok := s.batches[id]; ok {
		return ErrBatchExists
	}
	s.batches[id] = append([]record.Merged(nil), records...)
	s.order = append(s.order, id)
	return nil
}

func (s *fakeSink) ReadBatch(_ context.Context, id string) ([]record.Merged, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches[id], nil
}

func (s *fakeSink) ListBatchIDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...), nil
}

func testConfig() Config {
	return Config{
		ListURLTemplate: "https://site.test/listings?sort=date&page=%d",
		DetailBaseURL:   "https://site.test",
		StartPage:       1,
		StopPage:        6,
		MaxAttempts:     3,
		CooldownUnit:    60 * time.Second,
		UserAgent:       "estate-harvester-test/1.0",
		LoadTimeout:     time.Second,
	}
}

// roomCountPairs is a detail payload that maps to one field.
func roomCountPairs() []record.LabeledField {
	return []record.LabeledField{{Label: "Oda Sayısı", Value: "3"}}
}

func furnishedPairs() []record.LabeledField {
	return []record.LabeledField{{Label: "Eşya Durumu", Value: "Eşyalı"}}
}
