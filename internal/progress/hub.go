package progress

import (
	"sync"

	"go.uber.org/zap"
)

// Sink consumes individual progress events. Implementations must tolerate
// repeated calls and may be invoked from the single crawl goroutine and the
// status API concurrently.
type Sink interface {
	Consume(evt Event)
}

// Emitter publishes individual events; Hub satisfies this interface so the
// pipeline and orchestrator stay agnostic about where events end up.
type Emitter interface {
	Emit(evt Event)
}

// Hub fans events out to registered sinks synchronously. The harvest engine
// is a single logical thread, so there is nothing to buffer; invalid events
// are dropped with a warning rather than aborting the crawl.
type Hub struct {
	mu     sync.Mutex
	sinks  []Sink
	logger *zap.Logger
}

// NewHub builds a hub over the given sinks.
func NewHub(logger *zap.Logger, sinks ...Sink) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{sinks: sinks, logger: logger}
}

// Emit validates the event and delivers it to every sink.
func (h *Hub) Emit(evt Event) {
	if err := evt.Validate(); err != nil {
		h.logger.Warn("Dropping invalid progress event", zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sink := range h.sinks {
		sink.Consume(evt)
	}
}

// NopEmitter discards all events. Handy default for tests.
type NopEmitter struct{}

// Emit implements Emitter.
func (NopEmitter) Emit(Event) {}
