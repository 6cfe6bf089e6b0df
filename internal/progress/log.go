package progress

import "go.uber.org/zap"

// LogSink emits structured logs for each progress event. This is the
// user-visible report of skips and give-ups as they occur.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs the event using structured fields. Skips and give-ups
// surface at warn level so they stand out in an otherwise quiet run.
func (s *LogSink) Consume(evt Event) {
	fields := []zap.Field{
		zap.String("run_id", evt.RunUUID().String()),
		zap.String("stage", string(evt.Stage)),
		zap.Int("page", evt.Page),
	}
	if evt.ItemID != "" {
		fields = append(fields, zap.String("item_id", evt.ItemID))
	}
	if evt.URL != "" {
		fields = append(fields, zap.String("url", evt.URL))
	}
	if evt.Count != 0 {
		fields = append(fields, zap.Int("count", evt.Count))
	}
	if evt.Attempts != 0 {
		fields = append(fields, zap.Int("attempts", evt.Attempts))
	}
	if evt.Note != "" {
		fields = append(fields, zap.String("note", evt.Note))
	}
	switch evt.Stage {
	case StageItemRetry, StageItemSkipped, StageItemDropped, StageRunError:
		s.logger.Warn("progress event", fields...)
	default:
		s.logger.Info("progress event", fields...)
	}
}
