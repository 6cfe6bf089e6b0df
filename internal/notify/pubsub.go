// Package notify publishes run summaries to Google Cloud Pub/Sub so
// downstream consumers can pick up freshly harvested batches.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/ekaval/estate-harvester/internal/harvest"
)

// RunSummary is the message payload published at the end of a run.
type RunSummary struct {
	RunID           string    `json:"run_id"`
	FinishedAt      time.Time `json:"finished_at"`
	PagesVisited    int       `json:"pages_visited"`
	ItemsDiscovered int       `json:"items_discovered"`
	ItemsEnriched   int       `json:"items_enriched"`
	ItemsSkipped    int       `json:"items_skipped"`
	Retries         int       `json:"retries"`
	PagesFailed     int       `json:"pages_failed"`
	RecordCount     int       `json:"record_count"`
	BatchIDs        []string  `json:"batch_ids"`
	Error           string    `json:"error,omitempty"`
}

// NewRunSummary folds run stats into a publishable summary.
func NewRunSummary(runID string, stats harvest.Stats, batchIDs []string, recordCount int, runErr error) RunSummary {
	s := RunSummary{
		RunID:           runID,
		FinishedAt:      time.Now().UTC(),
		PagesVisited:    stats.PagesVisited,
		ItemsDiscovered: stats.ItemsDiscovered,
		ItemsEnriched:   stats.ItemsEnriched,
		ItemsSkipped:    stats.ItemsSkipped,
		Retries:         stats.Retries,
		PagesFailed:     stats.PagesFailed,
		RecordCount:     recordCount,
		BatchIDs:        batchIDs,
	}
	if runErr != nil {
		s.Error = runErr.Error()
	}
	return s
}

type topic interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// Publisher wraps a Pub/Sub topic.
type Publisher struct {
	topic topic
}

// New creates a Publisher for the provided topic.
func New(t *pubsub.Topic) *Publisher {
	return &Publisher{topic: t}
}

// NewWithTopic constructs a Publisher from any topic implementation
// (primarily for testing).
func NewWithTopic(t topic) *Publisher {
	return &Publisher{topic: t}
}

// Publish marshals the summary to JSON and publishes it, returning the server
// message ID.
func (p *Publisher) Publish(ctx context.Context, summary RunSummary) (string, error) {
	if p == nil || p.topic == nil {
		return "", fmt.Errorf("pubsub topic is not configured")
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("marshal run summary: %w", err)
	}
	msg := &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"run_id": summary.RunID},
	}
	id, err := p.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish run summary: %w", err)
	}
	return id, nil
}
