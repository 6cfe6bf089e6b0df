package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ekaval/estate-harvester/internal/harvest"
)

func newTestTopic(t *testing.T) *pubsub.Topic {
	t.Helper()

	srv := pstest.NewServer()
	t.Cleanup(func() { srv.Close() }) //nolint:errcheck

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() }) //nolint:errcheck

	ctx := context.Background()
	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() }) //nolint:errcheck

	topic, err := client.CreateTopic(ctx, "harvest-runs")
	require.NoError(t, err)
	return topic
}

func TestPublishRunSummary(t *testing.T) {
	topic := newTestTopic(t)
	defer topic.Stop()

	stats := harvest.Stats{PagesVisited: 3, ItemsEnriched: 42, Retries: 5}
	summary := NewRunSummary("run-1", stats, []string{"page0001", "page0002"}, 42, nil)

	id, err := New(topic).Publish(context.Background(), summary)
	require.NoError(t, err)
	require.NotEmpty(t, id)
}

func TestPublishRequiresTopic(t *testing.T) {
	t.Parallel()

	_, err := NewWithTopic(nil).Publish(context.Background(), RunSummary{})
	require.Error(t, err)
}

func TestNewRunSummaryCarriesError(t *testing.T) {
	t.Parallel()

	summary := NewRunSummary("run-2", harvest.Stats{}, nil, 0, errors.New("browser session lost"))
	require.Equal(t, "browser session lost", summary.Error)

	data, err := json.Marshal(summary)
	require.NoError(t, err)
	require.Contains(t, string(data), `"run_id":"run-2"`)
}
