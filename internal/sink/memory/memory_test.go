package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ekaval/estate-harvester/internal/harvest"
	"github.com/ekaval/estate-harvester/internal/record"
)

func TestSinkRoundTrip(t *testing.T) {
	t.Parallel()

	sink := New()
	ctx := context.Background()
	batch := []record.Merged{record.Merge(record.Summary{ID: "7", Title: "seven"}, record.NewDetail())}

	require.NoError(t, sink.WriteBatch(ctx, "page0001", batch))

	err := sink.WriteBatch(ctx, "page0001", batch)
	require.ErrorIs(t, err, harvest.ErrBatchExists)

	got, err := sink.ReadBatch(ctx, "page0001")
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = sink.ReadBatch(ctx, "page0404")
	require.Error(t, err)

	require.NoError(t, sink.WriteBatch(ctx, "page0001_alt", nil))
	ids, err := sink.ListBatchIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"page0001", "page0001_alt"}, ids)
}
