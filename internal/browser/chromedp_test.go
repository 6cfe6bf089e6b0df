package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAwaitShutdownReturnsTeardownResult(t *testing.T) {
	t.Parallel()

	done := make(chan error, 1)
	done <- nil
	require.NoError(t, awaitShutdown(context.Background(), done))

	boom := errors.New("browser refused to die")
	done <- boom
	err := awaitShutdown(context.Background(), done)
	require.ErrorIs(t, err, boom)
}

func TestAwaitShutdownHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The teardown never finishes; the caller's deadline wins.
	err := awaitShutdown(ctx, make(chan error))
	require.ErrorIs(t, err, context.Canceled)
}

func TestChromedpCloseNilReceiver(t *testing.T) {
	t.Parallel()

	var b *Chromedp
	require.NoError(t, b.Close(context.Background()))
}
