package offload

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandle_DeliverOnce(t *testing.T) {
	h := newHandle(17, 4, false)
	require.Equal(t, 17, h.Pid())

	h.deliver(Result{Values: []any{"first"}})
	h.deliver(Result{Values: []any{"second"}})

	// Progress closes with the first delivery; the duplicate is a no-op.
	_, open := <-h.Progress()
	require.False(t, open)

	res, ok := <-h.Done()
	require.True(t, ok)
	require.Equal(t, []any{"first"}, res.Values)

	_, ok = <-h.Done()
	require.False(t, ok)
}

func TestHandle_WaitReturnsResult(t *testing.T) {
	h := newHandle(0, 0, false)

	go func() {
		time.Sleep(10 * time.Millisecond)
		h.deliver(Result{Values: []any{"v"}})
	}()

	res, err := h.Wait(testContext(t))
	require.NoError(t, err)
	require.Equal(t, []any{"v"}, res.Values)
}

func TestHandle_WaitAfterConsumed(t *testing.T) {
	h := newHandle(0, 0, false)
	h.deliver(Result{})

	_, err := h.Wait(testContext(t))
	require.NoError(t, err)

	_, err = h.Wait(testContext(t))
	require.ErrorIs(t, err, ErrHandleDone)
}

func TestHandle_WaitHonorsContext(t *testing.T) {
	h := newHandle(0, 0, false)

	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	_, err := h.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestHandle_CallbackModeProgressClosed(t *testing.T) {
	h := newHandle(0, 8, true)

	_, open := <-h.Progress()
	require.False(t, open)

	// Delivery must not double-close the progress channel.
	h.deliver(Result{})

	res := <-h.Done()
	require.NoError(t, res.Err)
}
