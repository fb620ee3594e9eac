package offload

import (
	"context"
	"sync"

	"github.com/offload-go/offload/internal/errors"
)

// Result is the terminal outcome of one run.
//
// Exactly one of the two views applies: a successful run carries the work
// function's return values and a nil Err; a failed run carries a nil Values
// and one of WorkError, DecodeError, ProcessError, or HandshakeError.
type Result struct {
	Values []any
	Err    error
}

// Handle is the caller's view of a running worker.
//
// Handles are single-use: one worker, one result. The Progress channel
// closes before the result is delivered, and Done yields exactly one Result
// no matter how often the underlying wire reports closure.
type Handle struct {
	pid    int
	cbMode bool

	progress chan []any
	done     chan Result
	once     sync.Once
}

// newHandle creates a handle for a spawned worker. When cbMode is set the
// progress channel is unused and starts closed.
func newHandle(pid, buffer int, cbMode bool) *Handle {
	if buffer < 0 {
		buffer = 0
	}

	h := &Handle{
		pid:      pid,
		cbMode:   cbMode,
		progress: make(chan []any, buffer),
		done:     make(chan Result, 1),
	}

	if cbMode {
		close(h.progress)
	}

	return h
}

// Pid returns the worker's OS process id.
func (h *Handle) Pid() int {
	return h.pid
}

// Progress returns the channel of progress payloads, in arrival order.
// The channel is closed before the result is delivered on Done.
// When WithProgress was given, the channel is closed from the start.
//
// A caller that waits for the result must also drain this channel (or use
// WithProgress, as Call does): delivery is ordered, so once the channel's
// buffer fills, the result is held back until the backlog is consumed.
func (h *Handle) Progress() <-chan []any {
	return h.progress
}

// Done returns the single-shot result channel. It receives exactly one
// Result and is then closed.
func (h *Handle) Done() <-chan Result {
	return h.done
}

// Wait blocks until the result arrives or ctx ends.
//
// A non-nil error means ctx ended first (or the result was already consumed
// from Done, in which case the error is ErrHandleDone); the worker keeps
// running regardless.
//
// Wait does not drain Progress. Consume the Progress channel concurrently,
// or pass WithProgress to Run, or the worker's progress backlog will keep
// the result from ever arriving.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case res, ok := <-h.done:
		if !ok {
			return Result{}, errors.ErrHandleDone
		}

		return res, nil

	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// deliver publishes the terminal result exactly once: progress closes first,
// then the result lands on done. Later calls are no-ops, so duplicate close
// observations on the wire cannot double-deliver.
func (h *Handle) deliver(res Result) {
	h.once.Do(func() {
		if !h.cbMode {
			close(h.progress)
		}

		h.done <- res
		close(h.done)
	})
}
