// Package offload runs expensive, blocking work in a separate OS process and
// streams its progress and final result back without blocking the caller.
//
// Work functions are registered by name at init time and executed by
// re-spawning the current binary as a worker child. The worker talks back to
// the parent over a dedicated one-directional pipe carrying zero or more
// progress frames followed by exactly one terminal result, which is delivered
// exactly once.
//
// # Setup
//
// The host binary must hand control to the worker entry point before doing
// anything else:
//
//	func init() {
//	    offload.Register("checksum", func(ctx context.Context, job *offload.Job) ([]any, error) {
//	        sum := expensiveChecksum(job.Args[0].([]byte))
//	        return []any{sum}, nil
//	    })
//	}
//
//	func main() {
//	    offload.Main() // no-op unless spawned as a worker
//	    // ... normal program ...
//	}
//
// # Running work
//
// Run returns immediately with a Handle; the result arrives on Done():
//
//	handle, err := offload.Run(ctx, "checksum", []any{data})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for values := range handle.Progress() {
//	    fmt.Println("progress:", values)
//	}
//
//	res := <-handle.Done()
//	if res.Err != nil {
//	    log.Fatal(res.Err)
//	}
//
// For blocking call-and-wait semantics, use Call:
//
//	values, err := offload.Call(ctx, "checksum", []any{data})
//
// # Progress
//
// A work function reports progress through its Job; each call is flushed to
// the parent immediately and delivered in order, strictly before the result:
//
//	offload.Register("render", func(ctx context.Context, job *offload.Job) ([]any, error) {
//	    for i := range frames {
//	        renderFrame(i)
//	        job.Progress("frame", i)
//	    }
//	    return []any{"done"}, nil
//	})
//
// # Logging
//
// By default logging is disabled. Use WithLogger for operation tracking:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	handle, err := offload.Run(ctx, "checksum", []any{data}, offload.WithLogger(logger))
//
// # Error handling
//
// Errors before a worker exists (unsupported platform, unknown task, pipe or
// process creation) surface synchronously from Run. Everything after the
// spawn - a failing work function, an undecodable result, an abnormal worker
// exit - arrives through Result.Err, never as a panic or a synchronous error:
//
//	res, err := handle.Wait(ctx)
//	if err != nil {
//	    // context ended before the worker finished
//	}
//	if workErr, ok := errors.AsType[*offload.WorkError](res.Err); ok {
//	    log.Printf("task failed in worker: %s", workErr.Message)
//	}
package offload
