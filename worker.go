package offload

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/offload-go/offload/internal/frame"
	"github.com/offload-go/offload/internal/spawn"
)

// Job is the worker-side view of one run, handed to the work function.
type Job struct {
	// Task is the registered name this worker is executing.
	Task string

	// Args is the argument sequence passed to Run in the parent.
	Args []any

	codec Codec

	mu  sync.Mutex
	enc *frame.Encoder
}

// Progress sends one progress payload to the parent.
//
// The frame is written to the wire immediately, with no buffering delay, so
// the parent observes it promptly. Payloads arrive in call order, strictly
// before the result. When the parent did not ask for progress the payload is
// still written and silently discarded on the other side.
func (j *Job) Progress(values ...any) error {
	payload, err := j.codec.Encode(values)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	return j.enc.Write(frame.KindProgress, payload)
}

// Main is the worker entry point. Call it at the top of main, before any
// other work:
//
//	func main() {
//	    offload.Main()
//	    // ... normal program ...
//	}
//
// When the process was not spawned as an offload worker, Main returns false
// immediately and the program proceeds as usual. When it was, Main runs the
// selected work function, writes its outcome to the wire, and terminates the
// process via os.Exit - it never returns. Exiting directly means deferred
// functions and exit hooks belonging to the host program never run inside a
// worker.
func Main() bool {
	name := os.Getenv(spawn.EnvTask)
	if name == "" {
		return false
	}

	os.Exit(workerMain(name, os.Getenv(spawn.EnvToken)))

	return true // unreachable
}

// workerMain executes one task inside the worker process and returns the
// process exit code.
func workerMain(name, token string) int {
	wire := os.NewFile(uintptr(spawn.WireFD), "offload-wire")
	if wire == nil {
		fmt.Fprintln(os.Stderr, "offload worker: wire fd not inherited")

		return 1
	}

	enc := frame.NewEncoder(wire)

	// Hello first: the parent dispatches nothing until the spawn token is
	// verified.
	if err := enc.Write(frame.KindHello, []byte(token)); err != nil {
		fmt.Fprintf(os.Stderr, "offload worker: write hello: %v\n", err)

		return 1
	}

	t, ok := lookupTask(name)
	if !ok {
		return writeResult(enc, nil, failuref("task %q not registered in worker binary", name), nil)
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return writeResult(enc, t.codec, failuref("read args: %v", err), nil)
	}

	args, err := t.codec.Decode(raw)
	if err != nil {
		return writeResult(enc, t.codec, failuref("decode args: %v", err), nil)
	}

	job := &Job{
		Task:  name,
		Args:  args,
		codec: t.codec,
		enc:   enc,
	}

	values, failure := runTask(t, job)

	return writeResult(enc, t.codec, failure, values)
}

// runTask invokes the work function, converting a returned error or a panic
// into the failure slot of the terminal frame.
func runTask(t *task, job *Job) (values []any, failure any) {
	defer func() {
		if r := recover(); r != nil {
			values = nil
			failure = fmt.Sprintf("panic: %v", r)
		}
	}()

	vals, err := t.fn(context.Background(), job)
	if err != nil {
		return nil, err.Error()
	}

	return vals, nil
}

// failuref formats a worker-side failure message.
func failuref(format string, a ...any) any {
	return fmt.Sprintf(format, a...)
}

// writeResult emits the terminal frame: the failure-or-nil marker followed
// by the result values. It returns the worker's exit code.
func writeResult(enc *frame.Encoder, c Codec, failure any, values []any) int {
	if c == nil {
		c = defaultCodec()
	}

	seq := make([]any, 0, len(values)+1)
	seq = append(seq, failure)
	seq = append(seq, values...)

	payload, err := c.Encode(seq)
	if err != nil {
		// Result values could not be encoded; report that as the failure
		// so the parent still receives a well-formed terminal frame.
		payload, err = c.Encode([]any{fmt.Sprintf("encode result: %v", err)})
		if err != nil {
			fmt.Fprintf(os.Stderr, "offload worker: encode result: %v\n", err)

			return 1
		}
	}

	if err := enc.Write(frame.KindResult, payload); err != nil {
		fmt.Fprintf(os.Stderr, "offload worker: write result: %v\n", err)

		return 1
	}

	return 0
}
