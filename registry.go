package offload

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/offload-go/offload/internal/codec"
)

// WorkFunc is the unit of work executed inside a worker process.
//
// It receives the decoded argument sequence via job.Args, may call
// job.Progress any number of times, and returns zero or more result values
// or an error. A panic is captured and reported like a returned error.
//
// Work functions run in a fresh process image: nothing registered with the
// parent's runtime (timers, watchers, goroutines) exists in the worker.
type WorkFunc func(ctx context.Context, job *Job) ([]any, error)

// Codec encodes and decodes value sequences on the worker wire.
// The default is a generic binary object serializer (CBOR).
type Codec = codec.Codec

// defaultCodec returns the codec used when a task does not configure one.
func defaultCodec() Codec {
	return codec.Default()
}

// task is one registered work function with its wire codec.
type task struct {
	name  string
	fn    WorkFunc
	codec Codec
}

// TaskOption configures a task at registration time.
type TaskOption func(*task)

// WithTaskCodec sets the codec used on the wire for this task.
// Parent and worker share the registration, so both sides always agree.
func WithTaskCodec(c Codec) TaskOption {
	return func(t *task) {
		t.codec = c
	}
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*task)
)

// Register makes a work function available under name, on both the parent
// and worker sides of a spawn. It is intended to be called from init or
// early in main, before Main.
//
// Register panics if name is empty, fn is nil, or name is already taken,
// mirroring the behavior of init-time registries like http.Handle.
func Register(name string, fn WorkFunc, opts ...TaskOption) {
	if name == "" {
		panic("offload: Register with empty task name")
	}

	if fn == nil {
		panic(fmt.Sprintf("offload: Register %q with nil work function", name))
	}

	t := &task{name: name, fn: fn, codec: codec.Default()}
	for _, opt := range opts {
		opt(t)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("offload: task %q already registered", name))
	}

	registry[name] = t
}

// Tasks returns the sorted names of all registered tasks.
func Tasks() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// lookupTask resolves a registered task by name.
func lookupTask(name string) (*task, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	t, ok := registry[name]

	return t, ok
}
