package offload

import (
	"log/slog"

	"github.com/offload-go/offload/internal/spawn"
)

// defaultProgressBuffer is the progress channel capacity when
// WithProgressBuffer is not given.
const defaultProgressBuffer = 16

// Options configures a single Run.
type Options struct {
	// Logger receives debug, info, warn, and error messages.
	// Nil means silent operation.
	Logger *slog.Logger

	// Cwd is the worker's working directory; empty means inherit.
	Cwd string

	// Env holds extra environment variables for the worker.
	Env map[string]string

	// Stderr receives each line of the worker's stderr as it arrives.
	Stderr func(string)

	// OnProgress, when set, is invoked synchronously for each progress
	// payload in arrival order. It must not block. When set, the
	// Handle's Progress channel is closed immediately and unused.
	OnProgress func(values []any)

	// ProgressBuffer is the Progress channel capacity.
	ProgressBuffer int

	// MaxFramePayload bounds a single wire frame payload.
	// Zero means the built-in default.
	MaxFramePayload int

	// Transport overrides the worker transport, for testing.
	Transport spawn.Transport
}

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{ProgressBuffer: defaultProgressBuffer}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithCwd sets the working directory for the worker process.
func WithCwd(cwd string) Option {
	return func(o *Options) {
		o.Cwd = cwd
	}
}

// WithEnv provides additional environment variables for the worker process.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		o.Env = env
	}
}

// WithStderr streams each line of the worker's stderr to fn as it arrives.
func WithStderr(fn func(line string)) Option {
	return func(o *Options) {
		o.Stderr = fn
	}
}

// WithProgress invokes fn for each progress payload, in arrival order,
// strictly before the result is delivered. fn runs on the dispatch goroutine
// and must not block. When set, the Handle's Progress channel is unused.
func WithProgress(fn func(values []any)) Option {
	return func(o *Options) {
		o.OnProgress = fn
	}
}

// WithProgressBuffer sets the Progress channel capacity.
func WithProgressBuffer(n int) Option {
	return func(o *Options) {
		o.ProgressBuffer = n
	}
}

// WithMaxFramePayload bounds a single wire frame payload in bytes.
func WithMaxFramePayload(n int) Option {
	return func(o *Options) {
		o.MaxFramePayload = n
	}
}

// WithTransport injects a custom worker transport.
// Intended for tests; the default spawns a real worker process.
func WithTransport(t Transport) Option {
	return func(o *Options) {
		o.Transport = t
	}
}
