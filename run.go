package offload

import (
	"context"
	stderrors "errors"
	"log/slog"
	"runtime"

	"github.com/oklog/ulid/v2"

	sdkerrors "github.com/offload-go/offload/internal/errors"
	"github.com/offload-go/offload/internal/frame"
	"github.com/offload-go/offload/internal/spawn"
)

// Run spawns a worker process executing the named task and returns a Handle
// without blocking.
//
// Errors detected before a worker exists surface synchronously:
// ConfigurationError when the platform cannot spawn isolated processes,
// TaskNotFoundError for an unregistered name, and SpawnError when pipe or
// process creation fails. Once Run returns a Handle, every later outcome -
// including a failing work function - arrives through the Handle's Result.
//
// The worker runs to completion regardless of ctx; cancelling ctx stops
// delivery to the Handle but does not signal the worker.
func Run(ctx context.Context, taskName string, args []any, opts ...Option) (*Handle, error) {
	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	log = log.With("component", "run", "task", taskName)

	if !spawn.Supported() {
		return nil, &sdkerrors.ConfigurationError{GOOS: runtime.GOOS}
	}

	t, ok := lookupTask(taskName)
	if !ok {
		return nil, &sdkerrors.TaskNotFoundError{Name: taskName, Registered: Tasks()}
	}

	encodedArgs, err := t.codec.Encode(args)
	if err != nil {
		return nil, &sdkerrors.SpawnError{Stage: "args", Err: err}
	}

	token := ulid.Make().String()

	transport := options.Transport
	if transport == nil {
		transport = spawn.NewProcess(log)
	} else {
		log.Debug("Using injected custom transport")
	}

	spec := spawn.Spec{
		Task:            taskName,
		Token:           token,
		Args:            encodedArgs,
		Env:             options.Env,
		Cwd:             options.Cwd,
		MaxFramePayload: options.MaxFramePayload,
		Stderr:          options.Stderr,
	}

	if err := transport.Start(ctx, spec); err != nil {
		log.Error("Failed to spawn worker", "error", err)

		return nil, err
	}

	log.Info("Worker spawned", "pid", transport.Pid())

	h := newHandle(transport.Pid(), options.ProgressBuffer, options.OnProgress != nil)

	go dispatch(ctx, log, t, token, transport, options, h)

	return h, nil
}

// Call runs the named task and blocks until its result arrives.
//
// Progress payloads are discarded unless WithProgress is given. A non-nil
// error is either a synchronous Run failure, a ctx end, or the run's
// terminal error.
func Call(ctx context.Context, taskName string, args []any, opts ...Option) ([]any, error) {
	// Discard progress by default so an unconsumed channel cannot stall
	// dispatch; a caller-supplied WithProgress takes precedence.
	opts = append([]Option{WithProgress(func([]any) {})}, opts...)

	h, err := Run(ctx, taskName, args, opts...)
	if err != nil {
		return nil, err
	}

	res, err := h.Wait(ctx)
	if err != nil {
		return nil, err
	}

	return res.Values, res.Err
}

// dispatch is the parent-side reader loop: it demultiplexes frames from the
// transport, forwards progress in arrival order, and delivers the terminal
// result exactly once after the wire closes and the worker is reaped.
func dispatch(
	ctx context.Context,
	log *slog.Logger,
	t *task,
	token string,
	transport spawn.Transport,
	options *Options,
	h *Handle,
) {
	frames, errs := transport.Frames(ctx)

	var (
		handshaken    bool
		cancelled     bool
		fatal         error
		resultPayload []byte
		transportErr  error
	)

	ctxDone := ctx.Done()

	for frames != nil || errs != nil {
		select {
		case f, ok := <-frames:
			if !ok {
				frames = nil

				continue
			}

			if fatal != nil {
				continue
			}

			switch f.Kind {
			case frame.KindHello:
				if string(f.Payload) != token {
					fatal = &sdkerrors.HandshakeError{Want: token, Got: string(f.Payload)}

					log.Error("Worker handshake failed", "error", fatal)

					_ = transport.Close()

					continue
				}

				handshaken = true

			case frame.KindProgress:
				if !handshaken {
					fatal = &sdkerrors.HandshakeError{Want: token, Got: ""}

					log.Error("Frame received before handshake")

					_ = transport.Close()

					continue
				}

				values, err := t.codec.Decode(f.Payload)
				if err != nil {
					log.Warn("Dropping undecodable progress frame", "error", err)

					continue
				}

				if cancelled {
					continue
				}

				if options.OnProgress != nil {
					options.OnProgress(values)

					continue
				}

				select {
				case h.progress <- values:
				case <-ctxDone:
					log.Debug("Context ended during progress dispatch")

					h.deliver(Result{Err: ctx.Err()})

					cancelled = true
					ctxDone = nil
				}

			case frame.KindResult:
				if !handshaken {
					fatal = &sdkerrors.HandshakeError{Want: token, Got: ""}

					log.Error("Frame received before handshake")

					_ = transport.Close()

					continue
				}

				if resultPayload == nil {
					resultPayload = f.Payload
				}
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil

				continue
			}

			if transportErr == nil {
				transportErr = err
			}

		case <-ctxDone:
			// Stop waiting on the caller's behalf but keep draining so
			// the transport goroutines can wind down and reap the worker.
			log.Debug("Context ended, abandoning delivery")

			h.deliver(Result{Err: ctx.Err()})

			cancelled = true
			ctxDone = nil
		}
	}

	var res Result

	switch {
	case fatal != nil:
		res = Result{Err: fatal}
	case resultPayload != nil:
		res = terminalResult(t, resultPayload)
	case transportErr != nil:
		res = Result{Err: transportErr}
	default:
		res = Result{Err: sdkerrors.ErrTerminalMissing}
	}

	if res.Err != nil {
		log.Debug("Run finished with error", "error", res.Err)
	} else {
		log.Debug("Run finished", "values", len(res.Values))
	}

	h.deliver(res)
}

// terminalResult decodes the terminal frame payload into a Result.
//
// The payload is the encoded sequence [failureOrNil, values...]. An
// undecodable payload becomes a DecodeError carried in the Result rather
// than a fatal failure, so callers can react to it like any other outcome.
func terminalResult(t *task, payload []byte) Result {
	values, err := t.codec.Decode(payload)
	if err != nil {
		return Result{Err: &sdkerrors.DecodeError{Raw: payload, Err: err}}
	}

	if len(values) == 0 {
		return Result{Err: &sdkerrors.DecodeError{
			Raw: payload,
			Err: stderrors.New("empty terminal sequence"),
		}}
	}

	switch failure := values[0].(type) {
	case nil:
		return Result{Values: values[1:]}

	case string:
		return Result{Err: &sdkerrors.WorkError{Task: t.name, Message: failure}}

	default:
		return Result{Err: &sdkerrors.DecodeError{
			Raw: payload,
			Err: stderrors.New("unexpected failure marker type"),
		}}
	}
}
