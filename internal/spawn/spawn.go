package spawn

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/offload-go/offload/internal/errors"
	"github.com/offload-go/offload/internal/frame"
)

const (
	// EnvTask selects the registered work function inside the worker.
	EnvTask = "OFFLOAD_TASK"

	// EnvToken carries the spawn token the worker echoes in its hello frame.
	EnvToken = "OFFLOAD_TOKEN"

	// WireFD is the file descriptor number of the wire inside the worker.
	// Fd 3 is the first ExtraFiles slot, leaving stdout free for the task.
	WireFD = 3

	// readChunkSize is the per-read buffer for draining the wire.
	readChunkSize = 64 * 1024

	// maxStderrBufferSize caps the retained stderr used for error reporting.
	// The streaming callback still receives every line past the cap.
	maxStderrBufferSize = 10 * 1024 * 1024 // 10MB
)

// Supported reports whether this platform can spawn real, isolated OS
// processes. WebAssembly targets only emulate process APIs.
func Supported() bool {
	return runtime.GOOS != "js" && runtime.GOOS != "wasip1"
}

// Spec describes one worker invocation.
type Spec struct {
	// Task is the registered work function name.
	Task string

	// Token is the spawn token the worker must echo back.
	Token string

	// Args is the codec-encoded argument sequence, delivered on the
	// worker's stdin before the work function runs.
	Args []byte

	// Env holds extra environment variables for the worker.
	Env map[string]string

	// Cwd is the worker's working directory; empty means inherit.
	Cwd string

	// MaxFramePayload bounds a single frame payload; zero means the
	// frame package default.
	MaxFramePayload int

	// Stderr receives each line of worker stderr as it arrives.
	Stderr func(string)
}

// Transport is the parent's view of a spawned worker: start it, consume its
// frames, and tear it down. The default implementation is Process; tests
// inject synthetic transports.
type Transport interface {
	// Start spawns the worker described by spec and wires up the pipe.
	// It returns SpawnError if pipe or process creation fails.
	Start(ctx context.Context, spec Spec) error

	// Frames returns channels for receiving frames and errors. Both are
	// closed when the wire closes and the worker has been reaped.
	Frames(ctx context.Context) (<-chan frame.Frame, <-chan error)

	// Pid returns the worker's process id, or 0 before Start.
	Pid() int

	// Close terminates the worker. Safe to call multiple times.
	Close() error
}

// Process implements Transport by re-executing the current binary as a
// worker child with a dedicated pipe on WireFD.
type Process struct {
	log  *slog.Logger
	spec Spec

	cmd       *exec.Cmd
	wire      *os.File // read end, parent side
	stderr    io.ReadCloser
	parentPID int // pid captured at spawn; only this process may reap

	mu      sync.Mutex
	closing bool
}

// Compile-time verification that Process implements Transport.
var _ Transport = (*Process)(nil)

// NewProcess creates a process transport.
func NewProcess(log *slog.Logger) *Process {
	return &Process{
		log: log.With("component", "spawn"),
	}
}

// Start spawns the worker process.
//
// It creates the wire pipe, re-executes the current binary with the task
// selector and spawn token in the environment, and passes the pipe's write
// end as WireFD. The parent's copy of the write end is closed immediately so
// the pipe closes as soon as the worker exits.
func (p *Process) Start(ctx context.Context, spec Spec) error {
	p.spec = spec

	exe, err := os.Executable()
	if err != nil {
		return &errors.SpawnError{Stage: "start", Err: fmt.Errorf("resolve executable: %w", err)}
	}

	r, w, err := os.Pipe()
	if err != nil {
		return &errors.SpawnError{Stage: "pipe", Err: err}
	}

	//nolint:gosec // G204: re-executing our own binary is the point
	cmd := exec.Command(exe)
	cmd.Dir = p.spec.Cwd
	cmd.Stdin = bytes.NewReader(p.spec.Args)
	cmd.ExtraFiles = []*os.File{w}
	cmd.Env = buildEnv(p.spec)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		r.Close()
		w.Close()

		return &errors.SpawnError{Stage: "pipe", Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()

		return &errors.SpawnError{Stage: "start", Err: err}
	}

	// The worker holds the only remaining write end now; keeping ours open
	// would hold the wire open forever.
	w.Close()

	p.cmd = cmd
	p.wire = r
	p.stderr = stderr
	p.parentPID = os.Getpid()

	p.log.Debug("Worker spawned", "task", p.spec.Task, "pid", cmd.Process.Pid)

	return nil
}

// Frames reads the wire until it closes and emits reassembled frames.
//
// One goroutine drains stderr (buffered for error reporting, streamed to the
// callback when set); another drains the wire through a frame decoder. When
// the wire hits EOF the worker is reaped, and a nonzero exit with no result
// frame surfaces as ProcessError on the error channel. A malformed wire (bad
// frame kind, oversized payload) aborts the worker so teardown cannot stall
// on a child still writing, and the decode error is what surfaces. Both
// channels are closed when everything has wound down.
func (p *Process) Frames(ctx context.Context) (<-chan frame.Frame, <-chan error) {
	frames := make(chan frame.Frame)
	errs := make(chan error, 1)

	var stderrBuffer strings.Builder

	var stderrMu sync.Mutex

	sawResult := false

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scanner := bufio.NewScanner(p.stderr)
		for scanner.Scan() {
			line := scanner.Text()

			stderrMu.Lock()

			if stderrBuffer.Len() < maxStderrBufferSize {
				if stderrBuffer.Len() > 0 {
					stderrBuffer.WriteString("\n")
				}

				stderrBuffer.WriteString(line)
			}

			stderrMu.Unlock()

			if p.spec.Stderr != nil {
				p.spec.Stderr(line)
			}
		}

		if err := scanner.Err(); err != nil {
			p.log.Debug("Stderr scanner error", "error", err)
		}

		return nil
	})

	g.Go(func() error {
		dec := frame.NewDecoder(p.spec.MaxFramePayload)
		buf := make([]byte, readChunkSize)

		for {
			n, err := p.wire.Read(buf)
			if n > 0 {
				dec.Feed(buf[:n])

				for {
					f, decErr := dec.Next()
					if decErr != nil {
						p.log.Error("Wire decode failed", "error", decErr)

						p.abort()

						return fmt.Errorf("decode wire: %w", decErr)
					}

					if f == nil {
						break
					}

					if f.Kind == frame.KindResult {
						sawResult = true
					}

					select {
					case frames <- *f:
					case <-gCtx.Done():
						p.abort()

						return gCtx.Err()
					}
				}
			}

			if err == io.EOF {
				if rem := dec.Buffered(); rem > 0 {
					p.log.Warn("Wire closed with trailing partial frame", "bytes", rem)
				}

				return nil
			}

			if err != nil {
				return fmt.Errorf("read wire: %w", err)
			}
		}
	})

	go func() {
		defer close(frames)
		defer close(errs)

		readErr := g.Wait()

		// Closing the read end once reading stops gives a still-writing
		// worker EPIPE instead of a stalled pipe, so Wait cannot hang.
		p.wire.Close()

		// Only the process that opened the read end may reap; a transport
		// observed from a different process identity must not touch the child.
		if os.Getpid() != p.parentPID {
			p.log.Warn("Skipping reap from foreign process", "pid", os.Getpid())

			return
		}

		waitErr := p.cmd.Wait()

		p.mu.Lock()
		closing := p.closing
		p.mu.Unlock()

		switch {
		case readErr != nil && !closing:
			// The read failure is the root cause; the abnormal exit that
			// follows an abort would only obscure it.
			errs <- readErr
		case waitErr != nil && closing:
			p.log.Debug("Worker terminated during shutdown")
		case waitErr != nil && !sawResult:
			exitCode := 0
			var exitErr *exec.ExitError
			if stderrors.As(waitErr, &exitErr) {
				exitCode = exitErr.ExitCode()
			}

			stderrMu.Lock()
			stderrOutput := stderrBuffer.String()
			stderrMu.Unlock()

			p.log.Error("Worker exited without a terminal frame",
				"exit_code", exitCode, "stderr", stderrOutput)

			errs <- &errors.ProcessError{
				ExitCode: exitCode,
				Stderr:   stderrOutput,
				Err:      waitErr,
			}
		case waitErr != nil:
			p.log.Debug("Worker exited abnormally after delivering its result", "error", waitErr)
		default:
			p.log.Debug("Worker exited cleanly")
		}
	}()

	return frames, errs
}

// Pid returns the worker's process id, or 0 before Start.
func (p *Process) Pid() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}

	return p.cmd.Process.Pid
}

// abort tears down a misbehaving worker from inside the read loop. Closing
// the read end unblocks a child stalled on a full pipe; killing it unblocks
// the stderr scanner so teardown can reach Wait instead of hanging.
func (p *Process) abort() {
	p.wire.Close()

	if p.cmd != nil && p.cmd.Process != nil {
		if err := p.cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
			p.log.Debug("Failed to kill worker during abort", "error", err)
		}
	}
}

// Close kills the worker process. It is safe to call multiple times or on an
// already-exited worker.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closing = true

	if p.cmd != nil && p.cmd.Process != nil {
		p.log.Debug("Killing worker process", "pid", p.cmd.Process.Pid)

		if err := p.cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("kill worker (pid %d): %w", p.cmd.Process.Pid, err)
		}
	}

	return nil
}

// buildEnv assembles the worker environment: the parent environment plus the
// task selector, the spawn token, and any caller-provided variables.
func buildEnv(spec Spec) []string {
	env := os.Environ()
	env = append(env, EnvTask+"="+spec.Task, EnvToken+"="+spec.Token)

	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}

	return env
}
