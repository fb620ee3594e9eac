package offload

import "github.com/offload-go/offload/internal/errors"

// Re-export error types from internal package

// ConfigurationError indicates the platform cannot spawn isolated worker processes.
type ConfigurationError = errors.ConfigurationError

// TaskNotFoundError indicates the requested task is not registered.
type TaskNotFoundError = errors.TaskNotFoundError

// SpawnError indicates pipe or process creation failed.
type SpawnError = errors.SpawnError

// WorkError carries a failure raised by the work function in the worker.
type WorkError = errors.WorkError

// DecodeError indicates a frame payload could not be decoded.
type DecodeError = errors.DecodeError

// ProcessError indicates the worker process failed without delivering a result.
type ProcessError = errors.ProcessError

// HandshakeError indicates the worker echoed the wrong spawn token.
type HandshakeError = errors.HandshakeError

// OffloadError is the base interface for all offload errors.
type OffloadError = errors.OffloadError

// Re-export sentinel errors from internal package.
var (
	// ErrHandleDone indicates the handle's result was already delivered.
	ErrHandleDone = errors.ErrHandleDone

	// ErrTerminalMissing indicates the wire closed without a terminal frame.
	ErrTerminalMissing = errors.ErrTerminalMissing
)
