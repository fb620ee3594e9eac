package errors

import (
	"errors"
	"fmt"
)

// OffloadError is the base interface for all offload errors.
type OffloadError interface {
	error
	IsOffloadError() bool
}

// Compile-time verification that all error types implement OffloadError.
var (
	_ OffloadError = (*ConfigurationError)(nil)
	_ OffloadError = (*TaskNotFoundError)(nil)
	_ OffloadError = (*SpawnError)(nil)
	_ OffloadError = (*WorkError)(nil)
	_ OffloadError = (*DecodeError)(nil)
	_ OffloadError = (*ProcessError)(nil)
	_ OffloadError = (*HandshakeError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrHandleDone indicates the handle's result was already delivered.
	ErrHandleDone = errors.New("handle done: results are delivered once, start a new run with Run()")

	// ErrTerminalMissing indicates the wire closed before a terminal frame arrived.
	ErrTerminalMissing = errors.New("wire closed without a terminal frame")
)

// ConfigurationError indicates the platform cannot run real OS subprocesses.
// It surfaces synchronously from Run before anything is created.
type ConfigurationError struct {
	GOOS string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("platform %q cannot spawn isolated worker processes", e.GOOS)
}

// IsOffloadError implements OffloadError.
func (e *ConfigurationError) IsOffloadError() bool { return true }

// TaskNotFoundError indicates the requested task name has no registered work
// function in this binary.
type TaskNotFoundError struct {
	Name       string
	Registered []string
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task %q not registered (have: %v)", e.Name, e.Registered)
}

// IsOffloadError implements OffloadError.
func (e *TaskNotFoundError) IsOffloadError() bool { return true }

// SpawnError indicates pipe or process creation failed.
// It surfaces synchronously from Run; no worker was started.
type SpawnError struct {
	Stage string // "pipe", "args", "start"
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn worker (%s): %v", e.Stage, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsOffloadError implements OffloadError.
func (e *SpawnError) IsOffloadError() bool { return true }

// WorkError carries a failure raised by the work function inside the child.
// It is delivered through the Result, never thrown at the caller.
type WorkError struct {
	Task    string
	Message string
}

func (e *WorkError) Error() string {
	return fmt.Sprintf("task %q failed: %s", e.Task, e.Message)
}

// IsOffloadError implements OffloadError.
func (e *WorkError) IsOffloadError() bool { return true }

// DecodeError indicates a frame payload could not be decoded.
// This error preserves the raw bytes that failed to decode.
type DecodeError struct {
	Raw []byte
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode frame payload (%d bytes): %v", len(e.Raw), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsOffloadError implements OffloadError.
func (e *DecodeError) IsOffloadError() bool { return true }

// ProcessError indicates the worker process failed without delivering a
// terminal frame.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("worker process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("worker process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsOffloadError implements OffloadError.
func (e *ProcessError) IsOffloadError() bool { return true }

// HandshakeError indicates the child echoed a spawn token that does not match
// the one minted for this run. Frames from such a wire are never dispatched.
type HandshakeError struct {
	Want string
	Got  string
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("spawn token mismatch: want %s, got %s", e.Want, e.Got)
}

// IsOffloadError implements OffloadError.
func (e *HandshakeError) IsOffloadError() bool { return true }
