package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigurationError(t *testing.T) {
	err := &ConfigurationError{GOOS: "js"}

	require.Equal(t, `platform "js" cannot spawn isolated worker processes`, err.Error())
	require.True(t, err.IsOffloadError())
}

func TestTaskNotFoundError(t *testing.T) {
	err := &TaskNotFoundError{
		Name:       "resize",
		Registered: []string{"checksum", "render"},
	}

	require.Equal(
		t,
		`task "resize" not registered (have: [checksum render])`,
		err.Error(),
	)
	require.True(t, err.IsOffloadError())
}

func TestSpawnError(t *testing.T) {
	root := errors.New("pipe: too many open files")
	err := &SpawnError{Stage: "pipe", Err: root}

	require.Equal(t, "failed to spawn worker (pipe): pipe: too many open files", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsOffloadError())
}

func TestWorkError(t *testing.T) {
	err := &WorkError{Task: "render", Message: "out of frames"}

	require.Equal(t, `task "render" failed: out of frames`, err.Error())
	require.True(t, err.IsOffloadError())
}

func TestDecodeError(t *testing.T) {
	root := errors.New("truncated input")
	err := &DecodeError{Raw: []byte{0x01, 0x02}, Err: root}

	require.Equal(t, "failed to decode frame payload (2 bytes): truncated input", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsOffloadError())
}

func TestProcessError_WithUnderlyingError(t *testing.T) {
	root := errors.New("signal: killed")
	err := &ProcessError{
		ExitCode: -1,
		Stderr:   "ignored when Err is set",
		Err:      root,
	}

	require.Equal(t, "worker process failed (exit -1): signal: killed", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsOffloadError())
}

func TestProcessError_WithStderrOnly(t *testing.T) {
	err := &ProcessError{
		ExitCode: 2,
		Stderr:   "permission denied",
	}

	require.Equal(t, "worker process failed (exit 2): permission denied", err.Error())
	require.NoError(t, err.Unwrap())
	require.True(t, err.IsOffloadError())
}

func TestHandshakeError(t *testing.T) {
	err := &HandshakeError{Want: "01J", Got: "01K"}

	require.Equal(t, "spawn token mismatch: want 01J, got 01K", err.Error())
	require.True(t, err.IsOffloadError())
}
