package offload

import (
	"io"
	"log/slog"
)

// NopLogger returns a logger that drops everything. It is the default when
// no WithLogger option is given, so runs are silent unless asked otherwise.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
