package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. JSON output so batch-job runners can
// collect it as-is.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}
