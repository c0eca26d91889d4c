package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. Services receive it through options; no
// package-level logger anywhere.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
