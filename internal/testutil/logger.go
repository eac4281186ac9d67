package testutil

import (
	"io"
	"log/slog"
)

// NopLogger returns a slog.Logger that drops everything, keeping test
// output free of request and transition noise
func NopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
