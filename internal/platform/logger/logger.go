package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger tagged with the service name and version.
func New(service, version string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(
		"service", service,
		"version", version,
	)
}
