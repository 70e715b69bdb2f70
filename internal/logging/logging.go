// Package logging configures structured JSON logging for the service.
package logging

import (
	"log"
	"log/slog"
	"os"
)

// Setup installs a JSON slog handler tagged with the service name and
// environment, sets it as the default logger, and bridges the standard
// library logger so packages using log.Printf keep working.
func Setup(service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	base := slog.New(handler).With(
		slog.String("service", service),
		slog.String("env", env),
	)
	slog.SetDefault(base)

	bridge := slog.NewLogLogger(handler, slog.LevelInfo)
	log.SetOutput(bridge.Writer())
	log.SetFlags(0)

	return base
}
