package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. JSON output feeds the log pipeline
// in deployed environments; anything else stays human readable for local
// runs. Every record carries the service name so the two binaries can share
// one stream.
func NewLogger(cfg *Config) *slog.Logger {
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	} else {
		handler = slog.NewTextHandler(os.Stdout, nil)
	}
	return slog.New(handler).With(slog.String("service", "meridian-ledger"))
}
