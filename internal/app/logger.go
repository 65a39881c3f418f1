package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog.Logger. The "json" format is meant
// for deployed environments, anything else falls back to plain text.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
