package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the application logger. JSON output is for log shipping
// in production; the text handler keeps local output readable.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg != nil && (cfg.LogFormat == "json" || cfg.IsProduction()) {
		opts.AddSource = true
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
