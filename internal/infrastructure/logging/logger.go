// Package logging builds the process-wide slog logger from config.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/nitindhyani1996/recon-backend/internal/infrastructure/config"
)

// NewLogger builds a slog.Logger honoring the configured level and
// format. Unknown values fall back to info-level text logging.
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
