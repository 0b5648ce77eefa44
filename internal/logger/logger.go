package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/lendfabric/repayment-engine/internal/config"
)

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process-wide slog.Logger from the logging config.
// Output is JSON on stdout; debug level also records source locations.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})).With("app", cfg.Application.Name)

	logger.Info("logger initialized", "level", level)
	return logger
}
