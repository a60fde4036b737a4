package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"github.com/pantrypal/api/internal/config"
)

// New builds the process logger from configuration
func New(cfg *config.LoggingConfig) *slog.Logger {
	var w io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		w = os.Stderr
	}
	return NewWithWriter(cfg, w)
}

// NewWithWriter builds a logger that writes to w. Console format uses tint;
// json and unknown formats use the stdlib JSON handler.
func NewWithWriter(cfg *config.LoggingConfig, w io.Writer) *slog.Logger {
	level := ParseLevel(cfg.Level)

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "console", "":
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  cfg.EnableSource,
			TimeFormat: time.TimeOnly,
			NoColor:    !colorize(w),
		})
	default:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: cfg.EnableSource,
		})
	}
	return slog.New(handler)
}

func colorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ParseLevel converts a config string to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
