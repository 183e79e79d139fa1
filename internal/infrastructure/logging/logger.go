package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/switchboard-core/internal/infrastructure/config"
)

// Logger is the application logger. It embeds slog.Logger, so the usual
// Debug/Info/Warn/Error methods are available directly, and every entry
// carries the service and version fields installed by New.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of the config: level
// filtering, json or text format, stdout or stderr destination. The
// version string is stamped onto every entry.
func New(cfg config.LoggingConfig, version string) *Logger {
	handler := newHandler(cfg, destination(cfg.Output))

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "switchboard"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

func destination(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

func newHandler(cfg config.LoggingConfig, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// parseLevel maps a config level string onto slog's scale. Unrecognised
// values, including the empty string, fall back to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying extra default attributes:
//
//	engineLog := logger.With("component", "engine")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a stdout JSON logger at info level, for the window
// during startup before the config file has been read.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
