package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	wailslogger "github.com/wailsapp/wails/v2/pkg/logger"
)

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// New builds a logger writing to w. format is "json" or "text".
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Init installs a stderr logger as the slog default and returns it.
func Init(level, format string) *slog.Logger {
	logger := New(os.Stderr, level, format)
	slog.SetDefault(logger)
	return logger
}

// WailsLevel maps a level name onto the Wails runtime log level.
func WailsLevel(level string) wailslogger.LogLevel {
	switch ParseLevel(level) {
	case slog.LevelDebug:
		return wailslogger.DEBUG
	case slog.LevelWarn:
		return wailslogger.WARNING
	case slog.LevelError:
		return wailslogger.ERROR
	default:
		return wailslogger.INFO
	}
}

// WailsLogger routes the Wails runtime's own log lines into slog.
type WailsLogger struct {
	logger *slog.Logger
}

var _ wailslogger.Logger = (*WailsLogger)(nil)

// NewWailsLogger wraps logger. A nil logger uses slog.Default.
func NewWailsLogger(logger *slog.Logger) *WailsLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &WailsLogger{logger: logger.With("component", "wails")}
}

func (l *WailsLogger) Print(message string)   { l.logger.Info(message) }
func (l *WailsLogger) Trace(message string)   { l.logger.Debug(message, "trace", true) }
func (l *WailsLogger) Debug(message string)   { l.logger.Debug(message) }
func (l *WailsLogger) Info(message string)    { l.logger.Info(message) }
func (l *WailsLogger) Warning(message string) { l.logger.Warn(message) }
func (l *WailsLogger) Error(message string)   { l.logger.Error(message) }

// Fatal logs at error level. The Wails runtime exits the process itself.
func (l *WailsLogger) Fatal(message string) { l.logger.Error(message, "fatal", true) }
