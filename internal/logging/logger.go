// Package logging provides centralized structured logging for guardian.
//
// Logs go to stderr so that command output on stdout stays machine readable.
// The level comes from GUARDIAN_LOG_LEVEL (falling back to LOG_LEVEL) and
// GUARDIAN_LOG_FORMAT=json switches to JSON lines.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug for row level diagnostics and request tracing.
	LevelDebug LogLevel = "debug"
	// LevelInfo for general operational information.
	LevelInfo LogLevel = "info"
	// LevelWarn for recoverable problems such as a failed fetch.
	LevelWarn LogLevel = "warn"
	// LevelError for failures that abort a command.
	LevelError LogLevel = "error"
)

// Format selects the handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var defaultLogger *slog.Logger

func init() {
	level := os.Getenv("GUARDIAN_LOG_LEVEL")
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	Configure(os.Stderr, ParseLevel(level), Format(strings.ToLower(os.Getenv("GUARDIAN_LOG_FORMAT"))))
}

// ParseLevel maps a case-insensitive level name to a LogLevel. Unknown
// names yield LevelInfo.
func ParseLevel(s string) LogLevel {
	switch l := LogLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return l
	case "warning":
		return LevelWarn
	default:
		return LevelInfo
	}
}

// SetupLogger configures a text logger writing to w at level.
func SetupLogger(w io.Writer, level LogLevel) {
	Configure(w, level, FormatText)
}

// Configure installs a logger writing to w at level using format. Unknown
// formats fall back to text.
func Configure(w io.Writer, level LogLevel, format Format) {
	var logLevel slog.Level
	switch level {
	case LevelDebug:
		logLevel = slog.LevelDebug
	case LevelWarn:
		logLevel = slog.LevelWarn
	case LevelError:
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// Debug logs a message at debug level.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Info logs a message at info level.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Warn logs a message at warn level.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Error logs a message at error level.
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// GetLogger returns the default logger.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// MaskSensitive masks a token for logging, keeping its first four characters.
func MaskSensitive(value string) string {
	if value == "" {
		return "<not set>"
	}
	if len(value) <= 4 {
		return "<set>"
	}
	return value[:4] + "..." + strings.Repeat("*", 3)
}

// RedactURL hides the query string and any user info of a URL. Published
// sheet links carry their access key in the query.
func RedactURL(raw string) string {
	if raw == "" {
		return "<not set>"
	}
	if i := strings.Index(raw, "://"); i >= 0 {
		rest := raw[i+3:]
		if at := strings.Index(rest, "@"); at >= 0 && at < strings.IndexAny(rest+"/", "/?") {
			raw = raw[:i+3] + "***@" + rest[at+1:]
		}
	}
	if q := strings.IndexByte(raw, '?'); q >= 0 {
		return raw[:q] + "?***"
	}
	return raw
}
