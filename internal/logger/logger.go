package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

var Log *slog.Logger

// Init initializes the global logger
func Init(level string, logFile string) error {
	// Parse log level
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelDebug
	}

	// Set up multi-writer (stdout + file)
	var writers []io.Writer
	writers = append(writers, os.Stdout)

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		writers = append(writers, f)
	}

	multiWriter := io.MultiWriter(writers...)

	// Create handler with custom options
	handler := slog.NewTextHandler(multiWriter, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Shorten time format
			if a.Key == slog.TimeKey {
				return slog.String("time", a.Value.Time().Format("15:04:05"))
			}
			return a
		},
	})

	Log = slog.New(handler)
	slog.SetDefault(Log)

	return nil
}

// Debug logs at debug level
func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}

// Info logs at info level
func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}

// Warn logs at warn level
func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}

// Error logs at error level
func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}

// Logger is a component-scoped wrapper around the global slog logger. Unlike
// the package-level Debug/Info/Warn/Error helpers (which take slog's
// key-value attr pairs), its methods take a printf-style format string so
// callers that build up a single human-readable message — such as the exec
// supervisor's sandbox warnings — don't have to invent attr keys for a
// one-off string.
type Logger struct {
	component string
}

// NewComponent returns a Logger that tags every message with component=name.
func NewComponent(name string) *Logger {
	return &Logger{component: name}
}

func (l *Logger) log(level slog.Level, format string, args ...any) {
	if Log == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.component != "" {
		Log.Log(context.Background(), level, msg, "component", l.component)
		return
	}
	Log.Log(context.Background(), level, msg)
}

func (l *Logger) Debugf(format string, args ...any) { l.log(slog.LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(slog.LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(slog.LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(slog.LevelError, format, args...) }
