// Package logging provides structured logging functionality using Go's slog package.
// It supports both text and JSON output formats, configurable log levels,
// and component-aware logging for the radiomap collector.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	// File permissions for directories and log files.
	logDirPerm  = 0750
	logFilePerm = 0600
)

// LogLevel represents the available log levels.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogFormat represents the available log formats.
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// Config holds logging configuration.
type Config struct {
	Level     LogLevel  `yaml:"level" json:"level"`
	Format    LogFormat `yaml:"format" json:"format"`
	Output    string    `yaml:"output" json:"output"`
	AddSource bool      `yaml:"add_source" json:"add_source"`
}

// DefaultConfig returns a default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:     LevelInfo,
		Format:    FormatText,
		Output:    "stdout",
		AddSource: false,
	}
}

// Logger wraps slog.Logger with additional functionality.
type Logger struct {
	*slog.Logger
	config Config
}

// New creates a new structured logger with the given configuration.
func New(cfg Config) (*Logger, error) {
	var level slog.Level
	switch strings.ToLower(string(cfg.Level)) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var writer io.Writer
	switch cfg.Output {
	case "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		// Assume it's a file path
		if err := os.MkdirAll(filepath.Dir(cfg.Output), logDirPerm); err != nil {
			return nil, err
		}
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
		if err != nil {
			return nil, err
		}
		writer = file
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
		config: cfg,
	}, nil
}

// NewDefault creates a logger with default configuration.
func NewDefault() *Logger {
	logger, _ := New(DefaultConfig())
	return logger
}

// WithFields adds structured fields to the logger.
func (l *Logger) WithFields(fields ...any) *Logger {
	return &Logger{
		Logger: l.With(fields...),
		config: l.config,
	}
}

// WithComponent adds a component field to the logger.
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithFields("component", component)
}

// WithInterface adds a wireless interface field to the logger.
func (l *Logger) WithInterface(iface string) *Logger {
	return l.WithFields("interface", iface)
}

// WithError adds an error field to the logger.
func (l *Logger) WithError(err error) *Logger {
	return l.WithFields("error", err)
}

// InfoScan logs scan-related information.
func (l *Logger) InfoScan(msg, iface string, fields ...any) {
	allFields := append([]any{"interface", iface}, fields...)
	l.Info(msg, allFields...)
}

// ErrorScan logs scan-related errors.
func (l *Logger) ErrorScan(msg, iface string, err error, fields ...any) {
	allFields := append([]any{"interface", iface, "error", err}, fields...)
	l.Error(msg, allFields...)
}

// WarnScan logs scan-related warnings.
func (l *Logger) WarnScan(msg, iface string, fields ...any) {
	allFields := append([]any{"interface", iface}, fields...)
	l.Warn(msg, allFields...)
}

// InfoSensor logs sensor-related information.
func (l *Logger) InfoSensor(msg, sensor string, fields ...any) {
	allFields := append([]any{"sensor", sensor}, fields...)
	l.Info(msg, allFields...)
}

// ErrorSensor logs sensor-related errors.
func (l *Logger) ErrorSensor(msg, sensor string, err error, fields ...any) {
	allFields := append([]any{"sensor", sensor, "error", err}, fields...)
	l.Error(msg, allFields...)
}

// InfoStorage logs storage-related information.
func (l *Logger) InfoStorage(msg string, fields ...any) {
	allFields := append([]any{"component", "storage"}, fields...)
	l.Info(msg, allFields...)
}

// ErrorStorage logs storage-related errors.
func (l *Logger) ErrorStorage(msg string, err error, fields ...any) {
	allFields := append([]any{"component", "storage", "error", err}, fields...)
	l.Error(msg, allFields...)
}

// InfoCollector logs collector-related information.
func (l *Logger) InfoCollector(msg string, fields ...any) {
	allFields := append([]any{"component", "collector"}, fields...)
	l.Info(msg, allFields...)
}

// ErrorCollector logs collector-related errors.
func (l *Logger) ErrorCollector(msg string, err error, fields ...any) {
	allFields := append([]any{"component", "collector", "error", err}, fields...)
	l.Error(msg, allFields...)
}

// Global logger instance - can be replaced for testing.
var defaultLogger = NewDefault()

// SetDefault sets the default logger instance.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}

// Default returns the default logger instance.
func Default() *Logger {
	return defaultLogger
}

// Debug logs at debug level using the default logger.
func Debug(msg string, fields ...any) {
	defaultLogger.Debug(msg, fields...)
}

// Info logs at info level using the default logger.
func Info(msg string, fields ...any) {
	defaultLogger.Info(msg, fields...)
}

// Warn logs at warn level using the default logger.
func Warn(msg string, fields ...any) {
	defaultLogger.Warn(msg, fields...)
}

// Error logs at error level using the default logger.
func Error(msg string, fields ...any) {
	defaultLogger.Error(msg, fields...)
}

// InfoScan logs scan-related information using the default logger.
func InfoScan(msg, iface string, fields ...any) {
	defaultLogger.InfoScan(msg, iface, fields...)
}

// ErrorScan logs scan-related errors using the default logger.
func ErrorScan(msg, iface string, err error, fields ...any) {
	defaultLogger.ErrorScan(msg, iface, err, fields...)
}

// WarnScan logs scan-related warnings using the default logger.
func WarnScan(msg, iface string, fields ...any) {
	defaultLogger.WarnScan(msg, iface, fields...)
}

// InfoSensor logs sensor-related information using the default logger.
func InfoSensor(msg, sensor string, fields ...any) {
	defaultLogger.InfoSensor(msg, sensor, fields...)
}

// ErrorSensor logs sensor-related errors using the default logger.
func ErrorSensor(msg, sensor string, err error, fields ...any) {
	defaultLogger.ErrorSensor(msg, sensor, err, fields...)
}

// InfoStorage logs storage-related information using the default logger.
func InfoStorage(msg string, fields ...any) {
	defaultLogger.InfoStorage(msg, fields...)
}

// ErrorStorage logs storage-related errors using the default logger.
func ErrorStorage(msg string, err error, fields ...any) {
	defaultLogger.ErrorStorage(msg, err, fields...)
}

// InfoCollector logs collector-related information using the default logger.
func InfoCollector(msg string, fields ...any) {
	defaultLogger.InfoCollector(msg, fields...)
}

// ErrorCollector logs collector-related errors using the default logger.
func ErrorCollector(msg string, err error, fields ...any) {
	defaultLogger.ErrorCollector(msg, err, fields...)
}
