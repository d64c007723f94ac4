// internal/logging/logger.go
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger handles application logging
type Logger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

// Options configures a Logger
type Options struct {
	Level  string // debug, info, warn (or warning), error
	Path   string // optional file written alongside stdout
	Format string // console or json
}

var (
	instance *Logger
	once     sync.Once
)

// Init installs the process-wide logger. Only the first call has effect.
// If opts cannot be honoured an info-level stdout logger is installed and
// the error is returned.
func Init(opts Options) error {
	var err error
	once.Do(func() {
		instance, err = New(opts)
		if err != nil {
			instance, _ = New(Options{Level: "info", Format: opts.Format})
		}
	})
	return err
}

// Default returns the process-wide logger, or a no-op logger if Init was never called
func Default() *Logger {
	if instance == nil {
		return Nop()
	}
	return instance
}

// New creates a logger instance
func New(opts Options) (*Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Level != "" {
		parsed, err := ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		level.SetLevel(parsed)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = "console"
	if opts.Format == "json" {
		cfg.Encoding = "json"
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	cfg.Sampling = nil
	cfg.OutputPaths = []string{"stdout"}

	if opts.Path != "" {
		// Create log directory if it doesn't exist
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, opts.Path)
	}

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	l := &Logger{sugar: z.Sugar(), level: level}
	l.Debug("Logger initialized")
	return l, nil
}

// ParseLevel maps a level name onto a zap level. "warning" is accepted
// alongside zap's own "warn".
func ParseLevel(name string) (zapcore.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	parsed, err := zapcore.ParseLevel(name)
	if err != nil {
		return parsed, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return parsed, nil
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{
		sugar: zap.NewNop().Sugar(),
		level: zap.NewAtomicLevelAt(zapcore.FatalLevel),
	}
}

// With returns a child logger carrying key/value context
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...), level: l.level}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// SetLevel changes the logging level
func (l *Logger) SetLevel(level string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l.level.SetLevel(parsed)
	return nil
}

// Level returns the current level name
func (l *Logger) Level() string {
	return l.level.Level().String()
}

// Sync flushes buffered log entries
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
