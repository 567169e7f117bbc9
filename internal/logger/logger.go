// Package logger provides structured logging for nudge.
//
// Console output always goes to stderr: stdout is reserved for the text the
// shell hooks read back (corrected lines, completions).
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// Level represents logging level
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Logger wraps charmbracelet/log with a component prefix
type Logger struct {
	logger *log.Logger
	level  Level
}

// Config holds logger configuration
type Config struct {
	Level      string
	File       string
	MaxSize    int // MB
	MaxBackups int
	Console    bool
	// Output overrides the console writer (stderr by default).
	Output io.Writer
}

// DefaultConfig returns the quiet configuration used inside shell hooks.
func DefaultConfig() Config {
	return Config{
		Level:      "warn",
		MaxSize:    5,
		MaxBackups: 3,
		Console:    true,
	}
}

// Initialize initializes the global logger. Only the first call has effect.
func Initialize(cfg Config) error {
	var initErr error
	once.Do(func() {
		globalLogger, initErr = New(cfg)
	})
	return initErr
}

// New builds a standalone logger from cfg.
func New(cfg Config) (*Logger, error) {
	level := parseLevel(cfg.Level)

	var writers []io.Writer
	if cfg.Console {
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, out)
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		fw, err := newRotatingWriter(cfg.File, cfg.MaxSize, cfg.MaxBackups)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, fw)
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	l := log.NewWithOptions(w, log.Options{
		Level:           toCharmLevel(level),
		ReportTimestamp: cfg.File != "",
		TimeFormat:      time.RFC3339,
	})

	return &Logger{logger: l, level: level}, nil
}

// Get returns the global logger, initializing defaults on first use.
func Get() *Logger {
	if globalLogger == nil {
		_ = Initialize(DefaultConfig())
	}
	return globalLogger
}

func (l *Logger) Debug(msg string, keyvals ...any) { l.logger.Debug(msg, keyvals...) }
func (l *Logger) Info(msg string, keyvals ...any)  { l.logger.Info(msg, keyvals...) }
func (l *Logger) Warn(msg string, keyvals ...any)  { l.logger.Warn(msg, keyvals...) }
func (l *Logger) Error(msg string, keyvals ...any) { l.logger.Error(msg, keyvals...) }

// With returns a logger that tags every line with prefix.
func (l *Logger) With(prefix string) *Logger {
	return &Logger{logger: l.logger.WithPrefix(prefix), level: l.level}
}

// SetLevel changes the level at runtime (used by --debug).
func (l *Logger) SetLevel(level Level) {
	l.level = level
	l.logger.SetLevel(toCharmLevel(level))
}

// Enabled reports whether messages at level would be emitted.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

func Debug(msg string, keyvals ...any) { Get().Debug(msg, keyvals...) }
func Info(msg string, keyvals ...any)  { Get().Info(msg, keyvals...) }
func Warn(msg string, keyvals ...any)  { Get().Warn(msg, keyvals...) }
func Error(msg string, keyvals ...any) { Get().Error(msg, keyvals...) }

// With returns the global logger with prefix
func With(prefix string) *Logger {
	return Get().With(prefix)
}

// ParseLevel maps a config string onto a Level, defaulting to warn.
func ParseLevel(level string) Level {
	return parseLevel(level)
}

func parseLevel(level string) Level {
	switch level {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return WarnLevel
	}
}

func toCharmLevel(l Level) log.Level {
	switch l {
	case DebugLevel:
		return log.DebugLevel
	case InfoLevel:
		return log.InfoLevel
	case ErrorLevel:
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}

// rotatingWriter appends to a log file and shifts it to .1, .2, ... once it
// grows past maxSize megabytes.
type rotatingWriter struct {
	mu         sync.Mutex
	filename   string
	maxSize    int
	maxBackups int
	file       *os.File
	size       int64
}

func newRotatingWriter(filename string, maxSize, maxBackups int) (*rotatingWriter, error) {
	if maxSize <= 0 {
		maxSize = 5
	}
	rw := &rotatingWriter{filename: filename, maxSize: maxSize, maxBackups: maxBackups}
	if err := rw.open(); err != nil {
		return nil, err
	}
	return rw, nil
}

func (rw *rotatingWriter) open() error {
	if info, err := os.Stat(rw.filename); err == nil {
		rw.size = info.Size()
	} else {
		rw.size = 0
	}
	f, err := os.OpenFile(rw.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	rw.file = f
	return nil
}

// Write implements io.Writer
func (rw *rotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.size+int64(len(p)) > int64(rw.maxSize)*1024*1024 {
		if err := rw.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := rw.file.Write(p)
	rw.size += int64(n)
	return n, err
}

func (rw *rotatingWriter) rotate() error {
	if rw.file != nil {
		_ = rw.file.Close()
	}
	if rw.maxBackups > 0 {
		_ = os.Remove(fmt.Sprintf("%s.%d", rw.filename, rw.maxBackups))
		for i := rw.maxBackups - 1; i > 0; i-- {
			_ = os.Rename(fmt.Sprintf("%s.%d", rw.filename, i), fmt.Sprintf("%s.%d", rw.filename, i+1))
		}
		_ = os.Rename(rw.filename, rw.filename+".1")
	} else {
		_ = os.Remove(rw.filename)
	}
	return rw.open()
}
