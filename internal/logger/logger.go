// Package logger is the leveled printf logger shared by every listr package.
// Nothing is written until a log file or writer is attached, so log lines
// never land inside wizard frames.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel accepts the level names case-insensitively, plus "warning".
// An empty string means info.
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "":
		return LevelInfo, nil
	case "WARNING":
		return LevelWarn, nil
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

type Logger struct {
	mu    sync.Mutex
	level Level
	out   *log.Logger
	file  *os.File
}

// Default backs the package-level functions.
var Default = New()

// New returns a logger seeded from LISTR_LOG_LEVEL and LISTR_LOG_FILE.
// Bad values are ignored; Configure reports them once config is loaded.
func New() *Logger {
	l := &Logger{level: LevelInfo, out: log.New(io.Discard, "", log.LstdFlags)}
	if lvl, err := ParseLevel(os.Getenv("LISTR_LOG_LEVEL")); err == nil {
		l.level = lvl
	}
	if path := os.Getenv("LISTR_LOG_FILE"); path != "" {
		_ = l.openFile(path)
	}
	return l
}

// Configure sets the level and, when path is not empty, appends to that file.
func (l *Logger) Configure(level, path string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l.SetLevel(lvl)
	if path == "" {
		return nil
	}
	return l.openFile(path)
}

func (l *Logger) openFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
	}
	l.file = f
	l.out.SetOutput(f)
	return nil
}

// Close detaches and closes the log file. Safe to call more than once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.out.SetOutput(io.Discard)
	return err
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.out.SetOutput(w)
	l.mu.Unlock()
}

func (l *Logger) Debug(format string, v ...any) { l.printf(LevelDebug, format, v) }
func (l *Logger) Info(format string, v ...any)  { l.printf(LevelInfo, format, v) }
func (l *Logger) Warn(format string, v ...any)  { l.printf(LevelWarn, format, v) }
func (l *Logger) Error(format string, v ...any) { l.printf(LevelError, format, v) }

func (l *Logger) printf(level Level, format string, v []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}
	l.out.Printf("[%s] %s", level, fmt.Sprintf(format, v...))
}

func Debug(format string, v ...any) { Default.Debug(format, v...) }
func Info(format string, v ...any)  { Default.Info(format, v...) }
func Warn(format string, v ...any)  { Default.Warn(format, v...) }
func Error(format string, v ...any) { Default.Error(format, v...) }

// Configure applies level and log file to Default.
func Configure(level, path string) error { return Default.Configure(level, path) }

// Close closes the log file of Default.
func Close() error { return Default.Close() }
