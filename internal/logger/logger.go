// Package logger provides leveled logging for the pilot daemon and CLI.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level represents a logging level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	}
	return "unknown"
}

// ParseLevel maps a config string to a Level. Unknown strings fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

type logger struct {
	level  Level
	logger *log.Logger
}

var (
	mu            sync.RWMutex
	defaultLogger = newLogger(os.Stderr, InfoLevel, "")
)

func newLogger(w io.Writer, level Level, format string) *logger {
	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}
	return &logger{level: level, logger: log.New(w, "", flags)}
}

// Init initializes the default logger with the specified level and format.
// format "text" adds the caller's file and line to each entry.
func Init(level string, format string) {
	InitWriter(os.Stderr, level, format)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level string, format string) {
	l := newLogger(w, ParseLevel(level), format)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

// Enabled reports whether entries at level would be written.
func Enabled(level Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger.level <= level
}

func output(level Level, tag, format string, args ...interface{}) {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l.level > level {
		return
	}
	_ = l.logger.Output(3, fmt.Sprintf(tag+format, args...))
}

func Debug(format string, args ...interface{}) { output(DebugLevel, "[DEBUG] ", format, args...) }

func Info(format string, args ...interface{}) { output(InfoLevel, "[INFO] ", format, args...) }

func Warn(format string, args ...interface{}) { output(WarnLevel, "[WARN] ", format, args...) }

func Error(format string, args ...interface{}) { output(ErrorLevel, "[ERROR] ", format, args...) }

// Fatal logs regardless of level and exits the process.
func Fatal(format string, args ...interface{}) {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	_ = l.logger.Output(2, fmt.Sprintf("[FATAL] "+format, args...))
	os.Exit(1)
}
