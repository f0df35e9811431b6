package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "INFO"
	}
}

func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes timestamped leveled lines to a log file and, optionally,
// mirrors Info and above to stdout. Debug stays file-only so it cannot
// trample the single-line progress bar.
type Logger struct {
	mu     sync.Mutex
	file   *os.File
	level  Level
	stdout bool
}

func New(path string, level Level, stdout bool) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}

	return &Logger{file: f, level: level, stdout: stdout}, nil
}

func (l *Logger) log(lvl Level, format string, v ...any) {
	if lvl < l.level {
		return
	}

	line := fmt.Sprintf("%s [%-5s] %s",
		time.Now().Format("2006-01-02 15:04:05"), lvl, fmt.Sprintf(format, v...))

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.file, line)

	// Progress rendering owns the current stdout line, so start fresh.
	if l.stdout && lvl >= LevelInfo {
		fmt.Printf("\n%s", line)
	}
}

func (l *Logger) Debug(f string, v ...any) { l.log(LevelDebug, f, v...) }
func (l *Logger) Info(f string, v ...any)  { l.log(LevelInfo, f, v...) }
func (l *Logger) Warn(f string, v ...any)  { l.log(LevelWarn, f, v...) }
func (l *Logger) Error(f string, v ...any) { l.log(LevelError, f, v...) }

func (l *Logger) Fatal(f string, v ...any) {
	l.log(LevelFatal, f, v...)
	os.Exit(1)
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
