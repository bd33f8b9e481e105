package logbook

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger is the narrow logging surface consumed by packages that only
// need formatted lines.
type Logger interface {
	Printf(format string, args ...any)
}

// Logbook writes leveled activation entries through zerolog.
type Logbook struct {
	path   string
	file   *os.File
	logger zerolog.Logger
	mu     *sync.Mutex
}

// New opens (or creates) the log file at path and writes entries at or
// above level.
func New(path string, level string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logbook: open log file: %w", err)
	}
	lb := NewWriter(file, level)
	lb.path = path
	lb.file = file
	return lb, nil
}

// NewWriter builds a logbook that writes console-formatted lines to w.
func NewWriter(w io.Writer, level string) *Logbook {
	lvl, ok := ParseLevel(level)
	if !ok {
		lvl = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}
	return &Logbook{
		logger: zerolog.New(output).Level(lvl).With().Timestamp().Logger(),
		mu:     &sync.Mutex{},
	}
}

// Discard returns a logbook that drops every entry.
func Discard() *Logbook {
	return &Logbook{logger: zerolog.Nop(), mu: &sync.Mutex{}}
}

// ParseLevel maps a config or environment value onto a zerolog level.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

// With returns a child logbook that tags every entry with component=name.
func (l *Logbook) With(name string) *Logbook {
	if l == nil {
		return nil
	}
	return &Logbook{
		path:   l.path,
		logger: l.logger.With().Str("component", name).Logger(),
		mu:     l.mu,
	}
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close releases the file handle.
func (l *Logbook) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Append writes a single entry to the logbook.
func (l *Logbook) Append(level Level, message string) {
	if l == nil || l.mu == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	message = strings.TrimSpace(message)
	switch level {
	case LevelDebug:
		l.logger.Debug().Msg(message)
	case LevelWarn:
		l.logger.Warn().Msg(message)
	case LevelError:
		l.logger.Error().Msg(message)
	default:
		l.logger.Info().Msg(message)
	}
}

// Tail returns up to maxLines of the most recent log entries along with
// the total number of lines in the file.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || l.path == "" || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	total := len(lines)
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
}

// Debug appends a debug entry.
func (l *Logbook) Debug(format string, args ...any) {
	l.Append(LevelDebug, fmt.Sprintf(format, args...))
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}

// Printf satisfies Logger.
func (l *Logbook) Printf(format string, args ...any) {
	l.Info(format, args...)
}
