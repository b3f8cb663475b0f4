package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string
	// Console receives the coloured text output. Defaults to os.Stdout.
	Console io.Writer
}

// Logger fans every record out to a JSON file and a text console while
// keeping the printf-style and tagged helpers the handlers use.
type Logger struct {
	slog  *slog.Logger
	level slog.Level
	file  *os.File
	once  sync.Once
}

// ParseLevel maps a config level name to a slog level; unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates the log directory, opens the log file in append mode and
// builds the fan-out logger.
func New(cfg Config) (*Logger, error) {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.Filename == "" {
		cfg.Filename = "streamer.log"
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	file, err := os.OpenFile(filepath.Join(cfg.Dir, cfg.Filename), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}

	level := ParseLevel(cfg.Level)
	fanout := slogmulti.Fanout(
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
		&consoleHandler{writer: console, level: level, mu: &sync.Mutex{}},
	)

	return &Logger{
		slog:  slog.New(fanout),
		level: level,
		file:  file,
	}, nil
}

// NewWithWriter builds a file-less JSON logger writing to w.
func NewWithWriter(w io.Writer, level string) *Logger {
	lvl := ParseLevel(level)
	return &Logger{
		slog:  slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})),
		level: lvl,
	}
}

// NewNop returns a logger that drops everything.
func NewNop() *Logger {
	return NewWithWriter(io.Discard, "error")
}

// Slog exposes the structured logger for integrations.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Close releases the log file.
func (l *Logger) Close() error {
	var err error
	l.once.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if l == nil || !l.slog.Enabled(context.Background(), level) {
		return
	}
	if len(args) > 0 && strings.Contains(msg, "%") {
		l.slog.Log(context.Background(), level, fmt.Sprintf(msg, args...))
		return
	}
	l.slog.Log(context.Background(), level, msg, args...)
}

// Debug logs at debug level. A message containing format verbs is
// formatted with args, otherwise args are slog key/value pairs.
func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

func (l *Logger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

func (l *Logger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

// FormatLog 构造带单一分类标签的日志消息，例如 FormatLog("HTTP", "started") -> "[HTTP] started"。
// A message that already starts with "[" is returned unchanged.
func FormatLog(tag, message string) string {
	tag = strings.TrimSpace(tag)
	message = strings.TrimSpace(message)
	if tag == "" || strings.HasPrefix(message, "[") {
		return message
	}
	return "[" + tag + "] " + message
}

func (l *Logger) DebugTag(tag, msg string, args ...any) {
	l.log(slog.LevelDebug, FormatLog(tag, msg), args...)
}

func (l *Logger) InfoTag(tag, msg string, args ...any) {
	l.log(slog.LevelInfo, FormatLog(tag, msg), args...)
}

func (l *Logger) WarnTag(tag, msg string, args ...any) {
	l.log(slog.LevelWarn, FormatLog(tag, msg), args...)
}

func (l *Logger) ErrorTag(tag, msg string, args ...any) {
	l.log(slog.LevelError, FormatLog(tag, msg), args...)
}
