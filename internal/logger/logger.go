package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters for the file sink.
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// Config describes logging destinations for the watchdog.
// If File is empty and Dir is set, the file sink is Dir/boxwatch.log.
// Rotation parameters follow lumberjack semantics.
type Config struct {
	Dir        string // base directory for logs
	File       string // explicit log path overrides Dir
	Level      string // debug, info, warn, error (default info)
	MaxSizeMB  int    // megabytes before rotation (default 10)
	MaxBackups int    // number of backups to keep (default 3)
	MaxAgeDays int    // days to keep (default 7)
	Compress   bool   // gzip rotated files
}

// FileWriter returns a rotating io.WriteCloser for the configured log file,
// or nil when no file destination is configured.
func (c Config) FileWriter() io.WriteCloser {
	path := c.File
	if path == "" && c.Dir != "" {
		path = filepath.Join(c.Dir, "boxwatch.log")
	}
	if path == "" {
		return nil
	}
	return &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

// SlogLevel maps the configured level name onto slog.Level, defaulting to Info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
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

// New builds the watchdog logger: a colored text handler on console, and,
// when a file destination is configured, a plain text handler on a
// lumberjack-rotated file. The returned closer flushes the file sink and is
// nil-safe to call.
func New(c Config, console io.Writer) (*slog.Logger, io.Closer) {
	if console == nil {
		console = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}

	consoleHandler := NewColorTextHandler(console, opts)

	fw := c.FileWriter()
	if fw == nil {
		return slog.New(consoleHandler), nopCloser{}
	}
	fileHandler := slog.NewTextHandler(fw, opts)
	return slog.New(teeHandler{consoleHandler, fileHandler}), fw
}

// teeHandler fans one record out to both destinations. Both handlers always
// run; the console error wins when both fail.
type teeHandler [2]slog.Handler

func (t teeHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return t[0].Enabled(ctx, lvl) || t[1].Enabled(ctx, lvl)
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	err0 := t[0].Handle(ctx, r.Clone())
	err1 := t[1].Handle(ctx, r)
	if err0 != nil {
		return err0
	}
	return err1
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{t[0].WithAttrs(attrs), t[1].WithAttrs(attrs)}
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{t[0].WithGroup(name), t[1].WithGroup(name)}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
