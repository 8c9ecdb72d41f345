package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

var (
	once sync.Once
	base *slog.Logger
)

// Options controls the global logger. Zero values fall back to defaults.
type Options struct {
	Component  string
	FilePath   string // empty => stdout only
	Level      string // debug|info|warn|error
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init configures the global logger exactly once.
// Call this in main(): logging.Init(logging.Options{Component: "bridge", FilePath: "./logs/bridge.log"})
func Init(opts Options) *slog.Logger {
	once.Do(func() {
		var w io.Writer = os.Stdout
		if opts.FilePath != "" {
			_ = os.MkdirAll(filepath.Dir(opts.FilePath), 0o755)
			rot := &lumberjack.Logger{
				Filename:   opts.FilePath,
				MaxSize:    orDefault(opts.MaxSizeMB, 50), // MB
				MaxBackups: orDefault(opts.MaxBackups, 3),
				MaxAge:     orDefault(opts.MaxAgeDays, 7), // days
				Compress:   false,
			}
			w = io.MultiWriter(os.Stdout, rot)
		}
		component := opts.Component
		if component == "" {
			component = "app"
		}
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(opts.Level)})
		base = slog.New(h).With("component", component)
	})
	return base
}

// ParseLevel maps a config string to a slog level; unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Base returns the global logger (stdout only if Init was not called).
func Base() *slog.Logger {
	if base == nil {
		return Init(Options{})
	}
	return base
}

// New returns a child logger derived from the global one.
// IMPORTANT: does NOT create a new handler/writer; it reuses the global handler.
func New(component string) *slog.Logger {
	return Base().With("component", component)
}

// WithCtx stores a logger in a standard context (useful outside Gin).
func WithCtx(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromCtx fetches a logger from ctx or falls back to the global one.
func FromCtx(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return Base()
}

// With stores the logger in gin.Context.
func With(c *gin.Context, l *slog.Logger) {
	c.Set("logger", l)
}

// From returns the request-scoped logger from gin.Context, or the global one.
func From(c *gin.Context) *slog.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return Base()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
