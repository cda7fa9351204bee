package logging

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelSuccess sits between INFO and WARN and marks operations that completed
// a state change (deployments, confirmed transactions).
const LevelSuccess = slog.Level(2)

// FileOptions configures the rotating file sink used by SetupFile.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Setup configures the standard library logger to emit structured JSON on
// stdout and returns the underlying slog.Logger. All log lines include the
// service name and environment when provided.
func Setup(service, env string) *slog.Logger {
	return setup(os.Stdout, service, env, slog.LevelInfo)
}

// SetupFile behaves like Setup but writes to a size-rotated file. The returned
// closer flushes and closes the active log file.
func SetupFile(service, env string, opts FileOptions, level slog.Leveler) (*slog.Logger, io.Closer) {
	sink := &lumberjack.Logger{
		Filename:   strings.TrimSpace(opts.Path),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	if sink.MaxSize <= 0 {
		sink.MaxSize = 50
	}
	return setup(sink, service, env, level), sink
}

func setup(w io.Writer, service, env string, level slog.Leveler) *slog.Logger {
	handler := NewHandler(w, level)

	attrs := []slog.Attr{
		slog.String("service", strings.TrimSpace(service)),
	}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	withArgs := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		withArgs = append(withArgs, attr)
	}

	base := slog.New(handler).With(withArgs...)
	slog.SetDefault(base)

	// Bridge the standard library logger so existing packages continue to work.
	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

// NewHandler returns the JSON handler shared by every logger in the module:
// timestamp/severity/message keys and a SUCCESS severity name.
func NewHandler(w io.Writer, level slog.Leveler) slog.Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	})
}

func replaceAttr(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		return slog.Attr{Key: "timestamp", Value: attr.Value}
	case slog.LevelKey:
		if lvl, ok := attr.Value.Any().(slog.Level); ok {
			return slog.String("severity", LevelName(lvl))
		}
		return slog.String("severity", strings.ToUpper(attr.Value.String()))
	case slog.MessageKey:
		return slog.Attr{Key: "message", Value: attr.Value}
	}
	return attr
}

// LevelName renders a level the way it appears in the severity field.
func LevelName(level slog.Level) string {
	if level == LevelSuccess {
		return "SUCCESS"
	}
	return strings.ToUpper(level.String())
}

// ClientLevel resolves the effective level of an SDK client logger. Debug
// wins over silent; both silent and the default keep error logs only.
func ClientLevel(debug, silent bool) slog.Level {
	switch {
	case debug:
		return slog.LevelDebug
	case silent:
		return slog.LevelError
	default:
		return slog.LevelError
	}
}

// WithLevel returns a logger that drops records below level before they reach
// the handler of base.
func WithLevel(base *slog.Logger, level slog.Leveler) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.New(&levelHandler{inner: base.Handler(), level: level})
}

// Success logs msg at LevelSuccess.
func Success(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		return
	}
	logger.Log(ctx, LevelSuccess, msg, args...)
}

type levelHandler struct {
	inner slog.Handler
	level slog.Leveler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.inner.Enabled(ctx, level)
}

func (h *levelHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.inner.Handle(ctx, record)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{inner: h.inner.WithAttrs(attrs), level: h.level}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{inner: h.inner.WithGroup(name), level: h.level}
}
