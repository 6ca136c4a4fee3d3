package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type Level int

const (
	LevelDebug Level = iota - 4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// ParseLevel maps LOG_LEVEL values onto Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

type Config struct {
	Level      Level
	Format     string // "json", "text", "dev"
	Output     io.Writer
	AddSource  bool
	TimeFormat string
}

type logger struct {
	slog   *slog.Logger
	config *Config
}

// Regex patterns for sensitive data filtering
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)["\s]*[:=]["\s]*([^\s"&]+)`),
	regexp.MustCompile(`(?i)authorization:\s*bearer\s+([^\s]+)`),
}

// NewLogger creates a new structured logger with the given configuration
func NewLogger(config *Config) Logger {
	if config == nil {
		config = &Config{
			Level:      LevelInfo,
			Format:     "text",
			Output:     os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}
	if config.Output == nil {
		config.Output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     slog.Level(config.Level),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	switch config.Format {
	case "json":
		handler = slog.NewJSONHandler(config.Output, opts)
	case "dev":
		handler = NewDevHandler(config.Output, opts)
	default:
		handler = slog.NewTextHandler(config.Output, opts)
	}

	return &logger{
		slog:   slog.New(handler),
		config: config,
	}
}

func (l *logger) Debug(msg string, args ...any) {
	l.slog.Debug(sanitize(msg), sanitizeArgs(args)...)
}

func (l *logger) Info(msg string, args ...any) {
	l.slog.Info(sanitize(msg), sanitizeArgs(args)...)
}

func (l *logger) Warn(msg string, args ...any) {
	l.slog.Warn(sanitize(msg), sanitizeArgs(args)...)
}

func (l *logger) Error(msg string, args ...any) {
	l.slog.Error(sanitize(msg), sanitizeArgs(args)...)
}

func (l *logger) With(args ...any) Logger {
	return &logger{
		slog:   l.slog.With(sanitizeArgs(args)...),
		config: l.config,
	}
}

func (l *logger) WithContext(ctx context.Context) Logger {
	return &logger{
		slog:   l.slog.With(extractContextFields(ctx)...),
		config: l.config,
	}
}

// sanitize removes sensitive information from log messages
func sanitize(msg string) string {
	for _, pattern := range sensitivePatterns {
		msg = pattern.ReplaceAllStringFunc(msg, func(match string) string {
			if i := strings.IndexAny(match, ":="); i >= 0 {
				sep := match[i : i+1]
				if sep == ":" {
					return match[:i] + ": [REDACTED]"
				}
				return match[:i] + "=[REDACTED]"
			}
			return "[REDACTED]"
		})
	}
	return msg
}

// sanitizeArgs redacts string values and any value whose key looks secret.
func sanitizeArgs(args []any) []any {
	out := make([]any, len(args))
	for i, arg := range args {
		if i%2 == 1 {
			if key, ok := args[i-1].(string); ok && isSensitiveKey(key) {
				out[i] = "[REDACTED]"
				continue
			}
		}
		if s, ok := arg.(string); ok {
			out[i] = sanitize(s)
		} else {
			out[i] = arg
		}
	}
	return out
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "api_key") || strings.Contains(k, "apikey") ||
		strings.Contains(k, "token") || strings.Contains(k, "secret") || strings.Contains(k, "password")
}

type ctxKey string

// RequestIDKey is the context key under which the middleware stores the request ID.
const RequestIDKey ctxKey = "request_id"

// extractContextFields extracts common context fields for structured logging
func extractContextFields(ctx context.Context) []any {
	var fields []any
	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		fields = append(fields, "request_id", requestID)
	}
	return fields
}

// DevHandler is a colored single-line handler for local development
type DevHandler struct {
	opts   *slog.HandlerOptions
	output io.Writer
	attrs  []slog.Attr
	group  string
	mu     *sync.Mutex
}

func NewDevHandler(output io.Writer, opts *slog.HandlerOptions) *DevHandler {
	return &DevHandler{
		opts:   opts,
		output: output,
		mu:     &sync.Mutex{},
	}
}

func (h *DevHandler) Enabled(ctx context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *DevHandler) Handle(ctx context.Context, record slog.Record) error {
	var levelColor string
	switch {
	case record.Level >= slog.LevelError:
		levelColor = "\033[31m"
	case record.Level >= slog.LevelWarn:
		levelColor = "\033[33m"
	case record.Level >= slog.LevelInfo:
		levelColor = "\033[32m"
	default:
		levelColor = "\033[36m"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s %s]\033[0m %s",
		levelColor, record.Time.Format("15:04:05"), strings.ToUpper(record.Level.String()), record.Message)

	for _, a := range h.attrs {
		h.writeAttr(&b, a)
	}
	record.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.output, b.String())
	return err
}

func (h *DevHandler) writeAttr(b *strings.Builder, a slog.Attr) {
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	fmt.Fprintf(b, " %s=%v", key, a.Value)
}

func (h *DevHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *DevHandler) WithGroup(name string) slog.Handler {
	next := *h
	if next.group != "" {
		next.group += "." + name
	} else {
		next.group = name
	}
	return &next
}

// Global logger instance
var (
	defaultMu     sync.RWMutex
	defaultLogger Logger
)

// SetDefault sets the default global logger
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Default returns the default global logger
func Default() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// Convenience functions using the default logger
func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Default().Error(msg, args...)
}

// FiberMiddleware logs each request with a request ID, escalating the level
// for client and server errors.
func FiberMiddleware(logger Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Locals(RequestIDKey, requestID)
		c.Set("X-Request-Id", requestID)

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		logArgs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestID,
			"ip", c.IP(),
		}
		msg := fmt.Sprintf("%s %s - %d", c.Method(), c.Path(), status)

		switch {
		case status >= 500:
			logger.Error(msg, logArgs...)
		case status >= 400:
			logger.Warn(msg, logArgs...)
		default:
			logger.Info(msg, logArgs...)
		}
		return err
	}
}
