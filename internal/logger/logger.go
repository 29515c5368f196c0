// Package logger builds the process logger and carries per-request logging
// state through a context.
package logger

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options selects the level, encoding and destination of a logger. Callers
// populate it from config.LoggingConfig.
type Options struct {
	Level     string
	Format    string // json (default) or console
	Output    string // stdout (default), stderr or file
	FilePath  string
	MaxSizeMB int
	MaxFiles  int
}

// New returns a JSON logger on stdout at the given level.
func New(level string) zerolog.Logger {
	return NewFromConfig(Options{Level: level})
}

// NewFromConfig returns a timestamped logger for opts. Unknown levels fall
// back to info.
func NewFromConfig(opts Options) zerolog.Logger {
	return zerolog.New(output(opts)).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

type ctxKey int

const (
	loggerKey ctxKey = iota
	correlationIDKey
)

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, log zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// WithCorrelationID stores a correlation ID in the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the context's correlation ID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// FromContext returns the context's logger tagged with its correlation ID.
// Without a stored logger it falls back to an info-level stdout logger.
func FromContext(ctx context.Context) zerolog.Logger {
	log, ok := ctx.Value(loggerKey).(zerolog.Logger)
	if !ok {
		log = New("info")
	}
	if id := CorrelationIDFromContext(ctx); id != "" {
		log = log.With().Str("correlation_id", id).Logger()
	}
	return log
}

// NewCorrelationID returns a random UUID string.
func NewCorrelationID() string {
	return uuid.NewString()
}
