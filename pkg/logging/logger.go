package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ctxField int

const (
	requestIDField ctxField = iota
	instrumentField
)

// Field names added by FromContext
const (
	FieldRequestID  = "request_id"
	FieldInstrument = "instrument"
)

// Config selects the level, encoding and sink of the process logger
type Config struct {
	Level  string    // debug, info, warn or error; anything else means info
	Pretty bool      // console rendering instead of JSON lines
	Output io.Writer // nil means stdout
}

// DefaultConfig logs JSON at info to stdout
func DefaultConfig() Config {
	return Config{Level: zerolog.InfoLevel.String(), Output: os.Stdout}
}

// ConfigFor maps the -log_level and -log_format settings onto a Config.
// Only "json" keeps machine-readable output.
func ConfigFor(level, format string) Config {
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.Pretty = !strings.EqualFold(format, "json")
	return cfg
}

// Setup installs the process-wide zerolog logger and level and returns it
func Setup(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil && cfg.Level != "" {
		level = parsed
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = os.Stdout
	if cfg.Output != nil {
		w = cfg.Output
	}
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return log.Logger
}

// WithRequestID tags ctx with the id of the command being served
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDField, requestID)
}

// WithInstrument tags ctx with the book's instrument
func WithInstrument(ctx context.Context, instrument string) context.Context {
	return context.WithValue(ctx, instrumentField, instrument)
}

// FromContext derives a child of the global logger carrying whatever tags
// ctx holds
func FromContext(ctx context.Context) zerolog.Logger {
	lc := log.With()
	if v, ok := ctx.Value(requestIDField).(string); ok {
		lc = lc.Str(FieldRequestID, v)
	}
	if v, ok := ctx.Value(instrumentField).(string); ok {
		lc = lc.Str(FieldInstrument, v)
	}
	return lc.Logger()
}
