// Package logger provides structured logging using zerolog.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

const milliTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Options configures the global logger.
type Options struct {
	Level string // zerolog level name; info when empty or unknown
	File  string // optional path that receives a copy of every line
	Dev   bool   // colourised console output
}

// Init initializes the global logger.
func Init(opts Options) {
	zerolog.TimeFieldFormat = milliTimeFormat
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }

	const callerWidth = 30
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		path := fmt.Sprintf("%s:%d", filepath.Base(file), line)
		if len(path) >= callerWidth {
			return path[len(path)-callerWidth:]
		}
		return path + strings.Repeat(" ", callerWidth-len(path))
	}

	level := ParseLevel(opts.Level)
	zerolog.SetGlobalLevel(level)

	var output io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: milliTimeFormat,
		NoColor:    !opts.Dev,
	}

	var fileErr error
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			output = io.MultiWriter(output, f)
		}
		fileErr = err
	}

	log.Logger = log.Output(output).With().Caller().Logger()

	if fileErr != nil {
		log.Warn().Err(fileErr).Str("file", opts.File).Msg("Log file unavailable, logging to stdout only")
	}
	log.Info().
		Str("level", level.String()).
		Bool("dev", opts.Dev).
		Msg("Logger initialized")
}

// ParseLevel parses a zerolog level name, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Get returns the global logger instance.
func Get() zerolog.Logger {
	return log.Logger
}

// NewRequestID returns a short id that tags every log line of one request.
func NewRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// WithRequestID returns a new context with the given request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request ID from context, or empty string.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ForRequest returns a logger enriched with the request ID from context.
func ForRequest(ctx context.Context) zerolog.Logger {
	id := RequestIDFromContext(ctx)
	if id == "" {
		return log.Logger
	}
	return log.Logger.With().Str("requestId", id).Logger()
}

// bodyLimit caps how much of a body is written to the debug log.
const bodyLimit = 1000

// LogRequest logs the request body at debug level.
func LogRequest(logger zerolog.Logger, body []byte) {
	logBody(logger, "request_body", "Request body", body)
}

// LogResponse logs the response body at debug level.
func LogResponse(logger zerolog.Logger, body []byte) {
	logBody(logger, "response", "Response body", body)
}

func logBody(logger zerolog.Logger, field, msg string, body []byte) {
	if len(body) == 0 {
		return
	}
	ev := logger.Debug()
	if len(body) > bodyLimit {
		body = body[:bodyLimit]
		ev = ev.Bool("truncated", true)
	}
	ev.Str(field, string(body)).Msg(msg)
}
