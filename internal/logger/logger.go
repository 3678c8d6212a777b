// Package logger builds the process-wide slog.Logger: text or JSON on
// stderr, optionally fanned out to Sentry when a DSN is configured.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// Options configures New.
type Options struct {
	Level             slog.Level
	Format            string // "text" | "json"
	SentryDSN         string
	SentryEnvironment string
	Output            io.Writer // defaults to os.Stderr
}

// New creates the logger. If SentryDSN is empty, or Sentry fails to
// initialize, only the local handler is used.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: opts.Level}

	var local slog.Handler
	if opts.Format == "json" {
		local = slog.NewJSONHandler(out, hopts)
	} else {
		local = slog.NewTextHandler(out, hopts)
	}

	if opts.SentryDSN == "" {
		return slog.New(local)
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         opts.SentryDSN,
		Environment: opts.SentryEnvironment,
		EnableLogs:  true,
	}); err != nil {
		slog.New(local).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		return slog.New(local)
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
	}.NewSentryHandler(context.Background())

	return slog.New(newMultiHandler(local, sentryHandler))
}

// Nop returns a logger that discards everything. Handy in tests.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Err is shorthand for the error attribute used across the codebase.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
