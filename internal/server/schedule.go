package server

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Schedule registers a recurring run. spec is a standard five-field cron
// expression or a descriptor such as "@hourly" or "@every 30m". Scheduled
// runs go through Trigger like HTTP ones, so they never overlap.
func (s *Server) Schedule(spec string) error {
	if s.cron == nil {
		l := cronLogger{s.logger}
		s.cron = cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l)))
	}
	_, err := s.cron.AddFunc(spec, func() {
		sum, shared, err := s.Trigger("schedule")
		if err != nil {
			s.logger.Error("scheduled run failed", slog.String("error", err.Error()))
			return
		}
		if !shared {
			s.logger.Info("scheduled run finished", slog.String("summary", sum.String()))
		}
	})
	if err != nil {
		return fmt.Errorf("parse RUN_SCHEDULE %q: %w", spec, err)
	}
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
