// Package sheetmail is the Cloud Functions entry point. Deploy with
// --entry-point=SendEmails; configuration comes from the environment.
package sheetmail

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"sheetmail/internal/app"
	"sheetmail/internal/batch"
	"sheetmail/internal/config"
	"sheetmail/internal/logger"
	"sheetmail/internal/server"
)

var (
	initOnce sync.Once
	handler  http.HandlerFunc
)

// SendEmails runs one pass over the sheet and responds with
// {"status":"ok","message":<summary>}.
func SendEmails(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(setup)
	handler(w, r)
}

func setup() {
	cfg, err := config.Load("")
	if err != nil {
		handler = failWith(err)
		return
	}
	log := logger.New(logger.Options{
		Level:             cfg.LogLevel,
		Format:            cfg.LogFormat,
		SentryDSN:         cfg.SentryDSN,
		SentryEnvironment: cfg.SentryEnvironment,
	})
	a, err := app.New(cfg, log, app.Options{})
	if err != nil {
		handler = failWith(err)
		return
	}
	// The ledger stays open for the life of the instance.
	handler = server.New(context.Background(), func(ctx context.Context) (batch.Summary, error) {
		return a.Run(ctx, nil)
	}, log).HandleRun
}

func failWith(err error) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": err.Error()})
	}
}
