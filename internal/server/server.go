// Package server exposes runs over HTTP and on a cron schedule. However many
// triggers arrive, at most one run is in flight; callers that arrive while it
// is running share its result.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"sheetmail/internal/batch"
	"sheetmail/internal/logger"
)

// RunFunc performs one run.
type RunFunc func(ctx context.Context) (batch.Summary, error)

type Server struct {
	run    RunFunc
	logger *slog.Logger
	group  singleflight.Group
	cron   *cron.Cron

	// runCtx outlives individual requests so a client hanging up does not
	// cut a run short.
	runCtx context.Context
}

// New returns a Server whose runs are bound to ctx.
func New(ctx context.Context, run RunFunc, logger *slog.Logger) *Server {
	return &Server{run: run, logger: logger, runCtx: ctx}
}

// Trigger starts a run, or joins the one already in flight.
func (s *Server) Trigger(source string) (batch.Summary, bool, error) {
	v, err, shared := s.group.Do("run", func() (any, error) {
		s.logger.Info("run triggered", slog.String("source", source))
		return s.run(s.runCtx)
	})
	sum, _ := v.(batch.Summary)
	return sum, shared, err
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/run", s.HandleRun)

	return r
}

type runResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HandleRun runs the batch and reports its summary message. It is also the
// body of the Cloud Functions entry point, which accepts any method.
func (s *Server) HandleRun(w http.ResponseWriter, r *http.Request) {
	sum, shared, err := s.Trigger("http")
	if err != nil {
		s.logger.Error("run failed",
			logger.Err(err),
			slog.String("policy", batch.Policy(err).String()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		respond(w, http.StatusInternalServerError, runResponse{Status: "error", Message: err.Error()})
		return
	}
	if shared {
		s.logger.Info("joined in-flight run", slog.String("run", sum.RunID))
	}
	respond(w, http.StatusOK, runResponse{Status: "ok", Message: sum.Message})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully,
// letting an in-flight run finish its current row.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cron != nil {
		s.cron.Start()
		defer func() { <-s.cron.Stop().Done() }()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
