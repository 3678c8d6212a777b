package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sheetmail/internal/app"
	"sheetmail/internal/batch"
	"sheetmail/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /run and run on RUN_SCHEDULE",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(nil)
		if err != nil {
			return err
		}
		a, err := app.New(cfg, log, app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s := server.New(ctx, func(ctx context.Context) (batch.Summary, error) {
			return a.Run(ctx, nil)
		}, log)
		if cfg.RunSchedule != "" {
			if err := s.Schedule(cfg.RunSchedule); err != nil {
				return err
			}
		}
		return s.ListenAndServe(ctx, ":"+cfg.Port)
	},
}
