package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sheetmail/internal/app"
	"sheetmail/internal/model"
	"sheetmail/internal/tui"
)

var (
	historyLimit int
	historyTo    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sends from the ledger (requires LEDGER_PATH)",
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

		ledger := a.Ledger()
		if ledger == nil {
			return errors.New("LEDGER_PATH is not set")
		}
		ctx := cmd.Context()

		var recs []model.SendRecord
		if historyTo != "" {
			recs, err = ledger.SendsTo(ctx, historyTo)
		} else {
			recs, err = ledger.ListSends(ctx, historyLimit)
		}
		if err != nil {
			return err
		}
		lastRun, err := ledger.GetLastRun(ctx)
		if err != nil {
			return err
		}
		total, err := ledger.CountSends(ctx, "")
		if err != nil {
			return err
		}
		failed, err := ledger.CountSends(ctx, model.StatusError)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, tui.RenderHistory(recs, lastRun))
		fmt.Fprintf(out, "\n%d sends recorded, %d failed\n", total, failed)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of entries to show (0 for all)")
	historyCmd.Flags().StringVar(&historyTo, "to", "", "Only show sends to this recipient")
}
