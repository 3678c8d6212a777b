package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"sheetmail/internal/app"
	"sheetmail/internal/auth"
	"sheetmail/internal/batch"
	"sheetmail/internal/tui"
)

var (
	runTUI     bool
	runLogFile string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every pending row once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runTUI {
			return runInteractive()
		}
		return runPlain(cmd)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show live progress in a terminal UI")
	runCmd.Flags().StringVar(&runLogFile, "log-file", "sheetmail.log", "Where logs go while the terminal UI is active")
}

func runPlain(cmd *cobra.Command) error {
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

	sum, err := a.Run(ctx, nil)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sum.String())
	return nil
}

func runInteractive() error {
	f, err := os.OpenFile(runLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	cfg, log, err := setup(f)
	if err != nil {
		return err
	}

	urls := make(chan string)
	codes := make(chan string, 1)
	a, err := app.New(cfg, log, app.Options{UI: &auth.Interactive{URLs: urls, Codes: codes}})
	if err != nil {
		return err
	}
	defer a.Close()

	appModel := tui.NewAppModel(func(ctx context.Context, observer batch.Observer) (batch.Summary, error) {
		return a.Run(ctx, observer)
	}, urls, codes)
	p := tea.NewProgram(&appModel, tea.WithAltScreen())
	appModel.SetProgram(p)
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	if m, ok := finalModel.(*tui.AppModel); ok {
		if m.Err != nil {
			return m.Err
		}
		if m.Summary != nil {
			fmt.Println(m.Summary.String())
		}
	}
	return nil
}
