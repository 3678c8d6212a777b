package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sheetmail/internal/config"
	"sheetmail/internal/logger"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "sheetmail",
	Short: "Send one personalized email per pending Google Sheet row",
	Long: `sheetmail reads a Google Sheet, emails every row whose Status is blank or
"pending", and writes Completed or Error back into the row. Rerunning only
touches rows that are still pending.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file to load (real environment wins)")
	rootCmd.AddCommand(runCmd, serveCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger. out overrides stderr.
func setup(out io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Options{
		Level:             cfg.LogLevel,
		Format:            cfg.LogFormat,
		SentryDSN:         cfg.SentryDSN,
		SentryEnvironment: cfg.SentryEnvironment,
		Output:            out,
	})
	return cfg, log, nil
}
