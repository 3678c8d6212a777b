// Package app wires configuration into a ready-to-run batch pipeline. The
// CLI, the HTTP server and the Cloud Functions entry point all go through it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"sheetmail/internal/auth"
	"sheetmail/internal/batch"
	"sheetmail/internal/config"
	"sheetmail/internal/content"
	"sheetmail/internal/gmail"
	"sheetmail/internal/model"
	"sheetmail/internal/notify"
	"sheetmail/internal/resend"
	"sheetmail/internal/sheets"
	"sheetmail/internal/store"
	"sheetmail/internal/tracker"
)

type Options struct {
	// UI, when set, drives the OAuth consent step instead of stdin/stderr.
	UI *auth.Interactive
	// ClientOptions are appended when building the Google API services.
	ClientOptions []option.ClientOption
}

type App struct {
	cfg    *config.Config
	log    *slog.Logger
	opts   Options
	ledger *store.SQLiteStore
}

// New opens the ledger when one is configured. Close releases it.
func New(cfg *config.Config, log *slog.Logger, opts Options) (*App, error) {
	a := &App{cfg: cfg, log: log, opts: opts}
	if cfg.LedgerPath != "" {
		s, err := store.NewSQLiteStore(cfg.LedgerPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrLedger, err)
		}
		a.ledger = s
	}
	return a, nil
}

func (a *App) Close() error {
	if a.ledger == nil {
		return nil
	}
	return a.ledger.Close()
}

// Ledger is nil when LEDGER_PATH is unset.
func (a *App) Ledger() *store.SQLiteStore { return a.ledger }

// Run performs one full pass over the sheet.
func (a *App) Run(ctx context.Context, observer batch.Observer) (batch.Summary, error) {
	renderer, err := content.Load(a.cfg.TemplatePath, a.cfg.Subject)
	if err != nil {
		return batch.Summary{}, err
	}

	opts := batch.Options{Delay: a.cfg.SendDelay, Observer: observer}
	if a.ledger != nil {
		opts.Journal = a.ledger
	}
	authn := batch.AuthenticatorFunc(func(ctx context.Context) (*batch.Pipeline, error) {
		return a.pipeline(ctx, renderer)
	})
	return batch.NewRunner(authn, opts, a.log).Run(ctx)
}

func (a *App) pipeline(ctx context.Context, renderer *content.Renderer) (*batch.Pipeline, error) {
	provider := auth.NewProvider(auth.Options{
		TokenJSON:       a.cfg.TokenJSON,
		CredentialsJSON: a.cfg.CredentialsJSON,
		TokenFile:       a.cfg.TokenFile,
		CredentialsFile: a.cfg.CredentialsFile,
		UI:              a.opts.UI,
	}, a.log)
	httpClient, err := provider.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	clientOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, a.opts.ClientOptions...)

	sheetsSvc, err := sheetsv4.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create sheets service: %w", model.ErrNoCredentials, err)
	}
	table := sheets.NewAPI(sheetsSvc)

	var mail notify.MailClient
	switch a.cfg.MailProvider {
	case config.ProviderResend:
		mail = resend.New(a.cfg.ResendAPIKey, a.cfg.SenderEmail)
	default:
		gmailSvc, err := gmailv1.NewService(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("%w: create gmail service: %w", model.ErrNoCredentials, err)
		}
		mail = gmail.NewClient(gmailSvc)
	}

	var registrar notify.Registrar
	if a.cfg.TrackerBase != "" {
		registrar = tracker.New(a.cfg.TrackerBase, a.cfg.TrackerTimeout)
	}
	notifier := notify.New(mail, renderer, registrar, notify.Options{
		Cc:             a.cfg.Cc,
		AttachmentPath: a.cfg.AttachmentPath,
		TrackerBase:    a.cfg.TrackerBase,
		SenderFallback: a.cfg.SenderEmail,
	}, a.log)

	return &batch.Pipeline{
		Source:   sheets.NewSource(table, a.cfg.SpreadsheetID, a.cfg.RangeName, a.log),
		Notifier: notifier,
		Writer:   sheets.NewWriter(table, a.cfg.SpreadsheetID, a.cfg.RangeName),
	}, nil
}
