// Package auth resolves the Google OAuth credential used for both the Sheets
// and Gmail APIs.
//
// Sources are tried in order, first success wins:
//   - the inline TOKEN_JSON blob (headless deployments)
//   - the persisted token file
//   - a refresh of either of the above when it has expired
//   - the installed-app consent flow, using GOOGLE_CREDENTIALS_JSON or the
//     client secret file
//
// A refreshed or freshly authorized credential is written back to the token
// file; failing to do so is logged and otherwise ignored.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	gmailv1 "google.golang.org/api/gmail/v1"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"sheetmail/internal/logger"
	"sheetmail/internal/model"
)

// Scopes requested for every credential.
var Scopes = []string{sheetsv4.SpreadsheetsScope, gmailv1.GmailSendScope}

// Interactive lets a UI drive the consent step: the consent URL is sent on
// URLs and a pasted code or redirect URL is read from Codes.
type Interactive struct {
	URLs  chan<- string
	Codes <-chan string
}

type Options struct {
	TokenJSON       string
	CredentialsJSON string
	TokenFile       string
	CredentialsFile string

	// UI replaces the stderr/stdin prompts when set.
	UI *Interactive
	// In and Out are the CLI prompt streams; default stdin/stderr.
	In  io.Reader
	Out io.Writer
	// PasteAfter is how long the CLI waits for the loopback redirect before
	// asking for a pasted code. Default 2m.
	PasteAfter time.Duration
	// Browser opens the consent URL for the CLI flow; failures are ignored.
	Browser func(url string) error
}

type Provider struct {
	opts Options
	log  *slog.Logger
}

func NewProvider(opts Options, log *slog.Logger) *Provider {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	if opts.PasteAfter <= 0 {
		opts.PasteAfter = 2 * time.Minute
	}
	if opts.Browser == nil {
		opts.Browser = openBrowser
	}
	return &Provider{opts: opts, log: log}
}

// HTTPClient returns a client that authorizes requests with the resolved
// credential, refreshing it as needed. It fails with ErrNoCredentials only
// when no source yields a usable credential.
func (p *Provider) HTTPClient(ctx context.Context) (*http.Client, error) {
	ts, err := p.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

// TokenSource resolves the credential.
func (p *Provider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	secret, secretErr := p.clientSecret()
	if secretErr != nil && !errors.Is(secretErr, os.ErrNotExist) {
		p.log.WarnContext(ctx, "could not load client secret", logger.Err(secretErr))
	}

	for _, src := range p.storedSources() {
		b, err := src.load()
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				p.log.WarnContext(ctx, "could not read credential", slog.String("source", src.name), logger.Err(err))
			}
			continue
		}
		cred, err := parseCredential(b)
		if err != nil {
			p.log.WarnContext(ctx, "could not parse credential", slog.String("source", src.name), logger.Err(err))
			continue
		}

		cfg := cred.config()
		if cfg == nil {
			cfg = secret
		}
		tok := cred.token()
		if tok.Valid() {
			p.log.DebugContext(ctx, "using stored credential", slog.String("source", src.name))
			if cfg == nil {
				return oauth2.StaticTokenSource(tok), nil
			}
			return cfg.TokenSource(ctx, tok), nil
		}
		if tok.RefreshToken == "" || cfg == nil {
			p.log.WarnContext(ctx, "stored credential expired and cannot be refreshed", slog.String("source", src.name))
			continue
		}

		fresh, err := cfg.TokenSource(ctx, tok).Token()
		if err != nil {
			p.log.WarnContext(ctx, "credential refresh failed", slog.String("source", src.name), logger.Err(err))
			continue
		}
		p.log.InfoContext(ctx, "refreshed credential", slog.String("source", src.name))
		p.persist(ctx, cfg, fresh)
		return cfg.TokenSource(ctx, fresh), nil
	}

	if secret == nil {
		return nil, fmt.Errorf("%w: no stored token and no client secret", model.ErrNoCredentials)
	}
	tok, err := p.authorize(ctx, secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrNoCredentials, err)
	}
	p.persist(ctx, secret, tok)
	return secret.TokenSource(ctx, tok), nil
}

type storedSource struct {
	name string
	load func() ([]byte, error)
}

func (p *Provider) storedSources() []storedSource {
	var out []storedSource
	if p.opts.TokenJSON != "" {
		out = append(out, storedSource{name: "TOKEN_JSON", load: func() ([]byte, error) {
			return []byte(p.opts.TokenJSON), nil
		}})
	}
	if p.opts.TokenFile != "" {
		out = append(out, storedSource{name: p.opts.TokenFile, load: func() ([]byte, error) {
			return os.ReadFile(p.opts.TokenFile)
		}})
	}
	return out
}

// clientSecret prefers the inline document over the file. The inline
// document is parsed in memory and never written to disk.
func (p *Provider) clientSecret() (*oauth2.Config, error) {
	if p.opts.CredentialsJSON != "" {
		return clientSecretConfig([]byte(p.opts.CredentialsJSON))
	}
	if p.opts.CredentialsFile == "" {
		return nil, os.ErrNotExist
	}
	b, err := os.ReadFile(p.opts.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return clientSecretConfig(b)
}

func (p *Provider) persist(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) {
	if p.opts.TokenFile == "" {
		return
	}
	if err := saveCredential(p.opts.TokenFile, newStoredCredential(cfg, tok)); err != nil {
		p.log.WarnContext(ctx, "could not save credential",
			slog.String("path", p.opts.TokenFile), logger.Err(fmt.Errorf("%w: %w", model.ErrTokenPersist, err)))
		return
	}
	p.log.DebugContext(ctx, "saved credential", slog.String("path", p.opts.TokenFile))
}
