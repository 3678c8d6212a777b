package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"sheetmail/internal/logger"
)

// authorize runs the installed-app consent flow. A loopback server on a
// random localhost port captures the redirect; the user can always paste the
// code (or the whole redirect URL) instead.
func (p *Provider) authorize(ctx context.Context, secret *oauth2.Config) (*oauth2.Token, error) {
	state := uuid.NewString()
	cfg := *secret

	var redirected <-chan string
	if lb, err := startLoopback(state); err != nil {
		p.log.WarnContext(ctx, "loopback listener unavailable, code must be pasted", logger.Err(err))
	} else {
		defer lb.close()
		cfg.RedirectURL = lb.redirect
		redirected = lb.codes
	}
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	var (
		code string
		err  error
	)
	if p.opts.UI != nil {
		code, err = p.waitUI(ctx, authURL, redirected)
	} else {
		code, err = p.waitCLI(ctx, authURL, redirected)
	}
	if err != nil {
		return nil, err
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	p.log.InfoContext(ctx, "authorization complete")
	return tok, nil
}

func (p *Provider) waitUI(ctx context.Context, authURL string, redirected <-chan string) (string, error) {
	select {
	case p.opts.UI.URLs <- authURL:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case code := <-redirected:
		return code, nil
	case input, ok := <-p.opts.UI.Codes:
		if !ok {
			return "", errors.New("authorization cancelled")
		}
		return codeFromInput(input)
	}
}

func (p *Provider) waitCLI(ctx context.Context, authURL string, redirected <-chan string) (string, error) {
	out := p.opts.Out
	if err := p.opts.Browser(authURL); err != nil {
		p.log.DebugContext(ctx, "could not open browser", logger.Err(err))
	}
	fmt.Fprintln(out, "If a browser window did not open, visit this URL to authorize sheetmail:")
	fmt.Fprintln(out, authURL)

	if redirected != nil {
		fmt.Fprintln(out, "Waiting for the browser redirect…")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case code := <-redirected:
			return code, nil
		case <-time.After(p.opts.PasteAfter):
			fmt.Fprintln(out, "Timeout waiting for redirect; falling back to manual paste.")
		}
	}

	fmt.Fprintln(out, "Paste the AUTH CODE itself or the FULL redirect URL here, then press Enter.")
	fmt.Fprint(out, "> ")

	type line struct {
		text string
		err  error
	}
	lines := make(chan line, 1)
	go func() {
		sc := bufio.NewScanner(p.opts.In)
		sc.Buffer(make([]byte, 0, 1024), 1024*1024)
		if sc.Scan() {
			lines <- line{text: sc.Text()}
			return
		}
		err := sc.Err()
		if err == nil {
			err = errors.New("empty authorization code")
		}
		lines <- line{err: err}
	}()

	// The loopback server keeps listening while we wait for the paste.
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case code := <-redirected:
		return code, nil
	case l := <-lines:
		if l.err != nil {
			return "", fmt.Errorf("read auth code: %w", l.err)
		}
		return codeFromInput(l.text)
	}
}

type loopback struct {
	redirect string
	codes    chan string
	srv      *http.Server
}

func startLoopback(state string) (*loopback, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen on loopback: %w", err)
	}
	lb := &loopback{
		redirect: fmt.Sprintf("http://127.0.0.1:%d/", ln.Addr().(*net.TCPAddr).Port),
		codes:    make(chan string, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "Missing 'code' parameter", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Authentication complete. You can close this window.")
		select {
		case lb.codes <- code:
		default:
		}
	})
	lb.srv = &http.Server{
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}
	go func() { _ = lb.srv.Serve(ln) }()
	return lb, nil
}

func (lb *loopback) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = lb.srv.Shutdown(ctx)
}
