package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"sheetmail/internal/model"
)

// storedCredential accepts both the authorized-user document written by
// Google's client libraries ("token", "client_id", "token_uri", ...) and a
// plain oauth2.Token ("access_token", ...).
type storedCredential struct {
	Token        string   `json:"token,omitempty"`
	AccessToken  string   `json:"access_token,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	TokenType    string   `json:"token_type,omitempty"`
	TokenURI     string   `json:"token_uri,omitempty"`
	ClientID     string   `json:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	Expiry       string   `json:"expiry,omitempty"`
}

// Google's Python libraries write naive UTC timestamps.
var expiryLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"}

func parseCredential(b []byte) (*storedCredential, error) {
	var c storedCredential
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrCredentialParse, err)
	}
	if c.Token == "" {
		c.Token = c.AccessToken
	}
	if c.Token == "" && c.RefreshToken == "" {
		return nil, fmt.Errorf("%w: neither an access nor a refresh token", model.ErrCredentialParse)
	}
	return &c, nil
}

func (c *storedCredential) token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  c.Token,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, c.Expiry); err == nil {
			tok.Expiry = t.UTC()
			break
		}
	}
	return tok
}

// config returns the client the credential was issued to, if it says.
func (c *storedCredential) config() *oauth2.Config {
	if c.ClientID == "" {
		return nil
	}
	ep := google.Endpoint
	if c.TokenURI != "" {
		ep.TokenURL = c.TokenURI
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     ep,
		Scopes:       Scopes,
	}
}

func newStoredCredential(cfg *oauth2.Config, tok *oauth2.Token) *storedCredential {
	c := &storedCredential{
		Token:        tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Scopes:       Scopes,
	}
	if !tok.Expiry.IsZero() {
		c.Expiry = tok.Expiry.UTC().Format(time.RFC3339Nano)
	}
	if cfg != nil {
		c.ClientID = cfg.ClientID
		c.ClientSecret = cfg.ClientSecret
		c.TokenURI = cfg.Endpoint.TokenURL
	}
	return c
}

// saveCredential writes via a temp file and rename so a crash never leaves a
// truncated token behind.
func saveCredential(path string, c *storedCredential) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// clientSecretConfig parses an installed-app (or web) client secret document.
func clientSecretConfig(b []byte) (*oauth2.Config, error) {
	cfg, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: client secret: %w", model.ErrCredentialParse, err)
	}
	return cfg, nil
}

// codeFromInput accepts either the bare code or the whole redirect URL.
func codeFromInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty authorization code")
	}
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parse redirect URL: %w", err)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", errors.New("no 'code' parameter found in pasted URL")
	}
	return code, nil
}
