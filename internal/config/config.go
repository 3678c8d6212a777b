// Package config loads and validates the process configuration once at
// startup. Every other package receives typed values through constructors;
// nothing else reads os.Getenv.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"sheetmail/internal/util"
)

// Config is the fully-parsed, immutable run configuration.
type Config struct {
	// ── Sheet ─────────────────────────────────────────────────────────────────
	SpreadsheetID string
	RangeName     string // default "Sheet1!A:C"

	// ── Message ───────────────────────────────────────────────────────────────
	Subject        string   // EMAIL_SUBJECT; empty means template or built-in default
	Cc             []string // FIXED_CC, comma separated
	AttachmentPath string
	TemplatePath   string
	SenderEmail    string // fallback when the profile lookup fails

	// ── Tracker ───────────────────────────────────────────────────────────────
	TrackerBase    string
	TrackerTimeout time.Duration // default 5s

	// ── Credentials ───────────────────────────────────────────────────────────
	TokenJSON       string // inline authorized-user credential (headless)
	CredentialsJSON string // inline OAuth client-secret document
	TokenFile       string // default "token.json"
	CredentialsFile string // default "credentials.json"

	// ── Provider ──────────────────────────────────────────────────────────────
	MailProvider string // "gmail" | "resend"
	ResendAPIKey string

	// ── Run ───────────────────────────────────────────────────────────────────
	SendDelay  time.Duration // default 2s
	LedgerPath string        // empty disables the send ledger

	// ── Server ────────────────────────────────────────────────────────────────
	Port        string // default "8080"
	RunSchedule string // cron spec; empty disables scheduled runs

	// ── Logging ───────────────────────────────────────────────────────────────
	LogLevel          slog.Level
	LogFormat         string // "text" | "json"
	SentryDSN         string
	SentryEnvironment string
}

const (
	ProviderGmail  = "gmail"
	ProviderResend = "resend"
)

// Load reads the environment (after merging envFile, when present) and
// returns a validated Config. Real environment variables always take
// precedence over values from the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	c := &Config{
		SpreadsheetID:     os.Getenv("SPREADSHEET_ID"),
		RangeName:         getEnv("RANGE_NAME", "Sheet1!A:C"),
		Subject:           os.Getenv("EMAIL_SUBJECT"),
		Cc:                util.SplitAddresses(os.Getenv("FIXED_CC")),
		AttachmentPath:    os.Getenv("ATTACHMENT_PATH"),
		TemplatePath:      os.Getenv("TEMPLATE_PATH"),
		SenderEmail:       os.Getenv("SENDER_EMAIL"),
		TrackerBase:       strings.TrimRight(os.Getenv("TRACKER_BASE"), "/"),
		TrackerTimeout:    getEnvAsDuration("TRACKER_TIMEOUT", 5*time.Second),
		TokenJSON:         os.Getenv("TOKEN_JSON"),
		CredentialsJSON:   os.Getenv("GOOGLE_CREDENTIALS_JSON"),
		TokenFile:         getEnv("TOKEN_FILE", "token.json"),
		CredentialsFile:   getEnv("CREDENTIALS_FILE", "credentials.json"),
		MailProvider:      strings.ToLower(getEnv("MAIL_PROVIDER", ProviderGmail)),
		ResendAPIKey:      os.Getenv("RESEND_API_KEY"),
		SendDelay:         getEnvAsDuration("SEND_DELAY", 2*time.Second),
		LedgerPath:        os.Getenv("LEDGER_PATH"),
		Port:              getEnv("PORT", "8080"),
		RunSchedule:       os.Getenv("RUN_SCHEDULE"),
		LogLevel:          getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "production"),
	}

	return c, c.Validate()
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.SpreadsheetID == "" {
		errs = append(errs, errors.New("SPREADSHEET_ID is required"))
	}
	if c.RangeName == "" {
		errs = append(errs, errors.New("RANGE_NAME must not be empty"))
	}
	switch c.MailProvider {
	case ProviderGmail:
	case ProviderResend:
		if c.ResendAPIKey == "" {
			errs = append(errs, errors.New("RESEND_API_KEY is required when MAIL_PROVIDER=resend"))
		}
		if c.SenderEmail == "" {
			errs = append(errs, errors.New("SENDER_EMAIL is required when MAIL_PROVIDER=resend"))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_PROVIDER %q is not supported", c.MailProvider))
	}
	if c.SendDelay < 0 {
		errs = append(errs, errors.New("SEND_DELAY must not be negative"))
	}
	if c.TrackerBase != "" && !strings.HasPrefix(c.TrackerBase, "http://") && !strings.HasPrefix(c.TrackerBase, "https://") {
		errs = append(errs, fmt.Errorf("TRACKER_BASE %q must be an http(s) URL", c.TrackerBase))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be text or json", c.LogFormat))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Bare numbers are seconds.
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvAsLevel(key string, fallback slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return lvl
}
