package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SPREADSHEET_ID", "RANGE_NAME", "EMAIL_SUBJECT", "FIXED_CC", "ATTACHMENT_PATH",
		"TEMPLATE_PATH", "SENDER_EMAIL", "TRACKER_BASE", "TRACKER_TIMEOUT", "TOKEN_JSON",
		"GOOGLE_CREDENTIALS_JSON", "TOKEN_FILE", "CREDENTIALS_FILE", "MAIL_PROVIDER",
		"RESEND_API_KEY", "SEND_DELAY", "LEDGER_PATH", "PORT", "RUN_SCHEDULE",
		"LOG_LEVEL", "LOG_FORMAT", "SENTRY_DSN", "SENTRY_ENVIRONMENT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPREADSHEET_ID", "sheet-1")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sheet-1", cfg.SpreadsheetID)
	assert.Equal(t, "Sheet1!A:C", cfg.RangeName)
	assert.Equal(t, 2*time.Second, cfg.SendDelay)
	assert.Equal(t, 5*time.Second, cfg.TrackerTimeout)
	assert.Equal(t, "token.json", cfg.TokenFile)
	assert.Equal(t, "credentials.json", cfg.CredentialsFile)
	assert.Equal(t, ProviderGmail, cfg.MailProvider)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "8080", cfg.Port)
	assert.Nil(t, cfg.Cc)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPREADSHEET_ID", "sheet-1")
	t.Setenv("RANGE_NAME", "Leads!B:F")
	t.Setenv("FIXED_CC", "a@x.com, b@y.com")
	t.Setenv("TRACKER_BASE", "https://tracker.example.com/")
	t.Setenv("SEND_DELAY", "3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Leads!B:F", cfg.RangeName)
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, cfg.Cc)
	assert.Equal(t, "https://tracker.example.com", cfg.TrackerBase)
	assert.Equal(t, 3*time.Second, cfg.SendDelay)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SPREADSHEET_ID=from-file\nEMAIL_SUBJECT=Hi there\n"), 0o644))
	// godotenv never overrides a key that is present, even when empty.
	require.NoError(t, os.Unsetenv("SPREADSHEET_ID"))
	t.Setenv("EMAIL_SUBJECT", "from env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.SpreadsheetID)
	assert.Equal(t, "from env", cfg.Subject, "real environment wins over the file")
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPREADSHEET_ID", "sheet-1")

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAIL_PROVIDER", "resend")
	t.Setenv("LOG_FORMAT", "xml")
	t.Setenv("TRACKER_BASE", "ftp://nope")

	_, err := Load("")
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "SPREADSHEET_ID is required")
	assert.Contains(t, msg, "RESEND_API_KEY is required")
	assert.Contains(t, msg, "SENDER_EMAIL is required")
	assert.Contains(t, msg, "LOG_FORMAT")
	assert.Contains(t, msg, "TRACKER_BASE")
}
