package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// GIVEN: no config file and no BILLING_ variables
	cfg, err := Load(t.TempDir())

	// THEN: built-in defaults apply
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.False(t, cfg.App.Demo)
	assert.Equal(t, "billing.db", cfg.Database.Path)
	assert.Equal(t, "T", cfg.Invoice.Prefix)
	assert.Equal(t, "DUE_ON_RECEIPT", cfg.Invoice.DefaultTerms)
	assert.Equal(t, 3, cfg.Invoice.IssueAttempts)
	assert.Equal(t, 20.0, cfg.Invoice.StatementMarkup)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_FileAndEnv(t *testing.T) {
	// GIVEN: a config file
	dir := t.TempDir()
	toml := `
[app]
port = "9000"

[database]
path = "/var/lib/billing/books.db"

[invoice]
prefix = "AG"
default_terms = "NET_30"

[[invoice.licenses]]
label = "Stock Photo License"
cost = 49.5

[log]
format = "json"

[scheduler]
enabled = false
interval = "15m"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o644))

	// AND: an env override for one of its keys
	t.Setenv("BILLING_APP_PORT", "9100")
	t.Setenv("BILLING_LOG_LEVEL", "debug")

	// WHEN
	cfg, err := Load(dir)

	// THEN: env beats file, file beats defaults
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.App.Port)
	assert.Equal(t, "/var/lib/billing/books.db", cfg.Database.Path)
	assert.Equal(t, "AG", cfg.Invoice.Prefix)
	assert.Equal(t, "NET_30", cfg.Invoice.DefaultTerms)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Interval)

	catalog := cfg.Invoice.Catalog()
	require.Len(t, catalog, 1)
	fee, ok := catalog.Lookup("Stock Photo License")
	assert.True(t, ok)
	assert.Equal(t, "49.5", fee.Cost.String())
}

func TestLoad_RejectsBadTerms(t *testing.T) {
	tests := []struct {
		name  string
		terms string
	}{
		{"unknown", "NET_45"},
		{"custom has no date", "CUSTOM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BILLING_INVOICE_DEFAULT_TERMS", tt.terms)

			_, err := Load(t.TempDir())

			assert.Error(t, err)
		})
	}
}

func TestLoad_RejectsNegativeMarkup(t *testing.T) {
	t.Setenv("BILLING_INVOICE_STATEMENT_MARKUP", "-5")

	_, err := Load(t.TempDir())

	assert.Error(t, err)
}

func TestLoad_ZeroMarkupIsKept(t *testing.T) {
	// GIVEN: a file that turns statement markup off
	dir := t.TempDir()
	toml := `
[invoice]
statement_markup = 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o644))

	// WHEN
	cfg, err := Load(dir)

	// THEN: zero is a setting, not a missing value
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Invoice.StatementMarkup)
}

func TestLoad_RejectsFreeLicense(t *testing.T) {
	dir := t.TempDir()
	toml := `
[[invoice.licenses]]
label = "Font License"
cost = 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o644))

	_, err := Load(dir)

	assert.Error(t, err)
}
