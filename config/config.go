// Package config loads server configuration from config.toml, BILLING_
// environment variables and built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/warp/billing-engine/billing"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Invoice   InvoiceConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Port string
	// Demo seeds sample clients, projects and entries into an empty store
	// at startup.
	Demo bool
}

// DatabaseConfig holds the SQLite location. ":memory:" keeps everything in
// process.
type DatabaseConfig struct {
	Path string
}

// InvoiceConfig holds invoice assembly defaults
type InvoiceConfig struct {
	Prefix          string
	DefaultTerms    string
	IssueAttempts   int
	StatementMarkup float64 // percent applied to imported statement lines
	Licenses        []LicenseConfig
}

// LicenseConfig is one per-unit catalog item, as [[invoice.licenses]].
type LicenseConfig struct {
	Label string  `mapstructure:"label"`
	Cost  float64 `mapstructure:"cost"`
}

// Catalog converts the configured licenses for the invoice engine.
func (c InvoiceConfig) Catalog() billing.LicenseCatalog {
	catalog := make(billing.LicenseCatalog, 0, len(c.Licenses))
	for _, l := range c.Licenses {
		catalog = append(catalog, billing.LicenseFee{Label: l.Label, Cost: decimal.NewFromFloat(l.Cost)})
	}
	return catalog
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	CORSAllowOrigins []string
}

// SchedulerConfig controls the periodic receivables check
type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Load reads configuration. Priority (highest to lowest):
//  1. Environment variables with BILLING_ prefix (e.g. BILLING_APP_PORT)
//  2. config.toml in the given directories (default ".")
//  3. Built-in defaults
func Load(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("invoice.statement_markup", billing.DefaultStatementMarkup.InexactFloat64())

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Port: v.GetString("app.port"),
			Demo: v.GetBool("app.demo"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Invoice: InvoiceConfig{
			Prefix:          v.GetString("invoice.prefix"),
			DefaultTerms:    v.GetString("invoice.default_terms"),
			IssueAttempts:   v.GetInt("invoice.issue_attempts"),
			StatementMarkup: v.GetFloat64("invoice.statement_markup"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
		},
		Scheduler: SchedulerConfig{
			Enabled:  v.GetBool("scheduler.enabled"),
			Interval: v.GetDuration("scheduler.interval"),
		},
	}

	if err := v.UnmarshalKey("invoice.licenses", &cfg.Invoice.Licenses); err != nil {
		return nil, fmt.Errorf("invoice.licenses: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "billing.db"
	}
	if cfg.Invoice.Prefix == "" {
		cfg.Invoice.Prefix = billing.DefaultInvoicePrefix
	}
	if cfg.Invoice.DefaultTerms == "" {
		cfg.Invoice.DefaultTerms = string(billing.TermsDueOnReceipt)
	}
	if cfg.Invoice.IssueAttempts == 0 {
		cfg.Invoice.IssueAttempts = billing.DefaultIssueAttempts
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = time.Hour
	}
	if len(cfg.HTTP.CORSAllowOrigins) == 0 {
		cfg.HTTP.CORSAllowOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
}

func (c *Config) validate() error {
	if !billing.Terms(c.Invoice.DefaultTerms).Valid() {
		return fmt.Errorf("invoice.default_terms: unknown terms %q", c.Invoice.DefaultTerms)
	}
	if billing.Terms(c.Invoice.DefaultTerms) == billing.TermsCustom {
		return fmt.Errorf("invoice.default_terms: CUSTOM needs a per-invoice date")
	}
	if c.Invoice.IssueAttempts < 1 {
		return fmt.Errorf("invoice.issue_attempts must be at least 1")
	}
	if c.Invoice.StatementMarkup < 0 {
		return fmt.Errorf("invoice.statement_markup must not be negative")
	}
	if c.Scheduler.Interval < 0 {
		return fmt.Errorf("scheduler.interval must not be negative")
	}
	for i, l := range c.Invoice.Licenses {
		if l.Label == "" || l.Cost <= 0 {
			return fmt.Errorf("invoice.licenses[%d]: needs a label and a positive cost", i)
		}
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.App.Port
}
