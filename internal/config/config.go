package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Log       LogConfig
	Server    ServerConfig
	Backend   BackendConfig
	Metrics   MetricsConfig
	WhatsApp  WhatsAppConfig
	Alerts    AlertsConfig
	Sheets    SheetsConfig
	Scheduler SchedulerConfig
	MongoDB   MongoDBConfig
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// BackendConfig points at the production REST backend.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
	// EditabilityConcurrency bounds the per-row editability checks of a listing.
	EditabilityConcurrency int
	// Timezone is the zone of the backend's zone-less timestamps.
	Timezone string
}

// MetricsConfig controls local rate recomputation.
type MetricsConfig struct {
	DenominatorSource  string
	HighErrorThreshold float64
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
}

// Enabled reports whether WhatsApp credentials are present.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

// AlertsConfig names who receives high defect rate notifications.
type AlertsConfig struct {
	Recipient string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	SheetName       string
}

// Enabled reports whether a spreadsheet is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// SchedulerConfig holds cron expressions of periodic jobs. Empty disables a job.
type SchedulerConfig struct {
	SummaryCron    string
	SheetsSyncCron string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Enabled reports whether the audit store is configured.
func (c MongoDBConfig) Enabled() bool {
	return c.URI != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// a missing .env is fine when the environment is set directly
		_ = godotenv.Load()
	}

	backendTimeout, err := getenvDuration("BACKEND_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	concurrency, err := getenvInt("EDITABILITY_CONCURRENCY", 8)
	if err != nil {
		return nil, err
	}
	threshold, err := getenvFloat("HIGH_ERROR_RATE_THRESHOLD", 5)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:            getenvWithDefault("APP_PORT", "8080"),
			ShutdownTimeout: shutdownTimeout,
		},
		Backend: BackendConfig{
			BaseURL:                getenvWithDefault("BACKEND_BASE_URL", "http://localhost:5000/api"),
			Timeout:                backendTimeout,
			EditabilityConcurrency: concurrency,
			Timezone:               getenvWithDefault("BACKEND_TIMEZONE", "Europe/Istanbul"),
		},
		Metrics: MetricsConfig{
			DenominatorSource:  getenvWithDefault("RATE_DENOMINATOR", "countTakenFromTable"),
			HighErrorThreshold: threshold,
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
		},
		Alerts: AlertsConfig{
			Recipient: os.Getenv("ALERT_RECIPIENT"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_ID"),
			SheetName:       getenvWithDefault("GOOGLE_SHEET_NAME", "Production"),
		},
		Scheduler: SchedulerConfig{
			SummaryCron:    os.Getenv("SUMMARY_CRON"),
			SheetsSyncCron: os.Getenv("SHEETS_SYNC_CRON"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "knittrack"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not supported", c.Log.Level)
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.Backend.BaseURL == "":
		return errors.New("BACKEND_BASE_URL must be provided")
	case c.Backend.Timeout <= 0:
		return errors.New("BACKEND_TIMEOUT must be positive")
	case c.Backend.EditabilityConcurrency <= 0:
		return errors.New("EDITABILITY_CONCURRENCY must be positive")
	}

	if _, err := time.LoadLocation(c.Backend.Timezone); err != nil {
		return fmt.Errorf("BACKEND_TIMEZONE is invalid: %w", err)
	}

	switch c.Metrics.DenominatorSource {
	case "countTakenFromTable", "countTakenFromMachine", "tableTotalPackage":
	default:
		return fmt.Errorf("RATE_DENOMINATOR %q is not supported", c.Metrics.DenominatorSource)
	}

	if c.Metrics.HighErrorThreshold < 0 {
		return errors.New("HIGH_ERROR_RATE_THRESHOLD must not be negative")
	}

	if c.WhatsApp.Enabled() {
		if c.WhatsApp.BaseURL == "" {
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		}
		if c.WhatsApp.APIVersion == "" {
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
		if c.Alerts.Recipient == "" {
			return errors.New("ALERT_RECIPIENT must be provided when WhatsApp is configured")
		}
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_ID must be provided together")
	}

	if c.Scheduler.SheetsSyncCron != "" && !c.Sheets.Enabled() {
		return errors.New("SHEETS_SYNC_CRON requires Google Sheets configuration")
	}

	return nil
}

// Location resolves the backend timezone. Validate guarantees it loads.
func (c BackendConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func getenvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return f, nil
}
