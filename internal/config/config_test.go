package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Log:     LogConfig{Level: "info"},
		Server:  ServerConfig{Port: "8080", ShutdownTimeout: time.Second},
		Backend: BackendConfig{BaseURL: "http://backend/api", Timeout: time.Second, EditabilityConcurrency: 4, Timezone: "UTC"},
		Metrics: MetricsConfig{DenominatorSource: "countTakenFromTable", HighErrorThreshold: 5},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "LOG_LEVEL"},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "APP_PORT"},
		{name: "missing backend", mutate: func(c *Config) { c.Backend.BaseURL = "" }, wantErr: "BACKEND_BASE_URL"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Backend.EditabilityConcurrency = 0 }, wantErr: "EDITABILITY_CONCURRENCY"},
		{name: "bad timezone", mutate: func(c *Config) { c.Backend.Timezone = "Mars/Olympus" }, wantErr: "BACKEND_TIMEZONE"},
		{name: "bad denominator", mutate: func(c *Config) { c.Metrics.DenominatorSource = "bags" }, wantErr: "RATE_DENOMINATOR"},
		{
			name: "whatsapp without recipient",
			mutate: func(c *Config) {
				c.WhatsApp = WhatsAppConfig{AccessToken: "t", PhoneNumberID: "p", BaseURL: "https://graph", APIVersion: "v20.0"}
			},
			wantErr: "ALERT_RECIPIENT",
		},
		{name: "half sheets config", mutate: func(c *Config) { c.Sheets.SpreadsheetID = "sheet" }, wantErr: "GOOGLE_SHEET"},
		{name: "sync without sheets", mutate: func(c *Config) { c.Scheduler.SheetsSyncCron = "0 0 1 * * *" }, wantErr: "SHEETS_SYNC_CRON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "BACKEND_BASE_URL=http://factory:5000/api\nBACKEND_TIMEOUT=3s\nRATE_DENOMINATOR=tableTotalPackage\nEDITABILITY_CONCURRENCY=2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	for _, key := range []string{"BACKEND_BASE_URL", "BACKEND_TIMEOUT", "RATE_DENOMINATOR", "EDITABILITY_CONCURRENCY"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://factory:5000/api", cfg.Backend.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 2, cfg.Backend.EditabilityConcurrency)
	assert.Equal(t, "tableTotalPackage", cfg.Metrics.DenominatorSource)
	assert.Equal(t, 5.0, cfg.Metrics.HighErrorThreshold)
	assert.False(t, cfg.MongoDB.Enabled())
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT", "soon")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKEND_TIMEOUT")
}
