// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Point at an explicit file path so the search path cannot pick up
	// a stray config.yaml from the working directory.
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "sensolog", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 8, cfg.Serial.DataBits)
	assert.Equal(t, time.Second, cfg.Run.Interval)
	assert.Equal(t, time.Duration(0), cfg.Run.Duration)
	assert.Equal(t, "measurements.csv", cfg.Output.CSVFileName)
	assert.False(t, cfg.Server.Enabled)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
app:
  environment: production
run:
  interval: 500ms
  duration: 2h
server:
  enabled: true
  port: "9000"
`))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 500*time.Millisecond, cfg.Run.Interval)
	assert.Equal(t, 2*time.Hour, cfg.Run.Duration)
	assert.Equal(t, "0.0.0.0:9000", cfg.GetServerAddr())
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad environment", "app:\n  environment: prod\n"},
		{"bad log level", "logging:\n  level: verbose\n"},
		{"zero interval", "run:\n  interval: 0s\n"},
		{"negative duration", "run:\n  duration: -1s\n"},
		{"long delimiter", "output:\n  csv_delimiter: ';;'\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestCSVDelimiterRune(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, ';', cfg.CSVDelimiterRune())

	cfg.Output.CSVDelimiter = ","
	assert.Equal(t, ',', cfg.CSVDelimiterRune())
}

func TestGetDatabaseDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "localhost", Port: 5432, User: "postgres",
		Password: "secret", DBName: "sensolog", SSLMode: "disable",
	}}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=sensolog sslmode=disable",
		cfg.GetDatabaseDSN(),
	)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
