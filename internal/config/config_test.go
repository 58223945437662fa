package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api", cfg.API.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.API.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.True(t, cfg.Output.Colors)
	assert.Equal(t, DefaultSessionPath(), cfg.Session.Path)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://catalog.example.org/api
  timeout: 5s
session:
  path: /tmp/lib/session.db
logging:
  level: debug
  format: json
output:
  colors: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://catalog.example.org/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "/tmp/lib/session.db", cfg.Session.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Output.Colors)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LIBRARY_API_URL", "http://backend:9000/api")
	t.Setenv("LIBRARY_SESSION_FILE", "/var/tmp/session.db")
	path := writeConfig(t, "logging:\n  level: warn\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://backend:9000/api", cfg.API.BaseURL)
	assert.Equal(t, "/var/tmp/session.db", cfg.Session.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad url", "api:\n  base_url: ftp://x\n", "invalid api base url"},
		{"bad level", "logging:\n  level: loud\n", "invalid logging level"},
		{"bad format", "logging:\n  format: xml\n", "invalid logging format"},
		{"negative timeout", "api:\n  timeout: -1s\n", "invalid api timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDefaultSessionPath_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Equal(t, filepath.Join(dir, "library-catalog", "session.db"), DefaultSessionPath())
}

func TestLoad_NestedEnvKeys(t *testing.T) {
	t.Setenv("LIBRARY_LOGGING_FORMAT", "json")
	t.Setenv("LIBRARY_API_TIMEOUT", "2s")
	t.Setenv("LIBRARY_OUTPUT_COLORS", "false")

	cfg, err := Load(writeConfig(t, "logging:\n  format: text\n"))
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 2*time.Second, cfg.API.Timeout)
	assert.False(t, cfg.Output.Colors)
}
