package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api-server.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDatabasePool(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: postgres://localhost/mseller
  max_open_conns: 25
  max_idle_conns: 5
  conn_max_lifetime: 5m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/mseller", cfg.Database.DSN)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: postgres://localhost/mseller
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTokenTTL)
	assert.Equal(t, 30*time.Second, cfg.Renderer.Timeout)
	assert.Equal(t, 0.5, cfg.Recaptcha.MinScore)
	assert.Equal(t, "https://graph.facebook.com/v17.0", cfg.WhatsApp.GraphURL)
	assert.Zero(t, cfg.Database.MaxOpenConns)
}

func TestLoadPortalEndpoints(t *testing.T) {
	path := writeConfig(t, `
portal:
  base_url: https://portal.example.com
  server_url: https://sync.example.com
  server_port: "443"
  sandbox_url: https://sandbox.example.com
  sandbox_port: "8443"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://portal.example.com", cfg.Portal.BaseURL)
	assert.Equal(t, "https://sync.example.com", cfg.Portal.ServerURL)
	assert.Equal(t, "443", cfg.Portal.ServerPort)
	assert.Equal(t, "https://sandbox.example.com", cfg.Portal.SandboxURL)
	assert.Equal(t, "8443", cfg.Portal.SandboxPort)
}
