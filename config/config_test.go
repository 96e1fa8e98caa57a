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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  dsn: "file:lab.db"
auth:
  jwt_secret: "secret"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 33, cfg.Inventory.TotalSystems)
	assert.Equal(t, 14, cfg.Inventory.HighTierSystems)
	assert.Equal(t, 5*time.Second, cfg.Database.OpTimeout)
	assert.Equal(t, 10*time.Second, cfg.Watcher.Interval)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Push.Enabled())
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
database:
  driver: sqlite
  dsn: "file:lab.db"
auth:
  jwt_secret: "from-file"
`)
	t.Setenv("LAB_PORT", "9100")
	t.Setenv("LAB_JWT_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "file:lab.db", cfg.Database.DSN)
}

func TestLoad_Validation(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{
			name: "unknown driver",
			body: "database:\n  driver: mysql\n  dsn: x\nauth:\n  jwt_secret: s\n",
		},
		{
			name: "missing dsn",
			body: "database:\n  driver: sqlite\nauth:\n  jwt_secret: s\n",
		},
		{
			name: "missing secret",
			body: "database:\n  driver: sqlite\n  dsn: x\n",
		},
		{
			name: "more high tier than total",
			body: "database:\n  driver: sqlite\n  dsn: x\nauth:\n  jwt_secret: s\ninventory:\n  total_systems: 4\n  high_tier_systems: 5\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}
