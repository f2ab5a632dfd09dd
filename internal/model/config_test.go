package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://guest-review-backend.onrender.com/api", cfg.API.BaseURL)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, 5, cfg.Polling.ReviewIntervalSec)
	assert.Equal(t, 1000, cfg.Polling.DashboardIntervalMs)
	assert.Equal(t, "@daily", cfg.Birthday.Schedule)
	assert.Equal(t, 7, cfg.Birthday.WindowDays)
	assert.Equal(t, 20, cfg.Notifications.Capacity)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
api:
  base_url: http://localhost:5000/api
storage:
  backend: memory
notifications:
  capacity: 5
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/api", cfg.API.BaseURL)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 5, cfg.Notifications.Capacity)
	assert.Equal(t, 30, cfg.API.TimeoutSec)
}

func TestLoadConfig_RejectsRedisWithoutURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: redis\n"), 0o600))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "redis_url")
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Polling.ReviewIntervalSec = 10

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10, loaded.Polling.ReviewIntervalSec)
}
