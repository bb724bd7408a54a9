package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	// An explicit file that does not exist is an error
	assert.Error(t, err)
	assert.Nil(t, cfg)

	t.Setenv("HOME", t.TempDir())
	cfg, err = Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIBaseURL, cfg.APIBaseURL)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
	assert.Equal(t, DefaultPagingMaxSize, cfg.PagingMaxSize)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "memory", cfg.CacheType)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.WorkPollInterval)
	assert.Equal(t, DefaultAutoRepeatPasses, cfg.AutoRepeatPasses)
	assert.True(t, cfg.SmartFit)
	assert.Equal(t, DefaultDatabaseName+".db", filepath.Base(cfg.DBFilePath))
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	content := []byte("page_size: 40\ncache_type: redis\napi_base_url: http://localhost:9999/v1\nsmart_fit: false\n")
	require.NoError(t, os.WriteFile(cfgFile, content, 0644))

	t.Setenv("PEXWALL_SERVER_ADDR", "0.0.0.0:8088")
	t.Setenv("PEXWALL_API_KEY", "env-key")

	cfg, err := Load(cfgFile)
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.PageSize)
	assert.Equal(t, "redis", cfg.CacheType)
	assert.Equal(t, "http://localhost:9999/v1/", cfg.APIBaseURL, "base URL gets a trailing slash")
	assert.False(t, cfg.SmartFit)
	assert.Equal(t, "0.0.0.0:8088", cfg.ServerAddr)
	assert.Equal(t, "env-key", cfg.APIKey())
}

func TestSanitize(t *testing.T) {
	cfg := &Config{PageSize: 500, PagingMaxSize: 1, APIBaseURL: "http://x"}
	cfg.sanitize()

	assert.Equal(t, 80, cfg.PageSize)
	assert.Equal(t, 80, cfg.PagingMaxSize)
	assert.Equal(t, DefaultRateLimitPerHour, cfg.RateLimitPerHour)
	assert.Equal(t, DefaultAutoRepeatPasses, cfg.AutoRepeatPasses)
	assert.Equal(t, "http://x/", cfg.APIBaseURL)
}

func TestAPIKeyKeyring(t *testing.T) {
	keyring.MockInit()

	cfg := &Config{userid: "1000"}
	assert.Empty(t, cfg.APIKey())

	require.NoError(t, cfg.SetAPIKey("stored-key"))
	assert.Equal(t, "stored-key", cfg.APIKey())

	cfg.APIKeyValue = "explicit"
	assert.Equal(t, "explicit", cfg.APIKey(), "explicit setting wins over keyring")
	cfg.APIKeyValue = ""

	require.NoError(t, cfg.ClearAPIKey())
	assert.Empty(t, cfg.APIKey())

	// Clearing twice is fine
	assert.NoError(t, cfg.ClearAPIKey())
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		DBType:     "sqlite",
		DBFilePath: filepath.Join(dir, "db", "wallpaper_database.db"),
		ImageDir:   filepath.Join(dir, "images"),
	}
	require.NoError(t, cfg.EnsureDirs())

	for _, d := range []string{filepath.Join(dir, "db"), cfg.ImageDir} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
