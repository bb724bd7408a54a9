package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

// Package config provides configuration management for the PexWall service

// Config struct to hold all configuration data
type Config struct {
	// Pexels
	APIBaseURL       string `mapstructure:"api_base_url"`
	APIKeyValue      string `mapstructure:"api_key"`
	PageSize         int    `mapstructure:"page_size"`
	PagingMaxSize    int    `mapstructure:"paging_max_size"`
	RateLimitPerHour int    `mapstructure:"rate_limit_per_hour"`

	// Database
	DBType     string `mapstructure:"db_type"`
	DBFilePath string `mapstructure:"db_file_path"`
	DBDSN      string `mapstructure:"db_dsn"`

	// Cache
	CacheType          string        `mapstructure:"cache_type"`
	CacheRedisAddr     string        `mapstructure:"cache_redis_addr"`
	CacheRedisPassword string        `mapstructure:"cache_redis_password"`
	CacheRedisDB       int           `mapstructure:"cache_redis_db"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`

	// Server
	ServerAddr string `mapstructure:"server_addr"`

	// Wallpaper
	ImageDir string `mapstructure:"image_dir"`
	SmartFit bool   `mapstructure:"smart_fit"`

	// Work
	AutoRepeatPasses int           `mapstructure:"auto_repeat_passes"`
	WorkPollInterval time.Duration `mapstructure:"work_poll_interval"`
	NetworkCheckURL  string        `mapstructure:"network_check_url"`

	userid string
	mu     sync.RWMutex
}

// GetPath returns the path to the user's config directory
func GetPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.TempDir()
	}
	return filepath.Join(homeDir, "."+strings.ToLower(AppName))
}

// setDefaults registers every key so that env overrides and Unmarshal see it.
func setDefaults(v *viper.Viper) {
	base := GetPath()

	v.SetDefault("api_base_url", DefaultAPIBaseURL)
	v.SetDefault("api_key", "")
	v.SetDefault("page_size", DefaultPageSize)
	v.SetDefault("paging_max_size", DefaultPagingMaxSize)
	v.SetDefault("rate_limit_per_hour", DefaultRateLimitPerHour)

	v.SetDefault("db_type", DefaultDBType)
	v.SetDefault("db_file_path", filepath.Join(base, DefaultDatabaseName+".db"))
	v.SetDefault("db_dsn", "")

	v.SetDefault("cache_type", DefaultCacheType)
	v.SetDefault("cache_redis_addr", "localhost:6379")
	v.SetDefault("cache_redis_password", "")
	v.SetDefault("cache_redis_db", 0)
	v.SetDefault("cache_ttl", "10m")

	v.SetDefault("server_addr", DefaultServerAddr)

	v.SetDefault("image_dir", filepath.Join(base, "images"))
	v.SetDefault("smart_fit", true)

	v.SetDefault("auto_repeat_passes", DefaultAutoRepeatPasses)
	v.SetDefault("work_poll_interval", "30s")
	v.SetDefault("network_check_url", DefaultNetworkCheckURL)
}

// Load reads defaults, the optional config file and PEXWALL_* environment overrides.
// An empty cfgFile looks for config.yaml in the user's config directory; a missing
// default file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(GetPath())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	if u, err := user.Current(); err == nil {
		cfg.userid = u.Uid
	}

	cfg.sanitize()
	return cfg, nil
}

// sanitize clamps values that would otherwise break paging or scheduling.
func (c *Config) sanitize() {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.PageSize > 80 {
		c.PageSize = 80 // Pexels hard limit
	}
	if c.PagingMaxSize < c.PageSize {
		c.PagingMaxSize = c.PageSize
	}
	if c.RateLimitPerHour <= 0 {
		c.RateLimitPerHour = DefaultRateLimitPerHour
	}
	if c.AutoRepeatPasses <= 0 {
		c.AutoRepeatPasses = DefaultAutoRepeatPasses
	}
	if c.WorkPollInterval <= 0 {
		c.WorkPollInterval = 30 * time.Second
	}
	if !strings.HasSuffix(c.APIBaseURL, "/") {
		c.APIBaseURL += "/"
	}
}

// APIKey returns the Pexels API key. An explicit api_key setting wins over the keyring.
func (c *Config) APIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.APIKeyValue != "" {
		return c.APIKeyValue
	}
	apiKey, err := keyring.Get(APIKeyPrefKey, c.userid)
	if err != nil {
		return ""
	}
	return apiKey
}

// SetAPIKey stores the Pexels API key in the OS keyring.
func (c *Config) SetAPIKey(apiKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := keyring.Set(APIKeyPrefKey, c.userid, apiKey); err != nil {
		return fmt.Errorf("failed to save Pexels API key to keyring: %w", err)
	}
	return nil
}

// ClearAPIKey removes the Pexels API key from the OS keyring.
func (c *Config) ClearAPIKey() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := keyring.Delete(APIKeyPrefKey, c.userid)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to clear Pexels API key: %w", err)
	}
	return nil
}

// EnsureDirs creates the directories the service writes into.
func (c *Config) EnsureDirs() error {
	dirs := []string{c.ImageDir}
	if c.DBType == DefaultDBType || c.DBType == "sqlite3" {
		dirs = append(dirs, filepath.Dir(c.DBFilePath))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	return nil
}
