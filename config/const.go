package config

import "strings"

// AppVersion is the version of the service, stamped at build time.
var AppVersion string

// AppName is the name of the service.
const AppName = "PexWall"

// LogWinSubDir is the sub directory for the log files on windows.
var LogWinSubDir = AppName

// LogSubDir is the sub directory for the log files.
var LogSubDir = "." + strings.ToLower(AppName)

// LogExt is the extension for the log files.
var LogExt = ".log"

// EnvPrefix prefixes every environment override, e.g. PEXWALL_API_KEY.
const EnvPrefix = "PEXWALL"

// Pexels API defaults
const (
	DefaultAPIBaseURL       = "https://api.pexels.com/v1/"
	DefaultPageSize         = 20
	DefaultPagingMaxSize    = 200
	DefaultRateLimitPerHour = 200
)

// Storage defaults
const (
	DefaultDatabaseName = "wallpaper_database"
	DefaultCacheType    = "memory"
	DefaultDBType       = "sqlite"
)

// Work defaults
const (
	DefaultAutoRepeatPasses = 3
	DefaultNetworkCheckURL  = "https://connectivitycheck.gstatic.com/generate_204"
	DefaultServerAddr       = "127.0.0.1:49453"
)

// APIKeyPrefKey is the keyring entry holding the Pexels API key.
const APIKeyPrefKey = "pexels_api_key"
