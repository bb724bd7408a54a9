package pexels

// Pexels API paths relative to the configured base URL
const (
	curatedPath = "curated"
	searchPath  = "search"
	photoPath   = "photos/%d"
)

// AuthorizationHeader carries the raw API key; Pexels does not use a Bearer scheme.
const AuthorizationHeader = "Authorization"

// DefaultUserAgent identifies the client to Pexels.
const DefaultUserAgent = "PexWall/2 (+https://github.com/dixieflatline76/PexWall)"

// MaxPerPage is the largest page Pexels will return.
const MaxPerPage = 80
