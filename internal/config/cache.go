package config

import "time"

// CacheConfig controls the discovery cache.  When Enabled is false, or no
// Redis client could be created, every read is a miss.  Prefix namespaces
// all keys so several environments can share one Redis.  The TTLs bound how
// stale a cached listing may get; WriteTimeout bounds detached cache writes
// and FetchTimeout bounds a store fetch shared by concurrent misses.
type CacheConfig struct {
	Enabled      bool          `envconfig:"CACHE_ENABLED" default:"true"`
	Prefix       string        `envconfig:"CACHE_PREFIX" default:"lm"`
	HomeTTL      time.Duration `envconfig:"CACHE_HOME_TTL" default:"5m"`
	PlacesTTL    time.Duration `envconfig:"CACHE_PLACES_TTL" default:"5m"`
	ZoneTTL      time.Duration `envconfig:"CACHE_ZONE_TTL" default:"15m"`
	WriteTimeout time.Duration `envconfig:"CACHE_WRITE_TIMEOUT" default:"2s"`
	FetchTimeout time.Duration `envconfig:"CACHE_FETCH_TIMEOUT" default:"10s"`
	ScanCount    int64         `envconfig:"CACHE_SCAN_COUNT" default:"200"`
}
