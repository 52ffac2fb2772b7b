package config

import "time"

// CacheConfig drives the catalog cache middleware, which serves repeated
// anonymous item-browsing GETs straight from Redis.  Authenticated
// requests are never cached, so the only knobs are the entry lifetime and
// an upper bound on the body size worth storing.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* environment variables.  The short
// default TTL keeps newly listed garments from being invisible to
// browsers for more than half a minute.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "catalog"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return cfg
}
