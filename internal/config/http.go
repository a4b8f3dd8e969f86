package config

import (
    "fmt"
    "strings"
    "time"

    "github.com/ilyakaznacheev/cleanenv"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// Methods lists the HTTP methods to cache (e.g. GET, HEAD).  TTL defines the
// lifetime of cache entries.  KeyStrategy determines which parts of the request
// contribute to the cache key.
type CacheConfig struct {
    Enabled      bool          `env:"CACHE_ENABLED" env-default:"true"`
    MethodList   string        `env:"CACHE_METHODS" env-default:"GET"`
    TTL          time.Duration `env:"CACHE_TTL" env-default:"30s"`
    KeyStrategy  string        `env:"CACHE_KEY_STRATEGY" env-default:"route_query"`
    Prefix       string        `env:"CACHE_PREFIX" env-default:"ms:cache"`
    MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" env-default:"1048576"`

    Methods map[string]bool `env:"-"`
}

// RateLimitConfig configures the Redis token bucket applied to the
// authenticated API.
type RateLimitConfig struct {
    Enabled        bool          `env:"RATE_LIMIT_ENABLED" env-default:"true"`
    Capacity       int           `env:"RATE_LIMIT_CAPACITY" env-default:"60"`
    RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS" env-default:"1"`
    RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" env-default:"1s"`
    TTL            time.Duration `env:"RATE_LIMIT_TTL" env-default:"10m"`
    KeyStrategy    string        `env:"RATE_LIMIT_KEY_STRATEGY" env-default:"user_route"`
    Prefix         string        `env:"RATE_LIMIT_PREFIX" env-default:"ms:rl"`
    Debug          bool          `env:"RATE_LIMIT_DEBUG" env-default:"false"`
}

// LoadCacheConfig reads the cache settings.  All methods are upper-cased.
func LoadCacheConfig() (CacheConfig, error) {
    var cfg CacheConfig
    if err := cleanenv.ReadEnv(&cfg); err != nil {
        return CacheConfig{}, fmt.Errorf("read cache config: %w", err)
    }
    cfg.Methods = parseMethods(cfg.MethodList)
    return cfg, nil
}

// LoadRateLimitConfig reads the rate limit settings and clamps values that
// would make the bucket unusable.
func LoadRateLimitConfig() (RateLimitConfig, error) {
    var cfg RateLimitConfig
    if err := cleanenv.ReadEnv(&cfg); err != nil {
        return RateLimitConfig{}, fmt.Errorf("read rate limit config: %w", err)
    }
    if cfg.Capacity < 1 { cfg.Capacity = 1 }
    if cfg.RefillTokens < 1 { cfg.RefillTokens = 1 }
    if cfg.RefillInterval <= 0 { cfg.RefillInterval = time.Second }
    if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL { cfg.TTL = minTTL }
    return cfg, nil
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}
