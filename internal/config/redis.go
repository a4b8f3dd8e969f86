package config

// Redis backs three concerns: the remote document store used by the soft
// sync, distributed rate limiting and HTTP response caching.  If the server
// cannot be reached at startup the constructor returns nil and callers
// degrade gracefully: sync is skipped and the middlewares become no-ops.

import (
    "context"
    "crypto/tls"
    "fmt"
    "time"

    "github.com/ilyakaznacheev/cleanenv"
    "github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings.  REDIS_HOST and REDIS_PORT take
// precedence over REDIS_ADDR when both are set.
type RedisConfig struct {
    Host     string `env:"REDIS_HOST"`
    Port     string `env:"REDIS_PORT"`
    Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
    Password string `env:"REDIS_PASSWORD"`
    DB       int    `env:"REDIS_DB" env-default:"0"`
    TLS      bool   `env:"REDIS_TLS" env-default:"false"`
}

// LoadRedisConfig reads RedisConfig from the environment.
func LoadRedisConfig() (RedisConfig, error) {
    var cfg RedisConfig
    if err := cleanenv.ReadEnv(&cfg); err != nil {
        return RedisConfig{}, fmt.Errorf("read redis config: %w", err)
    }
    if cfg.Host != "" && cfg.Port != "" {
        cfg.Addr = cfg.Host + ":" + cfg.Port
    }
    return cfg, nil
}

// NewRedisClient instantiates a Redis client and pings it.  The returned
// client is nil if a connection cannot be established.
func NewRedisClient(cfg RedisConfig) *redis.Client {
    var tlsConf *tls.Config
    if cfg.TLS {
        tlsConf = &tls.Config{InsecureSkipVerify: true}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      cfg.Addr,
        Password:  cfg.Password,
        DB:        cfg.DB,
        TLSConfig: tlsConf,
    })
    // Ping the server with a short timeout.  Return nil on failure.
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
