package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CINEMARKET_SERVER_PORT.
const EnvPrefix = "CINEMARKET"

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Market    MarketConfig    `mapstructure:"market"`
	Portfolio PortfolioConfig `mapstructure:"portfolio"`
	Limits    LimitsConfig    `mapstructure:"limits"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Development bool   `mapstructure:"development"`
}

type StorageConfig struct {
	Backend  string         `mapstructure:"backend"` // memory, redis, postgres or s3
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	S3       S3Config       `mapstructure:"s3"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
	// CacheTTL enables a Redis read-through cache in front of the postgres
	// and s3 backends when both a URL and a positive TTL are set.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// CatalogConfig selects the movie metadata source. Without a TMDB API key
// the server runs on the built-in sample catalog.
type CatalogConfig struct {
	TMDB TMDBConfig `mapstructure:"tmdb"`
}

type TMDBConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MarketConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	Watchlist    []int64       `mapstructure:"watchlist"`
	Seed         int64         `mapstructure:"seed"` // 0 seeds from the clock
}

type PortfolioConfig struct {
	InitialCash float64 `mapstructure:"initial_cash"`
}

// LimitsConfig holds position limits. Zero disables a limit.
type LimitsConfig struct {
	MaxSharesPerMovie  int64   `mapstructure:"max_shares_per_movie"`
	MaxPositionPercent float64 `mapstructure:"max_position_percent"`
}

// Load reads configuration from path layered over Defaults. An empty path
// loads defaults and environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand ${VAR} references in string values
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if ok && strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Defaults returns a config that runs a single in-memory instance.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend: "memory",
			Redis: RedisConfig{
				CacheTTL: 30 * time.Second,
			},
			S3: S3Config{
				Region: "us-east-1",
				Prefix: "cinemarket",
			},
		},
		Catalog: CatalogConfig{
			TMDB: TMDBConfig{
				BaseURL: "https://api.themoviedb.org/3",
				Timeout: 10 * time.Second,
			},
		},
		Market: MarketConfig{
			TickInterval: 5 * time.Second,
		},
		Portfolio: PortfolioConfig{
			InitialCash: 100000,
		},
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.development", d.Server.Development)

	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.redis.url", d.Storage.Redis.URL)
	v.SetDefault("storage.redis.cache_ttl", d.Storage.Redis.CacheTTL)
	v.SetDefault("storage.postgres.dsn", d.Storage.Postgres.DSN)
	v.SetDefault("storage.s3.bucket", d.Storage.S3.Bucket)
	v.SetDefault("storage.s3.endpoint", d.Storage.S3.Endpoint)
	v.SetDefault("storage.s3.region", d.Storage.S3.Region)
	v.SetDefault("storage.s3.access_key", d.Storage.S3.AccessKey)
	v.SetDefault("storage.s3.secret_key", d.Storage.S3.SecretKey)
	v.SetDefault("storage.s3.prefix", d.Storage.S3.Prefix)

	v.SetDefault("catalog.tmdb.api_key", d.Catalog.TMDB.APIKey)
	v.SetDefault("catalog.tmdb.base_url", d.Catalog.TMDB.BaseURL)
	v.SetDefault("catalog.tmdb.timeout", d.Catalog.TMDB.Timeout)

	v.SetDefault("market.tick_interval", d.Market.TickInterval)
	v.SetDefault("market.watchlist", d.Market.Watchlist)
	v.SetDefault("market.seed", d.Market.Seed)

	v.SetDefault("portfolio.initial_cash", d.Portfolio.InitialCash)

	v.SetDefault("limits.max_shares_per_movie", d.Limits.MaxSharesPerMovie)
	v.SetDefault("limits.max_position_percent", d.Limits.MaxPositionPercent)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalid, c.Server.Port)
	}

	switch c.Storage.Backend {
	case "memory", "":
	case "redis":
		if c.Storage.Redis.URL == "" {
			return fmt.Errorf("%w: storage.redis.url required for redis backend", ErrInvalid)
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("%w: storage.postgres.dsn required for postgres backend", ErrInvalid)
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("%w: storage.s3.bucket required for s3 backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalid, c.Storage.Backend)
	}

	if c.Market.TickInterval < 0 {
		return fmt.Errorf("%w: tick_interval cannot be negative, got %s", ErrInvalid, c.Market.TickInterval)
	}
	for _, id := range c.Market.Watchlist {
		if id <= 0 {
			return fmt.Errorf("%w: watchlist movie ids must be positive, got %d", ErrInvalid, id)
		}
	}

	if c.Portfolio.InitialCash <= 0 {
		return fmt.Errorf("%w: initial_cash must be positive, got %f", ErrInvalid, c.Portfolio.InitialCash)
	}

	if c.Limits.MaxSharesPerMovie < 0 {
		return fmt.Errorf("%w: max_shares_per_movie cannot be negative, got %d", ErrInvalid, c.Limits.MaxSharesPerMovie)
	}
	if c.Limits.MaxPositionPercent < 0 || c.Limits.MaxPositionPercent > 100 {
		return fmt.Errorf("%w: max_position_percent must be between 0 and 100, got %f", ErrInvalid, c.Limits.MaxPositionPercent)
	}

	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
