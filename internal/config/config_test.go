package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
server:
  host: "127.0.0.1"
  port: 9090

storage:
  backend: postgres
  postgres:
    dsn: "postgres://localhost:5432/cinemarket"

market:
  tick_interval: 2s
  watchlist: [550, 603, 27205]

limits:
  max_shares_per_movie: 500
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "postgres" {
		t.Errorf("expected postgres, got %s", cfg.Storage.Backend)
	}
	if cfg.Market.TickInterval != 2*time.Second {
		t.Errorf("expected 2s tick interval, got %s", cfg.Market.TickInterval)
	}
	if len(cfg.Market.Watchlist) != 3 || cfg.Market.Watchlist[2] != 27205 {
		t.Errorf("unexpected watchlist %v", cfg.Market.Watchlist)
	}
	if cfg.Limits.MaxSharesPerMovie != 500 {
		t.Errorf("expected max_shares_per_movie 500, got %d", cfg.Limits.MaxSharesPerMovie)
	}

	// Keys absent from the file keep their defaults.
	if cfg.Portfolio.InitialCash != 100000 {
		t.Errorf("expected default initial cash, got %f", cfg.Portfolio.InitialCash)
	}
	if cfg.Catalog.TMDB.Timeout != 10*time.Second {
		t.Errorf("expected default tmdb timeout, got %s", cfg.Catalog.TMDB.Timeout)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CINEMARKET_SERVER_PORT", "7070")
	t.Setenv("CINEMARKET_PORTFOLIO_INITIAL_CASH", "5000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected port 7070 from env, got %d", cfg.Server.Port)
	}
	if cfg.Portfolio.InitialCash != 5000 {
		t.Errorf("expected initial cash 5000 from env, got %f", cfg.Portfolio.InitialCash)
	}
}

func TestLoad_ExpandsEnvReferences(t *testing.T) {
	t.Setenv("TEST_TMDB_KEY", "secret-key")
	content := []byte(`
catalog:
  tmdb:
    api_key: "${TEST_TMDB_KEY}"
`)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Catalog.TMDB.APIKey != "secret-key" {
		t.Errorf("expected expanded api key, got %q", cfg.Catalog.TMDB.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected memory backend, got %s", cfg.Storage.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func(mut func(c *Config)) Config {
		c := *Defaults()
		mut(&c)
		return c
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid config", cfg: valid(func(*Config) {}), wantErr: false},
		{name: "invalid port - zero", cfg: valid(func(c *Config) { c.Server.Port = 0 }), wantErr: true},
		{name: "invalid port - too high", cfg: valid(func(c *Config) { c.Server.Port = 70000 }), wantErr: true},
		{name: "unknown backend", cfg: valid(func(c *Config) { c.Storage.Backend = "mongo" }), wantErr: true},
		{name: "redis without url", cfg: valid(func(c *Config) { c.Storage.Backend = "redis" }), wantErr: true},
		{name: "postgres without dsn", cfg: valid(func(c *Config) { c.Storage.Backend = "postgres" }), wantErr: true},
		{name: "s3 without bucket", cfg: valid(func(c *Config) { c.Storage.Backend = "s3" }), wantErr: true},
		{name: "zero initial cash", cfg: valid(func(c *Config) { c.Portfolio.InitialCash = 0 }), wantErr: true},
		{name: "bad watchlist id", cfg: valid(func(c *Config) { c.Market.Watchlist = []int64{550, 0} }), wantErr: true},
		{name: "negative share limit", cfg: valid(func(c *Config) { c.Limits.MaxSharesPerMovie = -1 }), wantErr: true},
		{name: "position percent over 100", cfg: valid(func(c *Config) { c.Limits.MaxPositionPercent = 150 }), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error %v does not wrap ErrInvalid", err)
			}
		})
	}
}
