package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type VenueConfig struct {
	Enabled bool   `toml:"enabled"`
	RestURL string `toml:"rest_url"` // empty = adapter default
	WsURL   string `toml:"ws_url"`
}

type ClassConfig struct {
	TTLSeconds int `toml:"ttl_sec"`
	Capacity   int `toml:"capacity"`
}

type FeeConfig struct {
	Maker         float64 `toml:"maker"`
	Taker         float64 `toml:"taker"`
	WithdrawalUSD float64 `toml:"withdrawal_usd"`
}

type Config struct {
	App struct {
		ScanIntervalSec int    `toml:"scan_interval_sec"`
		RetentionMin    int    `toml:"retention_min"`
		LogLevel        string `toml:"log_level"`
	} `toml:"app"`

	Scan struct {
		MinProfitPercent  float64 `toml:"min_profit_percent"`
		MaxRiskScore      float64 `toml:"max_risk_score"`
		MinVolume         float64 `toml:"min_volume"`
		IncludeFees       bool    `toml:"include_fees"`
		IncludeWithdrawal bool    `toml:"include_withdrawal"`
	} `toml:"scan"`

	Symbols struct {
		List []string `toml:"list"`
	} `toml:"symbols"`

	Venues map[string]VenueConfig `toml:"venues"`

	Limiter struct {
		BaseDelayMs      int `toml:"base_delay_ms"`
		MaxDelayMs       int `toml:"max_delay_ms"`
		JitterMs         int `toml:"jitter_ms"`
		MaxRetries       int `toml:"max_retries"`
		GroupStaggerMs   int `toml:"group_stagger_ms"`
		GroupConcurrency int `toml:"group_concurrency"`
	} `toml:"limiter"`

	Cache map[string]ClassConfig `toml:"cache"`

	Fees map[string]FeeConfig `toml:"fees"`

	SQLite struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"sqlite"`

	Postgres struct {
		Enabled bool   `toml:"enabled"`
		DSN     string `toml:"dsn"`
	} `toml:"postgres"`

	Redis struct {
		Enabled  bool   `toml:"enabled"`
		Addr     string `toml:"addr"`
		Password string `toml:"-"` // env only, never in the file
		DB       int    `toml:"db"`
		Prefix   string `toml:"prefix"`
		Stream   string `toml:"stream"`
		Channel  string `toml:"channel"`
	} `toml:"redis"`
}

func Load(path string) (*Config, error) {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv layers connection secrets from the environment over the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.ScanIntervalSec <= 0 {
		cfg.App.ScanIntervalSec = 5
	}
	if cfg.App.RetentionMin <= 0 {
		cfg.App.RetentionMin = 5
	}
	if cfg.Scan.MaxRiskScore <= 0 {
		cfg.Scan.MaxRiskScore = 10
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = "data/arbscan.db"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "arbscan"
	}
}

func validate(cfg *Config) error {
	cfg.Symbols.List = normalizeSymbols(cfg.Symbols.List)
	if len(cfg.Symbols.List) == 0 {
		return errors.New("symbols.list is empty")
	}

	enabled := 0
	for name, vc := range cfg.Venues {
		if strings.TrimSpace(name) == "" {
			return errors.New("venues: empty venue name")
		}
		if vc.Enabled {
			enabled++
		}
	}
	if enabled < 2 {
		return fmt.Errorf("need at least 2 enabled venues for cross-venue comparison, got %d", enabled)
	}

	if cfg.Postgres.Enabled && strings.TrimSpace(cfg.Postgres.DSN) == "" {
		return errors.New("postgres.dsn empty but enabled")
	}
	return nil
}

// EnabledVenues returns the lower-cased names of every enabled venue.
func (c *Config) EnabledVenues() []string {
	var out []string
	for name, vc := range c.Venues {
		if vc.Enabled {
			out = append(out, strings.ToLower(strings.TrimSpace(name)))
		}
	}
	return out
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
