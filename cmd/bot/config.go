package main

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"

	configtypes "github.com/quantaloop/gammabot/internal/config"
)

type config struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
		PoolSize int    `yaml:"pool_size"`
		SSLMode  string `yaml:"ssl_mode"`
	} `yaml:"database"`
	Feed struct {
		GammaURL      string               `yaml:"gamma_url"`
		PollInterval  configtypes.Duration `yaml:"poll_interval"`
		SnapshotLimit int                  `yaml:"snapshot_limit"`
		MarketIDs     []string             `yaml:"market_ids"`
	} `yaml:"feed"`
	Redis struct {
		Addr     string `yaml:"addr"` // empty disables the mirror
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

func readConfig(configPath *string) (*config, error) {
	rawConfig, err := os.ReadFile(*configPath)
	if err != nil {
		return nil, fmt.Errorf("couldn't read file %s: %w", *configPath, err)
	}

	cfg := &config{}
	if err = yaml.Unmarshal(rawConfig, cfg); err != nil {
		return nil, fmt.Errorf("couldn't parse config: %w", err)
	}

	err = validateConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't validate config: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *config) error {
	// Database
	if cfg.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		return fmt.Errorf("database.port must be between 1 and 65535")
	}
	if cfg.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if cfg.Database.Password == "" {
		return fmt.Errorf("database.password is required")
	}
	if cfg.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	if cfg.Database.PoolSize <= 0 {
		return fmt.Errorf("database.pool_size must be greater than 0")
	}
	if cfg.Database.SSLMode == "" {
		return fmt.Errorf("database.ssl_mode is required")
	}

	// Feed
	if cfg.Feed.GammaURL == "" {
		return fmt.Errorf("feed.gamma_url is required")
	}
	if cfg.Feed.SnapshotLimit <= 0 {
		return fmt.Errorf("feed.snapshot_limit must be greater than 0")
	}

	return nil
}
