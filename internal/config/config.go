package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
	} `yaml:"server"`

	API struct {
		BaseURL         string `yaml:"base_url"`
		APIKey          string `yaml:"api_key"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"api"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Snapshots struct {
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"snapshots"`

	Poller struct {
		Enabled         bool `yaml:"enabled"`
		IntervalSeconds int  `yaml:"interval_seconds"`
		BurstLimit      int  `yaml:"burst_limit"`
	} `yaml:"poller"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Export struct {
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		CredentialsFile string `yaml:"credentials_file"`
		SheetName       string `yaml:"sheet_name"`
	} `yaml:"export"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	if cfg.Snapshots.Path == "" {
		cfg.Snapshots.Path = "data/pawboard.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Snapshots.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) CacheTTL() time.Duration {
	if c.API.CacheTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	if c.Poller.IntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Poller.IntervalSeconds) * time.Second
}

func (c *Config) SnapshotRetention() time.Duration {
	if c.Snapshots.RetentionDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.Snapshots.RetentionDays) * 24 * time.Hour
}
