package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"sportbook/internal/api"
)

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Database struct {
		Path string `yaml:"path"`
		// BackupDir enables periodic backups when non-empty.
		BackupDir           string `yaml:"backup_dir"`
		BackupRetentionDays int    `yaml:"backup_retention_days"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	API struct {
		BaseURL         string `yaml:"base_url"`
		APIKey          string `yaml:"api_key"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"api"`

	Calendar struct {
		WeekStartsOnMonday  bool   `yaml:"week_starts_on_monday"`
		SlotIntervalMinutes int    `yaml:"slot_interval_minutes"`
		DefaultOpenTime     string `yaml:"default_open_time"`
		DefaultCloseTime    string `yaml:"default_close_time"`
	} `yaml:"calendar"`

	Selection struct {
		TimeoutMinutes int `yaml:"timeout_minutes"`
	} `yaml:"selection"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
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

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/sportbook.db"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = api.DefaultBaseURL
	}
	// The env var wins over the file so deployments can point at
	// staging without editing config.yaml.
	if v := os.Getenv("SPORTBOOK_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
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

func (c *Config) SlotInterval() int {
	if c.Calendar.SlotIntervalMinutes <= 0 {
		return 60
	}
	return c.Calendar.SlotIntervalMinutes
}

func (c *Config) SelectionTimeout() time.Duration {
	if c.Selection.TimeoutMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Selection.TimeoutMinutes) * time.Minute
}
