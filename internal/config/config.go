package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Pool struct {
		Minimum int `yaml:"minimum"`
	} `yaml:"pool"`
	Dedup struct {
		Threshold float64 `yaml:"threshold"`
	} `yaml:"dedup"`
	Dynamic struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"dynamic"`
	Dialogs struct {
		ApprovalTTL string `yaml:"approval_ttl"`
		ReviewTTL   string `yaml:"review_ttl"`
	} `yaml:"dialogs"`
	Sweep struct {
		Interval string `yaml:"interval"`
	} `yaml:"sweep"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DupThreshold returns the configured duplicate score floor or the default.
func (c Config) DupThreshold() float64 {
	if c.Dedup.Threshold > 0 {
		return c.Dedup.Threshold
	}
	return 0.75
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
