package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
	} `yaml:"app" json:"app"`

	Backend struct {
		BaseURL        string  `yaml:"base_url" json:"base_url"`
		TimeoutSeconds int     `yaml:"timeout_seconds" json:"timeout_seconds"`
		RequestsPerSec float64 `yaml:"requests_per_sec" json:"requests_per_sec"`
		Burst          int     `yaml:"burst" json:"burst"`
	} `yaml:"backend" json:"backend"`

	Caller struct {
		// UserID comes from the identity provider; every backend call is
		// scoped by it. The auth token itself lives in the OS keychain.
		UserID string `yaml:"user_id" json:"user_id"`
	} `yaml:"caller" json:"caller"`

	Summaries struct {
		AutoRefresh bool `yaml:"auto_refresh" json:"auto_refresh"`
	} `yaml:"summaries" json:"summaries"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
