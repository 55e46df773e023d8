// Package config resolves stocklens settings from defaults, an optional
// YAML file, and environment overrides, in that order.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting.
type Config struct {
	Server struct {
		Port         string `yaml:"port"`
		DatabasePath string `yaml:"database_path"`
		UploadsDir   string `yaml:"uploads_dir"`
	} `yaml:"server"`
	Extraction struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
	} `yaml:"extraction"`
	Client struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"client"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	var cfg Config
	cfg.Server.Port = "8888"
	cfg.Server.DatabasePath = "stocklens.db"
	cfg.Server.UploadsDir = "uploads"
	cfg.Client.BaseURL = "http://localhost:8888/api"
	return cfg
}

// Load resolves the configuration. path may be empty, in which case
// stocklens.yaml is used when present and silently skipped otherwise; an
// explicit path that cannot be read is an error.
func Load(path string) (Config, error) {
	cfg := Defaults()

	explicit := path != ""
	if path == "" {
		path = "stocklens.yaml"
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case explicit:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if v := os.Getenv("STOCKLENS_PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("STOCKLENS_DB"); v != "" {
		cfg.Server.DatabasePath = v
	}
	if v := os.Getenv("STOCKLENS_UPLOADS"); v != "" {
		cfg.Server.UploadsDir = v
	}
	if v := os.Getenv("STOCKLENS_API_URL"); v != "" {
		cfg.Client.BaseURL = v
	}
	if v := os.Getenv("EXTRACTION_PROVIDER"); v != "" {
		cfg.Extraction.Provider = v
	}
	if v := os.Getenv("EXTRACTION_MODEL"); v != "" {
		cfg.Extraction.Model = v
	}
	return cfg, nil
}
