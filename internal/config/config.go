package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models caseline.yml.
type Config struct {
	Server struct {
		Addr             string `yaml:"addr"`
		BasePath         string `yaml:"base_path"`
		JWTSecret        string `yaml:"jwt_secret"`
		AllowActorHeader bool   `yaml:"allow_actor_header"`
	} `yaml:"server"`
	Sweep struct {
		// Schedule is a cron expression driving the periodic evaluator
		// sweep, seed retry and task archiving.
		Schedule string `yaml:"schedule"`
		Disabled bool   `yaml:"disabled"`
	} `yaml:"sweep"`
	Retention struct {
		// ArchiveAfterDays is how long done tasks stay on the board
		// before the sweep archives them.
		ArchiveAfterDays int `yaml:"archive_after_days"`
	} `yaml:"retention"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Retention.ArchiveAfterDays < 0 {
		return fmt.Errorf("config.retention.archive_after_days must not be negative")
	}
	if !c.Sweep.Disabled && c.Sweep.Schedule == "" {
		return fmt.Errorf("config.sweep.schedule is required unless sweep is disabled")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "caseline.yml")
}

// Default returns the default configuration.
func Default() *Config {
	var cfg Config
	cfg.Server.Addr = ":8377"
	cfg.Server.BasePath = "/v0"
	cfg.Sweep.Schedule = "@every 1m"
	cfg.Retention.ArchiveAfterDays = 30
	return &cfg
}

// Load reads config from the workspace, falling back to defaults when the
// file does not exist.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes. Unset fields
// take their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
