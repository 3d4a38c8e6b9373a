package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Output  Output  `yaml:"output"`
	Landing Landing `yaml:"landing"`
	Scores  Scores  `yaml:"scores"`
	Logging Logging `yaml:"logging"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Landing struct {
	Dir string `yaml:"dir"`
}

// Scores bounds the ordinal score domain accepted by the unfold stage.
type Scores struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for animemart.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "animemart")
}

// DataDir returns the XDG data directory for animemart.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "animemart")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/animemart/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'animemart init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Scores:  Scores{Min: 1, Max: 10},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Scores.Min > cfg.Scores.Max {
		return nil, fmt.Errorf("invalid score domain: min %d > max %d", cfg.Scores.Min, cfg.Scores.Max)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetLandingDir returns the landing directory where the upstream producer
// deposits raw batch files. Defaults to <data_dir>/landing.
func (c *Config) GetLandingDir() string {
	if c.Landing.Dir != "" {
		return c.Landing.Dir
	}
	return filepath.Join(c.GetDataDir(), "landing")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
