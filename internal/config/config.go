package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

const (
	DefaultPrompt      = "smash"
	DefaultSubshell    = "/bin/bash"
	DefaultHistorySize = 1000
	DefaultKillSignal  = 9
)

type Config struct {
	Prompt      string   `yaml:"prompt"`
	Subshell    string   `yaml:"subshell"`
	HomeDir     string   `yaml:"home_dir"`
	HistoryFile string   `yaml:"history_file"`
	HistorySize int      `yaml:"history_size"`
	KillSignal  int      `yaml:"kill_signal"`
	Debug       bool     `yaml:"debug"`
	Plugins     []string `yaml:"plugins"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-"`
}

// Load reads file and fills in defaults. A missing file is not an error.
func Load(file string) (*Config, error) {
	cfg := &Config{}
	if file != "" {
		data, err := os.ReadFile(file)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", file, err)
			}
			cfg.Path = file
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() (*Config, error) {
	return Load("")
}

func (c *Config) setDefaults() error {
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
	if c.Subshell == "" {
		c.Subshell = DefaultSubshell
	}
	if c.HomeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.HomeDir = home
	}
	if c.HistoryFile == "" {
		c.HistoryFile = filepath.Join(c.HomeDir, ".smash_history")
	}
	if c.HistorySize <= 0 {
		c.HistorySize = DefaultHistorySize
	}
	if c.KillSignal <= 0 {
		c.KillSignal = DefaultKillSignal
	}
	return nil
}
