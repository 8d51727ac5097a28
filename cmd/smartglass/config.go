package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the optional CLI configuration file.
type Config struct {
	// Address is a console IP that discovery and power-on also send to
	// directly, in addition to broadcast and multicast.
	Address string `yaml:"address,omitempty"`

	// LiveID is the console Live ID used by poweron when no Live ID
	// argument is given.
	LiveID string `yaml:"liveid,omitempty"`

	// Userhash and Token are the Xbox Live credentials handed to
	// connect. Empty means anonymous.
	Userhash string `yaml:"userhash,omitempty"`
	Token    string `yaml:"token,omitempty"`

	// ConsolesFile is where discovered consoles are persisted.
	ConsolesFile string `yaml:"consoles_file,omitempty"`

	// LogLevel: trace, debug, info, warn or error.
	LogLevel string `yaml:"log_level,omitempty"`
}

// DefaultConfigPath returns ~/.smartglass/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".smartglass", "config.yaml")
}

// LoadConfig reads the config file at path. A missing file yields the
// zero config.
func LoadConfig(path string) (*Config, error) {
	config := &Config{}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) consolesFile() string {
	if c.ConsolesFile != "" {
		return c.ConsolesFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "consoles.json"
	}
	return filepath.Join(home, ".smartglass", "consoles.json")
}
