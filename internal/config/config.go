// Package config loads the bridge server configuration from a yaml
// file, with environment fallback for the agent token.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type City struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Size int    `yaml:"size"`
	Seed int64  `yaml:"seed"`
}

type Sim struct {
	TickMS            int `yaml:"tick_ms"`
	PublishEveryTicks int `yaml:"publish_every_ticks"`
}

type IndexDB struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type ObsArchive struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	// AgentToken is the single shared secret; when empty the whole
	// bridge is disabled (a feature flag, not a vulnerability path).
	AgentToken string `yaml:"agent_token"`

	City       City       `yaml:"city"`
	Sim        Sim        `yaml:"sim"`
	IndexDB    IndexDB    `yaml:"index_db"`
	ObsArchive ObsArchive `yaml:"obs_archive"`
}

// Defaults returns a runnable configuration for a fresh checkout.
func Defaults() Config {
	return Config{
		ListenAddr: ":8080",
		City:       City{ID: "city_1", Name: "New Meadow", Size: 64, Seed: 1337},
		Sim:        Sim{TickMS: 250, PublishEveryTicks: 20},
		IndexDB:    IndexDB{Path: "./data/bridge_index.db"},
		ObsArchive: ObsArchive{Path: "./data/observations.jsonl.zst"},
	}
}

// Load reads path and overlays it on Defaults. A missing file is an
// error; use Defaults directly for a config-less run. The agent token
// falls back to AGENT_BRIDGE_TOKEN when the file leaves it empty.
func Load(path string) (Config, error) {
	cfg := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("bridge.yaml: %w", err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.AgentToken == "" {
		c.AgentToken = os.Getenv("AGENT_BRIDGE_TOKEN")
	}
}

// FromEnv finalizes a config built without a file.
func FromEnv() Config {
	cfg := Defaults()
	cfg.applyEnv()
	return cfg
}
