// Package config loads daemon settings: an optional YAML file overridden by
// environment variables.
package config

import (
	"errors"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`

	ListenAddr string `yaml:"listen_addr"`

	// Default time control for new sessions, "base+increment" minutes+seconds.
	TimeControl string `yaml:"time_control"`

	// Path of the local join-memory file ("prompt once per code" marker).
	JoinMemoryPath string `yaml:"join_memory_path"`

	// Optional directory of YAML files overriding user-facing messages.
	MessageDir string `yaml:"message_dir"`
}

// Load reads ARENA_CONFIG (default config.yaml) when present, then applies
// environment overrides. REDIS_URL is the only required setting.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:     ":8080",
		TimeControl:    "10+0",
		JoinMemoryPath: ".arena-join.json",
	}

	path := strings.TrimSpace(os.Getenv("ARENA_CONFIG"))
	if path == "" {
		path = "config.yaml"
	}
	if raw, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg.RedisURL, "REDIS_URL")
	applyEnv(&cfg.DatabaseURL, "DATABASE_URL")
	applyEnv(&cfg.ListenAddr, "ARENA_LISTEN_ADDR")
	applyEnv(&cfg.TimeControl, "ARENA_TIME_CONTROL")
	applyEnv(&cfg.JoinMemoryPath, "ARENA_JOIN_MEMORY")
	applyEnv(&cfg.MessageDir, "ARENA_MESSAGE_DIR")

	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	return cfg, nil
}

func applyEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
