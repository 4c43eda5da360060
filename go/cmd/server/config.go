package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// duration makes time.Duration parseable from yaml strings like "10s".
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = duration(parsed)
	return nil
}

func (d duration) std() time.Duration {
	return time.Duration(d)
}

// Config holds the server settings loaded from YAML. Environment variables
// override the file where set.
type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		ReadTimeout    duration `yaml:"read_timeout"`
		WriteTimeout   duration `yaml:"write_timeout"`
		IdleTimeout    duration `yaml:"idle_timeout"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Feed struct {
		NotifyChannel string   `yaml:"notify_channel"`
		PingInterval  duration `yaml:"ping_interval"`
	} `yaml:"feed"`
}

func defaultConfig() *Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Server.ReadTimeout = duration(10 * time.Second)
	cfg.Server.WriteTimeout = duration(10 * time.Second)
	cfg.Server.IdleTimeout = duration(120 * time.Second)
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.NATS.URL = "nats://localhost:4222"
	cfg.Feed.NotifyChannel = "item_events"
	cfg.Feed.PingInterval = duration(90 * time.Second)
	return &cfg
}

// loadConfig reads the YAML file at path; a missing file yields defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		cfg.NATS.URL = url
	}
	return cfg, nil
}
