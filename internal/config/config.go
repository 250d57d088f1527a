package config

import (
	"fmt"
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
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Decks struct {
		TTL string `yaml:"ttl"`
		Dir string `yaml:"dir"`
	} `yaml:"decks"`
	Session struct {
		AutoAdvance string `yaml:"autoAdvance"`
	} `yaml:"session"`
	Answers struct {
		Delimiter string `yaml:"delimiter"`
		Escape    string `yaml:"escape"`
	} `yaml:"answers"`
	Reporting ReportingConfig `yaml:"reporting"`
	WebSocket struct {
		MessagesPerSecond float64 `yaml:"messagesPerSecond"`
		Burst             int     `yaml:"burst"`
	} `yaml:"websocket"`
	Log LogConfig `yaml:"log"`
}

// ReportingConfig selects where result statements are sent.
type ReportingConfig struct {
	LRSEndpoint     string `yaml:"lrsEndpoint"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	ActivityBase    string `yaml:"activityBase"`
	Timeout         string `yaml:"timeout"`
	StatementStream string `yaml:"statementStream"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
	File     string `yaml:"file"`
}

// Load reads YAML config from path and validates it.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks durations and limits once so later code can rely on them.
func (c Config) Validate() error {
	durations := map[string]string{
		"redis.ttl":           c.Redis.TTL,
		"decks.ttl":           c.Decks.TTL,
		"session.autoAdvance": c.Session.AutoAdvance,
		"reporting.timeout":   c.Reporting.Timeout,
	}
	for key, raw := range durations {
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		if d < 0 {
			return fmt.Errorf("config %s: must not be negative", key)
		}
	}
	if c.WebSocket.MessagesPerSecond < 0 || c.WebSocket.Burst < 0 {
		return fmt.Errorf("config websocket: rate limits must not be negative")
	}
	if c.Answers.Delimiter != "" && c.Answers.Delimiter == c.Answers.Escape {
		return fmt.Errorf("config answers: delimiter and escape must differ")
	}
	if c.Reporting.LRSEndpoint != "" && c.Reporting.Username == "" {
		return fmt.Errorf("config reporting: username required with lrsEndpoint")
	}
	return nil
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
