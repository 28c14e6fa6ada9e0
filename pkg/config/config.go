package config

import (
	"fmt"
	"os"
	"time"

	"github.com/chatgate/chatgate/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config holds all chatgate configuration. It is constructed once at
// startup and passed into each component's constructor; nothing reads the
// environment after Load returns.
type Config struct {
	Listen    string             `yaml:"listen"`
	Cache     CacheConfig        `yaml:"cache"`
	RateLimit RateLimitConfig    `yaml:"rate_limit"`
	Upstream  UpstreamConfig     `yaml:"upstream"`
	Audit     models.AuditConfig `yaml:"audit"`
}

// CacheConfig controls the answer cache.
// Backend is "sqlite" (default) or "redis".
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	DBPath  string        `yaml:"db_path"`
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig identifies the Redis server for the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RateLimitConfig controls per-client admission.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// UpstreamConfig defines the generative text API the gateway forwards to.
type UpstreamConfig struct {
	URL          string        `yaml:"url"`
	APIKey       string        `yaml:"api_key"`
	Model        string        `yaml:"model"`
	SystemPrompt string        `yaml:"system_prompt"`
	Timeout      time.Duration `yaml:"timeout"`
	Retries      uint          `yaml:"retries"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Cache: CacheConfig{
			Backend: "sqlite",
			DBPath:  "chatgate-cache.db",
			TTL:     time.Hour,
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		RateLimit: RateLimitConfig{
			Requests: 5,
			Window:   time.Minute,
		},
		Upstream: UpstreamConfig{
			URL:          "https://api.openai.com",
			Model:        "gpt-3.5-turbo",
			SystemPrompt: "You are a helpful assistant.",
			Timeout:      30 * time.Second,
		},
		Audit: models.AuditConfig{
			DBPath:        "chatgate-audit.db",
			RetentionDays: 90,
			LogAnswers:    true,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
