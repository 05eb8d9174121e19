package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Database
	DatabaseDriver string // "postgres" or "sqlite"
	DatabaseURL    string

	// Inference provider
	InferenceBaseURL string
	InferenceAPIKey  string
	InferenceModel   string

	// Answer cache (disabled when RedisAddr is empty)
	RedisAddr string
	CacheTTL  time.Duration

	// Server
	Port        string
	Environment string
}

// Load builds the configuration from an optional YAML file (CONFIG_PATH),
// with environment variables taking precedence over file values.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseDriver:   "postgres",
		InferenceBaseURL: "https://router.huggingface.co/v1/",
		InferenceModel:   "Qwen/Qwen2.5-VL-72B-Instruct",
		CacheTTL:         24 * time.Hour,
		Port:             "8080",
		Environment:      "development",
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.DatabaseDriver = getEnv("DATABASE_DRIVER", cfg.DatabaseDriver)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.InferenceBaseURL = getEnv("INFERENCE_BASE_URL", cfg.InferenceBaseURL)
	cfg.InferenceAPIKey = getEnv("HF_TOKEN", cfg.InferenceAPIKey)
	cfg.InferenceModel = getEnv("INFERENCE_MODEL", cfg.InferenceModel)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)

	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// fileConfig mirrors Config for YAML decoding; durations are strings in the
// file ("24h") and parsed here.
type fileConfig struct {
	DatabaseDriver   string `yaml:"databaseDriver"`
	DatabaseURL      string `yaml:"databaseURL"`
	InferenceBaseURL string `yaml:"inferenceBaseURL"`
	InferenceAPIKey  string `yaml:"inferenceAPIKey"`
	InferenceModel   string `yaml:"inferenceModel"`
	RedisAddr        string `yaml:"redisAddr"`
	CacheTTL         string `yaml:"cacheTTL"`
	Port             string `yaml:"port"`
	Environment      string `yaml:"environment"`
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	setIfPresent(&c.DatabaseDriver, fc.DatabaseDriver)
	setIfPresent(&c.DatabaseURL, fc.DatabaseURL)
	setIfPresent(&c.InferenceBaseURL, fc.InferenceBaseURL)
	setIfPresent(&c.InferenceAPIKey, fc.InferenceAPIKey)
	setIfPresent(&c.InferenceModel, fc.InferenceModel)
	setIfPresent(&c.RedisAddr, fc.RedisAddr)
	setIfPresent(&c.Port, fc.Port)
	setIfPresent(&c.Environment, fc.Environment)
	if fc.CacheTTL != "" {
		d, err := time.ParseDuration(fc.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid cacheTTL in %s: %w", path, err)
		}
		c.CacheTTL = d
	}
	return nil
}

func setIfPresent(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func (c *Config) Validate() error {
	if c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite" {
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.InferenceAPIKey == "" {
		return fmt.Errorf("HF_TOKEN is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
