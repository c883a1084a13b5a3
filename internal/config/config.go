// Package config provides application configuration. Values come from a
// YAML file when one is present, with environment variables taking
// precedence; secrets normally arrive through the environment only.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Port        string `yaml:"port"`
	FrontendURL string `yaml:"frontend_url"`
	DBPath      string `yaml:"db_path"`

	Redis      RedisConfig      `yaml:"redis"`
	SessionTTL time.Duration    `yaml:"-"`
	Embedding  ProviderConfig   `yaml:"embedding"`
	Generation ProviderConfig   `yaml:"generation"`
	Pinecone   PineconeConfig   `yaml:"pinecone"`

	// SessionTTLSeconds is the YAML-facing form of SessionTTL.
	SessionTTLSeconds int `yaml:"session_ttl_seconds"`
}

// RedisConfig holds cache tier connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ProviderConfig holds the settings of one OpenAI-compatible provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// PineconeConfig holds vector index settings.
type PineconeConfig struct {
	APIKey string `yaml:"api_key"`
	Host   string `yaml:"host"`
}

// Load builds the configuration: defaults, then the optional YAML file
// (CONFIG_PATH, default ./config.yaml), then environment overrides.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              "3001",
		DBPath:            "./data/newschat.db",
		SessionTTLSeconds: 3600,
		Redis:             RedisConfig{Addr: "localhost:6379"},
		Embedding: ProviderConfig{
			BaseURL: "https://api.jina.ai/v1",
			Model:   "jina-embeddings-v2-base-en",
		},
		Generation: ProviderConfig{
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "llama-3.3-70b-versatile",
		},
	}

	path := getEnv("CONFIG_PATH", "./config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.FrontendURL = getEnv("FRONTEND_URL", cfg.FrontendURL)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.SessionTTLSeconds = getEnvInt("SESSION_TTL", cfg.SessionTTLSeconds)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)

	cfg.Embedding.APIKey = getEnv("EMBEDDING_API_KEY", getEnv("JINA_API_KEY", cfg.Embedding.APIKey))
	cfg.Embedding.BaseURL = getEnv("EMBEDDING_BASE_URL", cfg.Embedding.BaseURL)
	cfg.Embedding.Model = getEnv("EMBEDDING_MODEL", cfg.Embedding.Model)

	cfg.Generation.APIKey = getEnv("GENERATION_API_KEY", getEnv("GROQ_API_KEY", cfg.Generation.APIKey))
	cfg.Generation.BaseURL = getEnv("GENERATION_BASE_URL", cfg.Generation.BaseURL)
	cfg.Generation.Model = getEnv("GENERATION_MODEL", cfg.Generation.Model)

	cfg.Pinecone.APIKey = getEnv("PINECONE_API_KEY", cfg.Pinecone.APIKey)
	cfg.Pinecone.Host = getEnv("PINECONE_INDEX_HOST", cfg.Pinecone.Host)

	cfg.SessionTTL = time.Duration(cfg.SessionTTLSeconds) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionTTLSeconds <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("EMBEDDING_API_KEY (or JINA_API_KEY) is required")
	}
	if c.Generation.APIKey == "" {
		return fmt.Errorf("GENERATION_API_KEY (or GROQ_API_KEY) is required")
	}
	if c.Pinecone.APIKey == "" {
		return fmt.Errorf("PINECONE_API_KEY is required")
	}
	if c.Pinecone.Host == "" {
		return fmt.Errorf("PINECONE_INDEX_HOST is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
