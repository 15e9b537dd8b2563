// In file: cmd/mimi/config.go
package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig holds all configuration for the assistant, loaded from the
// environment and config.yaml. Secrets come from the environment; behavior
// (models, persona, limits) comes from the YAML file.
type AppConfig struct {
	EnabledModels []string
	APIKeys       map[string]string
	RedisAddr     string
	OpenAIBaseURL string

	GoogleCredentialsFile string

	Assistant AssistantConfig
	Session   SessionConfig
}

// AssistantConfig shapes the assistant's voice and generation limits.
type AssistantConfig struct {
	Persona     string   `yaml:"persona"`
	Nickname    string   `yaml:"nickname"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float32 `yaml:"temperature"`
	TopP        *float32 `yaml:"top_p"`
}

// SessionConfig controls conversation retention.
type SessionConfig struct {
	MaxHistory int
	TTL        time.Duration
}

// yamlConfig mirrors the layout of config.yaml. The TTL is a duration string
// ("24h") since yaml.v3 has no native time.Duration decoding.
type yamlConfig struct {
	Models    []string        `yaml:"models"`
	Assistant AssistantConfig `yaml:"assistant"`
	Session   struct {
		MaxHistory int    `yaml:"max_history"`
		TTL        string `yaml:"ttl"`
	} `yaml:"session"`
}

// LoadConfig loads all configuration from a .env file, environment variables,
// and config.yaml.
func LoadConfig() (*AppConfig, error) {
	// In Docker (GIN_MODE="release"), configuration is provided directly as
	// environment variables; only local development uses a .env file.
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			log.Println("WARNING: No .env file found for local development.")
		}
	}

	cfg := &AppConfig{
		APIKeys:               make(map[string]string),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		OpenAIBaseURL:         os.Getenv("OPENAI_BASE_URL"),
		GoogleCredentialsFile: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
	}

	configFile, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(configFile, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse config.yaml: %w", err)
	}

	cfg.EnabledModels = yc.Models
	cfg.Assistant = yc.Assistant
	cfg.Session.MaxHistory = yc.Session.MaxHistory
	if yc.Session.TTL != "" {
		ttl, err := time.ParseDuration(yc.Session.TTL)
		if err != nil {
			return nil, fmt.Errorf("invalid session ttl %q: %w", yc.Session.TTL, err)
		}
		cfg.Session.TTL = ttl
	}

	// ENABLED_MODELS overrides the YAML list, mostly for local experiments.
	if enabledModelsStr := os.Getenv("ENABLED_MODELS"); enabledModelsStr != "" {
		cfg.EnabledModels = strings.Split(enabledModelsStr, ",")
	}
	if len(cfg.EnabledModels) == 0 {
		return nil, fmt.Errorf("no models configured; set models in config.yaml or ENABLED_MODELS")
	}

	for _, modelID := range cfg.EnabledModels {
		var apiKey string
		// This switch statement maps model prefixes to the general API key name.
		switch {
		case strings.HasPrefix(modelID, "gpt"):
			apiKey = os.Getenv("OPENAI_API_KEY")
		case strings.HasPrefix(modelID, "gemini"):
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey != "" {
			cfg.APIKeys[modelID] = apiKey
		}
	}
	if len(cfg.APIKeys) == 0 {
		return nil, fmt.Errorf("no API keys found for any configured model")
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Assistant.MaxTokens == 0 {
		cfg.Assistant.MaxTokens = 4096
	}
	if cfg.Assistant.Nickname == "" {
		cfg.Assistant.Nickname = "friend"
	}
	if cfg.Session.MaxHistory == 0 {
		cfg.Session.MaxHistory = 40
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 24 * time.Hour
	}
}
