package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"lexdraft-backend/logger"
)

var defaultConfigPaths = []string{"./configs", "../../configs", "."}

// plain environment names accepted alongside the LLM_GEMINI_API_KEY style
var envAliases = map[string]string{
	"server.port":                   "PORT",
	"llm.gemini_api_key":            "GEMINI_API_KEY",
	"llm.anthropic_api_key":         "ANTHROPIC_API_KEY",
	"research.web_search.api_key":   "GOOGLE_SEARCH_API_KEY",
	"research.web_search.engine_id": "GOOGLE_SEARCH_ENGINE_ID",
	"database.url":                  "DATABASE_URL",
	"redis.address":                 "REDIS_ADDR",
	"redis.password":                "REDIS_PASSWORD",
	"storage.type":                  "STORAGE_TYPE",
	"storage.local_path":            "LOCAL_STORAGE_PATH",
	"storage.s3_bucket":             "S3_BUCKET",
	"storage.s3_region":             "AWS_REGION",
	"storage.s3_endpoint":           "S3_ENDPOINT",
	"storage.aws_access_key":        "AWS_ACCESS_KEY_ID",
	"storage.aws_secret_key":        "AWS_SECRET_ACCESS_KEY",
	"logging.level":                 "LOG_LEVEL",
	"mappings.path":                 "MAPPINGS_PATH",
}

// Load reads .env files, configs/config.yaml and the environment
func Load() (*Config, error) {
	loadEnvFile()
	return load(viper.New(), defaultConfigPaths)
}

func load(v *viper.Viper, paths []string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		// the structured name wins when both are set
		if err := v.BindEnv(key, strings.ToUpper(strings.NewReplacer(".", "_").Replace(key)), env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.Storage.Type = strings.ToLower(strings.TrimSpace(cfg.Storage.Type))

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("llm.provider", ProviderGemini)
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.gemini_model", "gemini-2.5-flash")
	v.SetDefault("llm.anthropic_api_key", "")
	v.SetDefault("llm.anthropic_model", "claude-sonnet-4-5")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.initial_backoff", time.Second)

	v.SetDefault("generation.section_timeout", 120*time.Second)
	v.SetDefault("generation.concurrency", 0)
	v.SetDefault("generation.max_prompt_chars", 30000)
	v.SetDefault("generation.max_revisions", 2)
	v.SetDefault("generation.validate", false)

	v.SetDefault("research.enabled", true)
	v.SetDefault("research.results_per_phrase", 3)
	v.SetDefault("research.timeout", 20*time.Second)
	v.SetDefault("research.knowledge_base_limit", 5)
	v.SetDefault("research.cache_ttl", 24*time.Hour)
	v.SetDefault("research.web_search.api_key", "")
	v.SetDefault("research.web_search.engine_id", "")
	v.SetDefault("research.web_search.max_results", 5)
	v.SetDefault("research.web_search.sites", []string{"jusbrasil.com.br", "stj.jus.br", "stf.jus.br"})

	v.SetDefault("database.url", "")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./uploads")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_endpoint", "")
	v.SetDefault("storage.aws_access_key", "")
	v.SetDefault("storage.aws_secret_key", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("mappings.path", "mappings/doctypes.yaml")
}

// loadEnvFile loads the first .env found, walking up to the project root
func loadEnvFile() {
	candidates := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		candidates = append(candidates, filepath.Join(root, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

// findProjectRoot returns the nearest directory holding go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func validateConfig(cfg *Config) error {
	if _, err := logger.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch cfg.LLM.Provider {
	case ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("llm.provider must be %q or %q, got %q", ProviderGemini, ProviderAnthropic, cfg.LLM.Provider)
	}
	switch cfg.Storage.Type {
	case "local", "s3":
	default:
		return fmt.Errorf("storage.type must be local or s3, got %q", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "s3" && cfg.Storage.S3Bucket == "" {
		return errors.New("storage.s3_bucket is required for s3 storage")
	}
	if cfg.Generation.SectionTimeout <= 0 {
		return errors.New("generation.section_timeout must be positive")
	}
	if cfg.Research.Timeout <= 0 {
		return errors.New("research.timeout must be positive")
	}
	if cfg.Generation.MaxRevisions < 0 {
		return errors.New("generation.max_revisions cannot be negative")
	}
	if cfg.Generation.Concurrency < 0 {
		return errors.New("generation.concurrency cannot be negative")
	}
	if cfg.LLM.MaxAttempts < 1 {
		return errors.New("llm.max_attempts must be at least 1")
	}
	return nil
}

// APIKey returns the key of the selected provider
func (l LLMConfig) APIKey() string {
	if l.Provider == ProviderAnthropic {
		return l.AnthropicAPIKey
	}
	return l.GeminiAPIKey
}

// Model returns the model of the selected provider
func (l LLMConfig) Model() string {
	if l.Provider == ProviderAnthropic {
		return l.AnthropicModel
	}
	return l.GeminiModel
}
