// Package config loads the server and CLI configuration from config.yaml,
// .env files and the environment.
package config

import (
	"time"

	"lexdraft-backend/llm"
	"lexdraft-backend/research"
	"lexdraft-backend/storage"
)

// Config is the main application configuration struct.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Generation GenerationConfig `mapstructure:"generation"`
	Research   ResearchConfig   `mapstructure:"research"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Mappings   MappingsConfig   `mapstructure:"mappings"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

const (
	ProviderGemini    = llm.ProviderGemini
	ProviderAnthropic = llm.ProviderAnthropic
)

// LLMConfig selects and tunes the completion provider.
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"`
	GeminiAPIKey    string        `mapstructure:"gemini_api_key"`
	GeminiModel     string        `mapstructure:"gemini_model"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	AnthropicModel  string        `mapstructure:"anthropic_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialBackoff  time.Duration `mapstructure:"initial_backoff"`
}

// GenerationConfig tunes section fan-out and the validate/revise loop.
type GenerationConfig struct {
	SectionTimeout time.Duration `mapstructure:"section_timeout"`
	Concurrency    int           `mapstructure:"concurrency"` // 0 = one call per section
	MaxPromptChars int           `mapstructure:"max_prompt_chars"`
	MaxRevisions   int           `mapstructure:"max_revisions"`
	Validate       bool          `mapstructure:"validate"`
}

type ResearchConfig struct {
	Enabled            bool            `mapstructure:"enabled"`
	ResultsPerPhrase   int             `mapstructure:"results_per_phrase"`
	Timeout            time.Duration   `mapstructure:"timeout"`
	KnowledgeBaseLimit int             `mapstructure:"knowledge_base_limit"`
	CacheTTL           time.Duration   `mapstructure:"cache_ttl"`
	WebSearch          WebSearchConfig `mapstructure:"web_search"`
}

type WebSearchConfig struct {
	APIKey     string   `mapstructure:"api_key"`
	EngineID   string   `mapstructure:"engine_id"`
	MaxResults int      `mapstructure:"max_results"`
	Sites      []string `mapstructure:"sites"`
}

// Enabled reports whether web search credentials are present
func (w WebSearchConfig) Enabled() bool {
	return w.APIKey != "" && w.EngineID != ""
}

// ToResearch converts to the research package configuration
func (w WebSearchConfig) ToResearch() research.WebSearchConfig {
	return research.WebSearchConfig{
		APIKey:     w.APIKey,
		EngineID:   w.EngineID,
		MaxResults: w.MaxResults,
		Sites:      w.Sites,
	}
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StorageConfig struct {
	Type         string `mapstructure:"type"`
	LocalPath    string `mapstructure:"local_path"`
	S3Bucket     string `mapstructure:"s3_bucket"`
	S3Region     string `mapstructure:"s3_region"`
	S3Endpoint   string `mapstructure:"s3_endpoint"`
	AWSAccessKey string `mapstructure:"aws_access_key"`
	AWSSecretKey string `mapstructure:"aws_secret_key"`
}

// ToStorage converts to the storage package configuration
func (s StorageConfig) ToStorage() storage.StorageConfig {
	return storage.StorageConfig{
		Type:         storage.StorageType(s.Type),
		LocalPath:    s.LocalPath,
		S3Bucket:     s.S3Bucket,
		S3Region:     s.S3Region,
		S3Endpoint:   s.S3Endpoint,
		AWSAccessKey: s.AWSAccessKey,
		AWSSecretKey: s.AWSSecretKey,
	}
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MappingsConfig is the storage key of the published catalog. When nothing is
// published there the embedded catalog is used; empty disables the lookup.
type MappingsConfig struct {
	Path string `mapstructure:"path"`
}
