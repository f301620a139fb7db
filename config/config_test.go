package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexdraft-backend/storage"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New(), []string{t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, 120*time.Second, cfg.Generation.SectionTimeout)
	assert.Equal(t, 2, cfg.Generation.MaxRevisions)
	assert.Equal(t, 30000, cfg.Generation.MaxPromptChars)
	assert.Equal(t, 24*time.Hour, cfg.Research.CacheTTL)
	assert.Len(t, cfg.Research.WebSearch.Sites, 3)
	assert.False(t, cfg.Research.WebSearch.Enabled())
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model())
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := writeConfig(t, `
llm:
  provider: Anthropic
  anthropic_model: claude-test
generation:
  section_timeout: 45s
  concurrency: 4
research:
  web_search:
    engine_id: cx-1
    sites:
      - stj.jus.br
mappings:
  path: mappings/doctypes.yaml
`)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("GOOGLE_SEARCH_API_KEY", "search-key")
	t.Setenv("GENERATION_MAX_REVISIONS", "4")

	cfg, err := load(viper.New(), []string{dir})
	require.NoError(t, err)

	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey())
	assert.Equal(t, "claude-test", cfg.LLM.Model())
	assert.Equal(t, 45*time.Second, cfg.Generation.SectionTimeout)
	assert.Equal(t, 4, cfg.Generation.Concurrency)
	assert.Equal(t, 4, cfg.Generation.MaxRevisions)
	assert.Equal(t, []string{"stj.jus.br"}, cfg.Research.WebSearch.Sites)
	assert.True(t, cfg.Research.WebSearch.Enabled())
	assert.Equal(t, "mappings/doctypes.yaml", cfg.Mappings.Path)

	ws := cfg.Research.WebSearch.ToResearch()
	assert.Equal(t, "search-key", ws.APIKey)
	assert.Equal(t, "cx-1", ws.EngineID)
}

func TestLoad_StructuredEnvWinsOverAlias(t *testing.T) {
	t.Setenv("LLM_GEMINI_API_KEY", "structured")
	t.Setenv("GEMINI_API_KEY", "plain")

	cfg, err := load(viper.New(), []string{t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "structured", cfg.LLM.GeminiAPIKey)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "unknown provider", yaml: "llm:\n  provider: openai\n"},
		{name: "zero section timeout", env: map[string]string{"GENERATION_SECTION_TIMEOUT": "0s"}},
		{name: "negative revisions", yaml: "generation:\n  max_revisions: -1\n"},
		{name: "s3 without bucket", yaml: "storage:\n  type: s3\n"},
		{name: "unknown storage", yaml: "storage:\n  type: ftp\n"},
		{name: "unknown log level", env: map[string]string{"LOG_LEVEL": "verbose"}},
		{name: "log level above error", yaml: "logging:\n  level: fatal\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(viper.New(), []string{writeConfig(t, tt.yaml)})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	_, err := load(viper.New(), []string{writeConfig(t, "llm: [unterminated\n")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestStorageConfig_ToStorage(t *testing.T) {
	sc := StorageConfig{Type: "s3", S3Bucket: "docs", S3Region: "sa-east-1", S3Endpoint: "http://minio:9000"}.ToStorage()
	assert.Equal(t, storage.StorageTypeS3, sc.Type)
	assert.Equal(t, "docs", sc.S3Bucket)
	assert.Equal(t, "http://minio:9000", sc.S3Endpoint)
}
