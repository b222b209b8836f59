package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Run("Returns correct default values", func(t *testing.T) {
		config := DefaultConfig()

		assert.Equal(t, 3, config.Retrieval.TopK, "Default TopK should be 3")
		assert.Equal(t, 0.2, config.Retrieval.SimilarityThreshold, "Default threshold should be 0.2")
		assert.Equal(t, 0.5, config.Retrieval.SimilarityWeight)
		assert.Equal(t, 0.5, config.Retrieval.AgreementWeight)
		assert.Equal(t, 5, config.Retrieval.ExtractionTopK)
		assert.Equal(t, 3, config.Retry.MaxAttempts)
		assert.Equal(t, time.Second, config.Retry.MinWait)
		assert.Equal(t, 10*time.Second, config.Retry.MaxWait)
		assert.Equal(t, 1000, config.Chunking.Size)
		assert.Equal(t, 200, config.Chunking.Overlap)
		assert.Equal(t, int64(10*1024*1024), config.Upload.MaxBytes)
		assert.Equal(t, "GROQ_API_KEY", config.LLM.APIKeyEnv)
		assert.Equal(t, "MISTRAL_API_KEY", config.Embedding.APIKeyEnv)
	})

	t.Run("Default weights sum to 1.0", func(t *testing.T) {
		config := DefaultConfig()
		assert.InDelta(t, 1.0, config.Retrieval.SimilarityWeight+config.Retrieval.AgreementWeight, 0.001)
	})

	t.Run("Default config is valid", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		errText string
	}{
		{"Zero top k", func(c *Config) { c.Retrieval.TopK = 0 }, "top_k must be positive"},
		{"Threshold above one", func(c *Config) { c.Retrieval.SimilarityThreshold = 1.5 }, "similarity threshold"},
		{"Negative weight", func(c *Config) { c.Retrieval.AgreementWeight = -0.1 }, "weights must not be negative"},
		{"No attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "max_attempts"},
		{"Max wait below min wait", func(c *Config) { c.Retry.MaxWait = 500 * time.Millisecond }, "min_wait <= max_wait"},
		{"Overlap not below size", func(c *Config) { c.Chunking.Overlap = 1000 }, "chunk overlap"},
		{"Unknown strategy", func(c *Config) { c.Chunking.Strategy = "semantic" }, "unknown chunking strategy"},
		{"Unknown llm provider", func(c *Config) { c.LLM.Provider = "cohere" }, "unknown llm provider"},
		{"Local llm is not supported", func(c *Config) { c.LLM.Provider = ProviderLocal }, "unknown llm provider"},
		{"Unknown embedding provider", func(c *Config) { c.Embedding.Provider = "anthropic" }, "unknown embedding provider"},
		{"Bad port", func(c *Config) { c.Server.Port = 70000 }, "out of range"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.mutate(config)

			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errText)
		})
	}

	t.Run("Weights not summing to one are accepted", func(t *testing.T) {
		config := DefaultConfig()
		config.Retrieval.SimilarityWeight = 0.9
		config.Retrieval.AgreementWeight = 0.9
		assert.NoError(t, config.Validate())
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("Without file returns defaults", func(t *testing.T) {
		config, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().Retrieval, config.Retrieval)
	})

	t.Run("YAML file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
retrieval:
  top_k: 4
  similarity_threshold: 0.3
retry:
  min_wait: 500ms
  max_wait: 4s
llm:
  provider: anthropic
  model: claude-3-5-haiku-latest
  api_key_env: ANTHROPIC_API_KEY
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))

		config, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 4, config.Retrieval.TopK)
		assert.Equal(t, 0.3, config.Retrieval.SimilarityThreshold)
		assert.Equal(t, 0.5, config.Retrieval.SimilarityWeight, "Expected unset values to keep defaults")
		assert.Equal(t, 500*time.Millisecond, config.Retry.MinWait)
		assert.Equal(t, 4*time.Second, config.Retry.MaxWait)
		assert.Equal(t, ProviderAnthropic, config.LLM.Provider)
	})

	t.Run("Environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  top_k: 4\n"), 0600))
		t.Setenv("TMSRAG_TOP_K", "6")
		t.Setenv("TMSRAG_RETRY_MAX_WAIT", "20s")

		config, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 6, config.Retrieval.TopK)
		assert.Equal(t, 20*time.Second, config.Retry.MaxWait)
	})

	t.Run("Invalid values fail validation", func(t *testing.T) {
		t.Setenv("TMSRAG_TOP_K", "-1")

		_, err := LoadConfig("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validate config")
	})

	t.Run("Missing file fails", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config file")
	})

	t.Run("API key is read from the named variable", func(t *testing.T) {
		t.Setenv("GROQ_API_KEY", "gsk-test")
		config := DefaultConfig()
		assert.Equal(t, "gsk-test", config.LLM.APIKey())
	})
}
