package model

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/siherrmann/tmsrag/helper"
	"gopkg.in/yaml.v3"
)

// Chunking strategies.
const (
	ChunkingRecursive = "recursive"
	ChunkingParagraph = "paragraph"
)

// Model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderLocal     = "local"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Upload    UploadConfig    `yaml:"upload"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Retry     RetryConfig     `yaml:"retry"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LogLevel  string          `yaml:"log_level"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type UploadConfig struct {
	Dir               string   `yaml:"dir"`
	MaxBytes          int64    `yaml:"max_bytes"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

type ChunkingConfig struct {
	Strategy string `yaml:"strategy"`
	Size     int    `yaml:"size"`
	Overlap  int    `yaml:"overlap"`
}

// RetrievalConfig controls the answer engine and the extractor.
type RetrievalConfig struct {
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	SimilarityWeight    float64 `yaml:"similarity_weight"`
	AgreementWeight     float64 `yaml:"agreement_weight"`
	ExtractionTopK      int     `yaml:"extraction_top_k"`
}

// RetryConfig bounds the retries around external model calls.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	MinWait     time.Duration `yaml:"min_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
}

type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	MaxTokens int    `yaml:"max_tokens"`
}

// APIKey reads the key from the configured environment variable.
func (c LLMConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Dimension int    `yaml:"dimension"`
	ModelDir  string `yaml:"model_dir"`
}

// APIKey reads the key from the configured environment variable.
func (c EmbeddingConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// DefaultConfig returns the default configuration.
// Groq serves the language model and Mistral the embeddings.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Upload: UploadConfig{
			Dir:               "./uploads",
			MaxBytes:          10 * 1024 * 1024,
			AllowedExtensions: []string{"txt", "md", "csv"},
		},
		Chunking: ChunkingConfig{
			Strategy: ChunkingRecursive,
			Size:     1000,
			Overlap:  200,
		},
		Retrieval: RetrievalConfig{
			TopK:                3,
			SimilarityThreshold: 0.2,
			SimilarityWeight:    0.5,
			AgreementWeight:     0.5,
			ExtractionTopK:      5,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			MinWait:     time.Second,
			MaxWait:     10 * time.Second,
		},
		LLM: LLMConfig{
			Provider:  ProviderOpenAI,
			Model:     "llama-3.1-8b-instant",
			BaseURL:   "https://api.groq.com/openai/v1",
			APIKeyEnv: "GROQ_API_KEY",
			MaxTokens: 1024,
		},
		Embedding: EmbeddingConfig{
			Provider:  ProviderOpenAI,
			Model:     "mistral-embed",
			BaseURL:   "https://api.mistral.ai/v1",
			APIKeyEnv: "MISTRAL_API_KEY",
			Dimension: 1024,
			ModelDir:  "./models",
		},
		LogLevel: "info",
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file
// and TMSRAG_* environment variables, in that order of precedence.
// A .env file in the working directory is loaded first if present.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, helper.NewError("read config file", err)
		}
		err = yaml.Unmarshal(data, config)
		if err != nil {
			return nil, helper.NewError("parse config file", err)
		}
	}

	config.applyEnv()

	err := config.Validate()
	if err != nil {
		return nil, helper.NewError("validate config", err)
	}

	return config, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = helper.GetEnv("TMSRAG_HOST", c.Server.Host)
	c.Server.Port = helper.GetEnvInt("TMSRAG_PORT", c.Server.Port)

	c.Upload.Dir = helper.GetEnv("TMSRAG_UPLOAD_DIR", c.Upload.Dir)
	c.Upload.MaxBytes = helper.GetEnvInt64("TMSRAG_MAX_UPLOAD_BYTES", c.Upload.MaxBytes)
	c.Upload.AllowedExtensions = helper.GetEnvList("TMSRAG_ALLOWED_EXTENSIONS", c.Upload.AllowedExtensions)

	c.Chunking.Strategy = helper.GetEnv("TMSRAG_CHUNKING_STRATEGY", c.Chunking.Strategy)
	c.Chunking.Size = helper.GetEnvInt("TMSRAG_CHUNK_SIZE", c.Chunking.Size)
	c.Chunking.Overlap = helper.GetEnvInt("TMSRAG_CHUNK_OVERLAP", c.Chunking.Overlap)

	c.Retrieval.TopK = helper.GetEnvInt("TMSRAG_TOP_K", c.Retrieval.TopK)
	c.Retrieval.SimilarityThreshold = helper.GetEnvFloat("TMSRAG_SIMILARITY_THRESHOLD", c.Retrieval.SimilarityThreshold)
	c.Retrieval.SimilarityWeight = helper.GetEnvFloat("TMSRAG_SIMILARITY_WEIGHT", c.Retrieval.SimilarityWeight)
	c.Retrieval.AgreementWeight = helper.GetEnvFloat("TMSRAG_AGREEMENT_WEIGHT", c.Retrieval.AgreementWeight)
	c.Retrieval.ExtractionTopK = helper.GetEnvInt("TMSRAG_EXTRACTION_TOP_K", c.Retrieval.ExtractionTopK)

	c.Retry.MaxAttempts = helper.GetEnvInt("TMSRAG_RETRY_MAX_ATTEMPTS", c.Retry.MaxAttempts)
	c.Retry.MinWait = helper.GetEnvDuration("TMSRAG_RETRY_MIN_WAIT", c.Retry.MinWait)
	c.Retry.MaxWait = helper.GetEnvDuration("TMSRAG_RETRY_MAX_WAIT", c.Retry.MaxWait)

	c.LLM.Provider = helper.GetEnv("TMSRAG_LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = helper.GetEnv("TMSRAG_LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = helper.GetEnv("TMSRAG_LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.APIKeyEnv = helper.GetEnv("TMSRAG_LLM_API_KEY_ENV", c.LLM.APIKeyEnv)

	c.Embedding.Provider = helper.GetEnv("TMSRAG_EMBEDDING_PROVIDER", c.Embedding.Provider)
	c.Embedding.Model = helper.GetEnv("TMSRAG_EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.BaseURL = helper.GetEnv("TMSRAG_EMBEDDING_BASE_URL", c.Embedding.BaseURL)
	c.Embedding.APIKeyEnv = helper.GetEnv("TMSRAG_EMBEDDING_API_KEY_ENV", c.Embedding.APIKeyEnv)
	c.Embedding.Dimension = helper.GetEnvInt("TMSRAG_EMBEDDING_DIMENSION", c.Embedding.Dimension)

	c.LogLevel = helper.GetEnv("TMSRAG_LOG_LEVEL", c.LogLevel)
}

// Validate checks the configuration for values the service cannot run with.
// Weights that do not sum to 1.0 are accepted.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload max_bytes must be positive"))
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		errs = append(errs, errors.New("upload allowed_extensions must not be empty"))
	}
	if c.Chunking.Strategy != ChunkingRecursive && c.Chunking.Strategy != ChunkingParagraph {
		errs = append(errs, fmt.Errorf("unknown chunking strategy %q", c.Chunking.Strategy))
	}
	if c.Chunking.Size <= 0 {
		errs = append(errs, errors.New("chunk size must be positive"))
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		errs = append(errs, errors.New("chunk overlap must be between 0 and chunk size"))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, errors.New("retrieval top_k must be positive"))
	}
	if c.Retrieval.ExtractionTopK <= 0 {
		errs = append(errs, errors.New("retrieval extraction_top_k must be positive"))
	}
	if c.Retrieval.SimilarityThreshold < 0 || c.Retrieval.SimilarityThreshold > 1 {
		errs = append(errs, errors.New("similarity threshold must be within [0, 1]"))
	}
	if c.Retrieval.SimilarityWeight < 0 || c.Retrieval.AgreementWeight < 0 {
		errs = append(errs, errors.New("confidence weights must not be negative"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max_attempts must be at least 1"))
	}
	if c.Retry.MinWait <= 0 || c.Retry.MaxWait < c.Retry.MinWait {
		errs = append(errs, errors.New("retry waits must satisfy 0 < min_wait <= max_wait"))
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderLocal:
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, errors.New("embedding dimension must be positive"))
	}

	return errors.Join(errs...)
}
