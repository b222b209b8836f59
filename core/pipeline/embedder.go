package pipeline

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/siherrmann/tmsrag/helper"
	"github.com/siherrmann/tmsrag/model"
	"google.golang.org/genai"
)

// DefaultEmbeddingModel is the local sentence transformer, 384 dimensions.
const DefaultEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"

// NewEmbedder returns the embedder selected by the embedding configuration.
func NewEmbedder(ctx context.Context, config model.EmbeddingConfig) (EmbedFunc, error) {
	switch config.Provider {
	case model.ProviderOpenAI:
		return OpenAIEmbedder(config)
	case model.ProviderGemini:
		return GeminiEmbedder(ctx, config)
	case model.ProviderLocal:
		return DefaultEmbedder(config.ModelDir)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", config.Provider)
	}
}

// DefaultEmbedder creates an embedder using a local sentence transformer model.
// Uses the all-MiniLM-L6-v2 model which produces 384-dimensional embeddings
func DefaultEmbedder(modelDir string) (EmbedFunc, error) {
	// Prepare model (download if needed)
	modelPath, err := helper.PrepareModel(modelDir, DefaultEmbeddingModel, "onnx/model.onnx")
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return func(ctx context.Context, text string) ([]float32, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := sentencePipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}

		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}

		return result.Embeddings[0], nil
	}, nil
}

// OpenAIEmbedder creates an embedder for any OpenAI compatible embeddings endpoint.
// The default configuration points at Mistral.
func OpenAIEmbedder(config model.EmbeddingConfig) (EmbedFunc, error) {
	apiKey := config.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", config.APIKeyEnv)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries are handled by the chunk store.
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	client := openai.NewClient(opts...)

	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
			Model: openai.EmbeddingModel(config.Model),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}

		embedding := make([]float32, len(resp.Data[0].Embedding))
		for i, v := range resp.Data[0].Embedding {
			embedding[i] = float32(v)
		}
		return embedding, nil
	}, nil
}

// GeminiEmbedder creates an embedder backed by the Gemini API.
func GeminiEmbedder(ctx context.Context, config model.EmbeddingConfig) (EmbedFunc, error) {
	apiKey := config.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", config.APIKeyEnv)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	embedConfig := &genai.EmbedContentConfig{}
	if config.Dimension > 0 {
		embedConfig.OutputDimensionality = genai.Ptr(int32(config.Dimension))
	}

	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.Models.EmbedContent(ctx, config.Model, genai.Text(text), embedConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}
		if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
			return nil, fmt.Errorf("no embedding generated")
		}
		return resp.Embeddings[0].Values, nil
	}, nil
}
