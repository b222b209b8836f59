package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicOption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/siherrmann/tmsrag/model"
	"google.golang.org/genai"
)

// GenerateFunc completes a single prompt deterministically (temperature 0).
type GenerateFunc func(ctx context.Context, prompt string) (string, error)

// NewGenerator returns the generator selected by the llm configuration.
func NewGenerator(ctx context.Context, config model.LLMConfig) (GenerateFunc, error) {
	switch config.Provider {
	case model.ProviderOpenAI:
		return OpenAIGenerator(config)
	case model.ProviderAnthropic:
		return AnthropicGenerator(config)
	case model.ProviderGemini:
		return GeminiGenerator(ctx, config)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", config.Provider)
	}
}

// OpenAIGenerator creates a generator for any OpenAI compatible chat endpoint.
// The default configuration points at Groq.
func OpenAIGenerator(config model.LLMConfig) (GenerateFunc, error) {
	apiKey := config.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", config.APIKeyEnv)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries are handled by the callers retry policy.
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	client := openai.NewClient(opts...)

	return func(ctx context.Context, prompt string) (string, error) {
		params := openai.ChatCompletionNewParams{
			Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
			Model:       openai.ChatModel(config.Model),
			Temperature: openai.Float(0),
		}
		if config.MaxTokens > 0 {
			params.MaxTokens = openai.Int(int64(config.MaxTokens))
		}

		resp, err := client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("failed to generate completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no completion generated")
		}
		return resp.Choices[0].Message.Content, nil
	}, nil
}

// AnthropicGenerator creates a generator backed by the Anthropic messages API.
func AnthropicGenerator(config model.LLMConfig) (GenerateFunc, error) {
	apiKey := config.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", config.APIKeyEnv)
	}

	opts := []anthropicOption.RequestOption{
		anthropicOption.WithAPIKey(apiKey),
		anthropicOption.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, anthropicOption.WithBaseURL(config.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	maxTokens := int64(config.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			MaxTokens:   maxTokens,
			Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
			Model:       anthropic.Model(config.Model),
			Temperature: anthropic.Float(0),
		})
		if err != nil {
			return "", fmt.Errorf("failed to generate completion: %w", err)
		}

		var text strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}
		if text.Len() == 0 {
			return "", fmt.Errorf("no completion generated")
		}
		return text.String(), nil
	}, nil
}

// GeminiGenerator creates a generator backed by the Gemini API.
func GeminiGenerator(ctx context.Context, config model.LLMConfig) (GenerateFunc, error) {
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

	generateConfig := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)}
	if config.MaxTokens > 0 {
		generateConfig.MaxOutputTokens = int32(config.MaxTokens)
	}

	return func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, config.Model, genai.Text(prompt), generateConfig)
		if err != nil {
			return "", fmt.Errorf("failed to generate completion: %w", err)
		}
		text := resp.Text()
		if text == "" {
			return "", fmt.Errorf("no completion generated")
		}
		return text, nil
	}, nil
}
