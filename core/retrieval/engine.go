package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siherrmann/tmsrag/core/llm"
	"github.com/siherrmann/tmsrag/core/retry"
	"github.com/siherrmann/tmsrag/core/store"
	"github.com/siherrmann/tmsrag/helper"
	"github.com/siherrmann/tmsrag/model"
)

const (
	// NoInformationAnswer is returned when the store yields no chunks.
	NoInformationAnswer = "No relevant information found in the document."
	// AbstentionAnswer replaces the generated answer when a guardrail fires.
	AbstentionAnswer = "I cannot provide a confident answer based on the available context. " +
		"The information might not be present in the document, or the retrieved content has low relevance to your question."

	contextDelimiter = "\n\n---\n\n"
	// Agreement when only a single source backs the answer.
	singleSourceAgreement = 0.7
)

const answerTemplate = `You are a helpful AI assistant for a Transportation Management System (TMS).
Your task is to answer questions about logistics documents accurately and concisely.

IMPORTANT RULES:
1. Answer ONLY based on the provided context below
2. If the context doesn't contain the information, say "The information is not found in the document"
3. Be specific and cite relevant details from the context
4. Keep answers concise and factual
5. Do not make up or infer information not present in the context

Context from document:
%s

Question: %s

Answer:`

// Engine answers questions over a chunk store with confidence scoring and guardrails.
type Engine struct {
	querier  store.Querier
	generate llm.GenerateFunc
	config   model.RetrievalConfig
	policy   *retry.Policy
	logger   *slog.Logger
}

// NewEngine creates a new answer engine
func NewEngine(querier store.Querier, generate llm.GenerateFunc, config model.RetrievalConfig, policy *retry.Policy, logger *slog.Logger) (*Engine, error) {
	if querier == nil {
		return nil, helper.NewError("engine validation", fmt.Errorf("querier must not be nil"))
	}
	if generate == nil {
		return nil, helper.NewError("engine validation", fmt.Errorf("generator must not be nil"))
	}
	if config.TopK <= 0 {
		return nil, helper.NewError("engine validation", fmt.Errorf("top k must be positive, got %d", config.TopK))
	}
	if policy == nil {
		policy = retry.DefaultPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		querier:  querier,
		generate: generate,
		config:   config,
		policy:   policy,
		logger:   logger,
	}, nil
}

// AnswerQuestion retrieves the top k chunks for question, generates a grounded
// answer and scores it. A guardrail abstention is a successful result.
func (e *Engine) AnswerQuestion(ctx context.Context, collection *model.Collection, question string) (*model.AnswerResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, helper.NewError("answer question", fmt.Errorf("%w: question is required", model.ErrInvalidInput))
	}
	if collection == nil {
		return nil, helper.NewError("answer question", fmt.Errorf("%w: collection is nil", model.ErrInvalidInput))
	}

	retrieved, err := e.querier.Query(ctx, collection, question, e.config.TopK)
	if err != nil {
		return nil, helper.NewError("answer question", fmt.Errorf("%w: %w", model.ErrRetrieval, err))
	}

	if len(retrieved) == 0 {
		e.logger.Info("No chunks retrieved", slog.String("collection", collection.Name))
		return &model.AnswerResult{
			Answer:           NoInformationAnswer,
			Confidence:       model.NewConfidenceScore(0),
			Sources:          []model.Source{},
			PassesGuardrails: false,
		}, nil
	}

	prompt := fmt.Sprintf(answerTemplate, buildContext(retrieved), question)
	answer, err := retry.Do(ctx, e.policy, "generate answer", func() (string, error) {
		return e.generate(ctx, prompt)
	})
	if err != nil {
		return nil, helper.NewError("answer question", fmt.Errorf("%w: %w", model.ErrGeneration, err))
	}

	avgSimilarity := averageSimilarity(retrieved)
	agreement := sourceAgreement(retrieved)
	confidence := model.NewConfidenceScore(e.config.SimilarityWeight*avgSimilarity + e.config.AgreementWeight*agreement)

	e.logger.Info(
		"Scored answer confidence",
		slog.Float64("avg_similarity", avgSimilarity),
		slog.Float64("source_agreement", agreement),
		slog.Float64("confidence", confidence.Score),
		slog.String("category", string(confidence.Category)),
	)

	result := &model.AnswerResult{
		Answer:           strings.TrimSpace(answer),
		Confidence:       confidence,
		Sources:          make([]model.Source, len(retrieved)),
		PassesGuardrails: true,
	}
	for i, r := range retrieved {
		result.Sources[i] = model.NewSource(r)
	}

	e.applyGuardrails(result, avgSimilarity)

	return result, nil
}

// applyGuardrails forces an abstention when either the retrieval similarity or
// the confidence falls below the similarity threshold.
func (e *Engine) applyGuardrails(result *model.AnswerResult, avgRetrieval float64) {
	threshold := e.config.SimilarityThreshold
	if avgRetrieval >= threshold && result.Confidence.Score >= threshold {
		return
	}

	e.logger.Warn(
		"Guardrail triggered",
		slog.Float64("avg_retrieval", avgRetrieval),
		slog.Float64("confidence", result.Confidence.Score),
		slog.Float64("threshold", threshold),
	)

	result.Answer = AbstentionAnswer
	result.Confidence.Category = model.ConfidenceLow
	result.PassesGuardrails = false
}

func buildContext(retrieved []model.RetrievedChunk) string {
	parts := make([]string, len(retrieved))
	for i, r := range retrieved {
		content := ""
		if r.Chunk != nil {
			content = r.Chunk.Content
		}
		parts[i] = fmt.Sprintf("[Source %d]:\n%s", i+1, content)
	}
	return strings.Join(parts, contextDelimiter)
}

// averageSimilarity is 1 - mean distance, unclamped.
func averageSimilarity(retrieved []model.RetrievedChunk) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range retrieved {
		sum += r.Distance
	}
	return 1 - sum/float64(len(retrieved))
}

func sourceAgreement(retrieved []model.RetrievedChunk) float64 {
	if len(retrieved) >= 2 {
		return 1.0
	}
	return singleSourceAgreement
}
