package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siherrmann/tmsrag/core/pipeline"
	"github.com/siherrmann/tmsrag/core/retry"
	"github.com/siherrmann/tmsrag/database"
	"github.com/siherrmann/tmsrag/helper"
	"github.com/siherrmann/tmsrag/model"
)

// Querier is the query capability handed to the answer engine and the extractor.
type Querier interface {
	Query(ctx context.Context, collection *model.Collection, text string, k int) ([]model.RetrievedChunk, error)
}

// Store is the only component talking to the vector index. Embedding and
// database calls go through the retry policy.
type Store struct {
	collections database.CollectionsDBHandlerFunctions
	chunks      database.ChunksDBHandlerFunctions
	embed       pipeline.EmbedFunc
	policy      *retry.Policy
	logger      *slog.Logger
}

// NewStore creates a chunk store over the given handlers.
func NewStore(collections database.CollectionsDBHandlerFunctions, chunks database.ChunksDBHandlerFunctions, embed pipeline.EmbedFunc, policy *retry.Policy, logger *slog.Logger) (*Store, error) {
	if collections == nil || chunks == nil {
		return nil, helper.NewError("store validation", fmt.Errorf("database handlers must not be nil"))
	}
	if embed == nil {
		return nil, helper.NewError("store validation", fmt.Errorf("embedder must not be nil"))
	}
	if policy == nil {
		policy = retry.DefaultPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		collections: collections,
		chunks:      chunks,
		embed:       embed,
		policy:      policy,
		logger:      logger,
	}, nil
}

// Create embeds every chunk and persists them as a new named collection.
// Callers must use a fresh name per document.
func (s *Store) Create(ctx context.Context, chunks []*model.Chunk, name string) (*model.Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, helper.NewError("create chunk store", fmt.Errorf("%w: %w: collection name is required", model.ErrStoreCreate, model.ErrInvalidInput))
	}
	if len(chunks) == 0 {
		return nil, helper.NewError("create chunk store", fmt.Errorf("%w: %w: no chunks to store", model.ErrStoreCreate, model.ErrInvalidInput))
	}

	for i, chunk := range chunks {
		embedding, err := retry.Do(ctx, s.policy, "embed chunk", func() ([]float32, error) {
			return s.embed(ctx, chunk.Content)
		})
		if err != nil {
			return nil, helper.NewError("create chunk store", fmt.Errorf("%w: embedding chunk %d: %w", model.ErrStoreCreate, i, err))
		}
		chunk.Embedding = embedding
	}

	collection, err := retry.Do(ctx, s.policy, "persist chunk store", func() (*model.Collection, error) {
		return s.chunks.InsertCollectionWithChunks(ctx, name, chunks)
	})
	if err != nil {
		return nil, helper.NewError("create chunk store", fmt.Errorf("%w: %w", model.ErrStoreCreate, err))
	}

	s.logger.Info("Created chunk store", slog.String("collection", name), slog.Int("chunks", len(chunks)))

	return collection, nil
}

// Load attaches to an existing collection without re-embedding.
// It reports false when the collection cannot be opened.
func (s *Store) Load(ctx context.Context, name string) (*model.Collection, bool) {
	collection, err := s.collections.SelectCollectionByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("Chunk store not found", slog.String("collection", name))
		} else {
			s.logger.Error("Error loading chunk store", slog.String("collection", name), slog.String("error", err.Error()))
		}
		return nil, false
	}

	s.logger.Info("Loaded chunk store", slog.String("collection", name), slog.Int("chunks", collection.ChunkCount))

	return collection, true
}

// Delete removes a collection and its chunks.
// It reports false when the collection did not exist or could not be deleted.
func (s *Store) Delete(ctx context.Context, name string) bool {
	deleted, err := s.collections.DeleteCollectionByName(ctx, name)
	if err != nil {
		s.logger.Error("Error deleting chunk store", slog.String("collection", name), slog.String("error", err.Error()))
		return false
	}

	s.logger.Info("Deleted chunk store", slog.String("collection", name), slog.Bool("existed", deleted))

	return deleted
}

// Query embeds text and returns up to k chunks of the collection nearest first.
// Fewer than k chunks are returned when the collection is smaller. Query never
// mutates the store.
func (s *Store) Query(ctx context.Context, collection *model.Collection, text string, k int) ([]model.RetrievedChunk, error) {
	if collection == nil {
		return nil, helper.NewError("query chunk store", fmt.Errorf("%w: %w: collection is nil", model.ErrStoreQuery, model.ErrInvalidInput))
	}
	if k <= 0 {
		return nil, helper.NewError("query chunk store", fmt.Errorf("%w: %w: k must be positive, got %d", model.ErrStoreQuery, model.ErrInvalidInput, k))
	}

	embedding, err := retry.Do(ctx, s.policy, "embed query", func() ([]float32, error) {
		return s.embed(ctx, text)
	})
	if err != nil {
		return nil, helper.NewError("query chunk store", fmt.Errorf("%w: embedding query: %w", model.ErrStoreQuery, err))
	}

	retrieved, err := retry.Do(ctx, s.policy, "select nearest chunks", func() ([]model.RetrievedChunk, error) {
		return s.chunks.SelectChunksByDistance(ctx, collection.ID, embedding, k)
	})
	if err != nil {
		return nil, helper.NewError("query chunk store", fmt.Errorf("%w: %w", model.ErrStoreQuery, err))
	}

	s.logger.Info("Queried chunk store", slog.String("collection", collection.Name), slog.Int("k", k), slog.Int("results", len(retrieved)))

	return retrieved, nil
}

// Chunks returns the stored chunks of a collection in document order.
func (s *Store) Chunks(ctx context.Context, collection *model.Collection) ([]*model.Chunk, error) {
	chunks, err := s.chunks.SelectChunksByCollection(ctx, collection.ID)
	if err != nil {
		return nil, helper.NewError("select chunks", err)
	}
	return chunks, nil
}
