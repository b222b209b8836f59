package store

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/siherrmann/tmsrag/core/retry"
	"github.com/siherrmann/tmsrag/helper"
	"github.com/siherrmann/tmsrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type instantTimer struct{ c chan time.Time }

func (i *instantTimer) Start(time.Duration) { i.c <- time.Now() }
func (i *instantTimer) Stop()               {}
func (i *instantTimer) C() <-chan time.Time { return i.c }

func testPolicy() *retry.Policy {
	policy := retry.NewPolicy(model.DefaultConfig().Retry, helper.NewLogger(&bytes.Buffer{}, slog.LevelError))
	policy.NewTimer = func() backoff.Timer { return &instantTimer{c: make(chan time.Time, 1)} }
	return policy
}

func testLogger() *slog.Logger {
	return helper.NewLogger(&bytes.Buffer{}, slog.LevelError)
}

func testChunks() []*model.Chunk {
	return []*model.Chunk{
		{Content: "Shipper: Northwind Traders", ChunkIndex: 0, Metadata: model.Metadata{model.MetadataChunkIndex: 0}},
		{Content: "Consignee: Contoso Ltd", ChunkIndex: 1, Metadata: model.Metadata{model.MetadataChunkIndex: 1}},
		{Content: "Rate: 1500 USD, rate confirmed", ChunkIndex: 2, Metadata: model.Metadata{model.MetadataChunkIndex: 2}},
	}
}

func TestNewStore(t *testing.T) {
	collections, chunks := initHandlers(t)

	t.Run("Valid call NewStore", func(t *testing.T) {
		store, err := NewStore(collections, chunks, keywordEmbed, nil, nil)
		require.NoError(t, err)
		assert.NotNil(t, store.policy, "Expected default policy")
		assert.NotNil(t, store.logger, "Expected default logger")
	})

	t.Run("Nil embedder fails", func(t *testing.T) {
		_, err := NewStore(collections, chunks, nil, nil, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "embedder must not be nil")
	})

	t.Run("Nil handlers fail", func(t *testing.T) {
		_, err := NewStore(nil, chunks, keywordEmbed, nil, nil)
		assert.Error(t, err)
	})
}

func TestStoreLifecycle(t *testing.T) {
	collections, chunks := initHandlers(t)
	store, err := NewStore(collections, chunks, keywordEmbed, testPolicy(), testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	name := model.CollectionNameFor(uuid.New())

	t.Run("Create embeds and persists chunks", func(t *testing.T) {
		input := testChunks()
		collection, err := store.Create(ctx, input, name)
		require.NoError(t, err)
		assert.Equal(t, name, collection.Name)
		assert.Equal(t, 3, collection.ChunkCount)
		for _, chunk := range input {
			assert.Len(t, chunk.Embedding, 3, "Expected every chunk to be embedded")
		}
	})

	t.Run("Load attaches to the collection", func(t *testing.T) {
		collection, ok := store.Load(ctx, name)
		require.True(t, ok)
		assert.Equal(t, 3, collection.ChunkCount)
	})

	t.Run("Query returns nearest chunks first", func(t *testing.T) {
		collection, ok := store.Load(ctx, name)
		require.True(t, ok)

		retrieved, err := store.Query(ctx, collection, "What is the rate?", 2)
		require.NoError(t, err)
		require.Len(t, retrieved, 2)
		assert.Equal(t, "Rate: 1500 USD, rate confirmed", retrieved[0].Chunk.Content)
		assert.LessOrEqual(t, retrieved[0].Distance, retrieved[1].Distance)
		assert.Equal(t, float64(2), retrieved[0].Chunk.Metadata[model.MetadataChunkIndex])
	})

	t.Run("Query with k above collection size returns all chunks", func(t *testing.T) {
		collection, _ := store.Load(ctx, name)

		retrieved, err := store.Query(ctx, collection, "shipper", 10)
		require.NoError(t, err)
		assert.Len(t, retrieved, 3)
	})

	t.Run("Query does not mutate the store", func(t *testing.T) {
		collection, _ := store.Load(ctx, name)
		_, err := store.Query(ctx, collection, "consignee", 3)
		require.NoError(t, err)

		reloaded, ok := store.Load(ctx, name)
		require.True(t, ok)
		assert.Equal(t, 3, reloaded.ChunkCount)
	})

	t.Run("Chunks are returned in document order", func(t *testing.T) {
		collection, _ := store.Load(ctx, name)

		stored, err := store.Chunks(ctx, collection)
		require.NoError(t, err)
		require.Len(t, stored, 3)
		assert.Equal(t, "Shipper: Northwind Traders", stored[0].Content)
	})

	t.Run("Create with an existing name fails", func(t *testing.T) {
		_, err := store.Create(ctx, testChunks(), name)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrStoreCreate))
	})

	t.Run("Delete removes the collection", func(t *testing.T) {
		assert.True(t, store.Delete(ctx, name))

		_, ok := store.Load(ctx, name)
		assert.False(t, ok, "Expected deleted collection to be absent")
		assert.False(t, store.Delete(ctx, name), "Expected second delete to report false")
	})

	t.Run("Load of a missing collection is absent", func(t *testing.T) {
		collection, ok := store.Load(ctx, "doc_missing")
		assert.False(t, ok)
		assert.Nil(t, collection)
	})
}

func TestStoreFailures(t *testing.T) {
	collections, chunks := initHandlers(t)
	ctx := context.Background()

	t.Run("Transient embedding failures are retried", func(t *testing.T) {
		calls := 0
		flaky := func(ctx context.Context, text string) ([]float32, error) {
			calls++
			if calls <= 2 {
				return nil, errors.New("429 Too Many Requests")
			}
			return keywordEmbed(ctx, text)
		}
		store, err := NewStore(collections, chunks, flaky, testPolicy(), testLogger())
		require.NoError(t, err)

		collection, err := store.Create(ctx, testChunks()[:1], model.CollectionNameFor(uuid.New()))
		require.NoError(t, err)
		assert.Equal(t, 1, collection.ChunkCount)
		assert.Equal(t, 3, calls)
	})

	t.Run("Exhausted embedding retries fail with create error", func(t *testing.T) {
		calls := 0
		down := func(ctx context.Context, text string) ([]float32, error) {
			calls++
			return nil, errors.New("503 Service Unavailable")
		}
		store, err := NewStore(collections, chunks, down, testPolicy(), testLogger())
		require.NoError(t, err)
		name := model.CollectionNameFor(uuid.New())

		_, err = store.Create(ctx, testChunks(), name)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrStoreCreate))
		assert.True(t, retry.IsRetriable(err), "Expected the transient cause to stay visible")
		assert.Equal(t, 3, calls, "Expected the first chunk to be attempted three times")

		_, ok := store.Load(ctx, name)
		assert.False(t, ok, "Expected nothing to be persisted")
	})

	t.Run("Fatal query embedding failure fails with query error", func(t *testing.T) {
		calls := 0
		store, err := NewStore(collections, chunks, keywordEmbed, testPolicy(), testLogger())
		require.NoError(t, err)
		collection, err := store.Create(ctx, testChunks(), model.CollectionNameFor(uuid.New()))
		require.NoError(t, err)

		store.embed = func(ctx context.Context, text string) ([]float32, error) {
			calls++
			return nil, errors.New("invalid api key")
		}

		_, err = store.Query(ctx, collection, "rate", 3)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrStoreQuery))
		assert.Equal(t, 1, calls, "Expected fatal errors not to be retried")
	})

	t.Run("Invalid arguments", func(t *testing.T) {
		store, err := NewStore(collections, chunks, keywordEmbed, testPolicy(), testLogger())
		require.NoError(t, err)

		_, err = store.Query(ctx, &model.Collection{ID: 1}, "rate", 0)
		assert.True(t, errors.Is(err, model.ErrStoreQuery))
		assert.True(t, errors.Is(err, model.ErrInvalidInput))

		_, err = store.Query(ctx, nil, "rate", 3)
		assert.True(t, errors.Is(err, model.ErrInvalidInput))

		_, err = store.Create(ctx, nil, "doc_empty")
		assert.True(t, errors.Is(err, model.ErrStoreCreate))

		_, err = store.Create(ctx, testChunks(), " ")
		assert.True(t, errors.Is(err, model.ErrInvalidInput))
	})
}
