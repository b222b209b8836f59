package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/tmsrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunksNewChunksDBHandler(t *testing.T) {
	database := initDB(t)

	_, err := NewCollectionsDBHandler(database, true)
	require.NoError(t, err, "Expected NewCollectionsDBHandler to not return an error")

	t.Run("Valid call NewChunksDBHandler", func(t *testing.T) {
		chunksDbHandler, err := NewChunksDBHandler(database, testDimension, true)
		assert.NoError(t, err, "Expected NewChunksDBHandler to not return an error")
		require.NotNil(t, chunksDbHandler, "Expected NewChunksDBHandler to return a non-nil instance")
		require.NotNil(t, chunksDbHandler.db.Instance, "Expected NewChunksDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewChunksDBHandler with nil database", func(t *testing.T) {
		_, err := NewChunksDBHandler(nil, testDimension, false)
		assert.Error(t, err, "Expected error when creating ChunksDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})

	t.Run("Invalid call NewChunksDBHandler with zero dimension", func(t *testing.T) {
		_, err := NewChunksDBHandler(database, 0, false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "embedding dimension must be positive")
	})
}

func newTestChunks() []*model.Chunk {
	return []*model.Chunk{
		{Content: "Shipper: Northwind Traders, Seattle WA", ChunkIndex: 0, Metadata: model.Metadata{"chunk_index": 0}, Embedding: []float32{1, 0, 0}},
		{Content: "Consignee: Contoso Ltd, Denver CO", ChunkIndex: 1, Metadata: model.Metadata{"chunk_index": 1}, Embedding: []float32{0, 1, 0}},
		{Content: "Rate: 1500.00 USD", ChunkIndex: 2, Metadata: model.Metadata{"chunk_index": 2}, Embedding: []float32{0.9, 0.1, 0}},
	}
}

func TestChunksInsertCollectionWithChunks(t *testing.T) {
	collectionsDbHandler, chunksDbHandler := initChunkHandlers(t)
	ctx := context.Background()

	t.Run("Insert collection with chunks", func(t *testing.T) {
		name := "doc_" + uuid.NewString()
		chunks := newTestChunks()

		collection, err := chunksDbHandler.InsertCollectionWithChunks(ctx, name, chunks)
		require.NoError(t, err, "Expected InsertCollectionWithChunks to not return an error")
		assert.Equal(t, name, collection.Name)
		assert.Equal(t, 3, collection.ChunkCount)

		for _, chunk := range chunks {
			assert.NotZero(t, chunk.ID, "Expected inserted chunk to have an ID")
			assert.Equal(t, collection.ID, chunk.CollectionID)
		}

		loaded, err := collectionsDbHandler.SelectCollectionByName(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, 3, loaded.ChunkCount, "Expected chunk count to be computed from stored chunks")
	})

	t.Run("Wrong embedding dimension inserts nothing", func(t *testing.T) {
		name := "doc_" + uuid.NewString()
		chunks := newTestChunks()
		chunks[1].Embedding = []float32{1, 0}

		_, err := chunksDbHandler.InsertCollectionWithChunks(ctx, name, chunks)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chunk 1 has 2 dimensions, expected 3")

		_, err = collectionsDbHandler.SelectCollectionByName(ctx, name)
		assert.Error(t, err, "Expected no collection to be created")
	})

	t.Run("Duplicate name rolls back", func(t *testing.T) {
		name := "doc_" + uuid.NewString()
		_, err := chunksDbHandler.InsertCollectionWithChunks(ctx, name, newTestChunks())
		require.NoError(t, err)

		_, err = chunksDbHandler.InsertCollectionWithChunks(ctx, name, newTestChunks())
		assert.Error(t, err, "Expected second insert with the same name to fail")

		collection, err := collectionsDbHandler.SelectCollectionByName(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, 3, collection.ChunkCount, "Expected first collection to be unchanged")
	})
}

func TestChunksSelect(t *testing.T) {
	_, chunksDbHandler := initChunkHandlers(t)
	ctx := context.Background()

	collection, err := chunksDbHandler.InsertCollectionWithChunks(ctx, "doc_"+uuid.NewString(), newTestChunks())
	require.NoError(t, err)

	other, err := chunksDbHandler.InsertCollectionWithChunks(ctx, "doc_"+uuid.NewString(), newTestChunks())
	require.NoError(t, err)

	t.Run("Select chunks by collection in document order", func(t *testing.T) {
		chunks, err := chunksDbHandler.SelectChunksByCollection(ctx, collection.ID)
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		for i, chunk := range chunks {
			assert.Equal(t, i, chunk.ChunkIndex)
			assert.Equal(t, collection.ID, chunk.CollectionID)
			assert.Nil(t, chunk.Embedding, "Expected embeddings not to be loaded")
		}
	})

	t.Run("Select chunks by distance nearest first", func(t *testing.T) {
		retrieved, err := chunksDbHandler.SelectChunksByDistance(ctx, collection.ID, []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, retrieved, 2)

		assert.Equal(t, "Shipper: Northwind Traders, Seattle WA", retrieved[0].Chunk.Content)
		assert.InDelta(t, 0.0, retrieved[0].Distance, 0.0001)
		assert.Equal(t, "Rate: 1500.00 USD", retrieved[1].Chunk.Content)
		assert.LessOrEqual(t, retrieved[0].Distance, retrieved[1].Distance)
		assert.Equal(t, float64(2), retrieved[1].Chunk.Metadata["chunk_index"])
	})

	t.Run("Select chunks by distance stays within the collection", func(t *testing.T) {
		retrieved, err := chunksDbHandler.SelectChunksByDistance(ctx, other.ID, []float32{0, 1, 0}, 10)
		require.NoError(t, err)
		assert.Len(t, retrieved, 3, "Expected fewer than k when the collection is small")
		for _, r := range retrieved {
			assert.Equal(t, other.ID, r.Chunk.CollectionID)
		}
	})

	t.Run("Select chunks by distance of missing collection is empty", func(t *testing.T) {
		retrieved, err := chunksDbHandler.SelectChunksByDistance(ctx, -1, []float32{0, 1, 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, retrieved)
	})
}
